package repositories

import (
	"errors"
	"fmt"
	"time"

	"mailroom/internal/models"

	"gorm.io/gorm"
)

// GORMMessageRepository is a GORM implementation of MessageRepository.
type GORMMessageRepository struct {
	db *gorm.DB
}

// NewGORMMessageRepository creates a new instance of GORMMessageRepository.
func NewGORMMessageRepository(db *gorm.DB) *GORMMessageRepository {
	return &GORMMessageRepository{
		db: db,
	}
}

// Create persists a new message in the database.
func (r *GORMMessageRepository) Create(msg *models.Message) error {
	msg.Read = false
	if msg.CreationDate.IsZero() {
		msg.CreationDate = time.Now().UTC()
	}
	// Omit the FK associations so GORM only writes the message row; the
	// constraint still rejects ids that reference no user.
	if err := r.db.Omit("Sender", "Receiver").Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID retrieves a single message by its ID.
func (r *GORMMessageRepository) GetByID(id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID %d: %w", id, err)
	}
	return &msg, nil
}

// FirstUnreadByRecipient returns the oldest unread message for a recipient.
// Ordering is by ascending id, so two messages created in the same instant
// still resolve to the earlier insert.
func (r *GORMMessageRepository) FirstUnreadByRecipient(recipientID uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.
		Where("recipient = ? AND read = ?", recipientID, false).
		Order("id asc").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get first unread message for recipient %d: %w", recipientID, err)
	}
	return &msg, nil
}

// MarkRead flips the read flag false->true. The WHERE clause keeps the
// update conditional on the row still being unread, so of any number of
// concurrent callers exactly one sees (true, nil).
func (r *GORMMessageRepository) MarkRead(id uint) (bool, error) {
	res := r.db.Model(&models.Message{}).
		Where("id = ? AND read = ?", id, false).
		Update("read", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark message %d as read: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a message and returns the removed row. Fetch and delete
// run in one transaction so the returned data always matches what was
// actually removed.
func (r *GORMMessageRepository) Delete(id uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		return tx.Delete(&models.Message{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	return &msg, nil
}

// ListBySender retrieves all messages sent by a user, optionally filtered
// by read state, in ascending id order.
func (r *GORMMessageRepository) ListBySender(senderID uint, read *bool) ([]models.Message, error) {
	q := r.db.Where("sent_by = ?", senderID)
	if read != nil {
		q = q.Where("read = ?", *read)
	}
	var msgs []models.Message
	if err := q.Order("id asc").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages for sender %d: %w", senderID, err)
	}
	return msgs, nil
}
