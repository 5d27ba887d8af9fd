package repositories

import "mailroom/internal/models"

// MessageRepository defines the interface for message data access.
type MessageRepository interface {
	// Create persists a new message with read=false and a UTC creation
	// timestamp. The store assigns the id.
	Create(msg *models.Message) error
	GetByID(id uint) (*models.Message, error)
	// FirstUnreadByRecipient returns the oldest unread message for the
	// recipient (ascending id), or ErrMessageNotFound when the inbox has
	// no unread messages.
	FirstUnreadByRecipient(recipientID uint) (*models.Message, error)
	// MarkRead flips the read flag and reports whether this call was the
	// one that flipped it. A message that is already read (or gone)
	// yields (false, nil), so concurrent readers can detect a lost race.
	MarkRead(id uint) (bool, error)
	// Delete removes the message and returns the removed row, or
	// ErrMessageNotFound if no such id exists.
	Delete(id uint) (*models.Message, error)
	// ListBySender returns the sender's messages in ascending id order.
	// A non-nil read filter restricts results to exactly that read state.
	ListBySender(senderID uint, read *bool) ([]models.Message, error)
}
