package repositories

import (
	"sort"
	"sync"
	"time"

	"mailroom/internal/models"
)

// MockMessageRepository is an in-memory implementation of MessageRepository.
// It mirrors the conditional-update semantics of the GORM implementation
// under a single mutex, so service-level concurrency tests behave like the
// real store.
type MockMessageRepository struct {
	messages map[uint]models.Message
	nextID   uint
	mu       sync.RWMutex
}

// NewMockMessageRepository creates a new instance of MockMessageRepository.
func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]models.Message),
		nextID:   1,
	}
}

// Create adds a new message, assigning the next free id.
func (r *MockMessageRepository) Create(msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = r.nextID
	r.nextID++
	msg.Read = false
	if msg.CreationDate.IsZero() {
		msg.CreationDate = time.Now().UTC()
	}
	r.messages[msg.ID] = *msg
	return nil
}

// GetByID returns the message with the given id.
func (r *MockMessageRepository) GetByID(id uint) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return &msg, nil
}

// FirstUnreadByRecipient returns the unread message with the lowest id.
func (r *MockMessageRepository) FirstUnreadByRecipient(recipientID uint) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first *models.Message
	for id := range r.messages {
		msg := r.messages[id]
		if msg.Recipient != recipientID || msg.Read {
			continue
		}
		if first == nil || msg.ID < first.ID {
			first = &msg
		}
	}
	if first == nil {
		return nil, ErrMessageNotFound
	}
	return first, nil
}

// MarkRead flips the read flag, reporting whether this call flipped it.
func (r *MockMessageRepository) MarkRead(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok || msg.Read {
		return false, nil
	}
	msg.Read = true
	r.messages[id] = msg
	return true, nil
}

// Delete removes a message and returns the removed row.
func (r *MockMessageRepository) Delete(id uint) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	delete(r.messages, id)
	return &msg, nil
}

// ListBySender returns the sender's messages in ascending id order.
func (r *MockMessageRepository) ListBySender(senderID uint, read *bool) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := make([]models.Message, 0)
	for _, msg := range r.messages {
		if msg.SentBy != senderID {
			continue
		}
		if read != nil && msg.Read != *read {
			continue
		}
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}
