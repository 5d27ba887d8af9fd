package services

import (
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/pkg/rabbitmq"
)

var (
	// ErrTokenMismatch means the shared-secret token supplied with a send
	// request did not match the configured one. Surfaced explicitly; the
	// store is never touched on this path.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrRecipientNotFound means the recipient id resolves to no user.
	ErrRecipientNotFound = errors.New("recipient not found")
)

// MessageEventPublisher publishes domain events after successful sends.
type MessageEventPublisher interface {
	PublishMessageSent(event rabbitmq.MessageSentEvent) error
}

// MessageService implements the four messaging operations on top of the
// two stores. It holds no state of its own; the authenticated caller is
// an explicit parameter on every operation, never shared process state.
type MessageService struct {
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	token       string
	publisher   MessageEventPublisher
}

// NewMessageService creates a new MessageService. publisher may be nil,
// in which case event publication is skipped.
func NewMessageService(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, token string, publisher MessageEventPublisher) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		token:       token,
		publisher:   publisher,
	}
}

// SendReceipt confirms a delivered send.
type SendReceipt struct {
	MessageID         uint
	RecipientUsername string
}

// ReadResult is the payload handed back for one consumed unread message.
type ReadResult struct {
	ID           uint      `json:"id"`
	SentBy       string    `json:"sent_by"`
	CreationDate time.Time `json:"creation_date"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
}

// MessageSummary is one entry of a list-by-sender response.
type MessageSummary struct {
	Sent    uint   `json:"sent"`
	Subject string `json:"subject"`
	Read    bool   `json:"read"`
	Body    string `json:"body"`
	SentTo  string `json:"sent_to"`
}

// Send checks the shared token, resolves the recipient and persists the
// message with the caller as sender.
func (s *MessageService) Send(caller *models.User, token, subject, body string, recipientID uint) (*SendReceipt, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return nil, ErrTokenMismatch
	}

	recipient, err := s.userRepo.GetByID(recipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	msg := &models.Message{
		Subject:   subject,
		Body:      body,
		SentBy:    caller.ID,
		Recipient: recipient.ID,
	}
	if err := s.messageRepo.Create(msg); err != nil {
		return nil, err
	}

	// Event publication is best effort: a broker outage must not fail a
	// send that is already persisted.
	if s.publisher != nil {
		event := rabbitmq.MessageSentEvent{
			MessageID:   msg.ID,
			SenderID:    caller.ID,
			RecipientID: recipient.ID,
			Subject:     msg.Subject,
			SentAt:      msg.CreationDate,
		}
		if err := s.publisher.PublishMessageSent(event); err != nil {
			log.Printf("Warning: failed to publish message sent event for message %d: %v", msg.ID, err)
		}
	}

	return &SendReceipt{
		MessageID:         msg.ID,
		RecipientUsername: recipient.Username,
	}, nil
}

// ReadNext consumes the caller's oldest unread message: it marks the
// message read and returns it. A nil result with a nil error is the
// normal empty-inbox state. The mark-read is conditional on the row
// still being unread, so each message is handed to at most one caller
// even under concurrent reads; losing the race just moves on to the
// next unread message.
func (s *MessageService) ReadNext(caller *models.User) (*ReadResult, error) {
	for {
		msg, err := s.messageRepo.FirstUnreadByRecipient(caller.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrMessageNotFound) {
				return nil, nil
			}
			return nil, err
		}

		flipped, err := s.messageRepo.MarkRead(msg.ID)
		if err != nil {
			return nil, err
		}
		if !flipped {
			// Another caller claimed this message between the lookup and
			// the update. Try the next one.
			continue
		}

		sender, err := s.userRepo.GetByID(msg.SentBy)
		if err != nil {
			return nil, err
		}
		return &ReadResult{
			ID:           msg.ID,
			SentBy:       sender.Username,
			CreationDate: msg.CreationDate,
			Subject:      msg.Subject,
			Body:         msg.Body,
		}, nil
	}
}

// Delete permanently removes a message by id and returns the removed row.
// Any authenticated caller may delete any message; the caller is threaded
// through for request attribution only.
func (s *MessageService) Delete(caller *models.User, id uint) (*models.Message, error) {
	msg, err := s.messageRepo.Delete(id)
	if err != nil {
		return nil, err
	}
	log.Printf("Message %d deleted by user %d", msg.ID, caller.ID)
	return msg, nil
}

// ListBySender returns all messages sent by the given user, keyed by
// message id, with recipient usernames resolved. A non-nil read filter
// restricts the result to exactly that read state.
func (s *MessageService) ListBySender(senderID uint, read *bool) (map[uint]MessageSummary, error) {
	msgs, err := s.messageRepo.ListBySender(senderID, read)
	if err != nil {
		return nil, err
	}

	usernames := make(map[uint]string)
	summaries := make(map[uint]MessageSummary, len(msgs))
	for _, msg := range msgs {
		name, ok := usernames[msg.Recipient]
		if !ok {
			recipient, err := s.userRepo.GetByID(msg.Recipient)
			if err != nil {
				return nil, err
			}
			name = recipient.Username
			usernames[msg.Recipient] = name
		}
		summaries[msg.ID] = MessageSummary{
			Sent:    msg.SentBy,
			Subject: msg.Subject,
			Read:    msg.Read,
			Body:    msg.Body,
			SentTo:  name,
		}
	}
	return summaries, nil
}
