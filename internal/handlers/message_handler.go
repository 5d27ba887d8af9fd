package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"mailroom/internal/middleware"
	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MessageHandler handles HTTP requests for the messaging operations.
type MessageHandler struct {
	messageService *services.MessageService
	validate       *validator.Validate
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		validate:       validator.New(),
	}
}

// RegisterRoutes registers the messaging routes with the Fiber app.
func (h *MessageHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/send_message", h.HandleSendMessage)
	router.Get("/read_message", h.HandleReadMessage)
	router.Post("/delete_message/:id", h.HandleDeleteMessage)
	router.Get("/all_msg_by_usrid/:id", h.HandleListBySender)
}

// currentUser returns the user resolved by the Basic-Auth middleware.
func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(middleware.UserContextKey).(*models.User)
	return user, ok
}

// validationErrorResponse renders a 400 with one entry per failed field.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// SendMessageRequest represents the request body for send_message.
type SendMessageRequest struct {
	Token     string `json:"token" form:"token" validate:"required"`
	Subject   string `json:"subject" form:"subject" validate:"required,max=80"`
	Body      string `json:"body" form:"body" validate:"required"`
	Recipient uint   `json:"recipient" form:"recipient" validate:"required"`
}

// HandleSendMessage sends a message from the authenticated caller to the
// requested recipient. The shared token must match or nothing is stored.
func (h *MessageHandler) HandleSendMessage(c *fiber.Ctx) error {
	caller, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing send_message request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	receipt, err := h.messageService.Send(caller, req.Token, req.Subject, req.Body, req.Recipient)
	if err != nil {
		log.Printf("Error sending message from user %d: %v", caller.ID, err)
		switch {
		case errors.Is(err, services.ErrTokenMismatch):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Invalid token",
			})
		case errors.Is(err, services.ErrRecipientNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Recipient with ID %d not found", req.Recipient),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not send message",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Sent a message to %s", receipt.RecipientUsername),
	})
}

// HandleReadMessage returns the caller's oldest unread message and marks
// it read. An empty inbox is a normal 200, not an error.
func (h *MessageHandler) HandleReadMessage(c *fiber.Ctx) error {
	caller, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	result, err := h.messageService.ReadNext(caller)
	if err != nil {
		log.Printf("Error reading next message for user %d: %v", caller.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not read message",
		})
	}
	if result == nil {
		return c.JSON(fiber.Map{
			"message": "There are no new messages for this user",
		})
	}
	return c.JSON(result)
}

// HandleDeleteMessage permanently removes a message by id.
func (h *MessageHandler) HandleDeleteMessage(c *fiber.Ctx) error {
	caller, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Message id must be an integer",
		})
	}

	msg, err := h.messageService.Delete(caller, uint(id))
	if err != nil {
		log.Printf("Error deleting message %d: %v", id, err)
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Message with ID %d not found", id),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete message",
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Message ID %d Deleted", msg.ID),
	})
}

// HandleListBySender lists a sender's messages keyed by message id. The
// optional "read" value (query string or form body) filters by read state.
func (h *MessageHandler) HandleListBySender(c *fiber.Ctx) error {
	if _, ok := currentUser(c); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	senderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Sender id must be an integer",
		})
	}

	raw := c.Query("read")
	if raw == "" {
		raw = c.FormValue("read")
	}
	var readFilter *bool
	if raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "read filter must be a boolean",
			})
		}
		readFilter = &v
	}

	summaries, err := h.messageService.ListBySender(uint(senderID), readFilter)
	if err != nil {
		log.Printf("Error listing messages for sender %d: %v", senderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not list messages",
		})
	}
	return c.JSON(summaries)
}
