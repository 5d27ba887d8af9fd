package handlers

import (
	"errors"
	"log"

	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user provisioning.
type UserHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the user provisioning routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/users", h.HandleCreateUser)
}

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Username     string `json:"username" form:"username" validate:"required,min=3,max=80"`
	Email        string `json:"email" form:"email" validate:"required,email"`
	Password     string `json:"password" form:"password" validate:"required,min=6"`
	HasPrivilege bool   `json:"has_privilege" form:"has_privilege"`
}

// HandleCreateUser provisions a new user. Only privileged callers may do
// this; everyone else gets a 403.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	caller, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}
	if !caller.HasPrivilege {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "User provisioning requires privilege",
		})
	}

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create user request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		HasPrivilege: req.HasPrivilege,
	}
	if err := h.authService.RegisterUser(&user); err != nil {
		log.Printf("Error registering user %s: %v", req.Username, err)
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
		})
	}

	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}
