package middleware

import (
	"encoding/base64"
	"strings"

	"mailroom/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserContextKey is the Locals key under which the authenticated user is
// stored for the duration of one request.
const UserContextKey = "current_user"

// BasicAuthRequired is a Fiber middleware enforcing HTTP Basic Auth. On
// success the resolved *models.User is stored in the request Locals; the
// binding lives exactly as long as the request. Every failure, whatever
// its cause, produces the same 401 response.
func BasicAuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const prefix = "Basic "

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return unauthorized(c)
		}

		decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
		if err != nil {
			return unauthorized(c)
		}

		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return unauthorized(c)
		}

		user, err := authService.Authenticate(username, password)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(UserContextKey, user)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Restricted"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Invalid credentials",
	})
}
