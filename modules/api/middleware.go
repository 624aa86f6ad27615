package api

import (
	"strings"

	"github.com/example/task-tracker-api/domain/apperr"
	"github.com/example/task-tracker-api/domain/user"
	"github.com/example/task-tracker-api/modules/auth"
	"github.com/gofiber/fiber/v2"
)

// identityKey is the Locals key holding the caller's user.Identity.
const identityKey = "identity"

const (
	msgMalformedHeader = "missing or malformed authorization header"
	msgInvalidToken    = "invalid or expired token"
)

// AuthMiddleware validates the bearer token and stores the caller's identity.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c, msgMalformedHeader)
		}

		identity, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil || identity == nil || !identity.Valid() {
			return unauthorized(c, msgInvalidToken)
		}

		c.Locals(identityKey, *identity)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by AuthMiddleware.
func IdentityFrom(c *fiber.Ctx) (user.Identity, bool) {
	identity, ok := c.Locals(identityKey).(user.Identity)
	return identity, ok && identity.Valid()
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   string(apperr.KindAuthentication),
		Message: message,
	})
}
