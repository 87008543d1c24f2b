package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/auth"
	"github.com/paywave/paywave/internal/identity"
)

const userIDLocal = "user_id"

// UserLookup confirms a token subject still maps to a user.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// JWTAuth validates bearer tokens and stores the caller's user id in Locals.
func JWTAuth(signer *auth.Signer, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := signer.Parse(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if _, err := users.FindByID(c.UserContext(), claims.Subject); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(userIDLocal, claims.Subject)
		return c.Next()
	}
}

// UserID returns the authenticated caller set by JWTAuth.
func UserID(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals(userIDLocal).(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	return uid, nil
}
