package middleware

import (
	"slices"
	"strings"

	"backend-antrian-bank/internal/config"

	"github.com/gofiber/fiber/v2"
)

// claimsKey is the fiber.Ctx locals key holding the verified *config.JWTClaims
type claimsKey struct{}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// JWTAuth verifies the Bearer token and keeps its claims on the request.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Missing authorization header")
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" || strings.Contains(token, " ") {
			return unauthorized(c, "Invalid authorization format")
		}

		claims, err := config.ValidateToken(token, secret)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(claimsKey{}, claims)
		return c.Next()
	}
}

// Claims returns the token claims stored by JWTAuth.
func Claims(c *fiber.Ctx) (*config.JWTClaims, bool) {
	claims, ok := c.Locals(claimsKey{}).(*config.JWTClaims)
	return claims, ok && claims != nil
}

// RoleAuth must run after JWTAuth.
func RoleAuth(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return unauthorized(c, "Missing authorization header")
		}

		if slices.Contains(allowedRoles, claims.Role) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "You do not have access to this resource",
		})
	}
}
