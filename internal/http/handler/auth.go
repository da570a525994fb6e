package handler

import (
	"strings"

	"backend-antrian-bank/internal/config"
	"backend-antrian-bank/internal/http/middleware"
	"backend-antrian-bank/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	admin := h.cfg.Admin
	if admin.Email == "" || admin.PasswordHash == "" {
		h.log.Warn("login attempted without ADMIN_EMAIL/ADMIN_PASSWORD_HASH configured")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Admin login is not configured",
		})
	}

	// same response for unknown email and wrong password
	emailOK := strings.EqualFold(strings.TrimSpace(req.Email), admin.Email)
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil || !emailOK {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid email or password",
		})
	}

	token, err := config.GenerateToken(admin.Email, config.RoleAdmin, h.cfg.JWT.Secret, h.cfg.JWT.TTL)
	if err != nil {
		h.log.Error("generate token failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to generate token",
		})
	}

	h.log.Info("admin logged in", zap.String("email", admin.Email))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data": models.LoginResponse{
			Token:     token,
			ExpiresIn: int64(h.cfg.JWT.TTL.Seconds()),
			User:      models.AdminResponse{Email: admin.Email, Role: config.RoleAdmin},
		},
	})
}

// Logout - tokens are stateless, the client drops its copy
func (h *Handler) Logout(c *fiber.Ctx) error {
	if claims, ok := middleware.Claims(c); ok {
		h.log.Info("admin logged out", zap.String("email", claims.Email))
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logout successful",
	})
}
