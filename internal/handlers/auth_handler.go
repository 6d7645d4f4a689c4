package handlers

import (
	"errors"

	"axle-upload/internal/middleware"
	"axle-upload/internal/pkg/validation"
	"axle-upload/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles operator login.
type AuthHandler struct {
	authService services.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an operator and returns a JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)

	var req loginRequest
	if !validation.ParseAndValidate(c, &req) {
		return nil
	}

	token, err := h.authService.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		logger.Error("login failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}

	return c.JSON(fiber.Map{"token": token})
}
