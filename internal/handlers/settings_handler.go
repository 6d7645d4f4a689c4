package handlers

import (
	"axle-upload/internal/activation"
	"axle-upload/internal/middleware"
	"axle-upload/internal/models"
	"axle-upload/internal/pkg/validation"
	"axle-upload/internal/settings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SettingsHandler exposes the per-target settings and the activation status.
type SettingsHandler struct {
	store  *settings.Store
	gate   *activation.Gate
	logger *zap.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(store *settings.Store, gate *activation.Gate, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, gate: gate, logger: logger}
}

// Get returns one target's settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	cfg, err := h.store.Get(c.Params("target"))
	if err != nil {
		return respondError(c, logger, err)
	}
	return c.JSON(cfg)
}

// Update replaces one target's settings. The scheduler picks the change up
// immediately through its settings watch.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	target := c.Params("target")

	var cfg models.TargetSetting
	if !validation.ParseAndValidate(c, &cfg) {
		return nil
	}

	if err := h.store.Update(c.Context(), target, cfg); err != nil {
		return respondError(c, logger, err)
	}
	updated, err := h.store.Get(target)
	if err != nil {
		return respondError(c, logger, err)
	}
	return c.JSON(updated)
}

// Activation reports whether auto-upload is licensed on this machine.
func (h *SettingsHandler) Activation(c *fiber.Ctx) error {
	serial, err := h.gate.Serial()
	if err != nil {
		middleware.GetRequestLogger(c).Warn("hardware serial unavailable", zap.Error(err))
	}
	return c.JSON(fiber.Map{
		"activated": h.gate.IsActivated(),
		"serial":    serial,
	})
}

type activationRequest struct {
	Code string `json:"code" validate:"required"`
}

// SetActivation replaces the activation code for the running process and
// reports the resulting status.
func (h *SettingsHandler) SetActivation(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)

	var req activationRequest
	if !validation.ParseAndValidate(c, &req) {
		return nil
	}

	h.gate.SetCode(req.Code)
	activated := h.gate.IsActivated()
	logger.Info("activation code updated", zap.Bool("activated", activated))
	return c.JSON(fiber.Map{"activated": activated})
}
