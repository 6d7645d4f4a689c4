package handlers

import (
	"bufio"
	"errors"
	"fmt"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/middleware"
	"axle-upload/internal/notify"
	"axle-upload/internal/pkg/validation"
	"axle-upload/internal/targets"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// TargetHandler exposes the per-target scan, upload and ledger endpoints.
type TargetHandler struct {
	adapters map[string]*targets.Adapter
	hub      *notify.Hub
	logger   *zap.Logger
}

// NewTargetHandler creates a TargetHandler over the registered adapters.
func NewTargetHandler(adapters []*targets.Adapter, hub *notify.Hub, logger *zap.Logger) *TargetHandler {
	byName := make(map[string]*targets.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &TargetHandler{adapters: byName, hub: hub, logger: logger}
}

func (h *TargetHandler) adapter(c *fiber.Ctx) (*targets.Adapter, error) {
	name := c.Params("target")
	a, ok := h.adapters[name]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "target", Key: name}
	}
	return a, nil
}

type scanRequest struct {
	BarCode string `json:"barCode" validate:"required"`
}

// Scan looks a scanned barcode up at the target and records it in the ledger.
func (h *TargetHandler) Scan(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	a, err := h.adapter(c)
	if err != nil {
		return respondError(c, logger, err)
	}

	var req scanRequest
	if !validation.ParseAndValidate(c, &req) {
		return nil
	}

	rec, err := a.Get(c.Context(), req.BarCode)
	if err != nil {
		return respondError(c, logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// Upload reports the inspection outcome for one ledger record. This is the
// manual path; it works whether or not the installation is activated.
func (h *TargetHandler) Upload(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	a, err := h.adapter(c)
	if err != nil {
		return respondError(c, logger, err)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid record id"})
	}

	rec, err := a.Set(c.Context(), uint(id))
	if err != nil {
		return respondError(c, logger, err)
	}
	return c.JSON(rec)
}

// List returns the target's ledger rows, optionally only the pending ones.
func (h *TargetHandler) List(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	a, err := h.adapter(c)
	if err != nil {
		return respondError(c, logger, err)
	}

	pendingOnly := c.Query("pending") == "1" || c.Query("pending") == "true"
	rows, err := a.Ledger().List(c.Context(), pendingOnly)
	if err != nil {
		return respondError(c, logger, err)
	}
	return c.JSON(fiber.Map{"records": rows, "count": len(rows)})
}

// Delete removes one ledger record.
func (h *TargetHandler) Delete(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	a, err := h.adapter(c)
	if err != nil {
		return respondError(c, logger, err)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid record id"})
	}

	if err := a.Ledger().Delete(c.Context(), uint(id)); err != nil {
		return respondError(c, logger, err)
	}
	logger.Info("ledger record deleted", zap.String("target", a.Name()), zap.Int("recordId", id))
	return c.SendStatus(fiber.StatusNoContent)
}

// Events streams payload-less upload-completed pings for one target over SSE.
// Clients re-fetch the record list on every ping.
func (h *TargetHandler) Events(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	a, err := h.adapter(c)
	if err != nil {
		return respondError(c, logger, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	target := a.Name()
	events, cancel := h.hub.Subscribe(target)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for range events {
			if _, err := fmt.Fprintf(w, "event: upload\ndata: %s\n\n", target); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

// respondError reduces the error taxonomy to an HTTP status and a plain
// message.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var be *apperrors.BridgeError
	switch {
	case apperrors.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case apperrors.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case apperrors.IsUpstream(err):
		logger.Warn("upstream rejection", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &be):
		logger.Error("bridge failure", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Error("request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An unexpected error occurred"})
	}
}
