package session

import (
	"errors"

	"tracker-superacres/internal/store"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, ctrl *Controller, kv store.KV) {
	r.Post("/start", func(c *fiber.Ctx) error {
		sess, err := ctrl.Start(c.Context())
		if err != nil {
			return fiber.NewError(startStatus(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	r.Post("/stop", func(c *fiber.Ctx) error {
		resp, err := ctrl.Stop(c.Context())
		if err != nil {
			return fiber.NewError(stopStatus(err), err.Error())
		}
		return c.JSON(resp)
	})

	r.Post("/abandon", func(c *fiber.Ctx) error {
		if err := ctrl.Abandon(c.Context()); err != nil {
			return fiber.NewError(stopStatus(err), err.Error())
		}
		return c.JSON(fiber.Map{"status": string(StatusAborted)})
	})

	r.Get("/live", func(c *fiber.Ctx) error {
		return c.JSON(ctrl.Live())
	})

	r.Get("/last-result", func(c *fiber.Ctx) error {
		raw, err := store.ConsumeLastResult(c.Context(), kv)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if raw == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		c.Set("Content-Type", "application/json")
		return c.Send(raw)
	})
}

func startStatus(err error) int {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, ErrLocationUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, ErrNetwork):
		return fiber.StatusBadGateway
	case errors.Is(err, ErrSessionActive):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func stopStatus(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientData):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNoSession):
		return fiber.StatusNotFound
	case errors.Is(err, ErrNetwork):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
