package handlers

import (
	"errors"

	"medwatch/internal/app"
	lifecycleController "medwatch/internal/controllers/lifecycle"
	"medwatch/internal/handlers/middleware"
	"medwatch/internal/logger"
	"medwatch/internal/repositories"
	"medwatch/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type LifecycleHandler struct {
	Handler
	lifecycleController lifecycleController.LifecycleControllerInterface
	oidcService         *services.OIDCService
}

func NewLifecycleHandler(app app.App, router fiber.Router) *LifecycleHandler {
	log := logger.New("handlers").File("lifecycle_handler")
	return &LifecycleHandler{
		lifecycleController: app.Controllers.Lifecycle,
		oidcService:         app.Services.OIDC,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *LifecycleHandler) Register() {
	impoundment := h.router.Group(
		"/inspections/:id/impoundment",
		h.middleware.RequireAuth(h.oidcService),
	)

	impoundment.Post("/in-store", h.markInStore)
	impoundment.Post("/release", h.submitRelease)
}

func (h *LifecycleHandler) markInStore(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	inspectionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid inspection ID",
		})
	}

	var req lifecycleController.MarkInStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inspection, err := h.lifecycleController.MarkInStore(c.UserContext(), user, inspectionID, req)
	if err != nil {
		return h.lifecycleError(c, err, "Failed to mark stock in store")
	}

	return c.JSON(fiber.Map{
		"inspection": inspection,
	})
}

func (h *LifecycleHandler) submitRelease(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	inspectionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid inspection ID",
		})
	}

	var req lifecycleController.ReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inspection, err := h.lifecycleController.SubmitRelease(c.UserContext(), user, inspectionID, req)
	if err != nil {
		return h.lifecycleError(c, err, "Failed to submit release")
	}

	return c.JSON(fiber.Map{
		"inspection": inspection,
	})
}

// lifecycleError maps controller sentinels onto HTTP statuses. Released is
// terminal and revision conflicts both answer 409 so the client reloads.
func (h *LifecycleHandler) lifecycleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, lifecycleController.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, lifecycleController.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Inspection not found",
		})
	case errors.Is(err, lifecycleController.ErrReleased):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Record already released",
		})
	case errors.Is(err, repositories.ErrRevisionConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Record was modified by someone else, reload and try again",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}
}
