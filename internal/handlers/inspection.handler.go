package handlers

import (
	"errors"
	"time"

	"medwatch/internal/app"
	inspectionController "medwatch/internal/controllers/inspections"
	"medwatch/internal/handlers/middleware"
	"medwatch/internal/logger"
	"medwatch/internal/repositories"
	"medwatch/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InspectionHandler struct {
	Handler
	inspectionController inspectionController.InspectionControllerInterface
	oidcService          *services.OIDCService
}

func NewInspectionHandler(app app.App, router fiber.Router) *InspectionHandler {
	log := logger.New("handlers").File("inspection_handler")
	return &InspectionHandler{
		inspectionController: app.Controllers.Inspection,
		oidcService:          app.Services.OIDC,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *InspectionHandler) Register() {
	inspections := h.router.Group(
		"/inspections",
		h.middleware.RequireAuth(h.oidcService),
	)

	inspections.Post("", h.createInspection)
	inspections.Get("", h.listInspections)
	// Registered before "/:id" so serial lookups are not swallowed by the id
	// route
	inspections.Get("/serial/:serialNumber", h.getInspectionBySerial)
	inspections.Get("/:id", h.getInspection)
	inspections.Patch("/:id", h.patchInspection)
}

func (h *InspectionHandler) createInspection(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req inspectionController.CreateInspectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inspection, err := h.inspectionController.Create(c.UserContext(), user, req)
	if err != nil {
		if errors.Is(err, inspectionController.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create inspection",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"inspection": inspection,
	})
}

// listInspections pages newest first. The `before` query parameter is the
// cursor returned by the previous page.
func (h *InspectionHandler) listInspections(c *fiber.Ctx) error {
	req := inspectionController.ListInspectionsRequest{
		District: c.Query("district"),
		Limit:    c.QueryInt("limit"),
	}

	if beforeParam := c.Query("before"); beforeParam != "" {
		before, err := time.Parse(time.RFC3339Nano, beforeParam)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid before cursor",
			})
		}
		req.Before = &before
	}

	response, err := h.inspectionController.List(c.UserContext(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list inspections",
		})
	}

	return c.JSON(response)
}

func (h *InspectionHandler) getInspection(c *fiber.Ctx) error {
	inspectionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid inspection ID",
		})
	}

	inspection, err := h.inspectionController.GetByID(c.UserContext(), inspectionID)
	if err != nil {
		if errors.Is(err, inspectionController.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Inspection not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load inspection",
		})
	}

	return c.JSON(fiber.Map{
		"inspection": inspection,
	})
}

// getInspectionBySerial resolves the case reference printed on paperwork and
// quoted in SMS messages, e.g. NDA-000042.
func (h *InspectionHandler) getInspectionBySerial(c *fiber.Ctx) error {
	inspection, err := h.inspectionController.GetBySerialNumber(
		c.UserContext(),
		c.Params("serialNumber"),
	)
	if err != nil {
		switch {
		case errors.Is(err, inspectionController.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid serial number",
			})
		case errors.Is(err, inspectionController.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Inspection not found",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load inspection",
			})
		}
	}

	return c.JSON(fiber.Map{
		"inspection": inspection,
	})
}

func (h *InspectionHandler) patchInspection(c *fiber.Ctx) error {
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

	var req inspectionController.PatchInspectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inspection, err := h.inspectionController.Patch(c.UserContext(), user, inspectionID, req)
	if err != nil {
		switch {
		case errors.Is(err, inspectionController.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, inspectionController.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Inspection not found",
			})
		case errors.Is(err, repositories.ErrRevisionConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Record was modified by someone else, reload and try again",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update inspection",
			})
		}
	}

	return c.JSON(fiber.Map{
		"inspection": inspection,
	})
}
