package handlers

import (
	"errors"

	"medwatch/internal/app"
	evidenceController "medwatch/internal/controllers/evidence"
	"medwatch/internal/handlers/middleware"
	"medwatch/internal/logger"
	"medwatch/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EvidenceHandler struct {
	Handler
	evidenceController evidenceController.EvidenceControllerInterface
	oidcService        *services.OIDCService
}

func NewEvidenceHandler(app app.App, router fiber.Router) *EvidenceHandler {
	log := logger.New("handlers").File("evidence_handler")
	return &EvidenceHandler{
		evidenceController: app.Controllers.Evidence,
		oidcService:        app.Services.OIDC,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *EvidenceHandler) Register() {
	inspections := h.router.Group(
		"/inspections/:id/evidence",
		h.middleware.RequireAuth(h.oidcService),
	)
	inspections.Post("", h.uploadEvidence)
	inspections.Get("", h.listEvidence)

	evidence := h.router.Group("/evidence", h.middleware.RequireAuth(h.oidcService))
	evidence.Get("/:id/download", h.downloadEvidence)
	evidence.Delete("/:id", h.middleware.RequireAdmin(), h.deleteEvidence)
}

func (h *EvidenceHandler) uploadEvidence(c *fiber.Ctx) error {
	log := h.log.Function("uploadEvidence")

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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file upload named 'file' is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Er("failed to open uploaded file", err, "fileName", fileHeader.Filename)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn("failed to close uploaded file", "error", closeErr)
		}
	}()

	evidence, err := h.evidenceController.Upload(c.UserContext(), user, inspectionID,
		evidenceController.UploadRequest{
			FileName:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Body:        file,
		})
	if err != nil {
		return h.evidenceError(c, err, "Failed to upload evidence")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"evidence": evidence,
	})
}

func (h *EvidenceHandler) listEvidence(c *fiber.Ctx) error {
	inspectionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid inspection ID",
		})
	}

	evidence, err := h.evidenceController.List(c.UserContext(), inspectionID)
	if err != nil {
		return h.evidenceError(c, err, "Failed to list evidence")
	}

	return c.JSON(fiber.Map{
		"evidence": evidence,
	})
}

func (h *EvidenceHandler) downloadEvidence(c *fiber.Ctx) error {
	evidenceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evidence ID",
		})
	}

	url, err := h.evidenceController.DownloadURL(c.UserContext(), evidenceID)
	if err != nil {
		return h.evidenceError(c, err, "Failed to generate download URL")
	}

	return c.JSON(fiber.Map{
		"url": url,
	})
}

func (h *EvidenceHandler) deleteEvidence(c *fiber.Ctx) error {
	evidenceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evidence ID",
		})
	}

	if err := h.evidenceController.Delete(c.UserContext(), evidenceID); err != nil {
		return h.evidenceError(c, err, "Failed to delete evidence")
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

func (h *EvidenceHandler) evidenceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, evidenceController.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, evidenceController.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}
}
