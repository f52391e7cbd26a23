package handlers

import (
	"strings"

	"medwatch/internal/app"
	"medwatch/internal/logger"
	"medwatch/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SMSHandler relays one-off messages through the SMS gateway. The portal
// client never sees the gateway credentials; the server injects the API key.
// Every relayed message lands in the notification ledger alongside lifecycle
// SMS.
type SMSHandler struct {
	Handler
	smsService  *services.SMSService
	notifier    *services.NotifierService
	oidcService *services.OIDCService
}

type sendSMSRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func NewSMSHandler(app app.App, router fiber.Router) *SMSHandler {
	log := logger.New("handlers").File("sms_handler")
	return &SMSHandler{
		smsService:  app.Services.SMS,
		notifier:    app.Services.Notifier,
		oidcService: app.Services.OIDC,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SMSHandler) Register() {
	h.router.Post("/sms", h.middleware.RequireAuth(h.oidcService), h.sendSMS)
}

func (h *SMSHandler) sendSMS(c *fiber.Ctx) error {
	log := h.log.Function("sendSMS")

	var req sendSMSRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Phone) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "Phone is required.",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "Message is required.",
		})
	}

	if !h.smsService.Configured() {
		log.Warn("sms relay called without gateway credentials")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": "Server is missing SMS_API_KEY.",
		})
	}

	result, err := h.notifier.SendAdHoc(c.UserContext(), req.Phone, req.Message)
	if err != nil {
		log.Er("sms relay failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"ok":     result.StatusCode < 300,
		"status": result.StatusCode,
		"data":   result.Body,
	})
}
