package handlers

import (
	"strings"

	"medwatch/internal/app"
	authController "medwatch/internal/controllers/auth"
	"medwatch/internal/handlers/middleware"
	"medwatch/internal/logger"
	"medwatch/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Handler
	authController authController.AuthControllerInterface
	oidcService    *services.OIDCService
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	log := logger.New("handlers").File("auth_handler")
	return &AuthHandler{
		authController: app.Controllers.Auth,
		oidcService:    app.Services.OIDC,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")

	// Public endpoints
	auth.Get("/config", h.getAuthConfig)
	auth.Get("/login-url", h.getLoginURL)

	// Token-validated endpoints. The user account is created on first /me
	// call, so these cannot require an existing account.
	protected := auth.Group("/", h.middleware.RequireToken(h.oidcService))
	protected.Get("/me", h.getCurrentUser)
	protected.Post("/logout", h.logout)
}

// getAuthConfig returns authentication configuration for the client
func (h *AuthHandler) getAuthConfig(c *fiber.Ctx) error {
	log := h.log.Function("getAuthConfig")

	config, err := h.authController.GetAuthConfig()
	if err != nil {
		log.Er("failed to load auth config", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load authentication configuration",
		})
	}

	return c.JSON(config)
}

// getLoginURL generates an authorization URL for the OIDC login flow
func (h *AuthHandler) getLoginURL(c *fiber.Ctx) error {
	log := h.log.Function("getLoginURL")

	state := c.Query("state", "default-state")
	redirectURI := c.Query("redirect_uri")
	codeChallenge := c.Query("code_challenge")

	response, err := h.authController.GenerateAuthURL(c.Context(), redirectURI, state, codeChallenge)
	if err != nil {
		errMsg := err.Error()
		log.Info("failed to generate login URL", "error", errMsg)

		if strings.Contains(errMsg, "not configured") {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Authentication not configured",
			})
		}
		if strings.Contains(errMsg, "required") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": errMsg,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate authorization URL",
		})
	}

	return c.JSON(response)
}

// getCurrentUser returns the portal user behind the validated token, creating
// the account on first login
func (h *AuthHandler) getCurrentUser(c *fiber.Ctx) error {
	log := h.log.Function("getCurrentUser")

	tokenInfo := middleware.GetTokenInfo(c)
	if tokenInfo == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	profile, err := h.authController.GetCurrentUserInfo(c.UserContext(), tokenInfo)
	if err != nil {
		log.Er("failed to resolve current user", err, "oidcUserID", tokenInfo.UserID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve user",
		})
	}

	return c.JSON(fiber.Map{
		"user": profile,
	})
}

// logout revokes tokens with the identity provider and clears cached state
func (h *AuthHandler) logout(c *fiber.Ctx) error {
	log := h.log.Function("logout")

	var req authController.LogoutRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	tokenInfo := middleware.GetTokenInfo(c)

	response, err := h.authController.LogoutUser(c.UserContext(), req, tokenInfo)
	if err != nil {
		log.Er("logout failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Logout failed",
		})
	}

	return c.JSON(response)
}
