package middleware

import (
	"context"
	"strings"

	"medwatch/internal/models"
	"medwatch/internal/services"
	"medwatch/internal/types"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
)

// AuthContextKey is used to store auth info in context
type AuthContextKey string

const (
	UserKey           AuthContextKey = "user"
	UserKeyFiber      string         = "User"      // Fiber context key (string)
	TokenInfoKeyFiber string         = "TokenInfo" // Fiber context key (string)
)

// RequireToken validates the bearer ID token and stores the token claims in
// the request context. It does not require a portal account to exist yet, so
// first-login endpoints can run behind it.
func (m *Middleware) RequireToken(oidcService *services.OIDCService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.New("middleware").TraceFromContext(c.Context()).Function("RequireToken")

		tokenInfo, err := m.validateBearerToken(c, oidcService, log)
		if tokenInfo == nil {
			// The rejection response has already been written
			return err
		}

		c.Locals(TokenInfoKeyFiber, tokenInfo)
		return c.Next()
	}
}

// RequireAuth validates the bearer ID token and resolves the portal user
// behind it. Requests without a known user are rejected.
func (m *Middleware) RequireAuth(oidcService *services.OIDCService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.New("middleware").TraceFromContext(c.Context()).Function("RequireAuth")

		tokenInfo, err := m.validateBearerToken(c, oidcService, log)
		if tokenInfo == nil {
			return err
		}

		user, err := m.userRepo.GetByOIDCUserID(c.Context(), tokenInfo.UserID)
		if err != nil {
			log.Info(
				"user not found in database",
				"oidcUserID",
				tokenInfo.UserID,
				"error",
				err.Error(),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		c.Locals(UserKeyFiber, user)
		c.Locals(TokenInfoKeyFiber, tokenInfo)

		// Add to Go context for services (preserve trace ID from TraceID middleware)
		ctx := context.WithValue(c.UserContext(), UserKey, user)
		c.SetUserContext(ctx)

		log.Info(
			"user authenticated",
			"oidcUserID",
			tokenInfo.UserID,
			"dbUserID",
			user.ID,
		)
		return c.Next()
	}
}

func (m *Middleware) validateBearerToken(
	c *fiber.Ctx,
	oidcService *services.OIDCService,
	log logger.Logger,
) (*types.TokenInfo, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		log.Info("missing authorization header")
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
		log.Info("invalid authorization header format")
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	token := tokenParts[1]
	if token == "" {
		log.Info("empty token")
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Token required",
		})
	}

	tokenInfo, err := oidcService.ValidateIDToken(c.Context(), token)
	if err != nil || !tokenInfo.Valid {
		log.Info("token validation failed")
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token",
		})
	}

	return tokenInfo, nil
}

// GetUser extracts user from Fiber context
func GetUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(UserKeyFiber).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetTokenInfo extracts validated token claims from Fiber context
func GetTokenInfo(c *fiber.Ctx) *types.TokenInfo {
	tokenInfo, ok := c.Locals(TokenInfoKeyFiber).(*types.TokenInfo)
	if !ok {
		return nil
	}
	return tokenInfo
}
