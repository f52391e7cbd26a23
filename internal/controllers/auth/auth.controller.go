package authController

import (
	"context"
	"fmt"
	"medwatch/internal/database"
	"medwatch/internal/logger"
	"medwatch/internal/models"
	"medwatch/internal/repositories"
	"medwatch/internal/services"
	"medwatch/internal/types"
	"strings"
)

// AuthController handles authentication business logic
type AuthController struct {
	oidcService *services.OIDCService
	userRepo    repositories.UserRepository
	db          database.DB
	log         logger.Logger
}

// AuthControllerInterface defines the contract for auth business logic
type AuthControllerInterface interface {
	GetAuthConfig() (*AuthConfigResponse, error)
	GenerateAuthURL(ctx context.Context, redirectURI, state, codeChallenge string) (*AuthURLResponse, error)
	GetCurrentUserInfo(ctx context.Context, tokenInfo *types.TokenInfo) (*models.UserProfile, error)
	LogoutUser(ctx context.Context, req LogoutRequest, tokenInfo *types.TokenInfo) (*LogoutResponse, error)
	IsConfigured() bool
}

type AuthConfigResponse struct {
	Configured bool   `json:"configured"`
	Domain     string `json:"domain,omitempty"`
	IssuerURL  string `json:"issuerUrl,omitempty"`
	ClientID   string `json:"clientId,omitempty"`
	Message    string `json:"message,omitempty"`
}

type AuthURLResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	State            string `json:"state"`
}

type LogoutRequest struct {
	RefreshToken          string `json:"refresh_token,omitempty"`
	IDToken               string `json:"id_token,omitempty"`
	PostLogoutRedirectURI string `json:"post_logout_redirect_uri,omitempty"`
	State                 string `json:"state,omitempty"`
	AccessToken           string `json:"access_token,omitempty"`
}

type LogoutResponse struct {
	Message       string   `json:"message"`
	LogoutURL     string   `json:"logout_url,omitempty"`
	RevokedTokens []string `json:"revoked_tokens,omitempty"`
}

// New creates a new AuthController instance
func New(
	services services.Service,
	repos repositories.Repository,
	db database.DB,
) AuthControllerInterface {
	return &AuthController{
		oidcService: services.OIDC,
		userRepo:    repos.User,
		db:          db,
		log:         logger.New("authController"),
	}
}

// IsConfigured checks if the identity provider is properly configured
func (c *AuthController) IsConfigured() bool {
	return c.oidcService.IsConfigured()
}

// GetAuthConfig returns authentication configuration for the client
func (c *AuthController) GetAuthConfig() (*AuthConfigResponse, error) {
	log := c.log.Function("GetAuthConfig")

	if !c.oidcService.IsConfigured() {
		log.Info("identity provider not configured")
		return &AuthConfigResponse{
			Configured: false,
			Message:    "Authentication not configured",
		}, nil
	}

	config := c.oidcService.GetConfig()
	return &AuthConfigResponse{
		Configured: true,
		Domain:     config.Domain,
		IssuerURL:  config.IssuerURL,
		ClientID:   config.ClientID,
	}, nil
}

// GenerateAuthURL creates an authorization URL for the OIDC login flow
func (c *AuthController) GenerateAuthURL(
	ctx context.Context,
	redirectURI, state, codeChallenge string,
) (*AuthURLResponse, error) {
	log := c.log.Function("GenerateAuthURL")

	if !c.oidcService.IsConfigured() {
		log.Info("identity provider not configured")
		return nil, fmt.Errorf("authentication not configured")
	}

	if redirectURI == "" {
		log.Info("missing redirect_uri parameter")
		return nil, fmt.Errorf("redirect_uri parameter is required")
	}

	authURL, err := c.oidcService.GetAuthorizationURL(ctx, redirectURI, state, codeChallenge)
	if err != nil {
		log.Info("failed to generate authorization URL", "error", err.Error())
		return nil, fmt.Errorf("failed to generate authorization URL")
	}

	log.Info("generated authorization URL",
		"state", state,
		"redirectURI", redirectURI,
		"hasPKCE", codeChallenge != "")
	return &AuthURLResponse{
		AuthorizationURL: authURL,
		State:            state,
	}, nil
}

// GetCurrentUserInfo resolves the portal user behind a validated token,
// creating the account on first login.
func (c *AuthController) GetCurrentUserInfo(
	ctx context.Context,
	tokenInfo *types.TokenInfo,
) (*models.UserProfile, error) {
	log := c.log.Function("GetCurrentUserInfo")

	if tokenInfo == nil || !tokenInfo.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	user, err := c.getOrCreateOIDCUser(ctx, tokenInfo)
	if err != nil {
		return nil, err
	}

	log.Info("current user resolved", "userID", user.ID)
	profile := user.ToProfile()
	return &profile, nil
}

// getOrCreateOIDCUser finds or creates a user from OIDC token claims
func (c *AuthController) getOrCreateOIDCUser(
	ctx context.Context,
	tokenInfo *types.TokenInfo,
) (*models.User, error) {
	log := c.log.Function("getOrCreateOIDCUser")

	provider := "oidc"
	candidate := &models.User{
		OIDCUserID:   tokenInfo.UserID,
		OIDCProvider: &provider,
		DisplayName:  tokenInfo.Name,
		FirstName:    tokenInfo.GivenName,
		LastName:     tokenInfo.FamilyName,
	}

	if tokenInfo.Email != "" {
		email := tokenInfo.Email
		candidate.Email = &email
	}

	// Split display name into first/last when the provider gave no parts
	if candidate.FirstName == "" && tokenInfo.Name != "" {
		names := strings.Fields(tokenInfo.Name)
		if len(names) > 0 {
			candidate.FirstName = names[0]
		}
		if len(names) > 1 {
			candidate.LastName = strings.Join(names[1:], " ")
		}
	}

	user, err := c.userRepo.FindOrCreateOIDCUser(ctx, candidate)
	if err != nil {
		log.Info(
			"failed to find or create OIDC user",
			"error", err.Error(),
			"oidcUserID", tokenInfo.UserID,
		)
		return nil, fmt.Errorf("failed to create user session")
	}

	return user, nil
}

// LogoutUser revokes tokens with the provider and clears cached user state
func (c *AuthController) LogoutUser(
	ctx context.Context,
	req LogoutRequest,
	tokenInfo *types.TokenInfo,
) (*LogoutResponse, error) {
	log := c.log.Function("LogoutUser")

	if !c.oidcService.IsConfigured() {
		return &LogoutResponse{Message: "Logged out"}, nil
	}

	var revoked []string

	if req.RefreshToken != "" {
		if err := c.oidcService.RevokeToken(ctx, req.RefreshToken, "refresh_token"); err != nil {
			log.Warn("failed to revoke refresh token", "error", err.Error())
		} else {
			revoked = append(revoked, "refresh_token")
		}
	}

	if req.AccessToken != "" {
		if err := c.oidcService.RevokeToken(ctx, req.AccessToken, "access_token"); err != nil {
			log.Warn("failed to revoke access token", "error", err.Error())
		} else {
			revoked = append(revoked, "access_token")
		}
	}

	if tokenInfo != nil && tokenInfo.UserID != "" {
		if err := c.userRepo.ClearUserCacheByOIDC(ctx, tokenInfo.UserID); err != nil {
			log.Warn("failed to clear user cache on logout", "error", err.Error())
		}
	}

	response := &LogoutResponse{
		Message:       "Logged out",
		RevokedTokens: revoked,
	}

	if req.IDToken != "" || req.PostLogoutRedirectURI != "" {
		logoutURL, err := c.oidcService.GetLogoutURL(
			ctx,
			req.IDToken,
			req.PostLogoutRedirectURI,
			req.State,
		)
		if err != nil {
			log.Warn("failed to build logout URL", "error", err.Error())
		} else {
			response.LogoutURL = logoutURL
		}
	}

	log.Info("user logged out", "revokedTokens", len(revoked))
	return response, nil
}
