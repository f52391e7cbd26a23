package services

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"medwatch/config"
	"medwatch/internal/types"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCDiscovery represents OIDC discovery document
type OIDCDiscovery struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKS_URI              string `json:"jwks_uri"`
	RevocationEndpoint    string `json:"revocation_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet represents a set of JSON Web Keys
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// OIDCService validates identity-provider tokens for the portal. Inspectors
// authenticate against the ministry's identity provider; the server verifies
// ID tokens before any inspection data is served or mutated.
type OIDCService struct {
	config     config.Config
	log        logger.Logger
	httpClient *http.Client
	issuer     string
	clientID   string

	// OIDC discovery and JWK caching
	discovery     *OIDCDiscovery
	jwks          *JWKSet
	discoveryMux  sync.RWMutex
	jwksMux       sync.RWMutex
	discoveryTime time.Time
	jwksTime      time.Time
	cacheTTL      time.Duration
}

func NewOIDCService(cfg config.Config) (*OIDCService, error) {
	log := logger.New("OIDCService")

	if cfg.OIDCIssuerURL == "" || cfg.OIDCClientID == "" {
		log.Warn("OIDC not configured, authentication endpoints will report unavailable")
		return &OIDCService{config: cfg, log: log}, nil
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
		},
	}

	service := &OIDCService{
		config:     cfg,
		log:        log,
		httpClient: httpClient,
		issuer:     cfg.OIDCIssuerURL,
		clientID:   cfg.OIDCClientID,
		cacheTTL:   15 * time.Minute,
	}

	log.Info("OIDC service initialized successfully", "issuer", cfg.OIDCIssuerURL)
	return service, nil
}

// IsConfigured reports whether an identity provider is wired.
func (s *OIDCService) IsConfigured() bool {
	return s.issuer != "" && s.clientID != ""
}

// ValidateIDToken validates an OIDC ID token with proper JWT signature verification
func (s *OIDCService) ValidateIDToken(
	ctx context.Context,
	idToken string,
) (*types.TokenInfo, error) {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("ValidateIDToken")

	if !s.IsConfigured() {
		return &types.TokenInfo{Valid: false}, log.ErrMsg("OIDC not configured")
	}

	token, err := jwt.ParseWithClaims(
		idToken,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, log.ErrMsg(
					"unexpected signing method: " + fmt.Sprintf("%v", token.Header["alg"]),
				)
			}

			kidHeader, ok := token.Header["kid"].(string)
			if !ok {
				return nil, log.ErrMsg("missing or invalid 'kid' in JWT header")
			}

			publicKey, err := s.getPublicKeyForToken(ctx, kidHeader)
			if err != nil {
				return nil, log.Err("failed to get public key", err)
			}

			return publicKey, nil
		},
	)
	if err != nil {
		return &types.TokenInfo{Valid: false}, log.Err("JWT signature verification failed", err)
	}

	if !token.Valid {
		return &types.TokenInfo{Valid: false}, log.Err("JWT token is invalid", nil)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return &types.TokenInfo{Valid: false}, log.Err("failed to extract JWT claims", nil)
	}

	expectedIssuer := strings.TrimSuffix(s.issuer, "/")
	if claims.Issuer != expectedIssuer {
		return &types.TokenInfo{
				Valid: false,
			}, log.ErrMsg(
				"invalid issuer: expected " + expectedIssuer + ", got " + claims.Issuer,
			)
	}

	audienceValid := slices.Contains(claims.Audience, s.clientID)

	if !audienceValid {
		return &types.TokenInfo{
				Valid: false,
			}, log.ErrMsg(
				"invalid audience: expected client ID " + s.clientID + " not found in audience " + fmt.Sprintf(
					"%v",
					claims.Audience,
				),
			)
	}

	// Parse again for profile claims
	var customClaims struct {
		jwt.RegisteredClaims
		Email         string   `json:"email"`
		Name          string   `json:"name"`
		GivenName     string   `json:"given_name"`
		FamilyName    string   `json:"family_name"`
		PreferredName string   `json:"preferred_username"`
		EmailVerified bool     `json:"email_verified"`
		Nonce         string   `json:"nonce"`
		Roles         []string `json:"roles"`
	}

	_, err = jwt.ParseWithClaims(
		idToken,
		&customClaims,
		func(token *jwt.Token) (any, error) {
			kidHeader, _ := token.Header["kid"].(string)
			return s.getPublicKeyForToken(ctx, kidHeader)
		},
	)
	if err != nil {
		log.Warn("failed to parse custom claims, using basic claims", "error", err)
	}

	log.Info("ID token validation successful",
		"sub", claims.Subject,
		"email", customClaims.Email,
		"iss", claims.Issuer)

	displayName := customClaims.Name
	if displayName == "" && (customClaims.GivenName != "" || customClaims.FamilyName != "") {
		displayName = strings.TrimSpace(customClaims.GivenName + " " + customClaims.FamilyName)
	}

	return &types.TokenInfo{
		UserID:        claims.Subject,
		Email:         customClaims.Email,
		Name:          displayName,
		GivenName:     customClaims.GivenName,
		FamilyName:    customClaims.FamilyName,
		PreferredName: customClaims.PreferredName,
		EmailVerified: customClaims.EmailVerified,
		Roles:         customClaims.Roles,
		Nonce:         customClaims.Nonce,
		Valid:         true,
	}, nil
}

// GetAuthorizationURL builds the provider login URL for the PKCE flow. The
// client supplies its own code challenge and state; the server only knows the
// endpoints and client ID.
func (s *OIDCService) GetAuthorizationURL(
	ctx context.Context,
	redirectURI, state, codeChallenge string,
) (string, error) {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("GetAuthorizationURL")

	discovery, err := s.getOIDCDiscovery(ctx)
	if err != nil {
		return "", log.Err("failed to get OIDC discovery for authorization URL", err)
	}

	if discovery.AuthorizationEndpoint == "" {
		return "", log.ErrMsg("authorization endpoint not found in OIDC discovery")
	}

	authURL, err := url.Parse(discovery.AuthorizationEndpoint)
	if err != nil {
		return "", log.Err("failed to parse authorization endpoint", err)
	}

	params := url.Values{}
	params.Set("client_id", s.clientID)
	params.Set("response_type", "code")
	params.Set("scope", "openid profile email")
	params.Set("redirect_uri", redirectURI)

	if state != "" {
		params.Set("state", state)
	}

	if codeChallenge != "" {
		params.Set("code_challenge", codeChallenge)
		params.Set("code_challenge_method", "S256")
	}

	authURL.RawQuery = params.Encode()

	log.Info("authorization URL generated",
		"endpoint", discovery.AuthorizationEndpoint,
		"hasState", state != "",
		"hasChallenge", codeChallenge != "")

	return authURL.String(), nil
}

// getOIDCDiscovery fetches and caches the OIDC discovery document
func (s *OIDCService) getOIDCDiscovery(ctx context.Context) (*OIDCDiscovery, error) {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("getOIDCDiscovery")

	s.discoveryMux.RLock()
	if s.discovery != nil && time.Since(s.discoveryTime) < s.cacheTTL {
		discovery := s.discovery
		s.discoveryMux.RUnlock()
		return discovery, nil
	}
	s.discoveryMux.RUnlock()

	discoveryURL := strings.TrimSuffix(s.issuer, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, "GET", discoveryURL, nil)
	if err != nil {
		return nil, log.Err("failed to create discovery request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, log.Err("failed to fetch OIDC discovery", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Info("failed to close discovery response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, log.Error("OIDC discovery request failed",
			"statusCode", resp.StatusCode)
	}

	var discovery OIDCDiscovery
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return nil, log.Err("failed to decode OIDC discovery", err)
	}

	if discovery.Issuer != strings.TrimSuffix(s.issuer, "/") {
		return nil, log.ErrMsg(
			"invalid issuer in discovery document: expected " + s.issuer + ", got " + discovery.Issuer,
		)
	}

	if discovery.JWKS_URI == "" {
		return nil, log.Err("missing JWKS URI in discovery document", nil)
	}

	s.discoveryMux.Lock()
	s.discovery = &discovery
	s.discoveryTime = time.Now()
	s.discoveryMux.Unlock()

	log.Info("OIDC discovery fetched successfully", "jwks_uri", discovery.JWKS_URI)
	return &discovery, nil
}

// getJWKS fetches and caches the JSON Web Key Set
func (s *OIDCService) getJWKS(ctx context.Context) (*JWKSet, error) {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("getJWKS")

	s.jwksMux.RLock()
	if s.jwks != nil && time.Since(s.jwksTime) < s.cacheTTL {
		jwks := s.jwks
		s.jwksMux.RUnlock()
		return jwks, nil
	}
	s.jwksMux.RUnlock()

	discovery, err := s.getOIDCDiscovery(ctx)
	if err != nil {
		return nil, log.Err("failed to get OIDC discovery for JWKS", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", discovery.JWKS_URI, nil)
	if err != nil {
		return nil, log.Err("failed to create JWKS request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, log.Err("failed to fetch JWKS", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Info("failed to close JWKS response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, log.Error("JWKS request failed",
			"statusCode", resp.StatusCode)
	}

	var jwks JWKSet
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, log.Err("failed to decode JWKS", err)
	}

	if len(jwks.Keys) == 0 {
		return nil, log.Err("JWKS contains no keys", nil)
	}

	s.jwksMux.Lock()
	s.jwks = &jwks
	s.jwksTime = time.Now()
	s.jwksMux.Unlock()

	log.Info("JWKS fetched successfully", "keys_count", len(jwks.Keys))
	return &jwks, nil
}

// getPublicKeyForToken retrieves the public key for JWT verification based on kid header
func (s *OIDCService) getPublicKeyForToken(
	ctx context.Context,
	kidHeader string,
) (*rsa.PublicKey, error) {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("getPublicKeyForToken")

	jwks, err := s.getJWKS(ctx)
	if err != nil {
		return nil, log.Err("failed to get JWKS", err)
	}

	var targetJWK *JWK
	for _, jwk := range jwks.Keys {
		if jwk.Kid == kidHeader {
			targetJWK = &jwk
			break
		}
	}

	if targetJWK == nil {
		return nil, log.ErrMsg("no matching key found: kid " + kidHeader + " not found in JWKS")
	}

	if targetJWK.Kty != "RSA" {
		return nil, log.ErrMsg("unsupported key type: expected RSA, got " + targetJWK.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(targetJWK.N)
	if err != nil {
		return nil, log.Err("failed to decode RSA modulus (n)", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(targetJWK.E)
	if err != nil {
		return nil, log.Err("failed to decode RSA exponent (e)", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	// Prevent overflow on 32-bit systems
	if !e.IsInt64() || e.Int64() > int64(^uint(0)>>1) {
		return nil, log.ErrMsg("RSA exponent too large: " + e.String())
	}

	publicKey := &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}

	log.Debug("public key retrieved successfully", "kid", kidHeader, "keyType", targetJWK.Kty)
	return publicKey, nil
}

// RevokeToken revokes an access or refresh token with the identity provider
func (s *OIDCService) RevokeToken(ctx context.Context, token string, tokenType string) error {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("RevokeToken")

	discovery, err := s.getOIDCDiscovery(ctx)
	if err != nil {
		return log.Err("failed to get OIDC discovery for token revocation", err)
	}

	if discovery.RevocationEndpoint == "" {
		return log.ErrMsg(
			"revocation endpoint not available: revocation_endpoint not found in OIDC discovery",
		)
	}

	data := url.Values{}
	data.Set("token", token)
	if tokenType != "" {
		data.Set("token_type_hint", tokenType)
	}

	// PKCE flow does not require a client secret
	data.Set("client_id", s.clientID)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		discovery.RevocationEndpoint,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return log.Err("failed to create token revocation request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return log.Err("failed to make token revocation request", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Info("failed to close revocation response body", "error", closeErr)
		}
	}()

	// RFC 7009: the revocation endpoint returns 200 for successful revocation
	// and for invalid tokens
	if resp.StatusCode != http.StatusOK {
		return log.Error("token revocation request failed",
			"statusCode", resp.StatusCode)
	}

	log.Info(
		"token revocation successful",
		"tokenType",
		tokenType,
		"endpoint",
		discovery.RevocationEndpoint,
	)
	return nil
}

// GetLogoutURL generates the OIDC logout URL using the end_session_endpoint
func (s *OIDCService) GetLogoutURL(
	ctx context.Context,
	idTokenHint, postLogoutRedirectURI, state string,
) (string, error) {
	log := logger.New("OIDCService").TraceFromContext(ctx).Function("GetLogoutURL")

	discovery, err := s.getOIDCDiscovery(ctx)
	if err != nil {
		return "", log.Err("failed to get OIDC discovery for logout URL", err)
	}

	if discovery.EndSessionEndpoint == "" {
		return "", log.ErrMsg(
			"end session endpoint not available: end_session_endpoint not found in OIDC discovery",
		)
	}

	logoutURL, err := url.Parse(discovery.EndSessionEndpoint)
	if err != nil {
		return "", log.Err("failed to parse end session endpoint", err)
	}

	params := url.Values{}

	if idTokenHint != "" {
		params.Set("id_token_hint", idTokenHint)
	}

	if postLogoutRedirectURI != "" {
		params.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	}

	if state != "" {
		params.Set("state", state)
	}

	logoutURL.RawQuery = params.Encode()

	log.Info("logout URL generated successfully",
		"endpoint", discovery.EndSessionEndpoint,
		"hasIdToken", idTokenHint != "",
		"hasRedirectURI", postLogoutRedirectURI != "")

	return logoutURL.String(), nil
}

// OIDCConfig represents the provider configuration for clients
type OIDCConfig struct {
	Domain    string `json:"domain"`
	IssuerURL string `json:"issuerUrl"`
	ClientID  string `json:"clientId"`
}

// GetConfig returns the OIDC configuration for client consumption
func (s *OIDCService) GetConfig() OIDCConfig {
	return OIDCConfig{
		Domain:    strings.TrimPrefix(s.issuer, "https://"),
		IssuerURL: s.issuer,
		ClientID:  s.clientID,
	}
}

// Close cleans up the OIDC service resources
func (s *OIDCService) Close() error {
	return nil
}
