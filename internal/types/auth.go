package types

// TokenInfo represents validated token information
type TokenInfo struct {
	UserID        string
	Email         string
	Name          string
	GivenName     string
	FamilyName    string
	PreferredName string
	EmailVerified bool
	Roles         []string
	Nonce         string
	Valid         bool
}
