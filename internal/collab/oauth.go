package collab

import "context"

// Identity is the normalized result of an external sign-in. Providers
// report identity facts only; account lookup, linking and session
// issuance stay with the account service.
type Identity struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	DisplayName    string
}

// OAuthProvider is the contract for an external identity provider.
type OAuthProvider interface {
	// Name returns the provider identifier, e.g. "google".
	Name() string

	// AuthCodeURL returns the authorization URL for the given state
	// and PKCE code challenge.
	AuthCodeURL(state, codeChallenge string) string

	// ExchangeCode redeems the authorization code and returns the
	// verified identity.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Identity, error)
}
