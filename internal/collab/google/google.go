// Package google implements the external identity provider contract
// against Google's OIDC endpoints.
package google

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/voralek/sessguard/internal/collab"
	"github.com/voralek/sessguard/internal/core/domain"
)

const providerName = "google"

const issuerURL = "https://accounts.google.com"

// Provider exchanges authorization codes with Google and verifies the
// returned id_token against Google's published keys.
type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// New discovers Google's OIDC configuration and builds a provider.
func New(ctx context.Context, clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, domain.ErrMissingArgument.WithDetails("google oauth client settings")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, domain.ErrInternalServer.
			WithDetails("google oidc discovery failed").WithCause(err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *Provider) Name() string { return providerName }

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*collab.Identity, error) {
	token, err := p.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return nil, domain.ErrInvalidCredentials.
			WithDetails("google code exchange failed").WithCause(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, domain.ErrInvalidCredentials.WithDetails("google did not return an id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, domain.ErrInvalidCredentials.
			WithDetails("google id_token verification failed").WithCause(err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, domain.ErrInternalServer.
			WithDetails("google id_token claims parse failed").WithCause(err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, domain.ErrInvalidCredentials.WithDetails("google id_token missing required claims")
	}

	return &collab.Identity{
		Provider:       providerName,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		DisplayName:    claims.Name,
	}, nil
}
