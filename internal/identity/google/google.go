// Package google signs users in with Google through the OAuth2 code flow.
package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/msomdec/yappaholic/internal/domain"
)

var scopes = []string{"openid", "email", "profile"}

// Provider implements domain.IdentityProvider for Google accounts. The
// verified ID token's subject is the stable user id.
type Provider struct {
	oauth    *oauth2.Config
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

var _ domain.IdentityProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithEndpoint overrides Google's OAuth2 endpoint.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *Provider) { p.oauth.Endpoint = ep }
}

// WithTokenValidator overrides ID token verification.
func WithTokenValidator(fn func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)) Option {
	return func(p *Provider) { p.validate = fn }
}

// New creates a Provider. clientOpts are passed to the ID token validator,
// which fetches Google's signing keys.
func New(ctx context.Context, clientID, clientSecret, redirectURL string, clientOpts []option.ClientOption, opts ...Option) (*Provider, error) {
	v, err := idtoken.NewValidator(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}

	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       scopes,
		},
		validate: v.Validate,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AuthCodeURL returns the consent page URL. Google always shows the account
// chooser so switching accounts after logout works.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the callback code for tokens and verifies the ID token.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.ExternalIdentity, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", domain.ErrAuthCancelled, err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", domain.ErrAuthCancelled)
	}

	payload, err := p.validate(ctx, raw, p.oauth.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: verify id token: %v", domain.ErrAuthCancelled, err)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: id token has no subject", domain.ErrAuthCancelled)
	}

	id := &domain.ExternalIdentity{Subject: payload.Subject}
	id.Email, _ = payload.Claims["email"].(string)
	id.Name, _ = payload.Claims["name"].(string)
	return id, nil
}
