// Package authflow drives the OAuth2 authorization-code exchange against
// Google and hands out refreshable token sources for API calls.
package authflow

import (
	"context"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/lubembemichael/mail-agent/internal/apperrors"
	"github.com/lubembemichael/mail-agent/internal/config"
)

// Scopes requested from Google: read unread mail, compose drafts.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
}

// Flow is a stateless OAuth flow constructor. One Flow is built per process;
// the only state carried between the authorization URL and the code exchange
// is the state/code pair round-tripped through the provider redirect.
type Flow struct {
	config *oauth2.Config
}

// New builds a Flow from the configured client secret and the redirect URL
// derived from the service's base URL. The same redirect URL is used for the
// authorization request and the code exchange, as OAuth requires.
func New(cfg config.GoogleConfig, redirectURL string) (*Flow, error) {
	secret, err := clientSecret(cfg)
	if err != nil {
		return nil, err
	}

	oauthConfig, err := google.ConfigFromJSON(secret, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse client secret: %v", apperrors.ErrConfiguration, err)
	}
	oauthConfig.RedirectURL = redirectURL

	return &Flow{config: oauthConfig}, nil
}

// NewWithConfig builds a Flow around an existing oauth2 config.
// Used by tests to point the flow at a fake token endpoint.
func NewWithConfig(oauthConfig *oauth2.Config) *Flow {
	return &Flow{config: oauthConfig}
}

// clientSecret resolves the OAuth client secret payload. The inline JSON
// form takes precedence over the file path.
func clientSecret(cfg config.GoogleConfig) ([]byte, error) {
	if inline := cfg.GetClientSecretJSON(); inline != "" {
		return []byte(inline), nil
	}

	path := cfg.GetClientSecretFile()
	if path == "" {
		return nil, fmt.Errorf("%w: no OAuth client secret configured", apperrors.ErrConfiguration)
	}

	secret, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read client secret file %s: %v", apperrors.ErrConfiguration, path, err)
	}
	return secret, nil
}

// AuthCodeURL generates the Google consent URL. access_type=offline and
// prompt=consent force a refresh token to be issued on every login.
func (f *Flow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange swaps the provider-issued authorization code for a credential.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenExchange, err)
	}
	return token, nil
}

// TokenSource returns a source that transparently refreshes the credential
// before API calls when the access token has expired.
func (f *Flow) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return f.config.TokenSource(ctx, token)
}

// IDTokenEmail extracts the email claim from the id_token Google attaches to
// the exchange response. The claim is decoded without signature verification:
// the token arrived over TLS directly from Google's token endpoint, and the
// value is only used as a display hint, never for authorization.
func IDTokenEmail(token *oauth2.Token) (string, bool) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", false
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}
