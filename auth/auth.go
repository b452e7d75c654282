// Package auth obtains the bearer token used against the album service.
package auth

import (
	"context"
	"fmt"

	"kheops-album-tools/config"
	"kheops-album-tools/constants"

	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(ctx context.Context) (*Credential, error)
}

// TokenError is returned when the provider refuses to issue a token.
type TokenError struct {
	Code        int
	ErrorCode   string
	Description string
}

func (e *TokenError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("authentication failed (HTTP %d): %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authentication failed (HTTP %d): %s: %s", e.Code, e.ErrorCode, e.Description)
}

// Static hands out a token taken verbatim from configuration.
type Static struct {
	token string
}

func NewStatic(token string) *Static {
	return &Static{token: token}
}

func (s *Static) Authenticate(ctx context.Context) (*Credential, error) {
	return NewCredential(s.token), nil
}

// New builds the authenticator selected by auth.mode.
func New(cfg *config.Config, logger *zap.Logger) (Authenticator, error) {
	switch cfg.AuthMode() {
	case constants.AuthModeStatic:
		token, err := cfg.Require("kheops_access_token")
		if err != nil {
			return nil, err
		}
		return NewStatic(token), nil

	case constants.AuthModeKeycloak:
		kc, err := cfg.Keycloak()
		if err != nil {
			return nil, err
		}
		return NewKeycloakLogin(kc, cfg.HTTPTimeout(), logger), nil

	case constants.AuthModeTokenEndpoint:
		tokenURL, err := cfg.Require("auth.token_url")
		if err != nil {
			return nil, err
		}
		clientID, err := cfg.Require("keycloak.client_id")
		if err != nil {
			return nil, err
		}
		if username := cfg.GetString("keycloak.username"); username != "" {
			return NewPasswordGrant(tokenURL, clientID, username, cfg.GetString("keycloak.password"), cfg.HTTPTimeout(), logger), nil
		}
		secret, err := cfg.Require("keycloak.client_secret")
		if err != nil {
			return nil, err
		}
		return NewClientCredentialsGrant(tokenURL, clientID, secret, cfg.HTTPTimeout(), logger), nil
	}

	return nil, fmt.Errorf("auth: unknown mode %q", cfg.AuthMode())
}
