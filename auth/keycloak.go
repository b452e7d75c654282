package auth

import (
	"context"
	"errors"
	"time"

	"kheops-album-tools/config"

	"github.com/Nerzal/gocloak/v7"
	"go.uber.org/zap"
)

// KeycloakLogin authenticates against a Keycloak realm. A configured
// username selects the password grant, otherwise client credentials are used.
type KeycloakLogin struct {
	client gocloak.GoCloak
	kc     *config.KeycloakConfig
	logger *zap.Logger
}

func NewKeycloakLogin(kc *config.KeycloakConfig, timeout time.Duration, logger *zap.Logger) *KeycloakLogin {
	client := gocloak.NewClient(kc.URI)
	client.RestyClient().SetTimeout(timeout)
	return &KeycloakLogin{
		client: client,
		kc:     kc,
		logger: logger,
	}
}

func (k *KeycloakLogin) Authenticate(ctx context.Context) (*Credential, error) {
	var (
		token *gocloak.JWT
		err   error
	)
	if k.kc.Username != "" {
		token, err = k.client.Login(ctx, k.kc.ClientID, k.kc.ClientSecret, k.kc.Realm, k.kc.Username, k.kc.Password)
	} else {
		token, err = k.client.LoginClient(ctx, k.kc.ClientID, k.kc.ClientSecret, k.kc.Realm)
	}
	if err != nil {
		k.logger.Warn("keycloak login failed", zap.String("realm", k.kc.Realm), zap.Error(err))
		var apiErr *gocloak.APIError
		if errors.As(err, &apiErr) {
			return nil, &TokenError{Code: apiErr.Code, Description: apiErr.Message}
		}
		return nil, err
	}

	cred := NewCredential(token.AccessToken)
	if token.TokenType != "" {
		cred.TokenType = token.TokenType
	}
	cred.ExpiresIn = token.ExpiresIn
	k.logger.Debug("keycloak login", zap.String("realm", k.kc.Realm), zap.Int("expires_in", token.ExpiresIn))
	return cred, nil
}
