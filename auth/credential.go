package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// Credential is a bearer token held for the lifetime of one command. It is
// never written to disk and never refreshed.
type Credential struct {
	AccessToken string    `json:"-"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// Claims is the subset of the access token payload shown to users.
type Claims struct {
	Exp               int64  `json:"exp"`
	Iat               int64  `json:"iat"`
	Iss               string `json:"iss"`
	Sub               string `json:"sub"`
	Azp               string `json:"azp"`
	Scope             string `json:"scope"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func NewCredential(accessToken string) *Credential {
	return &Credential{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ObtainedAt:  time.Now(),
	}
}

// Header is the value of the Authorization header.
func (c *Credential) Header() string {
	return "Bearer " + c.AccessToken
}

// ExpiresAt is zero when the provider did not announce a lifetime.
func (c *Credential) ExpiresAt() time.Time {
	if c.ExpiresIn <= 0 {
		return time.Time{}
	}
	return c.ObtainedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
}

func (c *Credential) Expired(now time.Time) bool {
	exp := c.ExpiresAt()
	return !exp.IsZero() && now.After(exp)
}

// Claims decodes the token payload without verifying its signature.
func (c *Credential) Claims() (*Claims, error) {
	if c.AccessToken == "" {
		return nil, errors.New("auth: empty access token")
	}
	token, _, err := new(jwt.Parser).ParseUnverified(c.AccessToken, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("auth: token is not a JWT: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("auth: unexpected claims type")
	}
	var parsed Claims
	bytes, _ := json.Marshal(claims)
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		return nil, fmt.Errorf("auth: decoding claims: %w", err)
	}
	return &parsed, nil
}

func (c *Credential) String() string {
	b, _ := json.Marshal(c)
	return string(b)
}
