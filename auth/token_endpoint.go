package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kheops-album-tools/constants"

	"github.com/gojektech/heimdall/v6/httpclient"
	"go.uber.org/zap"
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenEndpoint exchanges credentials at an OAuth2 token URL, one attempt
// per call.
type TokenEndpoint struct {
	uri        string
	form       url.Values
	httpClient *httpclient.Client
	logger     *zap.Logger
}

func newTokenEndpoint(uri string, form url.Values, timeout time.Duration, logger *zap.Logger) *TokenEndpoint {
	return &TokenEndpoint{
		uri:        uri,
		form:       form,
		httpClient: httpclient.NewClient(httpclient.WithHTTPTimeout(timeout)),
		logger:     logger,
	}
}

func NewPasswordGrant(uri, clientID, username, password string, timeout time.Duration, logger *zap.Logger) *TokenEndpoint {
	form := url.Values{}
	form.Set(constants.ParamGrantType, constants.GrantTypePassword)
	form.Set(constants.ParamClientID, clientID)
	form.Set(constants.ParamUsername, username)
	form.Set(constants.ParamPassword, password)
	return newTokenEndpoint(uri, form, timeout, logger)
}

func NewClientCredentialsGrant(uri, clientID, clientSecret string, timeout time.Duration, logger *zap.Logger) *TokenEndpoint {
	form := url.Values{}
	form.Set(constants.ParamGrantType, constants.GrantTypeClientCredentials)
	form.Set(constants.ParamClientID, clientID)
	form.Set(constants.ParamClientSecret, clientSecret)
	return newTokenEndpoint(uri, form, timeout, logger)
}

func (te *TokenEndpoint) Authenticate(ctx context.Context) (*Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, te.uri, strings.NewReader(te.form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set(constants.ParamContentType, constants.MimeForm)
	req.Header.Set(constants.ParamAccept, constants.MimeJSON)

	res, err := te.httpClient.Do(req)
	if res == nil {
		return nil, fmt.Errorf("auth: token request: %w", err)
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: reading token response: %w", err)
	}

	var tr tokenResponse
	jsonErr := json.Unmarshal(body, &tr)

	if res.StatusCode != http.StatusOK {
		te.logger.Warn("token request refused",
			zap.String("grant_type", te.form.Get(constants.ParamGrantType)),
			zap.Int("status", res.StatusCode))
		tokenErr := &TokenError{Code: res.StatusCode, ErrorCode: tr.Error, Description: tr.ErrorDescription}
		if jsonErr != nil || (tr.Error == "" && tr.ErrorDescription == "") {
			tokenErr.Description = strings.TrimSpace(string(body))
		}
		return nil, tokenErr
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("Error parsing the response body: %s", jsonErr)
	}
	if tr.AccessToken == "" {
		return nil, &TokenError{Code: res.StatusCode, Description: "response carries no access_token"}
	}

	cred := NewCredential(tr.AccessToken)
	if tr.TokenType != "" {
		cred.TokenType = tr.TokenType
	}
	cred.ExpiresIn = tr.ExpiresIn
	te.logger.Debug("token obtained",
		zap.String("grant_type", te.form.Get(constants.ParamGrantType)),
		zap.Int("expires_in", tr.ExpiresIn))
	return cred, nil
}
