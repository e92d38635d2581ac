// Package token trades signed assertions for short-lived bearer tokens
// using the OAuth 2.0 JWT-bearer grant (RFC 7523).
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"golang.org/x/oauth2"
)

// GrantTypeJWTBearer is the grant_type sent to the token endpoint.
const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// maxErrorBody bounds how much of a failed response is kept as detail.
const maxErrorBody = 4 << 10

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchanger performs the assertion-for-token exchange. It never retries.
type Exchanger struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewExchanger returns an Exchanger using httpClient, or
// http.DefaultClient when nil.
func NewExchanger(httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Exchanger{httpClient: httpClient, now: time.Now}
}

// Exchange posts the assertion to endpoint and returns the issued token.
//
// Errors: *cloud.StatusError wrapping cloud.ErrAuthExchange for non-2xx
// answers (body kept as detail), cloud.ErrAuthExchange for a malformed
// success body, cloud.ErrNetwork for transport failures.
func (e *Exchanger) Exchange(ctx context.Context, endpoint, assertion string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", GrantTypeJWTBearer)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloud.ErrAuthExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, cloud.NetworkError("token exchange", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &cloud.StatusError{Kind: cloud.ErrAuthExchange, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", cloud.ErrAuthExchange, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", cloud.ErrAuthExchange)
	}

	tok := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
	if tr.ExpiresIn > 0 {
		tok.Expiry = e.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}
