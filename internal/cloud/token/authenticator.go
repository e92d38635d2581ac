package token

import (
	"context"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud/assertion"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/credential"
)

// Authenticator turns a credential into a bearer token: build and sign an
// assertion, then exchange it. Each call signs a new assertion and performs
// a new exchange; tokens are not cached between calls.
type Authenticator struct {
	builder   *assertion.Builder
	exchanger *Exchanger
	now       func() time.Time
}

// NewAuthenticator wires a Builder and an Exchanger.
func NewAuthenticator(builder *assertion.Builder, exchanger *Exchanger) *Authenticator {
	return &Authenticator{builder: builder, exchanger: exchanger, now: time.Now}
}

// AccessToken returns a fresh access token for cred.
func (a *Authenticator) AccessToken(ctx context.Context, cred *credential.Credential) (string, error) {
	signed, err := a.builder.Build(cred, a.now())
	if err != nil {
		return "", err
	}

	tok, err := a.exchanger.Exchange(ctx, cred.TokenURI, signed)
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}
