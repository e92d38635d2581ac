// Package assertion builds the signed JWT-bearer assertion that is traded
// for an access token at the credential's token endpoint.
//
// The assertion is an RS256 JWT whose claim set names the service account
// as issuer, the token endpoint as audience, the requested scope, and a
// one-hour validity window starting at the supplied time. A fresh assertion
// is built for every token request; nothing is cached.
package assertion

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/credential"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultScope grants access to files created by the application only.
const DefaultScope = "https://www.googleapis.com/auth/drive.file"

// Lifetime is the validity window of an assertion.
const Lifetime = time.Hour

// Claims is the assertion claim set. Field order is the serialization order.
type Claims struct {
	Issuer    string `json:"iss"`
	Scope     string `json:"scope"`
	Audience  string `json:"aud"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c Claims) GetSubject() (string, error) {
	return "", nil
}

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

// sign is a test seam for the RSA signing step.
var sign = func(token *jwt.Token, key any) (string, error) {
	return token.SignedString(key)
}

// Builder signs assertions for a fixed scope.
type Builder struct {
	scope string
}

// NewBuilder returns a Builder requesting scope; an empty scope selects
// DefaultScope.
func NewBuilder(scope string) *Builder {
	if scope == "" {
		scope = DefaultScope
	}
	return &Builder{scope: scope}
}

// Scope returns the scope placed into every assertion.
func (b *Builder) Scope() string {
	return b.scope
}

// Build returns "<header>.<claims>.<signature>", each part base64url
// encoded without padding. The result depends only on cred and now.
func (b *Builder) Build(cred *credential.Credential, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", cloud.ErrKeyImport, err)
	}

	iat := now.Unix()
	claims := Claims{
		Issuer:    cred.ClientEmail,
		Scope:     b.scope,
		Audience:  cred.TokenURI,
		ExpiresAt: iat + int64(Lifetime/time.Second),
		IssuedAt:  iat,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if cred.PrivateKeyID != "" {
		token.Header["kid"] = cred.PrivateKeyID
	}

	signed, err := sign(token, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", cloud.ErrSigning, err)
	}

	return signed, nil
}
