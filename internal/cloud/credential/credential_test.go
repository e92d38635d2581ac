package credential

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/cloudtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenURI = "https://oauth2.googleapis.com/token"

func keyWithout(t *testing.T, field string) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(cloudtest.ServiceAccountJSON(t, tokenURI)), &m))
	delete(m, field)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func keyWith(t *testing.T, field, value string) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(cloudtest.ServiceAccountJSON(t, tokenURI)), &m))
	m[field] = value
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestParse_Valid(t *testing.T) {
	raw := cloudtest.ServiceAccountJSON(t, tokenURI)

	c, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, TypeServiceAccount, c.Type)
	assert.Equal(t, cloudtest.ClientEmail, c.ClientEmail)
	assert.Equal(t, cloudtest.ClientEmail, c.Identity())
	assert.Equal(t, tokenURI, c.TokenURI)
	assert.Equal(t, "0123456789abcdef", c.PrivateKeyID)
	assert.Contains(t, c.PrivateKey, "BEGIN PRIVATE KEY")
	assert.True(t, Valid(raw))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantSub string
	}{
		{name: "empty", raw: []byte("  "), wantSub: "empty"},
		{name: "not json", raw: []byte("{not json"), wantSub: "not valid JSON"},
		{name: "missing type", raw: keyWithout(t, "type"), wantSub: "type"},
		{name: "wrong type", raw: keyWith(t, "type", "authorized_user"), wantSub: "type"},
		{name: "missing private key", raw: keyWithout(t, "private_key"), wantSub: "private_key"},
		{name: "missing client email", raw: keyWithout(t, "client_email"), wantSub: "client_email"},
		{name: "client email not email-shaped", raw: keyWith(t, "client_email", "backup-bot"), wantSub: "client_email"},
		{name: "missing token uri", raw: keyWithout(t, "token_uri"), wantSub: "token_uri"},
		{name: "token uri not a url", raw: keyWith(t, "token_uri", "not a url"), wantSub: "token_uri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.raw)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, cloud.ErrNotConfigured)
			assert.Contains(t, err.Error(), tt.wantSub)
			assert.False(t, Valid(string(tt.raw)))
		})
	}
}

func TestCredential_StringHidesPrivateKey(t *testing.T) {
	c, err := Parse([]byte(cloudtest.ServiceAccountJSON(t, tokenURI)))
	require.NoError(t, err)

	for _, s := range []string{c.String(), fmt.Sprintf("%v", c), fmt.Sprintf("%s", *c)} {
		assert.NotContains(t, s, "PRIVATE KEY")
		assert.Contains(t, s, cloudtest.ClientEmail)
	}
}
