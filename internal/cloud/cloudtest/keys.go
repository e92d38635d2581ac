// Package cloudtest provides test doubles for the cloud backup layers: RSA
// service-account keys and an in-memory fake of the token endpoint and the
// Drive files API served over httptest.
package cloudtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"sync"
	"testing"
)

const ClientEmail = "backup-bot@garage-project.iam.gserviceaccount.com"

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyPEM  string
	keyErr  error
)

// Key returns a process-wide 2048-bit RSA key and its PKCS#8 PEM encoding.
// Generation happens once per test binary.
func Key(t testing.TB) (*rsa.PrivateKey, string) {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
		if keyErr != nil {
			return
		}
		var der []byte
		der, keyErr = x509.MarshalPKCS8PrivateKey(key)
		if keyErr != nil {
			return
		}
		keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	})
	if keyErr != nil {
		t.Fatalf("generate test key: %v", keyErr)
	}
	return key, keyPEM
}

// ServiceAccountJSON renders a service-account key file pointing at tokenURI.
func ServiceAccountJSON(t testing.TB, tokenURI string) string {
	t.Helper()
	_, pemKey := Key(t)
	return ServiceAccountJSONWithKey(t, tokenURI, pemKey)
}

// ServiceAccountJSONWithKey is ServiceAccountJSON with explicit key material.
func ServiceAccountJSONWithKey(t testing.TB, tokenURI, pemKey string) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "garage-project",
		"private_key_id": "0123456789abcdef",
		"private_key":    pemKey,
		"client_email":   ClientEmail,
		"client_id":      "112233445566778899",
		"token_uri":      tokenURI,
	})
	if err != nil {
		t.Fatalf("marshal service account: %v", err)
	}
	return string(b)
}
