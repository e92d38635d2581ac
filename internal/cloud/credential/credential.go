// Package credential parses service-account key material.
//
// A Credential is the offline-issued identity used to authenticate against
// the remote store without user interaction: the account e-mail, a PKCS#8
// PEM private key used only for signing, and the token endpoint URL. It is
// produced once by Parse and never mutated afterwards.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/go-playground/validator/v10"
)

// TypeServiceAccount is the only key type accepted by Parse.
const TypeServiceAccount = "service_account"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Credential mirrors the fields of a service-account key file that the
// backup client relies on. Unknown fields of the file are ignored.
type Credential struct {
	Type         string `json:"type" validate:"required,eq=service_account"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key" validate:"required"`
	ClientEmail  string `json:"client_email" validate:"required,email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri" validate:"required,url"`
}

// Parse decodes and validates raw service-account key JSON. Any problem is
// reported as cloud.ErrNotConfigured with the offending fields listed.
func Parse(raw []byte) (*Credential, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("%w: service account key is empty", cloud.ErrNotConfigured)
	}

	var c Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: service account key is not valid JSON: %v", cloud.ErrNotConfigured, err)
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("%w: %s", cloud.ErrNotConfigured, describe(err))
	}

	return &c, nil
}

// Valid reports whether raw is a usable service-account key.
func Valid(raw string) bool {
	_, err := Parse([]byte(raw))
	return err == nil
}

// Identity returns the signing principal (the account e-mail).
func (c Credential) Identity() string {
	return c.ClientEmail
}

// String never includes the private key.
func (c Credential) String() string {
	return fmt.Sprintf("service account %s (key %s)", c.ClientEmail, c.PrivateKeyID)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q check", fe.Field(), fe.Tag()))
	}
	return "invalid service account key: " + strings.Join(parts, ", ")
}
