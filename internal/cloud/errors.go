// Package cloud holds the error taxonomy shared by the cloud backup layers
// (credential, assertion, token, drive) and the sync orchestrator.
//
// Lower layers wrap one of the sentinel kinds below; callers classify with
// errors.Is. Non-2xx responses from remote endpoints are reported as
// *StatusError, which unwraps to its kind and carries the response body.
package cloud

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured = errors.New("cloud sync is not configured")

	ErrKeyImport = errors.New("private key import failed")
	ErrSigning   = errors.New("assertion signing failed")

	ErrAuthExchange = errors.New("token exchange rejected")

	ErrList     = errors.New("listing backups failed")
	ErrUpload   = errors.New("uploading backup failed")
	ErrDownload = errors.New("downloading backup failed")

	ErrNetwork = errors.New("network error: remote service unreachable")

	ErrNoBackupFound   = errors.New("no backup found in cloud storage")
	ErrInvalidSnapshot = errors.New("backup is not a valid snapshot")
)

// StatusError is returned when a remote endpoint answers with a non-success
// status code.
type StatusError struct {
	Kind       error
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// NetworkError wraps a transport failure (DNS, TLS, refused connection,
// timeout) so that it matches ErrNetwork while keeping the cause.
func NetworkError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

// Detail returns the most specific human-readable message for err: the
// response body of a StatusError when there is one, the generic network
// message for transport failures, otherwise err.Error().
func Detail(err error) string {
	if err == nil {
		return ""
	}

	var se *StatusError
	if errors.As(err, &se) {
		if body := strings.TrimSpace(se.Body); body != "" {
			return body
		}
		return fmt.Sprintf("%v (status %d)", se.Kind, se.StatusCode)
	}

	if errors.Is(err, ErrNetwork) {
		return ErrNetwork.Error()
	}

	return err.Error()
}
