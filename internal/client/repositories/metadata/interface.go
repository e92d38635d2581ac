// Package metadata stores small string settings of the local installation
// (sync target, service-account key, last sync time) in the metadata table.
package metadata

import (
	"context"
)

// Repository is a key/value store for local settings. A missing key is not
// an error: Get reports it through the boolean.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) (map[string]string, error)
}
