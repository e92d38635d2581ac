package collections

import (
	"context"
	"encoding/json"
)

// Repository stores collection documents by name.
type Repository interface {
	// Get returns the document of name; the boolean is false when the
	// collection has never been stored.
	Get(ctx context.Context, name string) (json.RawMessage, bool, error)

	// Put inserts or replaces the document of name.
	Put(ctx context.Context, name string, data json.RawMessage) error

	// All returns every stored document keyed by collection name.
	All(ctx context.Context) (map[string]json.RawMessage, error)

	// DeleteAll empties the table.
	DeleteAll(ctx context.Context) error
}
