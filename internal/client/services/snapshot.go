package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/client/repositories/collections"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/common"
	"github.com/dmitrijs2005/garagekeeper/internal/dbx"
	"github.com/dmitrijs2005/garagekeeper/internal/logging"
)

// Collection is one kind of local business data carried in a snapshot.
type Collection struct {
	Name  string
	Empty json.RawMessage
}

// Collections lists every collection a snapshot carries, in export order.
var Collections = []Collection{
	{Name: "customers", Empty: json.RawMessage(`[]`)},
	{Name: "vehicles", Empty: json.RawMessage(`[]`)},
	{Name: "serviceRecords", Empty: json.RawMessage(`[]`)},
	{Name: "appointments", Empty: json.RawMessage(`[]`)},
	{Name: "todos", Empty: json.RawMessage(`[]`)},
	{Name: "companySettings", Empty: json.RawMessage(`{}`)},
}

// LookupCollection returns the collection called name.
func LookupCollection(name string) (Collection, bool) {
	for _, c := range Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// SnapshotService produces snapshot data from the local database and
// applies downloaded snapshots to it.
type SnapshotService interface {
	// Capture returns every known collection; collections never stored
	// locally are exported empty.
	Capture(ctx context.Context) (map[string]json.RawMessage, error)

	// Restore replaces the local collections with those of snapshot in a
	// single transaction. Collections missing from the snapshot become
	// empty; unknown keys are ignored.
	Restore(ctx context.Context, snapshot *models.Snapshot) error

	// Put replaces one collection.
	Put(ctx context.Context, name string, data json.RawMessage) error
}

type snapshotService struct {
	db     *sql.DB
	logger logging.Logger
}

func NewSnapshotService(db *sql.DB, logger logging.Logger) SnapshotService {
	return &snapshotService{db: db, logger: logger}
}

func (s *snapshotService) repo(db dbx.DBTX) collections.Repository {
	return collections.NewSQLiteRepository(db)
}

func (s *snapshotService) Capture(ctx context.Context) (map[string]json.RawMessage, error) {
	stored, err := s.repo(s.db).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture local data: %w", err)
	}

	out := make(map[string]json.RawMessage, len(Collections))
	for _, c := range Collections {
		if data, ok := stored[c.Name]; ok {
			out[c.Name] = data
			continue
		}
		out[c.Name] = c.Empty
	}
	return out, nil
}

func (s *snapshotService) Restore(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nothing to restore", cloud.ErrInvalidSnapshot)
	}

	for _, name := range unknownKeys(snapshot.Data) {
		s.logger.Warn(ctx, "ignoring unknown collection in snapshot", "collection", name)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, c := range Collections {
			data, ok := snapshot.Data[c.Name]
			if !ok {
				data = c.Empty
			}
			if err := repo.Put(ctx, c.Name, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore local data: %w", err)
	}

	s.logger.Info(ctx, "local data restored", "version", snapshot.Version, "exported_at", snapshot.ExportedAt)
	return nil
}

func (s *snapshotService) Put(ctx context.Context, name string, data json.RawMessage) error {
	if _, ok := LookupCollection(name); !ok {
		return fmt.Errorf("%w: %q", common.ErrorUnknownCollection, name)
	}
	return s.repo(s.db).Put(ctx, name, data)
}

func unknownKeys(data map[string]json.RawMessage) []string {
	var out []string
	for k := range data {
		if _, ok := LookupCollection(k); !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
