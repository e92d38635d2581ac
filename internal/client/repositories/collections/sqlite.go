package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/garagekeeper/internal/common"
	"github.com/dmitrijs2005/garagekeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to db, which may be a
// *sql.DB or a *sql.Tx.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) (json.RawMessage, bool, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	return json.RawMessage(data), true, nil
}

// Put upserts the document. Invalid JSON is rejected with
// common.ErrorInvalidInput before touching the database.
func (r *SQLiteRepository) Put(ctx context.Context, name string, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: collection %s is not valid JSON", common.ErrorInvalidInput, name)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collections (name, data) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, name, string(data))
	if err != nil {
		return fmt.Errorf("failed to put collection %s: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) All(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, data FROM collections`)
	if err != nil {
		return nil, fmt.Errorf("failed to select collections: %w", err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		result[name] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM collections`); err != nil {
		return fmt.Errorf("failed to delete collections: %w", err)
	}
	return nil
}
