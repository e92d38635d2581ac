package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/common"
	"github.com/dmitrijs2005/garagekeeper/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshots(t *testing.T) SnapshotService {
	t.Helper()
	return NewSnapshotService(setupDB(t), logging.NewDiscardLogger())
}

func TestCapture_FillsMissingCollections(t *testing.T) {
	s := newSnapshots(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "customers", json.RawMessage(`[{"id":"c1"}]`)))

	got, err := s.Capture(ctx)
	require.NoError(t, err)

	want := map[string]json.RawMessage{
		"customers":       json.RawMessage(`[{"id":"c1"}]`),
		"vehicles":        json.RawMessage(`[]`),
		"serviceRecords":  json.RawMessage(`[]`),
		"appointments":    json.RawMessage(`[]`),
		"todos":           json.RawMessage(`[]`),
		"companySettings": json.RawMessage(`{}`),
	}
	if diff := cmp.Diff(want, got, jsonValues()); diff != "" {
		t.Fatalf("capture mismatch (-want +got):\n%s", diff)
	}
}

func TestPut_RejectsUnknownCollectionAndBadJSON(t *testing.T) {
	s := newSnapshots(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Put(ctx, "invoices", json.RawMessage(`[]`)), common.ErrorUnknownCollection)
	require.ErrorIs(t, s.Put(ctx, "todos", json.RawMessage(`[`)), common.ErrorInvalidInput)
}

func TestRestore_ReplacesEverything(t *testing.T) {
	s := newSnapshots(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "customers", json.RawMessage(`[{"id":"old"}]`)))
	require.NoError(t, s.Put(ctx, "todos", json.RawMessage(`[{"id":"old-todo"}]`)))

	snap := models.NewSnapshot(map[string]json.RawMessage{
		"customers": json.RawMessage(`[{"id":"new"}]`),
		"invoices":  json.RawMessage(`[1]`),
	}, time.Now())
	require.NoError(t, s.Restore(ctx, snap))

	got, err := s.Capture(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"new"}]`, string(got["customers"]))
	assert.JSONEq(t, `[]`, string(got["todos"]), "collections absent from the snapshot are emptied")
	assert.NotContains(t, got, "invoices")
}

func TestRestore_IsAllOrNothing(t *testing.T) {
	s := newSnapshots(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "customers", json.RawMessage(`[{"id":"keep"}]`)))
	before, err := s.Capture(ctx)
	require.NoError(t, err)

	snap := &models.Snapshot{Version: models.SnapshotVersion, Data: map[string]json.RawMessage{
		"customers": json.RawMessage(`[{"id":"new"}]`),
		"vehicles":  json.RawMessage(`{not json`),
	}}
	require.Error(t, s.Restore(ctx, snap))

	after, err := s.Capture(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after, jsonValues()); diff != "" {
		t.Fatalf("failed restore changed local data (-before +after):\n%s", diff)
	}
}

func TestRestore_Nil(t *testing.T) {
	s := newSnapshots(t)
	require.ErrorIs(t, s.Restore(context.Background(), nil), cloud.ErrInvalidSnapshot)
}

func TestLookupCollection(t *testing.T) {
	c, ok := LookupCollection("companySettings")
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`{}`), c.Empty)

	_, ok = LookupCollection("Customers")
	assert.False(t, ok)
}
