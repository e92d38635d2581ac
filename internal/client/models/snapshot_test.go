package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot_StampsEnvelopeAndDropsReservedKeys(t *testing.T) {
	now := time.Date(2026, 10, 18, 14, 5, 6, 789000000, time.FixedZone("CEST", 2*3600))
	data := map[string]json.RawMessage{
		"customers":  json.RawMessage(`[{"id":"c1"}]`),
		"version":    json.RawMessage(`"0.1"`),
		"exportedAt": json.RawMessage(`"yesterday"`),
	}

	s := NewSnapshot(data, now)

	assert.Equal(t, SnapshotVersion, s.Version)
	assert.Equal(t, now.UTC(), s.ExportedAt)
	assert.Equal(t, map[string]json.RawMessage{"customers": json.RawMessage(`[{"id":"c1"}]`)}, s.Data)
	assert.Len(t, data, 3, "input map must not be modified")
}

func TestSnapshot_MarshalFlat(t *testing.T) {
	s := Snapshot{
		Version:    "1.0",
		ExportedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Data: map[string]json.RawMessage{
			"todos":           json.RawMessage(`[]`),
			"companySettings": json.RawMessage(`{"name":"Garage Nord"}`),
		},
	}

	b, err := json.Marshal(s)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"version": "1.0",
		"exportedAt": "2026-10-18T12:00:00.000Z",
		"todos": [],
		"companySettings": {"name": "Garage Nord"}
	}`, string(b))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	orig := NewSnapshot(map[string]json.RawMessage{
		"customers": json.RawMessage(`[{"id":"c1","name":"Anna"}]`),
		"vehicles":  json.RawMessage(`[{"id":"v1","plate":"B-AB 123"}]`),
	}, time.Date(2026, 10, 18, 9, 15, 0, 250000000, time.UTC))

	b, err := json.Marshal(orig)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, orig.Version, got.Version)
	assert.True(t, orig.ExportedAt.Equal(got.ExportedAt))
	require.Len(t, got.Data, 2)
	assert.JSONEq(t, `[{"id":"c1","name":"Anna"}]`, string(got.Data["customers"]))
	assert.JSONEq(t, `[{"id":"v1","plate":"B-AB 123"}]`, string(got.Data["vehicles"]))
}

func TestSnapshot_UnmarshalWithoutEnvelope(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"customers":[]}`), &s))

	assert.Empty(t, s.Version)
	assert.True(t, s.ExportedAt.IsZero())
	assert.Contains(t, s.Data, "customers")
}

func TestSnapshot_UnmarshalRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "array", in: `[1,2,3]`},
		{name: "null", in: `null`},
		{name: "string", in: `"x"`},
		{name: "bad version", in: `{"version": 1}`},
		{name: "bad exportedAt", in: `{"exportedAt": "18.10.2026"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Snapshot
			require.Error(t, json.Unmarshal([]byte(tt.in), &s))
		})
	}
}
