package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SnapshotVersion tags every snapshot written by this client.
const SnapshotVersion = "1.0"

const (
	snapshotVersionKey    = "version"
	snapshotExportedAtKey = "exportedAt"
	exportedAtLayout      = "2006-01-02T15:04:05.000Z07:00"
)

var ErrSnapshotNotObject = errors.New("snapshot must be a JSON object")

// Snapshot is the document exchanged with the remote store: the complete
// local application state plus a version tag and export timestamp.
//
// Data is opaque here. Keys are collection names, values are whatever the
// local store produced. On the wire the envelope fields and Data keys share
// one flat JSON object.
type Snapshot struct {
	Version    string
	ExportedAt time.Time
	Data       map[string]json.RawMessage
}

// NewSnapshot wraps data into an envelope stamped with now. Envelope keys
// present in data are replaced.
func NewSnapshot(data map[string]json.RawMessage, now time.Time) *Snapshot {
	copied := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		if k == snapshotVersionKey || k == snapshotExportedAtKey {
			continue
		}
		copied[k] = v
	}
	return &Snapshot{Version: SnapshotVersion, ExportedAt: now.UTC(), Data: copied}
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Data)+2)
	for k, v := range s.Data {
		out[k] = v
	}

	version, err := json.Marshal(s.Version)
	if err != nil {
		return nil, err
	}
	exportedAt, err := json.Marshal(s.ExportedAt.UTC().Format(exportedAtLayout))
	if err != nil {
		return nil, err
	}
	out[snapshotVersionKey] = version
	out[snapshotExportedAtKey] = exportedAt

	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotNotObject, err)
	}
	if raw == nil {
		return ErrSnapshotNotObject
	}

	var out Snapshot

	if v, ok := raw[snapshotVersionKey]; ok {
		if err := json.Unmarshal(v, &out.Version); err != nil {
			return fmt.Errorf("snapshot version: %w", err)
		}
		delete(raw, snapshotVersionKey)
	}

	if v, ok := raw[snapshotExportedAtKey]; ok {
		var ts string
		if err := json.Unmarshal(v, &ts); err != nil {
			return fmt.Errorf("snapshot exportedAt: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return fmt.Errorf("snapshot exportedAt: %w", err)
		}
		out.ExportedAt = parsed
		delete(raw, snapshotExportedAtKey)
	}

	out.Data = raw
	*s = out
	return nil
}
