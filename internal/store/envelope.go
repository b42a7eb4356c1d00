package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is written into every envelope.
const SchemaVersion = 1

// Envelope wraps a persisted record with its schema version.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	SavedAt       time.Time       `json:"saved_at"`
	State         json.RawMessage `json:"state"`
}

// ErrUnsupportedVersion is returned for envelopes written by a newer build.
var ErrUnsupportedVersion = errors.New("unsupported schema version")

// Encode marshals state into a versioned envelope.
func Encode(state any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}

	return json.Marshal(Envelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       now.UTC(),
		State:         raw,
	})
}

// Decode unmarshals an envelope into state and returns its version.
// Payloads without a schema_version are version 0: either a bare state or
// a {"state": ..., "version": n} wrapper.
func Decode(data []byte, state any) (int, error) {
	version, raw, err := Unwrap(data)
	if err != nil {
		return version, err
	}
	if err := json.Unmarshal(raw, state); err != nil {
		if version == 0 {
			return 0, fmt.Errorf("decode legacy record: %w", err)
		}
		return version, fmt.Errorf("decode state: %w", err)
	}

	return version, nil
}

// Unwrap returns the schema version of data and the raw state it carries.
func Unwrap(data []byte) (int, json.RawMessage, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, data, nil
	}

	rawVersion, enveloped := probe["schema_version"]
	if !enveloped {
		if rawState, ok := probe["state"]; ok {
			if _, versioned := probe["version"]; versioned {
				return 0, rawState, nil
			}
		}
		return 0, data, nil
	}

	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return 0, nil, fmt.Errorf("decode schema_version: %w", err)
	}
	if version > SchemaVersion || version < 1 {
		return version, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	rawState, ok := probe["state"]
	if !ok || bytes.Equal(bytes.TrimSpace(rawState), []byte("null")) {
		return version, nil, fmt.Errorf("decode record: envelope has no state")
	}

	return version, rawState, nil
}

// SaveRecord encodes state and writes it under name.
func SaveRecord(ctx context.Context, s Store, name string, state any) error {
	data, err := Encode(state, time.Now())
	if err != nil {
		return err
	}

	return s.Save(ctx, name, data)
}

// LoadRecord reads name into state. It reports false when the record does
// not exist.
func LoadRecord(ctx context.Context, s Store, name string, state any) (bool, error) {
	_, found, err := LoadVersionedRecord(ctx, s, name, state, nil)
	return found, err
}

// LoadVersionedRecord reads name into state, or into legacy when the record
// is version 0 and legacy is not nil, and returns the version it read. The
// caller converts legacy into its current form.
func LoadVersionedRecord(ctx context.Context, s Store, name string, state, legacy any) (int, bool, error) {
	data, err := s.Load(ctx, name)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	version, raw, err := Unwrap(data)
	if err != nil {
		return version, false, fmt.Errorf("record %s: %w", name, err)
	}

	target := state
	if version == 0 && legacy != nil {
		target = legacy
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return version, false, fmt.Errorf("record %s: decode state: %w", name, err)
	}

	return version, true, nil
}
