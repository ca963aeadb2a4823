package store

import (
	"encoding/json"

	"optionguard/internal/errors"
	"optionguard/internal/models"
)

// schemaVersion is bumped whenever the persisted position layout changes in a
// way an older binary could not read. Decoding rejects versions newer than
// this one; fields absent from an older payload unmarshal to their zero
// values, which every consumer treats as "not yet computed".
const schemaVersion = 1

type positionEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	Position      json.RawMessage `json:"position"`
}

// encodePosition serializes a position inside its versioned envelope.
func encodePosition(pos *models.Position) ([]byte, error) {
	body, err := json.Marshal(pos)
	if err != nil {
		return nil, err
	}
	return json.Marshal(positionEnvelope{
		SchemaVersion: schemaVersion,
		Position:      body,
	})
}

// decodePosition deserializes a stored position, rejecting payloads written by
// a newer schema.
func decodePosition(data []byte) (*models.Position, error) {
	var env positionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.SchemaVersion < 1 || env.SchemaVersion > schemaVersion {
		return nil, errors.Wrapf(errors.ErrSchemaVersion, "version %d", env.SchemaVersion)
	}

	var pos models.Position
	if err := json.Unmarshal(env.Position, &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}
