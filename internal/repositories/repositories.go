package repositories

import (
	"fmt"

	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/goccy/go-json"
)

// encodeColumn serializes a slice or struct for storage in a JSON text column.
func encodeColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode column: %v", shared.ErrPersistence, err)
	}
	return string(data), nil
}

// decodeColumn parses a JSON text column into target, treating empty text as no value.
func decodeColumn(raw string, target any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("%w: failed to decode column: %v", shared.ErrPersistence, err)
	}
	return nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}
