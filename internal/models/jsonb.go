package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

//
// JSON column helpers
//

// JSONB is a helper for json columns (jsonb on Postgres, TEXT on SQLite).
// Backed by map[string]any and works with sqlx / database/sql.
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value any) error {
	return scanJSON(value, j, func() { *j = nil })
}

// StringList is a JSON array of strings stored in a single column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value any) error {
	return scanJSON(value, s, func() { *s = nil })
}

// scanJSON decodes a driver value holding JSON text into dest. Drivers hand
// back either []byte or string depending on the engine and column type.
func scanJSON(value any, dest any, reset func()) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		reset()
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("json column: expected []byte or string, got %T", value)
	}

	if len(b) == 0 || string(b) == "null" {
		reset()
		return nil
	}

	return json.Unmarshal(b, dest)
}
