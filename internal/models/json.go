package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON хранит произвольный jsonb, допускающий NULL.
type JSON json.RawMessage

// Value реализует driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan реализует sql.Scanner.
func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("json: неподдерживаемый тип %T", src)
	}
	return nil
}

// MarshalJSON отдаёт содержимое как есть.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON сохраняет копию входных байт.
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
