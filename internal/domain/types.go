package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray is a string slice stored as a JSON text column.
type StringArray []string

// Value implements the driver.Valuer interface.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	b, err := scanBytes(value, "StringArray")
	if err != nil {
		return err
	}
	return json.Unmarshal(b, a)
}

// RawCitations keeps citations exactly as a model returned them: bare URL
// strings or objects whose keys depend on the provider.
type RawCitations []interface{}

// Value implements the driver.Valuer interface.
func (c RawCitations) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (c *RawCitations) Scan(value interface{}) error {
	if value == nil {
		*c = RawCitations{}
		return nil
	}
	b, err := scanBytes(value, "RawCitations")
	if err != nil {
		return err
	}
	return json.Unmarshal(b, c)
}

func scanBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("failed to scan " + typeName)
	}
}
