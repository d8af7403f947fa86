package model

import (
	"fmt"
	"strings"
	"time"
)

// LocalTime serializes as an ISO-8601 local timestamp without zone, e.g. "2025-01-02T15:04:05".
type LocalTime time.Time

const timeFormat = "2006-01-02T15:04:05"

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).Format(timeFormat))
	return []byte(formatted), nil
}

// UnmarshalJSON accepts the same layout MarshalJSON writes.
func (t *LocalTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "" || s == "null" {
		*t = LocalTime{}
		return nil
	}
	parsed, err := time.ParseInLocation(timeFormat, s, time.Local)
	if err != nil {
		return err
	}
	*t = LocalTime(parsed)
	return nil
}
