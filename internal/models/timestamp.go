package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// timestampLayouts are tried in order. Naive datetimes are local time and
// bare dates are UTC midnight.
var timestampLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02T15:04:05.999999999", time.Local},
	{"2006-01-02T15:04", time.Local},
	{"2006-01-02", time.UTC},
}

// Timestamp is a backend time that tolerates the formats the API emits.
// A value that cannot be parsed keeps its text in Raw and reads as the zero
// time.
type Timestamp struct {
	time.Time
	Raw string
}

// ParseTimestamp parses s with the accepted layouts.
func ParseTimestamp(s string) (Timestamp, bool) {
	for _, l := range timestampLayouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{Raw: s}, false
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Timestamp{Raw: string(data)}
		return nil
	}
	*t, _ = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case !t.IsZero():
		return json.Marshal(t.Time.Format(time.RFC3339Nano))
	case t.Raw != "":
		return json.Marshal(t.Raw)
	default:
		return []byte("null"), nil
	}
}
