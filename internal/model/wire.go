package model

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

var _null = []byte("null")

// Float accepts JSON numbers, numeric strings, empty strings and null.
// The broker behind the backend reports most amounts as strings.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, _null) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func (f *Float) Value() float64 {
	if f == nil {
		return 0
	}
	return float64(*f)
}

// Text accepts either a JSON string or any other scalar, kept verbatim.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, _null) {
		*t = ""
		return nil
	}
	if len(b) > 1 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

var _timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// Time accepts RFC3339-like strings and unix timestamps in seconds or milliseconds.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, _null) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] != '"' {
		n, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		t.Time = unixAny(int64(n))
		return nil
	}
	s := strings.Trim(string(b), `"`)
	t.Time = ParseTime(s)
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return _null, nil
	}
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}

// ParseTime returns the zero time when s matches no known layout.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range _timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unixAny(n)
	}
	return time.Time{}
}

func unixAny(n int64) time.Time {
	// 1e11 seconds is year 5138, so anything larger is milliseconds.
	if n > 1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
