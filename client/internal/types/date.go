package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
)

// MillisecondLayout is the wire form Date marshals to.
const MillisecondLayout = "2006-01-02T15:04:05.000Z"

// Date is a backend timestamp. It accepts the millisecond form, any
// RFC 3339 date-time, or a bare date, all read as UTC.
type Date struct {
	time.Time
}

// ParseDate tries each accepted layout in turn.
func ParseDate(s string) (Date, error) {
	if t, err := time.ParseInLocation(MillisecondLayout, s, time.UTC); err == nil {
		return Date{t}, nil
	}
	if dt, err := strfmt.ParseDateTime(s); err == nil {
		return Date{time.Time(dt).UTC()}, nil
	}
	if t, err := time.ParseInLocation(strfmt.RFC3339FullDate, s, time.UTC); err == nil {
		return Date{t}, nil
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

// String renders the date in MillisecondLayout.
func (d Date) String() string {
	return d.UTC().Format(MillisecondLayout)
}

// DateOnly renders the calendar day, as the backend expects it in requests.
func (d Date) DateOnly() string {
	return strfmt.Date(d.UTC()).String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON leaves d zero for null, empty or unparseable values; a
// malformed date never fails the surrounding document.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}
