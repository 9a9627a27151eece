package timex

import (
	"fmt"
	"strings"
	"time"
)

// isoLayout is the millisecond-precision UTC layout produced by the
// JavaScript Date.toISOString method. Persisted ledger documents carry
// timestamps in this format, so exports must reproduce it exactly.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Time is a time.Time that marshals to the ledger document timestamp format.
type Time struct {
	time.Time
}

// Now returns the current moment truncated to millisecond precision, the
// finest resolution the document format can represent.
func Now() Time {
	return Time{time.Now().UTC().Truncate(time.Millisecond)}
}

// At wraps an existing time.Time, truncating to millisecond precision.
func At(t time.Time) Time {
	return Time{t.UTC().Truncate(time.Millisecond)}
}

// ISO renders the timestamp in the document format. Transaction signatures
// are computed over this rendering, so it must stay stable.
func (t Time) ISO() string {
	return t.UTC().Format(isoLayout)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.ISO() + `"`), nil
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	// Accept both the document layout and RFC 3339 variants so documents
	// written by other tooling still import.
	for _, layout := range []string{isoLayout, time.RFC3339Nano, time.RFC3339} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
