package ingest

import (
	"fmt"
	"time"
)

// ParseError reports a timestamp that matched none of the accepted
// forms. It is a soft failure: callers skip the offending record
// instead of aborting the run.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable timestamp %q", e.Value)
}

// Timestamp layouts accepted from upstream exports, tried in order.
// Offset-less and date-only forms are interpreted as UTC.
var timestampLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, nil}, // trailing Z or explicit offset
	{"2006-01-02T15:04:05.999999999", time.UTC},
	{"2006-01-02T15:04:05", time.UTC},
	{"2006-01-02", time.UTC}, // date only, midnight UTC
}

// ParseTimestamp normalizes an ISO-8601-like timestamp string to an
// absolute instant.
func ParseTimestamp(s string) (time.Time, error) {
	for _, l := range timestampLayouts {
		var t time.Time
		var err error
		if l.loc != nil {
			t, err = time.ParseInLocation(l.layout, s, l.loc)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Value: s}
}
