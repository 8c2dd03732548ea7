package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/common"
)

// TimeLayout is the fixed-width UTC form used for every stored timestamp.
// Fixed width keeps lexical and chronological order identical in SQLite.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var parseLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and the other ISO-8601 shapes found in older
// rows.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", common.ErrUnparseableTimestamp, s)
}

// Epoch is the pull watermark used before the first successful sync.
var Epoch = time.Unix(0, 0).UTC()
