package order

import (
	"fmt"
	"time"
)

// FormatNumber renders the human-facing order number for the given creation
// instant and daily sequence, e.g. ORD-20250301-00042.
func FormatNumber(createdAt time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%05d", createdAt.UTC().Format("20060102"), seq)
}

// dayBounds returns the [start, end) window of the UTC calendar day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
