package entities

import (
	"fmt"
	"time"
)

// DateRange is a half-open [Start, End) interval of requested data.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String renders the range the way it appears in logs and coverage keys.
func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// SplitDateRange splits [start, end) into consecutive sub-ranges of at most
// one year each. The export endpoint refuses requests spanning more than a
// year, so every download goes through this.
func SplitDateRange(start, end time.Time) []DateRange {
	if !start.Before(end) {
		return nil
	}

	var chunks []DateRange
	for cur := start; cur.Before(end); {
		next := cur.AddDate(1, 0, 0)
		if next.After(end) {
			next = end
		}
		chunks = append(chunks, DateRange{Start: cur, End: next})
		cur = next
	}
	return chunks
}
