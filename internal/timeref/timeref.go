// Package timeref resolves relative time references in questions ("last
// quarter", "this year") against a dataset's datetime bounds rather than
// wall-clock now, so the same question over the same upload always produces
// the same window.
package timeref

import (
	"strings"
	"time"

	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// DatetimeBounds returns the min/max observed timestamps of the dataset's
// first datetime column, and whether one exists.
func DatetimeBounds(ds *table.Dataset) (time.Time, time.Time, bool) {
	for _, c := range ds.Columns {
		if c.InferredType == table.TypeDatetime && c.MinTime != nil && c.MaxTime != nil {
			return c.MinTime.Time(), c.MaxTime.Time(), true
		}
	}
	return time.Time{}, time.Time{}, false
}

// Resolve maps a relative reference found in the question to an absolute
// window anchored at the dataset's latest observation. Returns nil when the
// question carries no recognized reference or the dataset has no datetime
// column to anchor against.
func Resolve(question string, ds *table.Dataset) *query.TimeWindow {
	_, max, ok := DatetimeBounds(ds)
	if !ok {
		return nil
	}
	q := strings.ToLower(question)

	var start, end time.Time
	switch {
	case strings.Contains(q, "last quarter"):
		qStart := quarterStart(max)
		start = qStart.AddDate(0, -3, 0)
		end = qStart.Add(-time.Second)
	case strings.Contains(q, "this quarter"):
		start = quarterStart(max)
		end = max
	case strings.Contains(q, "last year"):
		start = time.Date(max.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(max.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
	case strings.Contains(q, "this year"):
		start = time.Date(max.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = max
	case strings.Contains(q, "last month"):
		mStart := time.Date(max.Year(), max.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = mStart.AddDate(0, -1, 0)
		end = mStart.Add(-time.Second)
	case strings.Contains(q, "this month"):
		start = time.Date(max.Year(), max.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = max
	default:
		return nil
	}

	return &query.TimeWindow{
		Start: start.UTC().Format(time.RFC3339),
		End:   end.UTC().Format(time.RFC3339),
	}
}

func quarterStart(t time.Time) time.Time {
	q := (int(t.Month()) - 1) / 3
	return time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
}
