// Package cronvalidate exposes the pure cron-expression check used by the
// workflow loader and by any client-facing validation surface (spec.md §4.2,
// component H), grounded on the teacher's cli/helpers/workflow.go validator.
package cronvalidate

import (
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// IsCronExpressionValid reports whether expr parses as a standard cron
// expression and yields at least one firing within the next year — a
// syntactically valid expression like "0 0 31 2 *" (Feb 31st) never fires
// and is treated as invalid.
func IsCronExpressionValid(expr string) bool {
	if expr == "" {
		return false
	}
	schedule, err := parser.Parse(expr)
	if err != nil {
		return false
	}
	now := time.Now()
	next := schedule.Next(now)
	return !next.IsZero() && next.Before(now.AddDate(1, 0, 0))
}
