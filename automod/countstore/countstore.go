package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

// Counter names used by the engine.
const (
	// actions dispatched, by action kind
	CounterActions = "actions"
	// distinct players sanctioned, bucketed by action kind
	CounterOffenders = "offenders"
	// violations matched, by wordlist section
	CounterViolations = "violations"
	// quota usage for the ban circuit breaker
	CounterQuota = "quota"
)

// CountStore keeps per-period event counters. Every increment lands in the
// hour, day and total buckets at once.
type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

func periodBucket(name, val, period string, now time.Time) string {
	now = now.UTC()
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		return fmt.Sprintf("%s/%s/%s", name, val, now.Format(time.DateOnly))
	case PeriodHour:
		return fmt.Sprintf("%s/%s/%s", name, val, now.Format(time.RFC3339)[0:13])
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}

var allPeriods = []string{PeriodTotal, PeriodDay, PeriodHour}
