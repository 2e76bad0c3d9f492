package heatstore

import (
	"context"
	"time"

	"github.com/langwarden/langwarden/automod/heat"
)

// Value written in place of a missing stable id.
const UnknownID = "Unknown"

// HeatStore persists the whole ledger. Save replaces everything previously
// stored.
type HeatStore interface {
	Load(ctx context.Context) ([]heat.Record, error)
	Save(ctx context.Context, recs []heat.Record) error
}

// 100ns ticks between 0001-01-01 and the unix epoch
const epochTicks = 621355968000000000

// Converts a time to 100ns ticks since 0001-01-01 UTC.
func ToTicks(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return epochTicks + t.UnixNano()/100
}

func FromTicks(ticks int64) time.Time {
	if ticks <= 0 {
		return time.Time{}
	}
	return time.Unix(0, (ticks-epochTicks)*100).UTC()
}
