// Package ledger counts productions against the advisory weekly cap.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"briefings/internal/docstore"
	"briefings/internal/logging"
)

// WeeklyCap is the advisory number of productions per rolling week.
const WeeklyCap = 50

const (
	documentName = "production_log"
	window       = 7 * 24 * time.Hour
)

// Ledger is an append-only list of production timestamps.
type Ledger struct {
	doc    *docstore.Document[[]time.Time]
	cap    int
	logger *slog.Logger
	now    func() time.Time
}

// New binds a ledger to store. A cap of zero or less uses WeeklyCap.
func New(store *docstore.Store, weeklyCap int, logger *slog.Logger) *Ledger {
	if weeklyCap <= 0 {
		weeklyCap = WeeklyCap
	}
	return &Ledger{
		doc: docstore.NewDocument(store, documentName, func() []time.Time {
			return []time.Time{}
		}),
		cap:    weeklyCap,
		logger: logging.NewComponentLogger(logger, "ledger"),
		now:    time.Now,
	}
}

// SetClock replaces time.Now.
func (l *Ledger) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Log records one production at the current UTC time.
func (l *Ledger) Log(ctx context.Context) error {
	stamp := l.now().UTC()
	if err := l.doc.Update(ctx, func(entries *[]time.Time) error {
		*entries = append(*entries, stamp)
		return nil
	}); err != nil {
		return fmt.Errorf("log production: %w", err)
	}
	l.logger.Debug("production logged",
		logging.String("at", stamp.Format(time.RFC3339)),
		logging.String(logging.FieldEventType, "production_logged"))
	return nil
}

// ThisWeek counts productions in the last seven days.
func (l *Ledger) ThisWeek(ctx context.Context) int {
	cutoff := l.now().UTC().Add(-window)
	count := 0
	for _, stamp := range l.doc.Load(ctx) {
		if stamp.After(cutoff) {
			count++
		}
	}
	return count
}

// Usage is the cap report returned to callers.
type Usage struct {
	ThisWeek  int `json:"this_week"`
	WeeklyCap int `json:"weekly_cap"`
	Remaining int `json:"remaining"`
}

// Usage reports the week's count against the cap. The cap is not enforced.
func (l *Ledger) Usage(ctx context.Context) Usage {
	used := l.ThisWeek(ctx)
	remaining := l.cap - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{ThisWeek: used, WeeklyCap: l.cap, Remaining: remaining}
}
