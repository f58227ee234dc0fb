package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// EventSource lists persisted overlays.
type EventSource interface {
	Events(ctx context.Context) ([]domain.Event, error)
}

// OverlaySource provides overlays held outside the database.
type OverlaySource interface {
	Overlays() []Overlay
}

// Resolver computes effective durations from the base table, file overlays
// and persisted events, in that order.
type Resolver struct {
	events EventSource
	file   OverlaySource
	now    func() time.Time
}

func NewResolver(events EventSource, file OverlaySource) *Resolver {
	return &Resolver{events: events, file: file, now: time.Now}
}

// WithClock replaces the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Now returns the resolver's current time.
func (r *Resolver) Now() time.Time { return r.now() }

// Overlays returns every known overlay, file overlays first.
func (r *Resolver) Overlays(ctx context.Context) ([]Overlay, error) {
	var out []Overlay
	if r.file != nil {
		out = append(out, r.file.Overlays()...)
	}
	if r.events != nil {
		events, err := r.events.Events(ctx)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		for _, e := range events {
			out = append(out, FromEvent(e))
		}
	}
	return out, nil
}

// Table resolves the duration table at the current time and returns the
// names of the active overlays.
func (r *Resolver) Table(ctx context.Context) (Table, []string, error) {
	overlays, err := r.Overlays(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := r.now()
	return Resolve(overlays, now), ActiveNames(overlays, now), nil
}

// Duration returns the resolved duration for t with the player multiplier
// applied. A nil multiplier leaves the duration unchanged.
func (r *Resolver) Duration(ctx context.Context, t domain.ActionType, multiplier *float64) (time.Duration, error) {
	tbl, _, err := r.Table(ctx)
	if err != nil {
		return 0, err
	}
	d, ok := tbl[t]
	if !ok {
		return 0, fmt.Errorf("unknown action type %q", t)
	}
	if multiplier != nil {
		d = ApplyMultiplier(*multiplier, d, t)
	}
	return d, nil
}
