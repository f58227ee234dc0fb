package cooldown

import (
	"math"
	"time"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Overlay is a time-boxed global change to cooldown durations. It is active
// over the half-open interval [Start, End).
type Overlay struct {
	Name        string
	Start       time.Time
	End         time.Time
	Adjustments map[domain.ActionType]int64
	Multipliers map[domain.ActionType]float64
}

// Active reports whether now falls inside [Start, End).
func (o Overlay) Active(now time.Time) bool {
	return !now.Before(o.Start) && now.Before(o.End)
}

// FromEvent converts a persisted event row.
func FromEvent(e domain.Event) Overlay {
	return Overlay{
		Name:        e.Name,
		Start:       e.Start,
		End:         e.End,
		Adjustments: e.Adjustments,
		Multipliers: e.Multipliers,
	}
}

// Resolve applies every overlay active at now, in order, on top of the base
// table. Adjustments replace a duration, multipliers then scale it.
func Resolve(overlays []Overlay, now time.Time) Table {
	tbl := Base()
	for _, o := range overlays {
		if !o.Active(now) {
			continue
		}
		for t, secs := range o.Adjustments {
			if _, ok := tbl[t]; ok {
				tbl[t] = time.Duration(secs) * time.Second
			}
		}
		for t, m := range o.Multipliers {
			if d, ok := tbl[t]; ok {
				tbl[t] = scale(d, m)
			}
		}
	}
	return tbl
}

// ActiveNames lists the names of overlays active at now.
func ActiveNames(overlays []Overlay, now time.Time) []string {
	var names []string
	for _, o := range overlays {
		if o.Active(now) {
			names = append(names, o.Name)
		}
	}
	return names
}

// ApplyMultiplier scales d by a player multiplier unless t is exempt.
func ApplyMultiplier(multiplier float64, d time.Duration, t domain.ActionType) time.Duration {
	if Exempt(t) {
		return d
	}
	return scale(d, multiplier)
}

// scale multiplies whole seconds and truncates the result.
func scale(d time.Duration, m float64) time.Duration {
	secs := float64(int64(d / time.Second))
	return time.Duration(int64(math.Trunc(secs*m))) * time.Second
}
