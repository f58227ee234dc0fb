// Package crafting is the boundary to the external crafting and log-future
// engine. The engine itself lives outside this repository.
package crafting

import (
	"context"

	"github.com/park285/epic-reminder-bot/internal/extract"
)

// Service answers inventory questions for an area.
type Service interface {
	// FutureValue projects how many logs the inventory is worth in area 10
	// when trading optimally from area onward.
	FutureValue(ctx context.Context, area int, inv extract.Inventory) (int64, error)
	CanCraft(ctx context.Context, area int, recipe map[string]int, inv extract.Inventory) (bool, error)
	// HowMany returns how many times recipe can be crafted and the total
	// items that consumes.
	HowMany(ctx context.Context, area int, recipe map[string]int, inv extract.Inventory) (int64, map[string]int64, error)
}

var ErrUnavailable = errf("crafting engine unavailable")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Unavailable reports every feature as broken. It is used when no engine is
// configured.
type Unavailable struct{}

func (Unavailable) FutureValue(context.Context, int, extract.Inventory) (int64, error) {
	return 0, ErrUnavailable
}

func (Unavailable) CanCraft(context.Context, int, map[string]int, extract.Inventory) (bool, error) {
	return false, ErrUnavailable
}

func (Unavailable) HowMany(context.Context, int, map[string]int, extract.Inventory) (int64, map[string]int64, error) {
	return 0, nil, ErrUnavailable
}
