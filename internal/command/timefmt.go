package command

import (
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// formatFor renders t in the player's zone and strftime layout. A layout
// that no longer compiles falls back to the default one.
func formatFor(p *domain.Player, t time.Time) string {
	local := t.In(p.Location())
	s, err := strftime.Format(p.Format(), local)
	if err != nil {
		s, _ = strftime.Format(domain.DefaultTimeFormat, local)
	}
	return s
}

// validLayout formats t with layout, reporting a layout strftime rejects.
func validLayout(layout string, t time.Time) (string, error) {
	f, err := strftime.New(layout)
	if err != nil {
		return "", err
	}
	return f.FormatString(t), nil
}

// validZone accepts IANA zone names only.
func validZone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
