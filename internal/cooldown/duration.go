package cooldown

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/park285/epic-reminder-bot/internal/tokenize"
)

// timeRe matches the game's countdown form, e.g. "1d 02h 00m 00s" or "45s".
var timeRe = regexp.MustCompile(`(?:(\d+)d)?\s*(?:(\d{1,2})h)?\s*(?:(\d{1,2})m)?\s*(\d{1,2})s`)

// spanRe is the looser admin form where every part is optional and unbounded.
var spanRe = regexp.MustCompile(`^(?:(\d+)d)?\s*(?:(\d+)h)?\s*(?:(\d+)m)?\s*(?:(\d+)s)?$`)

// ParseDuration returns the first countdown found in text.
func ParseDuration(text string) (time.Duration, bool) {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return fromParts(m[1:])
}

// FindDurations returns every countdown found in text, in order.
func FindDurations(text string) []time.Duration {
	all := timeRe.FindAllStringSubmatch(text, -1)
	out := make([]time.Duration, 0, len(all))
	for _, m := range all {
		if d, ok := fromParts(m[1:]); ok {
			out = append(out, d)
		}
	}
	return out
}

// ParseSpan parses an admin supplied duration: seconds ("3600", "60*60") or
// the countdown form with unbounded parts ("12h 35s", "100000s").
func ParseSpan(text string) (time.Duration, bool) {
	text = strings.TrimSpace(text)
	if n, ok := tokenize.Int(text); ok {
		if n > maxSeconds {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	if text == "" {
		return 0, false
	}
	m := spanRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return fromParts(m[1:])
}

// maxSeconds is the largest whole second count a time.Duration holds.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// fromParts sums day, hour, minute and second captures. It fails when the
// total does not fit in a time.Duration.
func fromParts(parts []string) (time.Duration, bool) {
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n > math.MaxInt64/int64(units[i]) {
			return 0, false
		}
		part := time.Duration(n) * units[i]
		if d > math.MaxInt64-part {
			return 0, false
		}
		d += part
	}
	return d, true
}

// Format renders d as "1d 02h 00m 00s".
func Format(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}
