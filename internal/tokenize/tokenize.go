// Package tokenize splits chat text into shell-style tokens.
package tokenize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// MaxContent is how much of a message is considered when tokenizing.
const MaxContent = 250

var productRe = regexp.MustCompile(`^[0-9* ]+$`)

// Split lowercases text and splits it respecting quotes and escapes.
func Split(text string) []string {
	return SplitPreserveCase(strings.ToLower(text))
}

// SplitPreserveCase splits text without changing case. Text with unbalanced
// quotes falls back to a whitespace split.
func SplitPreserveCase(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tokens, err := shlex.Split(text)
	if err != nil {
		return strings.Fields(text)
	}
	return tokens
}

// Truncate cuts s to MaxContent bytes without splitting a UTF-8 sequence.
func Truncate(s string) string {
	if len(s) <= MaxContent {
		return s
	}
	cut := MaxContent
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }

// Int parses a plain integer or a product such as "60*60". A product that
// does not fit in an int64 is rejected.
func Int(token string) (int64, bool) {
	token = strings.TrimSpace(token)
	if token == "" || !productRe.MatchString(token) {
		return 0, false
	}
	prod := int64(1)
	for _, part := range strings.Split(strings.ReplaceAll(token, " ", ""), "*") {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, false
		}
		if n != 0 && prod > math.MaxInt64/n {
			return 0, false
		}
		prod *= n
	}
	return prod, true
}
