package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	huntTargetRe  = regexp.MustCompile(`\*\*([^\*]+)\*\* found (?:and killed )?an? [^\*]+\*\*([^\*]+)\*\*`)
	huntTarget2Re = regexp.MustCompile(`while \*\*([^\*]+)\*\* found a <[^>]+> \*\*([^\*]+)\*\*`)
	huntEarnRe    = regexp.MustCompile(`Earned ([0-9,]+) coins and ([0-9,]+) XP`)
	huntEarn2Re   = regexp.MustCompile(`\*\*([^\*]+)\*\* earned ([0-9,]+) coins and ([0-9,]+) XP`)
	huntEarn3Re   = regexp.MustCompile(`while \*\*([^\*]+)\*\* earned ([0-9,]+) coins and ([0-9,]+) XP`)
	huntLootRe    = regexp.MustCompile(`\*\*([^\*]+)\*\* got an? \*?\*?\s*<[^>]+>\s*?([\w ]+)\s*(?:<[^>]+>)?\s*\*?\*?`)
	huntLootAltRe = regexp.MustCompile(`\*\*([^\*]+)\*\* got an? \s*?([\w ]+)\s*(?:<[^>]+>)?\s*\*?\*?\*?\*?\s*<[^>]+>`)
)

// ParseHunts reads a hunt result message. A "together" hunt yields two
// entries, a solo hunt one, anything else none.
func ParseHunts(content string) []Hunt {
	target := huntTargetRe.FindStringSubmatch(content)
	if target == nil {
		return nil
	}
	loot := lootByName(content)

	if target2 := huntTarget2Re.FindStringSubmatch(content); target2 != nil {
		earn := huntEarn2Re.FindStringSubmatch(content)
		earn2 := huntEarn3Re.FindStringSubmatch(content)
		if earn == nil || earn2 == nil {
			return nil
		}
		return []Hunt{
			{Name: earn[1], Target: target[2], Money: number(earn[2]), XP: number(earn[3]), Loot: loot[earn[1]]},
			{Name: earn2[1], Target: target2[2], Money: number(earn2[2]), XP: number(earn2[3]), Loot: loot[earn2[1]]},
		}
	}

	earn := huntEarnRe.FindStringSubmatch(content)
	if earn == nil {
		return nil
	}
	return []Hunt{{
		Name:   target[1],
		Target: target[2],
		Money:  number(earn[1]),
		XP:     number(earn[2]),
		Loot:   loot[target[1]],
	}}
}

func lootByName(content string) map[string]string {
	out := map[string]string{}
	for _, re := range []*regexp.Regexp{huntLootRe, huntLootAltRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			name := strings.TrimSpace(m[1])
			if _, ok := out[name]; !ok {
				out[name] = strings.TrimSpace(m[2])
			}
		}
	}
	return out
}

func number(s string) int64 {
	n, _ := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	return n
}
