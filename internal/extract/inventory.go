package extract

import (
	"regexp"
	"strings"
)

type item struct {
	key string
	re  *regexp.Regexp
}

func itemRe(label string) *regexp.Regexp {
	return regexp.MustCompile(`\*\*` + regexp.QuoteMeta(label) + `\*\*: ([0-9,]+)`)
}

var inventoryItems = []item{
	{"wooden_log", itemRe("wooden log")},
	{"epic_log", itemRe("EPIC log")},
	{"super_log", itemRe("SUPER log")},
	{"mega_log", itemRe("MEGA log")},
	{"hyper_log", itemRe("HYPER log")},
	{"ultra_log", itemRe("ULTRA log")},
	{"normie_fish", itemRe("normie fish")},
	{"golden_fish", itemRe("golden fish")},
	{"epic_fish", itemRe("EPIC fish")},
	{"apple", itemRe("apple")},
	{"banana", itemRe("banana")},
	{"ruby", itemRe("ruby")},
}

// InventoryKeys lists every item key ParseInventory reports, in a stable order.
func InventoryKeys() []string {
	out := make([]string, len(inventoryItems))
	for i, it := range inventoryItems {
		out[i] = it.key
	}
	return out
}

// ParseInventory reads item counts from inventory field values. Items not
// shown count as zero.
func ParseInventory(values ...string) Inventory {
	text := strings.Join(values, "\n")
	inv := make(Inventory, len(inventoryItems))
	for _, it := range inventoryItems {
		inv[it.key] = 0
		if m := it.re.FindStringSubmatch(text); m != nil {
			inv[it.key] = number(m[1])
		}
	}
	return inv
}
