package extract

import (
	"regexp"
	"strings"
)

var (
	rosterTitleRe   = regexp.MustCompile(`(?i)^\*\*(.+?)\*\*\s+members$`)
	rosterMentionRe = regexp.MustCompile(`<@!?(\d+)>`)
	rosterNameRe    = regexp.MustCompile(`\*\*([^\*]+)\*\*`)
)

// rosterName returns the guild named by a member list card: its title or a
// field name reads "**name** members".
func rosterName(r Response) string {
	if m := rosterTitleRe.FindStringSubmatch(strings.TrimSpace(r.Title)); m != nil {
		return m[1]
	}
	for _, f := range r.Fields {
		if m := rosterTitleRe.FindStringSubmatch(strings.TrimSpace(f.Name)); m != nil {
			return m[1]
		}
	}
	return ""
}

// parseRoster reads the members of a guild list card. Members appear as
// mentions or as bold display names, one or more per field value.
func parseRoster(r Response) *GuildRoster {
	name := strings.ToLower(strings.TrimSpace(rosterName(r)))
	if name == "" {
		return nil
	}
	g := &GuildRoster{Name: name}
	seenID, seenName := map[string]bool{}, map[string]bool{}
	texts := append([]string{r.Description}, fieldValues(r)...)
	for _, text := range texts {
		for _, m := range rosterMentionRe.FindAllStringSubmatch(text, -1) {
			if !seenID[m[1]] {
				seenID[m[1]] = true
				g.IDs = append(g.IDs, m[1])
			}
		}
		for _, m := range rosterNameRe.FindAllStringSubmatch(text, -1) {
			n := strings.TrimSpace(m[1])
			if n != "" && !seenName[n] {
				seenName[n] = true
				g.Names = append(g.Names, n)
			}
		}
	}
	if len(g.IDs) == 0 && len(g.Names) == 0 {
		return nil
	}
	return g
}
