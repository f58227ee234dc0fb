package command

import (
	"context"
	"regexp"
)

// Handler runs a matched command.
type Handler func(ctx context.Context, c *Context) (Result, error)

// Filter is a predicate over the whole context, used to tell apart commands
// that share an entry token.
type Filter func(c *Context) bool

// Command is one entry of the dispatch table.
type Command struct {
	Name          string
	EntryTokens   []string
	EntryPatterns []*regexp.Regexp
	Filters       []Filter
	// Admin commands deny non-administrative players before Handler runs.
	Admin   bool
	Handler Handler

	entry map[string]bool
}

var helpTokens = map[string]bool{"h": true, "help": true}

// Registry is the ordered command table.
type Registry struct {
	commands []*Command
	byToken  map[string]*Command
}

func NewRegistry() *Registry {
	return &Registry{byToken: make(map[string]*Command)}
}

// Register appends cmd. Order of registration is dispatch order.
func (r *Registry) Register(cmd Command) *Command {
	c := cmd
	if c.Admin {
		c.Handler = adminOnly(c.Handler)
	}
	c.entry = make(map[string]bool, len(c.EntryTokens))
	for _, t := range c.EntryTokens {
		c.entry[t] = true
		if _, taken := r.byToken[t]; !taken {
			r.byToken[t] = &c
		}
	}
	r.commands = append(r.commands, &c)
	return &c
}

// Commands returns the table in dispatch order.
func (r *Registry) Commands() []*Command { return r.commands }

// Lookup returns the first command registered for token.
func (r *Registry) Lookup(token string) (*Command, bool) {
	c, ok := r.byToken[token]
	return c, ok
}

// Has reports whether token is an entry token of cmd.
func (c *Command) Has(token string) bool { return c.entry[token] }

// Matches reports whether the command accepts the context: some filter must
// pass when filters are set, and the entry token must be one of its tokens,
// a help token, or match one of its patterns.
func (c *Command) Matches(ctx *Context) bool {
	if len(c.Filters) > 0 {
		ok := false
		for _, f := range c.Filters {
			if f(ctx) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	entry := ctx.Entry()
	if c.entry[entry] || helpTokens[entry] {
		return true
	}
	for _, re := range c.EntryPatterns {
		if re.MatchString(entry) {
			return true
		}
	}
	return false
}
