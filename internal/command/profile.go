package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/store"
)

var marriageQuips = []string{
	"I give it like, 3 months, tops.",
	"What a time to be alive!",
	"It's a match made in heaven :heart_eyes:",
}

func (h *handlers) register(ctx context.Context, c *Context) (Result, error) {
	if c.Help || len(c.Tokens) == 1 {
		return Reply(helpCard("help.register", nil)), nil
	}
	if c.Server != nil {
		return Reply(normal(c.Server.Name+" has already joined! Hello again!", "Hi!")), nil
	}
	if c.Event.GuildID == "" {
		return Result{}, titledError(KindUserInput, "Registration Error", "Join codes can only be used from a server channel.")
	}
	code := c.Tokens[1]
	srv, err := h.deps.Store.RegisterServer(ctx, c.Event.GuildID, c.Event.GuildName, code)
	switch {
	case errors.Is(err, store.ErrInvalidJoinCode):
		return Result{}, titledError(KindNotFound, "Invalid Join Code", "That is not a valid Join Code.")
	case errors.Is(err, store.ErrAlreadyJoined):
		return Reply(normal(c.guildName()+" has already joined! Hello again!", "Hi!")), nil
	case err != nil:
		return Result{}, err
	}
	return Reply(gateway.Success("Welcome "+srv.Name+"!", "Welcome!")), nil
}

func (h *handlers) profile(ctx context.Context, c *Context) (Result, error) {
	if c.Help && len(c.Tokens) == 1 {
		return Reply(helpCard("help.profile", nil)), nil
	}
	target := c.Player
	var mentionToken string
	switch {
	case mentionPattern.MatchString(c.Entry()):
		mentionToken = c.Entry()
	case len(c.Tokens) > 1 && profileNamespace[c.Tokens[1]]:
		return Rewrite(c.Tokens[1:]), nil
	case len(c.Tokens) > 1:
		mentionToken = c.Tokens[1]
	}
	if mentionToken != "" {
		p, err := h.mentioned(ctx, c, mentionToken)
		if err != nil {
			return Result{}, err
		}
		if p == nil {
			return Result{}, errUnparsed
		}
		target = p
	}
	if target == nil {
		return Result{}, errUnparsed
	}

	mp := "default"
	if target.Multiplier != nil {
		mp = strconv.FormatFloat(*target.Multiplier, 'f', -1, 64)
	}
	married := "Nope."
	if target.PartnerID != nil {
		married = "To " + gateway.Mention(*target.PartnerID)
	}
	var notes strings.Builder
	check := func(on bool, name string) {
		icon := ":x:"
		if on {
			icon = ":ballot_box_with_check:"
		}
		fmt.Fprintf(&notes, "%s `%-25s`\n", icon, name)
	}
	check(target.Notify, "notify")
	for _, t := range domain.ActionTypes {
		check(target.Enabled(t), string(t))
	}
	card := normal("", fmt.Sprintf("**%s's** Profile", target.Nickname))
	card.Fields = []gateway.Field{
		{Name: "Timezone", Value: "`" + target.Timezone + "`"},
		{Name: "Time Format", Value: "`" + target.Format() + "`"},
		{Name: "Cooldown Multiplier", Value: "`" + mp + "`"},
		{Name: "Married", Value: married},
		{Name: "Notifications Enabled", Value: notes.String()},
	}
	return Reply(card), nil
}

func (h *handlers) notify(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(helpCard("help.notify", nil)), nil
	}
	tokens := c.Tokens
	if tokens[0] == "notify" || tokens[0] == "n" {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Result{}, errUnparsed
	}
	named, toggle := tokens[:len(tokens)-1], tokens[len(tokens)-1]
	all := false
	var types []domain.ActionType
	for _, tok := range named {
		if tok == "all" {
			all = true
			continue
		}
		t, ok := domain.ParseActionType(tok)
		if !ok {
			return Result{}, errUnparsed
		}
		types = append(types, t)
	}
	if len(tokens) == 1 {
		return Rewrite([]string{toggle}), nil
	}
	if all {
		types = domain.ActionTypes
	}

	p := c.Player
	on := toggle == "on"
	for _, t := range types {
		p.SetEnabled(t, on)
	}
	if err := h.deps.Store.UpdatePlayer(ctx, p.ID, map[string]any{"muted_types": p.MutedTypes}); err != nil {
		return Result{}, err
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	list, who := strings.Join(names, ", "), c.AuthorName()
	if !p.Notify {
		return Reply(normal(fmt.Sprintf(
			"Notifications for `%s` are now %s for **%s** but you will need to turn on notifications before you can receive any. "+
				"Try `rcd on` to start receiving notifications.", list, toggle, who), "")), nil
	}
	return Reply(gateway.Success(fmt.Sprintf("Notifications for **%s** are now **%s** for **%s**.", list, toggle, who), "")), nil
}

func (h *handlers) toggle(ctx context.Context, c *Context) (Result, error) {
	toggle := c.Entry()
	if c.Help && len(c.Tokens) == 1 {
		return Reply(helpCard("help.toggle", map[string]any{"Toggle": toggle})), nil
	}
	if len(c.Tokens) != 1 {
		return Result{}, errUnparsed
	}
	if err := h.deps.Store.UpdatePlayer(ctx, c.Player.ID, map[string]any{"notify": toggle == "on"}); err != nil {
		return Result{}, err
	}
	c.Player.Notify = toggle == "on"
	return Reply(gateway.Success(fmt.Sprintf("Notifications are now **%s** for **%s**.", toggle, c.AuthorName()), "")), nil
}

func (h *handlers) currentTimeField(p *domain.Player) gateway.Field {
	return gateway.Field{
		Name: "Info",
		Value: fmt.Sprintf("Current time with your time format `%s` in your timezone `%s` is %s. ",
			p.Format(), p.Timezone, formatFor(p, h.deps.Now())),
	}
}

func (h *handlers) timezone(ctx context.Context, c *Context) (Result, error) {
	p := profileOf(c)
	if c.Help || len(c.Tokens) == 1 {
		card := helpCard("help.timezone", nil)
		f := h.currentTimeField(p)
		f.Value += "\n[Visit this page to see a list of timezones.](https://en.wikipedia.org/wiki/List_of_tz_database_time_zones)"
		card.Fields = []gateway.Field{f}
		return Reply(card), nil
	}
	if len(c.Tokens) != 2 {
		return Result{}, errUnparsed
	}
	raw := c.RawTokens()
	tz := raw[len(raw)-1]
	if strings.EqualFold(tz, "default") {
		tz = domain.DefaultTimezone
	} else if !validZone(tz) {
		return Result{}, &Error{Kind: KindNotFound, Msg: tz + " is not a valid timezone."}
	}
	if err := h.deps.Store.UpdatePlayer(ctx, p.ID, map[string]any{"timezone": tz}); err != nil {
		return Result{}, err
	}
	p.Timezone = tz
	card := gateway.Success(fmt.Sprintf("**%s's** timezone has been set to **%s**.", c.AuthorName(), tz), "")
	card.Fields = []gateway.Field{h.currentTimeField(p)}
	return Reply(card), nil
}

func (h *handlers) timeformat(ctx context.Context, c *Context) (Result, error) {
	p := profileOf(c)
	raw := c.RawTokens()
	if c.Help || len(c.Tokens) == 1 {
		card := helpCard("help.timeformat", nil)
		f := h.currentTimeField(p)
		f.Value += "\n[Visit here for documentation on time format strings.](https://strftime.org/)"
		card.Fields = []gateway.Field{f}
		return Reply(card), nil
	}
	if len(c.Tokens) != 2 {
		return Result{}, titledError(KindUserInput, "Parse Error", fmt.Sprintf(
			"Could not parse %s as a valid timeformat command; your input had more arguments than expected. "+
				"Did you make sure to quote your format string?", joinTokens(raw)))
	}
	layout := raw[len(raw)-1]
	if len(layout) > domain.MaxTimeFormatLen {
		return Result{}, titledError(KindValidation, "Are you being naughty?", fmt.Sprintf(
			"Your specified time format `%s` is too long. It should have %d fewer characters.",
			layout, len(layout)-domain.MaxTimeFormatLen))
	}
	if strings.EqualFold(layout, "default") {
		layout = domain.DefaultTimeFormat
	}
	now, err := validLayout(layout, h.deps.Now().In(p.Location()))
	if err != nil {
		return Result{}, titledError(KindValidation, "Oh boy Oh geez",
			fmt.Sprintf("Great... Your time format `%s` broke something; err = %v", layout, err))
	}
	if err := h.deps.Store.UpdatePlayer(ctx, p.ID, map[string]any{"time_format": layout}); err != nil {
		return Result{}, err
	}
	p.TimeFormat = layout
	return Reply(gateway.Success(
		fmt.Sprintf("Great! You set your time format to `%s`. The current time is %s", layout, now), "Good job!")), nil
}

func (h *handlers) multiplier(ctx context.Context, c *Context) (Result, error) {
	p := profileOf(c)
	if c.Help || len(c.Tokens) == 1 {
		current := "default"
		if p.Multiplier != nil {
			current = strconv.FormatFloat(*p.Multiplier, 'f', -1, 64)
		}
		card := helpCard("help.multiplier", nil)
		card.Fields = []gateway.Field{{Name: "Info", Value: "Your current multiplier is `" + current + "`"}}
		return Reply(card), nil
	}
	if len(c.Tokens) != 2 {
		return Result{}, userError(fmt.Sprintf(
			"Could not parse `rcd %s` as a valid multiplier command; your input has more arguments than expected.",
			joinTokens(c.Tokens)))
	}
	arg := c.Tokens[1]
	var value *float64
	if arg != "default" {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Result{}, &Error{Kind: KindValidation, Msg: fmt.Sprintf(
				"Could not parse `%s` as a valid multiplier; must be a decimal number or `default`.", arg)}
		}
		if !(v >= 0 && v < 10) {
			return Result{}, &Error{Kind: KindValidation, Msg: "Could not validate your multiplier; multipliers must be from [0 to 10)."}
		}
		value = &v
	}
	if err := h.deps.Store.UpdatePlayer(ctx, p.ID, map[string]any{"multiplier": value}); err != nil {
		return Result{}, err
	}
	p.Multiplier = value
	return Reply(gateway.Success("Your Cooldown Multiplier is now `"+arg+"`.", "")), nil
}

func (h *handlers) marry(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(marriageHelp()), nil
	}
	return h.wedding(ctx, c, c.Player, c.Last())
}

func marriageHelp() *gateway.Card {
	card := helpCard("help.marry", nil)
	card.Title = "Marriage Help"
	return card
}

// wedding marries self to the player mentioned by partnerToken.
func (h *handlers) wedding(ctx context.Context, c *Context, self *domain.Player, partnerToken string) (Result, error) {
	partner, err := h.mentioned(ctx, c, partnerToken)
	if err != nil {
		return Result{}, err
	}
	if partner == nil || self == nil {
		return Reply(marriageHelp()), nil
	}
	if partner.ID == self.ID {
		card := normal("I'm afraid I can't let you marry yourself... you'll ruin my statistics!", ":(")
		card.Footer = "and marriage is only about statistics..."
		return Reply(card), nil
	}
	if err := h.deps.Store.Marry(ctx, self.ID, partner.ID); err != nil {
		return Result{}, err
	}
	body := gateway.Mention(self.ID) + " and " + gateway.Mention(partner.ID) + " got married!!?!? " +
		marriageQuips[h.deps.Intn(len(marriageQuips))]
	return Reply(gateway.Success(body, "Witness the Newlyweds :wedding:!")), nil
}

func (h *handlers) myGuild(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(helpCard("help.guild", nil)), nil
	}
	p := c.Player
	if len(c.Tokens) == 1 {
		if p.GuildName == nil {
			return Reply(normal(":disappointed: You aren't part of a guild.", "Guild")), nil
		}
		return Reply(normal("You are a member of **"+*p.GuildName+"**.", "Guild")), nil
	}
	if len(c.Tokens) == 2 && c.Tokens[1] == "leave" {
		if err := h.deps.Store.LeaveGuild(ctx, p.ID); err != nil {
			return Result{}, err
		}
		p.GuildName = nil
		return Reply(gateway.Success("You are no longer part of a guild.", "Guild")), nil
	}
	name := joinTokens(c.Tokens[1:])
	if len(name) > 50 {
		return Result{}, &Error{Kind: KindValidation, Msg: "Guild names are at most 50 characters."}
	}
	if err := h.deps.Store.JoinGuild(ctx, p.ID, name, c.Event.ChannelID); err != nil {
		return Result{}, err
	}
	p.GuildName = &name
	return Reply(gateway.Success("Welcome to **"+name+"**! Guild raid reminders will go to this channel.", "Guild")), nil
}

func (h *handlers) dibbs(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(helpCard("help.dibbs", nil)), nil
	}
	p := c.Player
	if p.GuildName == nil {
		return Result{}, &Error{Kind: KindNotFound, Msg: ":disappointed: You aren't part of a guild."}
	}
	g, err := h.deps.Store.Guild(ctx, *p.GuildName)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, &Error{Kind: KindNotFound, Msg: ":disappointed: You aren't part of a guild."}
	}
	if err != nil {
		return Result{}, err
	}
	at := ""
	if g.ReadyAt != nil {
		at = " at `" + formatFor(p, *g.ReadyAt) + "`"
	}
	holder := g.DibbsPlayerID

	if len(c.Tokens) > 1 && c.Tokens[1] == "undo" {
		if holder == nil || *holder != p.ID {
			return Reply(normal("Well, you never actually had dibbs, but at least now everyone knows you didn't want it.", "")), nil
		}
		if err := h.deps.Store.SetDibbs(ctx, g.Name, nil); err != nil {
			return Result{}, err
		}
		return Reply(gateway.Success("Great! No more dibbs for you!", "Undibbsed!")), nil
	}
	if strings.HasSuffix(c.Entry(), "?") {
		if holder == nil {
			return Reply(normal("No one has dibbs on the next guild raid"+at+".", "")), nil
		}
		return Reply(normal("**"+h.nameOf(ctx, *holder)+"** has dibbs on the next guild raid"+at+".", "")), nil
	}
	switch {
	case holder == nil:
		id := p.ID
		if err := h.deps.Store.SetDibbs(ctx, g.Name, &id); err != nil {
			return Result{}, err
		}
		return Reply(gateway.Success("Okay! You've got dibbs on the next guild raid"+at+"!", "Dibbsed!")), nil
	case *holder == p.ID:
		return Reply(normal("You've already got dibbs on the next guild raid"+at+"!", "Dibbsed!")), nil
	default:
		return Reply(normal("Sorry, **"+h.nameOf(ctx, *holder)+"** already has dibbs.", "Not this time!")), nil
	}
}

// nameOf returns a player's last known nickname, or a mention when unknown.
func (h *handlers) nameOf(ctx context.Context, id string) string {
	p, err := h.deps.Store.FindPlayer(ctx, id)
	if err != nil || p.Nickname == "" {
		return gateway.Mention(id)
	}
	return p.Nickname
}
