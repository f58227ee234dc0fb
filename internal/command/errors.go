package command

import "github.com/park285/epic-reminder-bot/internal/gateway"

// Kind classifies command failures that are reported back to the channel.
type Kind int

const (
	KindUserInput Kind = iota
	KindNotAuthorized
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	}
	return "user_input"
}

// Error is a failure the invoking player should see. An empty Msg renders
// as the generic parse failure for the input.
type Error struct {
	Kind  Kind
	Title string
	Msg   string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Card renders the error. Title defaults to "Error".
func (e *Error) Card() *gateway.Card {
	c := gateway.Error(e.Msg)
	if e.Title != "" {
		c.Title = e.Title
	}
	return c
}

// errUnparsed marks input a command recognized but could not make sense of.
var errUnparsed = &Error{Kind: KindUserInput}

func userError(msg string) *Error { return &Error{Kind: KindUserInput, Msg: msg} }

func titledError(kind Kind, title, msg string) *Error {
	return &Error{Kind: kind, Title: title, Msg: msg}
}

const deniedMsg = "Sorry, only administrative users can use this command."
