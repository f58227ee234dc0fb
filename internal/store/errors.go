package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errf("record not found")
	ErrInvalidJoinCode = errf("join code is not valid")
	ErrAlreadyJoined   = errf("server already joined")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
