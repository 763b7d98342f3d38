package utils

import (
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrCircuitOpen       = errors.New("circuit open")
	ErrUpstream          = errors.New("upstream error")
)

// wrapped lets a sentinel carry a caller-facing message: errors.Is still
// matches the sentinel while Error() returns msg.
type wrapped struct {
	sentinel error
	msg      string
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.sentinel }

// Errorf tags msg with a sentinel.
func Errorf(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}

// BreakerErr folds gobreaker's rejection errors into ErrCircuitOpen.
func BreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrCircuitOpen, err)
	}
	return err
}
