package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine unwraps to one of these.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrInvariant     = errors.New("invariant violation")
)

// Error carries a kind plus a human readable detail.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func configf(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func invariantf(format string, args ...any) error {
	return &Error{Kind: ErrInvariant, Msg: fmt.Sprintf(format, args...)}
}

// asConfiguration tags err as a configuration error while keeping its own
// chain reachable through errors.Is.
func asConfiguration(err error) error {
	if err == nil || errors.Is(err, ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool { return errors.Is(err, ErrInvariant) }
