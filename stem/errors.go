package stem

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindInputNotFound Kind = "input_not_found"
	KindDecode        Kind = "decode"
	KindWrite         Kind = "write"
	KindRateMismatch  Kind = "rate_mismatch"
	KindInvalidConfig Kind = "invalid_config"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its Kind.
var (
	ErrInputNotFound = errors.New("input not found")
	ErrDecode        = errors.New("decode failed")
	ErrWrite         = errors.New("write failed")
	ErrRateMismatch  = errors.New("sample rate mismatch")
	ErrInvalidConfig = errors.New("invalid configuration")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInputNotFound:
		return ErrInputNotFound
	case KindDecode:
		return ErrDecode
	case KindWrite:
		return ErrWrite
	case KindRateMismatch:
		return ErrRateMismatch
	case KindInvalidConfig:
		return ErrInvalidConfig
	}
	return nil
}

// Error is the terminal error of a separate or merge invocation.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// NewError builds an *Error. err may be nil.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// ErrorKind returns the classification as a string.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// RateMismatchError reports stems that cannot be overlaid without resampling.
func RateMismatchError(op, path string, want, got int) *Error {
	return NewError(KindRateMismatch, op, path, fmt.Errorf("%d Hz, want %d Hz", got, want))
}
