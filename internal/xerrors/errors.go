// Package xerrors defines the error taxonomy shared across ParqueDB's
// components (§7 of the design spec). Every package that can fail returns
// one of these kinds, wrapped with github.com/pkg/errors for cause chains.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which bucket of the taxonomy an error belongs to. HTTP
// collaborators map Kind to status codes; nothing in this module assumes
// HTTP itself.
type Kind string

const (
	NotFound        Kind = "NotFound"
	VersionMismatch Kind = "VersionMismatch"
	InvalidSchema   Kind = "InvalidSchema"
	InvalidInput    Kind = "InvalidInput"
	InvalidToken    Kind = "InvalidToken"
	Corruption      Kind = "Corruption"
	Transient       Kind = "Transient"
	Fatal           Kind = "Fatal"
)

// Error is a taxonomy-tagged error. Op names the failing operation
// ("engine.Create", "parquetio.Read", ...) for log correlation.
type Error struct {
	Kind Kind
	Op   string
	Code string // optional finer-grained code, e.g. schema's EMPTY_SCHEMA
	err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", e.Op, e.Kind, e.Code, e.err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a tagged error from msg, with a stack trace.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, err: errors.New(msg)}
}

// Newf is New with fmt-style formatting.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, err: errors.Errorf(format, args...)}
}

// Wrap tags an existing error with a kind, preserving its cause chain.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, err: errors.WithStack(cause)}
}

// WithCode attaches a finer-grained machine-readable code (used by the
// schema validator's named error codes).
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var te *Error
	for err != nil {
		if errors.As(err, &te) {
			if te.Kind == kind {
				return true
			}
			err = te.err
			continue
		}
		return false
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Fatal for untagged errors
// since an unexpected error is an invariant violation by definition here.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return Fatal
}
