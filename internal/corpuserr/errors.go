// Package corpuserr defines the error kinds shared by the annotation model,
// the datastores and the diff engine.
//
// Every failure that crosses a package boundary is an *Error carrying one of
// four kinds. Callers branch on the kind with KindOf or errors.Is against the
// sentinel values; nothing in the module keeps a "last error" around for later
// inspection.
package corpuserr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate here.
	KindUnknown Kind = iota
	// KindNotFound covers unknown levels, attributes, annotations and speakers.
	KindNotFound
	// KindSchemaConflict covers duplicate or incompatible structure changes.
	KindSchemaConflict
	// KindIO covers backend read/write failures.
	KindIO
	// KindValidation covers invalid element data and invalid diff inputs.
	KindValidation
)

// Sentinel errors matched by errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrSchemaConflict = errors.New("schema conflict")
	ErrIO             = errors.New("datastore i/o failure")
	ErrValidation     = errors.New("validation failed")
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindSchemaConflict:
		return "schema_conflict"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindSchemaConflict:
		return ErrSchemaConflict
	case KindIO:
		return ErrIO
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Error is the concrete error value returned by annotcore packages.
type Error struct {
	Kind    Kind
	Op      string // operation, e.g. "save tier"
	Subject string // level, attribute, annotation or speaker involved
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Op != "" && e.Subject != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Subject, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Subject != "":
		return fmt.Sprintf("%s: %s", e.Subject, msg)
	default:
		return msg
	}
}

// Unwrap exposes both the wrapped cause and the kind sentinel.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	return out
}

// ErrorKind reports the kind as a string so callers can classify errors
// without importing this package.
func (e *Error) ErrorKind() string {
	return e.Kind.String()
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NotFound builds a KindNotFound error for a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Subject: resource + " " + quote(id), Message: "not found"}
}

// SchemaConflict builds a KindSchemaConflict error.
func SchemaConflict(subject, format string, args ...any) *Error {
	return &Error{Kind: KindSchemaConflict, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error.
func Validation(subject, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// IO wraps a backend failure.
func IO(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// WithOp returns err annotated with op when it is an *Error without one, or
// wraps it as an IO failure otherwise.
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		if typed.Op == "" {
			clone := *typed
			clone.Op = op
			return &clone
		}
		return err
	}
	return IO(op, err)
}

func quote(id string) string {
	if id == "" {
		return `""`
	}
	return fmt.Sprintf("%q", id)
}
