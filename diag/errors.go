package diag

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConverter means no registered converter applies to a type.
	ErrMissingConverter = errors.New("missing converter")
	// ErrMalformedMember means the wire input violates the Member invariants.
	ErrMalformedMember = errors.New("malformed member")
	// ErrInvalidTarget means a Populate or Deserialize target is unusable,
	// e.g. a nil or non-pointer value.
	ErrInvalidTarget = errors.New("invalid target")
)

// Error is a hard failure which aborts an engine call.
type Error struct {
	Code Code
	// FieldPath is the member path where the failure happened, e.g.
	// "player.inventory[3]".
	FieldPath string
	Type      string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Type != "" {
		msg = fmt.Sprintf("%s (type %s)", msg, e.Type)
	}
	if e.FieldPath != "" {
		return fmt.Sprintf("%s at %s: %s", e.Code, e.FieldPath, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Missing returns a MissingConverter error for the given type.
func Missing(path, typ string) *Error {
	return &Error{
		Code:      MissingConverter,
		FieldPath: path,
		Type:      typ,
		Message:   "no converter applies",
		Err:       ErrMissingConverter,
	}
}

// Malformed returns a MalformedMember error wrapping err.
func Malformed(path string, err error) *Error {
	return &Error{
		Code:      MalformedMember,
		FieldPath: path,
		Message:   err.Error(),
		Err:       errors.Join(ErrMalformedMember, err),
	}
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
