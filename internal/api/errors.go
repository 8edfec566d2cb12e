package api

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by Client wraps exactly one of them.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("request timed out")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrValidation         = errors.New("validation failed")
	ErrUnexpectedStatus   = errors.New("unexpected status")
)

// OpError is a failed backend operation.
// Kind is one of the sentinel kinds above; Msg is the backend's message when it sent one.
type OpError struct {
	Op     string
	Kind   error
	Status int
	Msg    string
	Err    error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FieldError is one location/message pair from a 422 response
type FieldError struct {
	Loc  []string
	Msg  string
	Type string
}

// Location joins the location path ("body.claim")
func (f FieldError) Location() string {
	return strings.Join(f.Loc, ".")
}

// ValidationError reports a request the backend rejected against its schema
type ValidationError struct {
	Op     string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, ErrValidation)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrValidation, e.detail())
}

func (e *ValidationError) detail() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if loc := f.Location(); loc != "" {
			parts = append(parts, loc+": "+f.Msg)
		} else {
			parts = append(parts, f.Msg)
		}
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message returns the text to show the user for err: the backend's own message
// when there is one, the error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var opErr *OpError
	if errors.As(err, &opErr) && opErr.Msg != "" {
		return opErr.Msg
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		return vErr.detail()
	}
	return err.Error()
}

// IsAuth reports whether err is an authentication failure
func IsAuth(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUnauthorized)
}

// IsNetwork reports whether err is a transport failure
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) || errors.Is(err, ErrTimeout)
}
