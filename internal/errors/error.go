package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryProtocol Category = "protocol"
	CategorySession  Category = "session"
	CategorySnapshot Category = "snapshot"
	CategoryCLI      Category = "cli"
)

// DragError is a structured error with a registered code, an explanation
// and a hint for the operator.
type DragError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Source names what the error is about: a config file, a bag, a
	// session ID or a snapshot key.
	Source string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL points at documentation for this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *DragError) Error() string {
	msg := e.Message
	if e.Source != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Source)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *DragError) Unwrap() error {
	return e.Wrapped
}

// Is matches another DragError with the same code.
func (e *DragError) Is(target error) bool {
	t, ok := target.(*DragError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithSource records what the error is about.
func (e *DragError) WithSource(s string) *DragError {
	e.Source = s
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *DragError) WithSuggestion(s string) *DragError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *DragError) WithDetail(d string) *DragError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *DragError) Wrap(err error) *DragError {
	e.Wrapped = err
	return e
}

// New creates a DragError from a registered error code.
func New(code string) *DragError {
	template, ok := registry[code]
	if !ok {
		return &DragError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &DragError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     docURL(code),
	}
}

// Newf creates a DragError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *DragError {
	return &DragError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a DragError.
func FromError(err error, code string) *DragError {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DragError); ok {
		return de
	}
	return New(code).Wrap(err)
}
