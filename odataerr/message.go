package odataerr

import (
	"fmt"
	"net/http"
	"runtime"
)

// Message keys of the default bundles.
const (
	KeyNotAcceptable      = "odata.NotAcceptable"
	KeyResourceNotFound   = "odata.ResourceNotFound"
	KeyEntitySetNotFound  = "odata.EntitySetNotFound"
	KeyEntityNotFound     = "odata.EntityNotFound"
	KeyNavigationNotFound = "odata.NavigationNotFound"
	KeyNotImplemented     = "odata.NotImplemented"
	KeyBadRequest         = "odata.BadRequest"
	KeyInternal           = "odata.InternalError"
	KeySerialization      = "odata.SerializationFailed"
)

// MessageReference identifies a localizable message and its positional
// arguments.
type MessageReference struct {
	Key     string
	Content []string
}

// NewMessageReference returns a reference to key with no arguments.
func NewMessageReference(key string) MessageReference {
	return MessageReference{Key: key}
}

// AddContent returns a copy of the reference with args appended.
func (r MessageReference) AddContent(args ...string) MessageReference {
	content := make([]string, 0, len(r.Content)+len(args))
	content = append(content, r.Content...)
	content = append(content, args...)
	return MessageReference{Key: r.Key, Content: content}
}

// Error is a protocol-level failure with a localizable message.
// It records the call stack at construction.
type Error struct {
	Status int
	Ref    MessageReference
	Err    error
	frames []string
}

// New returns an Error with the given HTTP status and message reference.
func New(status int, ref MessageReference) *Error {
	return &Error{Status: status, Ref: ref, frames: callers()}
}

// Wrap returns an Error caused by err.
func Wrap(status int, ref MessageReference, err error) *Error {
	return &Error{Status: status, Ref: ref, Err: err, frames: callers()}
}

// Internal wraps err as a 500 error with the generic internal message.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Ref: NewMessageReference(KeyInternal), Err: err, frames: callers()}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %v: %v", e.Ref.Key, e.Ref.Content, e.Err)
	}
	return fmt.Sprintf("%s %v", e.Ref.Key, e.Ref.Content)
}

func (e *Error) Unwrap() error { return e.Err }

// StackFrames returns the function names of the captured frames,
// innermost first.
func (e *Error) StackFrames() []string {
	out := make([]string, len(e.frames))
	copy(out, e.frames)
	return out
}

func callers() []string {
	pcs := make([]uintptr, 16)
	// skip runtime.Callers, callers and the constructor
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, f.Function)
		if !more {
			break
		}
	}
	return out
}
