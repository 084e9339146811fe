package eventbus

import "fmt"

// PayloadError reports an event argument that is missing or of the wrong type.
type PayloadError struct {
	Topic string
	Index int
	Want  string
	Got   any
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("eventbus: %s: missing argument %d (%s)", e.Topic, e.Index, e.Want)
	}
	return fmt.Sprintf("eventbus: %s: argument %d is %T, want %s", e.Topic, e.Index, e.Got, e.Want)
}

// Arg returns argument i of ev as a T.
func Arg[T any](ev Event, i int) (T, error) {
	var zero T
	if i >= len(ev.Args) || ev.Args[i] == nil {
		return zero, &PayloadError{Topic: ev.Topic, Index: i, Want: fmt.Sprintf("%T", zero)}
	}
	v, ok := ev.Args[i].(T)
	if !ok {
		return zero, &PayloadError{Topic: ev.Topic, Index: i, Want: fmt.Sprintf("%T", zero), Got: ev.Args[i]}
	}
	return v, nil
}

// OptionalArg returns argument i of ev as a T, or the zero value and false
// when it is absent or nil.
func OptionalArg[T any](ev Event, i int) (T, bool) {
	var zero T
	if i >= len(ev.Args) || ev.Args[i] == nil {
		return zero, false
	}
	v, ok := ev.Args[i].(T)
	return v, ok
}
