// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

// ErrorKind is a sentinel error declared as a constant, e.g.
//
//	const ErrInvalidWad = cashu.ErrorKind("invalid wad")
type ErrorKind string

func (e ErrorKind) Error() string { return string(e) }

// Error is an ErrorKind, or any other error, with a detail message appended.
// errors.Is matches the wrapped error.
type Error struct {
	wrapped error
	detail  string
}

// NewError annotates err with detail.
func NewError(err error, detail string) Error {
	return Error{wrapped: err, detail: detail}
}

func (e Error) Error() string {
	return e.wrapped.Error() + ": " + e.detail
}

func (e Error) Unwrap() error { return e.wrapped }

// ErrorCloser unwinds a partially completed startup. Each step that acquires a
// resource registers its release with Add. A deferred Done releases everything
// in reverse unless Success was called once startup completed.
type ErrorCloser struct {
	closers []func() error
}

func NewErrorCloser() *ErrorCloser {
	return new(ErrorCloser)
}

// Add registers a release function.
func (e *ErrorCloser) Add(closer func() error) {
	e.closers = append(e.closers, closer)
}

// Success drops the registered release functions.
func (e *ErrorCloser) Success() {
	e.closers = nil
}

// Done runs the registered release functions, last added first. Errors are
// logged and do not stop the unwinding.
func (e *ErrorCloser) Done(log Logger) {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			log.Errorf("error running shutdown function %d: %v", i, err)
		}
	}
	e.closers = nil
}
