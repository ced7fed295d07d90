// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"io/fs"
)

const (
	// WarningNotFound marks an entry whose source path does not exist.
	WarningNotFound WarningCode = "ENOENT"
	// WarningOther marks any other recoverable source problem.
	WarningOther WarningCode = "EWARN"
)

type (
	// WarningCode classifies a Warning.
	WarningCode string

	// Warning is a recoverable append failure: the entry was not written and
	// the archive is still consistent.
	Warning struct {
		Code WarningCode
		Path string
		Err  error
	}

	// Progress reports the archive state after an entry was written.
	Progress struct {
		// Entries is the number of entries written so far.
		Entries int
		// Bytes is the number of archive bytes handed to the sink so far.
		Bytes int64
	}

	// Observer receives writer signals. Done is called exactly once, from
	// Finalize, with nil on success or the fatal error.
	Observer interface {
		Progress(Progress)
		Warning(*Warning)
		Done(error)
	}

	// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
	ObserverFuncs struct {
		OnProgress func(Progress)
		OnWarning  func(*Warning)
		OnDone     func(error)
	}
)

// Error implements the error interface.
func (w *Warning) Error() string {
	return fmt.Sprintf("archive warning %s: %s: %v", w.Code, w.Path, w.Err)
}

// Unwrap returns the underlying cause.
func (w *Warning) Unwrap() error {
	return w.Err
}

// IsNotFound reports whether err is a not-found Warning.
func IsNotFound(err error) bool {
	var w *Warning
	return errors.As(err, &w) && w.Code == WarningNotFound
}

// IsWarning reports whether err is a recoverable Warning of any code.
func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}

func newWarning(path string, err error) *Warning {
	code := WarningOther
	if errors.Is(err, fs.ErrNotExist) {
		code = WarningNotFound
	}
	return &Warning{Code: code, Path: path, Err: err}
}

// Progress implements Observer.
func (o ObserverFuncs) Progress(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

// Warning implements Observer.
func (o ObserverFuncs) Warning(w *Warning) {
	if o.OnWarning != nil {
		o.OnWarning(w)
	}
}

// Done implements Observer.
func (o ObserverFuncs) Done(err error) {
	if o.OnDone != nil {
		o.OnDone(err)
	}
}
