// SPDX-License-Identifier: MPL-2.0

package compression

import (
	"errors"
	"io"
	"net/http"
)

// responseSink adapts an http.ResponseWriter: closing it flushes the response.
type responseSink struct {
	rw http.ResponseWriter
}

func (s responseSink) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

func (s responseSink) Close() error {
	err := http.NewResponseController(s.rw).Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}

// sinkOf returns the closable stream behind w, or false when w cannot serve
// as an archive sink.
func sinkOf(w io.Writer) (io.WriteCloser, bool) {
	switch s := w.(type) {
	case nil:
		return nil, false
	case http.ResponseWriter:
		return responseSink{rw: s}, true
	case io.WriteCloser:
		return s, true
	default:
		return nil, false
	}
}
