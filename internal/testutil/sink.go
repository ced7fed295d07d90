// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"errors"
	"sync"
)

// ErrSinkBroken is returned by a Sink once its write budget is spent.
var ErrSinkBroken = errors.New("sink broken")

// Sink is an in-memory io.WriteCloser that records how often it was closed.
// A Sink created with NewFailingSink accepts only the given number of bytes.
type Sink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	closes  int
	limit   int
	limited bool
}

// NewSink returns an unbounded Sink.
func NewSink() *Sink {
	return &Sink{}
}

// NewFailingSink returns a Sink that fails every write after limit bytes.
func NewFailingSink(limit int) *Sink {
	return &Sink{limit: limit, limited: true}
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return 0, errors.New("write on closed sink")
	}
	if s.limited {
		room := s.limit - s.buf.Len()
		if room < len(p) {
			if room > 0 {
				s.buf.Write(p[:room])
			}
			return max(room, 0), ErrSinkBroken
		}
	}
	return s.buf.Write(p)
}

// Close implements io.Closer.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Bytes returns a copy of everything written so far.
func (s *Sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

// Closes returns how many times Close was called.
func (s *Sink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
