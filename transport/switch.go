package transport

import (
	"io"
	"sync/atomic"
)

type readerBox struct{ r io.Reader }

// Switch is an io.Reader whose upstream can be swapped while a player is
// pulling from it. Without an upstream, or after the upstream ends, it reads
// silence. Read never blocks on the goroutine calling Set.
type Switch struct {
	src atomic.Pointer[readerBox]
	eof atomic.Bool
}

// Set replaces the upstream. nil selects silence.
func (s *Switch) Set(r io.Reader) {
	if r == nil {
		s.src.Store(nil)
	} else {
		s.src.Store(&readerBox{r: r})
	}
	s.eof.Store(false)
}

// Ended reports whether the current upstream has returned io.EOF.
func (s *Switch) Ended() bool { return s.eof.Load() }

// Read fills p completely.
func (s *Switch) Read(p []byte) (int, error) {
	box := s.src.Load()
	if box == nil || s.eof.Load() {
		clear(p)
		return len(p), nil
	}
	n, err := io.ReadFull(box.r, p)
	if err != nil {
		s.eof.Store(true)
		clear(p[n:])
	}
	return len(p), nil
}
