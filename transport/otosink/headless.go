//go:build headless

// Package otosink plays a 16-bit mono PCM stream on the default audio device.
// Headless builds have no device: the sink discards the stream in real time.
package otosink

import (
	"io"
	"sync"
	"time"

	"github.com/cwbudde/algo-keysynth/transport"
	"github.com/sirupsen/logrus"
)

// Sink pulls samples at the device rate and discards them.
type Sink struct {
	src        transport.Switch
	sampleRate int
	period     time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a sink that consumes bufferSize worth of audio per period.
func New(sampleRate int, bufferSize time.Duration) (*Sink, error) {
	if bufferSize <= 0 {
		bufferSize = 10 * time.Millisecond
	}
	logrus.WithFields(logrus.Fields{
		"function":    "otosink.New",
		"sample_rate": sampleRate,
	}).Info("Headless audio sink")
	return &Sink{sampleRate: sampleRate, period: bufferSize}, nil
}

func (s *Sink) SetSource(r io.Reader) { s.src.Set(r) }

func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	n := int(s.period.Seconds()*float64(s.sampleRate)) * transport.BytesPerSample
	go func(stop, done chan struct{}) {
		defer close(done)
		buf := make([]byte, max(n, transport.BytesPerSample))
		t := time.NewTicker(s.period)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.src.Read(buf)
			}
		}
	}(s.stop, s.done)
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}
	return nil
}
