//go:build !headless

// Package otosink plays a 16-bit mono PCM stream on the default audio device.
package otosink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cwbudde/algo-keysynth/transport"
	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Sink pulls signed 16-bit little-endian mono samples from a source and
// plays them. The source is swapped atomically; the device callback never
// takes a lock.
type Sink struct {
	ctx    *oto.Context
	player *oto.Player
	src    transport.Switch

	mu      sync.Mutex // Start, Close
	started bool
}

// New opens the audio device. bufferSize is the device-side latency target.
func New(sampleRate int, bufferSize time.Duration) (*Sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	s := &Sink{ctx: ctx}
	s.player = ctx.NewPlayer(&s.src)

	logrus.WithFields(logrus.Fields{
		"function":    "otosink.New",
		"sample_rate": sampleRate,
		"buffer":      bufferSize.String(),
	}).Info("Audio device opened")
	return s, nil
}

// SetSource selects the stream to play. nil plays silence.
func (s *Sink) SetSource(r io.Reader) { s.src.Set(r) }

// Start begins playback.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.player.Play()
		s.started = true
	}
}

// Close stops playback and releases the player.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	s.started = false
	return err
}
