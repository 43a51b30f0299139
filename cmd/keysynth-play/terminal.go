package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// terminalKeys reads raw stdin bytes and forwards them on a channel. The
// terminal is restored by Stop.
type terminalKeys struct {
	keys    chan byte
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd          int
	nonblockSet bool
	oldState    *term.State
}

func newTerminalKeys() *terminalKeys {
	return &terminalKeys{
		keys:   make(chan byte, 64),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start switches stdin to raw, non-blocking mode and begins reading.
func (h *terminalKeys) Start() error {
	h.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(h.fd) {
		close(h.done)
		return fmt.Errorf("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("set raw mode: %w", err)
	}
	h.oldState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
		close(h.done)
		return fmt.Errorf("set nonblocking stdin: %w", err)
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 16)
		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			for i := 0; i < n; i++ {
				select {
				case h.keys <- buf[i]:
				default:
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(2 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(2 * time.Millisecond)
			}
		}
	}()
	return nil
}

// Keys delivers raw key bytes.
func (h *terminalKeys) Keys() <-chan byte { return h.keys }

// Stop ends the reader and restores the terminal.
func (h *terminalKeys) Stop() {
	h.stopped.Do(func() { close(h.stopCh) })
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldState != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
	}
}
