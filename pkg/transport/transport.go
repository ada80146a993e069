// Package transport moves protocol messages between a browser and its live
// session. Outbound messages go through a bounded queue drained by a single
// writer, inbound frames are decoded onto a channel the session reads.
package transport

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/liveregister/pkg/protocol"
)

var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrClosed       = errors.New("transport: closed")
	ErrSendTimeout  = errors.New("transport: send timed out")
)

// Transport is one live connection as seen by a session.
type Transport interface {
	Send(msg *protocol.Message) error
	Receive() <-chan *protocol.Message
	// Done is closed once the connection is gone.
	Done() <-chan struct{}
	Close() error
	IsConnected() bool
}

// Config holds connection timing and sizing.
type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	QueueSize      int
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		QueueSize:      64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}

// queue is the channel plumbing shared by the read and write loops.
type queue struct {
	out       chan *protocol.Message
	in        chan *protocol.Message
	done      chan struct{}
	once      sync.Once
	connected atomic.Bool
}

func newQueue(size int) *queue {
	return &queue{
		out:  make(chan *protocol.Message, size),
		in:   make(chan *protocol.Message, size),
		done: make(chan struct{}),
	}
}

// push hands msg to the writer, waiting at most wait for room.
func (q *queue) push(msg *protocol.Message, wait time.Duration) error {
	if !q.connected.Load() {
		return ErrNotConnected
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case q.out <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// deliver offers a decoded message to the session. It reports false when
// the message was dropped.
func (q *queue) deliver(msg *protocol.Message) bool {
	select {
	case q.in <- msg:
		return true
	case <-q.done:
		return false
	default:
		return false
	}
}

// shutdown closes done. Only the first call returns true.
func (q *queue) shutdown() bool {
	first := false
	q.once.Do(func() {
		q.connected.Store(false)
		close(q.done)
		first = true
	})
	return first
}
