// Package shutdown stops the server in stages once a signal arrives: stop
// accepting requests, close live sessions, then stop background work.
package shutdown

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gabrielmiguelok/liveregister/pkg/logging"
)

var (
	ErrTimeout     = errors.New("shutdown timed out")
	ErrAlreadyDone = errors.New("shutdown already ran")
)

// Stage orders steps. All steps of a stage finish before the next starts.
type Stage int

const (
	StageListener Stage = iota
	StageSessions
	StageBackground
	numStages
)

func (s Stage) String() string {
	switch s {
	case StageListener:
		return "listener"
	case StageSessions:
		return "sessions"
	case StageBackground:
		return "background"
	}
	return "unknown"
}

const DefaultTimeout = 30 * time.Second

type step struct {
	name string
	fn   func(ctx context.Context) error
}

// Plan holds the steps to run on shutdown. It runs at most once.
type Plan struct {
	timeout time.Duration
	signals []os.Signal
	logger  logging.Logger

	mu      sync.Mutex
	steps   [numStages][]step
	ran     bool
	started chan struct{}
}

// New creates a Plan triggered by SIGINT or SIGTERM. A non-positive
// timeout means DefaultTimeout; a nil logger discards.
func New(timeout time.Duration, logger logging.Logger) *Plan {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Plan{
		timeout: timeout,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		logger:  logger,
		started: make(chan struct{}),
	}
}

// Add appends fn to stage.
func (p *Plan) Add(stage Stage, name string, fn func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps[stage] = append(p.steps[stage], step{name: name, fn: fn})
}

// AddCloser appends c.Close to stage.
func (p *Plan) AddCloser(stage Stage, name string, c io.Closer) {
	p.Add(stage, name, func(context.Context) error { return c.Close() })
}

// Wait blocks until a signal arrives or ctx ends, then runs the plan. It
// returns nil without running anything if Run was already called.
func (p *Plan) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, p.signals...)
	defer stop()

	select {
	case <-p.started:
		return nil
	case <-sigCtx.Done():
	}
	p.logger.Info("shutting down", logging.Duration("timeout", p.timeout))
	return p.Run()
}

// Run executes every stage in order. A failing step does not stop later
// ones; their errors are joined. Once the deadline passes, remaining steps
// are skipped and ErrTimeout is added.
func (p *Plan) Run() error {
	p.mu.Lock()
	if p.ran {
		p.mu.Unlock()
		return ErrAlreadyDone
	}
	p.ran = true
	close(p.started)
	steps := p.steps
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var errs []error
	for stage, group := range steps {
		for _, s := range group {
			if ctx.Err() != nil {
				return errors.Join(append(errs, ErrTimeout)...)
			}
			start := time.Now()
			if err := s.fn(ctx); err != nil {
				p.logger.Error("shutdown step failed",
					logging.String("stage", Stage(stage).String()),
					logging.String("step", s.name),
					logging.Err(err))
				errs = append(errs, err)
				continue
			}
			p.logger.Debug("shutdown step done",
				logging.String("step", s.name),
				logging.Duration("took", time.Since(start)))
		}
	}
	if ctx.Err() != nil {
		errs = append(errs, ErrTimeout)
	}
	return errors.Join(errs...)
}

// Started is closed when Run begins.
func (p *Plan) Started() <-chan struct{} {
	return p.started
}
