package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authsystem/internal"
)

// Sender delivers notifications. Implementations may block; the dispatcher
// bounds each call with Config.SendTimeout.
type Sender interface {
	NotifyConfirmation(ctx context.Context, email, name, token string) error
	NotifyPasswordReset(ctx context.Context, email, name, token string) error
}

// Kind names the notification template.
type Kind string

const (
	KindConfirmation  Kind = "confirmation"
	KindPasswordReset Kind = "password_reset"
)

// Job is one queued notification.
type Job struct {
	Kind      Kind
	Email     string
	Name      string
	Token     string
	RequestID string
}

// Config sizes the queue and worker pool.
type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Hooks observe delivery outcomes. Nil hooks are ignored.
type Hooks struct {
	OnSent    func(Kind)
	OnFailed  func(Kind)
	OnDropped func(Kind)
}

// Dispatcher is a bounded asynchronous notification queue.
type Dispatcher struct {
	cfg    Config
	sender Sender
	logger *slog.Logger
	hooks  Hooks

	ch   chan Job
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewDispatcher starts cfg.Workers goroutines. Close must be called to stop them.
func NewDispatcher(cfg Config, sender Sender, logger *slog.Logger, hooks Hooks) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sender: sender,
		logger: logger.With("component", "notify"),
		hooks:  hooks,
		ch:     make(chan Job, cfg.QueueSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}

	return d
}

// Enqueue hands job to the worker pool without blocking. It reports false when
// the job was dropped because the queue was full or the dispatcher was closed.
func (d *Dispatcher) Enqueue(job Job) bool {
	if d == nil {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(job, "dispatcher closed")
		return false
	}

	select {
	case d.ch <- job:
		return true
	default:
		d.drop(job, "queue full")
		return false
	}
}

// Close stops accepting jobs, delivers everything already queued, and waits
// for the workers to exit. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
}

// Sent reports jobs the sender accepted.
func (d *Dispatcher) Sent() uint64 {
	if d == nil {
		return 0
	}
	return d.sent.Load()
}

// Failed reports jobs whose delivery returned an error, timed out or panicked.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

// Dropped reports jobs rejected by Enqueue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.ch:
			d.deliver(job)
		case <-d.done:
			for {
				select {
				case job := <-d.ch:
					d.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	start := time.Now()
	err := d.send(ctx, job)
	attrs := []any{
		"kind", string(job.Kind),
		"email", job.Email,
		"token_fp", internal.Fingerprint(job.Token),
		"duration", time.Since(start),
	}
	if job.RequestID != "" {
		attrs = append(attrs, "request_id", job.RequestID)
	}

	if err != nil {
		d.failed.Add(1)
		if d.hooks.OnFailed != nil {
			d.hooks.OnFailed(job.Kind)
		}
		d.logger.Error("notification delivery failed", append(attrs, "error", err)...)
		return
	}

	d.sent.Add(1)
	if d.hooks.OnSent != nil {
		d.hooks.OnSent(job.Kind)
	}
	d.logger.Info("notification sent", attrs...)
}

func (d *Dispatcher) send(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()

	if d.sender == nil {
		return fmt.Errorf("no notifier configured")
	}

	switch job.Kind {
	case KindConfirmation:
		return d.sender.NotifyConfirmation(ctx, job.Email, job.Name, job.Token)
	case KindPasswordReset:
		return d.sender.NotifyPasswordReset(ctx, job.Email, job.Name, job.Token)
	default:
		return fmt.Errorf("unknown notification kind %q", job.Kind)
	}
}

func (d *Dispatcher) drop(job Job, reason string) {
	d.dropped.Add(1)
	if d.hooks.OnDropped != nil {
		d.hooks.OnDropped(job.Kind)
	}
	d.logger.Error("notification dropped",
		"kind", string(job.Kind),
		"email", job.Email,
		"reason", reason,
	)
}
