package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("sender: queue closed")
	// ErrQueueFull is returned when no queue slot is free; the job is dropped.
	ErrQueueFull = errors.New("sender: queue full")
)

// Options tunes a Dispatcher. Zero values select defaults.
type Options struct {
	QueueSize  int
	Workers    int
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number before each retry.
	RetryBackoff time.Duration
	// MaxDuration bounds one job including its retries.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func(ctx context.Context) error
}

func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2+len(extra))
	attrs = append(attrs, slog.String("action", j.action))
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return append(attrs, extra...)
}

// Dispatcher runs outbound calls on a fixed pool of workers. Only transient
// network failures are retried; API rejections fail on the first attempt.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				queueDepth.Dec()
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run. The job keeps ctx values for logging but not its
// cancellation. run must be safe to repeat when MaxRetries > 0.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func(ctx context.Context) error) error {
	if run == nil {
		return errors.New("sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), action: action, endpoint: endpoint, run: run}:
		queueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns how many jobs failed for good.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// QueueLen reports the jobs waiting for a worker.
func (d *Dispatcher) QueueLen() int { return len(d.jobs) }

// Close rejects new jobs and waits until queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	start := time.Now()
	attempts, err := d.attempt(j)
	took := logger.RoundMS(time.Since(start))

	if err == nil {
		sendsTotal.WithLabelValues(j.endpoint, "ok").Inc()
		extra := []slog.Attr{slog.Duration("duration", took)}
		if attempts > 1 {
			extra = append(extra, slog.Int("attempts", attempts))
		}
		logger.Debug(j.ctx, logger.CompSender, "send.success", j.attrs(extra...)...)
		return
	}

	code := classifyError(err)
	d.failed.Add(1)
	sendsTotal.WithLabelValues(j.endpoint, code).Inc()
	logger.Error(j.ctx, logger.CompSender, "send.fail", j.attrs(
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", code),
		slog.Int("attempts", attempts),
		slog.Duration("duration", took),
	)...)
}

// attempt runs j until it succeeds, fails permanently, runs out of retries
// or exceeds MaxDuration.
func (d *Dispatcher) attempt(j job) (int, error) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		err := j.run(ctx)
		if err == nil || n == limit || !netutil.ShouldRetry(err) {
			return n, err
		}
		delay := d.opts.RetryBackoff * time.Duration(n)
		logger.Debug(j.ctx, logger.CompSender, "send.retry", j.attrs(
			slog.Int("attempt", n),
			slog.Duration("delay", delay),
			slog.String("err_code", classifyError(err)),
		)...)
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case <-time.After(delay):
		}
	}
}
