package feed

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/application/usecase"
)

const (
	defaultInterval     = time.Minute
	defaultFetchTimeout = 10 * time.Second
	defaultRetryDelay   = time.Second
)

// PollerOptions configure a Poller.
type PollerOptions struct {
	UserAgent    string
	FetchTimeout time.Duration
	// RetryDelay is the first delay after a failed poll; later failures back
	// off exponentially up to the job interval.
	RetryDelay time.Duration
	// Parse overrides the gofeed parser.
	Parse ParseFunc
	Log   *zap.Logger
}

type pollJob struct {
	cancel context.CancelFunc
}

// Poller runs one goroutine per poll job.
type Poller struct {
	mu      sync.Mutex
	jobs    map[string]pollJob
	closed  bool
	wg      sync.WaitGroup
	fetcher Fetcher
	retry   time.Duration
	log     *zap.Logger
}

// NewPoller constructs a Poller.
func NewPoller(opts PollerOptions) *Poller {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Parse == nil {
		opts.Parse = NewParseFunc(opts.UserAgent)
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Poller{
		jobs:    make(map[string]pollJob),
		fetcher: Fetcher{Parse: opts.Parse, Timeout: opts.FetchTimeout},
		retry:   opts.RetryDelay,
		log:     opts.Log,
	}
}

// Start launches a job. Starting an id that is already running is a no-op.
func (p *Poller) Start(job usecase.JobSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if _, ok := p.jobs[job.ID]; ok {
		p.log.Warn("poll job already running", zap.String("job", job.ID))
		return
	}
	if job.Interval <= 0 {
		job.Interval = defaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.jobs[job.ID] = pollJob{cancel: cancel}
	p.wg.Go(func() {
		p.run(ctx, job)
	})
	p.log.Debug("poll job started", zap.String("job", job.ID), zap.String("source", job.Source), zap.Duration("interval", job.Interval))
}

// Stop cancels a job without waiting for it. Unknown ids are ignored.
func (p *Poller) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	j, ok := p.jobs[id]
	if !ok {
		return
	}
	j.cancel()
	delete(p.jobs, id)
	p.log.Debug("poll job stopped", zap.String("job", id))
}

// Active returns the number of running jobs.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// Close stops all jobs and waits for them to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	for id, j := range p.jobs {
		j.cancel()
		delete(p.jobs, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, job usecase.JobSpec) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = min(p.retry, job.Interval)
	bo.MaxInterval = job.Interval
	bo.MaxElapsedTime = 0
	bo.Reset()

	observer, _ := job.Handler.(usecase.PollCycleObserver)
	var seen seenItems
	first := true

	for {
		wait := job.Interval

		f, err := p.fetcher.Fetch(ctx, job.Source)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			job.Handler.PollError(job.Source, err)
			if d := bo.NextBackOff(); d != backoff.Stop && d < wait {
				wait = d
			}
		} else {
			bo.Reset()
			fresh := seen.diff(f.Items)
			emit := !first || !job.SkipFirstLoad
			first = false
			if emit {
				// feeds list newest first; deliver oldest first
				for i := len(fresh) - 1; i >= 0; i-- {
					if ctx.Err() != nil {
						return
					}
					job.Handler.ItemFound(job.Source, fresh[i])
				}
			}
			if observer != nil {
				observer.PollCompleted(job.Source)
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
