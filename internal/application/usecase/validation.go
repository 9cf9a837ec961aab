package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/reading"
	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// probeInterval keeps a probe job from ever polling a second time.
const probeInterval = time.Duration(math.MaxInt64)

// Validation describes how a Validate call was served.
type Validation struct {
	// Shared is true when the caller joined a probe started by someone else.
	Shared bool
}

// pendingValidation is a shareable probe result that settles exactly once.
type pendingValidation struct {
	jobID   string
	waiters int // callers served, guarded by Validator.mu
	once    sync.Once
	done    chan struct{}
	err     error
}

// Validator checks that a feed answers before it is subscribed to. Concurrent
// checks of one source share a single probe job.
type Validator struct {
	mu       sync.Mutex
	pending  map[string]*pendingValidation
	poller   Poller
	timeout  time.Duration
	newJobID func() string
	recorder Recorder
	log      *zap.Logger
}

// NewValidator constructs a Validator.
func NewValidator(poller Poller, timeout time.Duration, recorder Recorder, log *zap.Logger) *Validator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		pending:  make(map[string]*pendingValidation),
		poller:   poller,
		timeout:  timeout,
		newJobID: func() string { return "probe:" + uuid.NewString() },
		recorder: recorder,
		log:      log,
	}
}

// Validate probes source, or joins the probe already running for it. The
// probe keeps running for other callers when ctx ends.
func (v *Validator) Validate(ctx context.Context, source string) (Validation, error) {
	v.mu.Lock()
	p, shared := v.pending[source]
	if !shared {
		p = &pendingValidation{jobID: v.newJobID(), done: make(chan struct{})}
		v.pending[source] = p
	}
	p.waiters++
	v.mu.Unlock()

	if !shared {
		v.start(source, p)
	}

	select {
	case <-p.done:
		return Validation{Shared: shared}, p.err
	case <-ctx.Done():
		return Validation{Shared: shared}, ctx.Err()
	}
}

// Pending reports whether a probe for source is in flight.
func (v *Validator) Pending(source string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.pending[source]
	return ok
}

func (v *Validator) start(source string, p *pendingValidation) {
	v.poller.Start(JobSpec{
		ID:       p.jobID,
		Source:   source,
		Interval: probeInterval,
		Handler:  &probeHandler{v: v, p: p},
	})

	timer := time.NewTimer(v.timeout)
	go func() {
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			v.settle(source, p, subscription.ErrValidationTimeout)
		}
	}()
}

// settle resolves p once: the pending entry is cleared and the probe job
// stopped before waiters are released. Later calls are ignored.
func (v *Validator) settle(source string, p *pendingValidation, err error) {
	p.once.Do(func() {
		v.mu.Lock()
		if v.pending[source] == p {
			delete(v.pending, source)
		}
		waiters := p.waiters
		v.mu.Unlock()

		v.poller.Stop(p.jobID)
		result := validationResult(err)
		v.recorder.ObserveValidation(result)
		v.log.Debug("validation settled",
			zap.String("source", source),
			zap.String("result", result),
			zap.Int("callers", waiters),
			zap.Error(err))

		p.err = err
		close(p.done)
	})
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, subscription.ErrValidationTimeout):
		return "timeout"
	default:
		return "feed_error"
	}
}

type probeHandler struct {
	v *Validator
	p *pendingValidation
}

func (h *probeHandler) ItemFound(source string, _ reading.Item) {
	h.v.settle(source, h.p, nil)
}

func (h *probeHandler) PollCompleted(source string) {
	h.v.settle(source, h.p, nil)
}

func (h *probeHandler) PollError(source string, err error) {
	h.v.settle(source, h.p, &subscription.FeedError{Source: source, Err: err})
}
