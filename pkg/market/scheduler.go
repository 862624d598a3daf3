package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// Observer receives per-task telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveTask(exchange, outcome string, elapsed time.Duration)
	ObserveCoerced(exchange, field string)
}

// Task outcomes reported to the Observer.
const (
	OutcomeOK         = "ok"
	OutcomeTimeout    = "timeout"
	OutcomeCapability = "capability"
	OutcomeError      = "error"
)

type nopObserver struct{}

func (nopObserver) ObserveTask(string, string, time.Duration) {}
func (nopObserver) ObserveCoerced(string, string)             {}

// Scheduler runs one independent task per instrument. Tasks never cancel each
// other and are attempted exactly once per call.
type Scheduler struct {
	registry *Registry
	timeout  time.Duration
	observer Observer
	now      func() time.Time
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTaskTimeout bounds each task.
func WithTaskTimeout(timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithObserver installs task telemetry.
func WithObserver(observer Observer) SchedulerOption {
	return func(s *Scheduler) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithClock overrides the time source used for expiry maths.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler builds a scheduler over registry.
func NewScheduler(registry *Registry, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		registry: registry,
		timeout:  defaultTaskTimeout,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the handle registry the scheduler draws from.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Now returns the scheduler clock.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// FanOut fetches, normalizes and derives metrics for every pair concurrently.
// The result is index-aligned with pairs; failures are returned as values and
// never abort siblings.
func (s *Scheduler) FanOut(ctx context.Context, pairs []InstrumentID) []TaskResult {
	quotes := s.FetchQuotes(ctx, pairs)
	now := s.now()
	results := make([]TaskResult, len(quotes))
	for i, qr := range quotes {
		results[i] = TaskResult{Instrument: qr.Instrument, Err: qr.Err}
		if qr.OK() {
			results[i].Entry = &Entry{Quote: *qr.Quote, Metrics: Compute(*qr.Quote, nil, now)}
			results[i].Err = nil
		}
	}
	return results
}

// FetchQuotes runs the fan-out up to normalization.
func (s *Scheduler) FetchQuotes(ctx context.Context, pairs []InstrumentID) []QuoteResult {
	results := make([]QuoteResult, len(pairs))
	group := threading.NewRoutineGroup()
	for i := range pairs {
		i := i
		results[i] = QuoteResult{
			Instrument: pairs[i],
			Err:        &InternalError{Msg: fmt.Sprintf("task %s aborted", pairs[i])},
		}
		group.RunSafe(func() {
			results[i] = s.runTask(ctx, pairs[i])
		})
	}
	group.Wait()
	return results
}

// runTask bounds one task by the scheduler timeout. An adapter that ignores
// its context still resolves to a timeout failure; its goroutine is left to
// finish on its own.
func (s *Scheduler) runTask(ctx context.Context, id InstrumentID) QuoteResult {
	start := time.Now()
	taskCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan QuoteResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- QuoteResult{Instrument: id, Err: &InternalError{Msg: fmt.Sprintf("task %s panicked", id), Err: fmt.Errorf("%v", p)}}
			}
		}()
		quote, err := s.fetch(taskCtx, id)
		done <- QuoteResult{Instrument: id, Quote: quote, Err: err}
	}()

	var res QuoteResult
	select {
	case res = <-done:
	case <-taskCtx.Done():
		res = QuoteResult{Instrument: id, Err: &TransientFetchError{Instrument: id, Op: "fetch", Err: taskCtx.Err()}}
	}
	s.report(ctx, res, time.Since(start))
	return res
}

func (s *Scheduler) fetch(ctx context.Context, id InstrumentID) (*NormalizedQuote, error) {
	adapter, err := s.registry.Acquire(ctx, id.Exchange)
	if err != nil {
		return nil, wrapFetch(id, "acquire", err)
	}
	if err := Require(id.Exchange, adapter, CapFetchTicker); err != nil {
		return nil, err
	}

	raw, err := adapter.FetchQuote(ctx, id.Symbol)
	if err != nil {
		return nil, wrapFetch(id, "fetchTicker", err)
	}
	if raw == nil {
		return nil, &TransientFetchError{Instrument: id, Op: "fetchTicker", Err: fmt.Errorf("empty ticker")}
	}
	raw.Instrument = id

	funding := s.fetchFunding(ctx, id, adapter, raw)
	quote := Normalize(ctx, raw, funding)
	return &quote, nil
}

// fetchFunding is a soft step: any failure is logged as a PartialDataWarning
// and the quote proceeds with null funding fields.
func (s *Scheduler) fetchFunding(ctx context.Context, id InstrumentID, adapter Adapter, raw *RawQuote) *RawFunding {
	if !raw.Perpetual || !isAbsent(raw.FundingRate) {
		return nil
	}
	var warning *PartialDataWarning
	if err := Require(id.Exchange, adapter, CapFetchFunding); err != nil {
		warning = &PartialDataWarning{Instrument: id, Field: "fundingRate", Err: err}
	} else if funding, err := adapter.FetchFunding(ctx, id.Symbol); err != nil {
		warning = &PartialDataWarning{Instrument: id, Field: "fundingRate", Err: err}
	} else {
		return funding
	}
	logx.WithContext(ctx).Slowf("%v", warning)
	return nil
}

func (s *Scheduler) report(ctx context.Context, res QuoteResult, elapsed time.Duration) {
	outcome := OutcomeOK
	if res.Err != nil {
		outcome = classify(res.Err)
		logx.WithContext(ctx).Errorf("fan-out: task %s failed after %s: %v", res.Instrument, elapsed, res.Err)
	}
	s.observer.ObserveTask(res.Instrument.Exchange, outcome, elapsed)
	if res.Quote != nil {
		for _, field := range res.Quote.Coerced {
			s.observer.ObserveCoerced(res.Instrument.Exchange, field)
		}
	}
}

func classify(err error) string {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return OutcomeCapability
	}
	var fetchErr *TransientFetchError
	if errors.As(err, &fetchErr) && fetchErr.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeError
}
