package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/casualjim/omnichat/provider"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Pipeline runs vendor calls through, innermost first: the sliding window
// limiter, a per-attempt timeout and rate-limit aware retries. An enabled
// breaker wraps the whole sequence.
type Pipeline struct {
	cfg     Config
	limiter *SlidingWindow
	backoff backoff
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a pipeline. It panics when cfg does not validate.
func New(cfg Config) *Pipeline {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("resilience: %w", err))
	}
	p := &Pipeline{
		cfg:     cfg,
		limiter: NewSlidingWindow(cfg.PermitLimit, cfg.Window, cfg.QueueLimit),
		backoff: backoff{base: cfg.BaseDelay, max: cfg.MaxDelay, jitter: cfg.Jitter},
		logger:  slog.Default().With(slogx.LoggerName("resilience")),
		sleep:   sleep,
	}
	if cfg.Breaker.Enabled {
		p.breaker = newBreaker(cfg.Breaker, p.logger)
	}
	return p
}

func newBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				slogx.Stringer("from", from),
				slogx.Stringer("to", to),
			)
		},
		// only failures another attempt could fix count against the vendor
		IsSuccessful: func(err error) bool {
			return !provider.IsTransient(err)
		},
	})
}

// Limiter exposes the pipeline's admission control.
func (p *Pipeline) Limiter() *SlidingWindow {
	return p.limiter
}

// Do calls fn until it succeeds, fails permanently or runs out of attempts.
// vendor names the provider in the errors the pipeline itself produces.
func (p *Pipeline) Do(ctx context.Context, vendor string, fn func(context.Context) error) error {
	if p.breaker == nil {
		return p.retry(ctx, vendor, fn)
	}
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.retry(ctx, vendor, fn)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.logger.WarnContext(ctx, "circuit breaker is open, failing fast", slog.String("provider", vendor))
		return fmt.Errorf("%s: %w: %w", vendor, ErrCircuitOpen, err)
	}
	return err
}

// Admit takes a limiter permit without timeout or retry. Streams use it since
// nothing can be replayed once chunks were handed out.
func (p *Pipeline) Admit(ctx context.Context, vendor string) error {
	if err := p.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, provider.ErrRateLimited) {
			return fmt.Errorf("%s: %w", vendor, err)
		}
		return provider.Canceled(vendor, err)
	}
	return nil
}

func (p *Pipeline) retry(ctx context.Context, vendor string, fn func(context.Context) error) error {
	attempts := p.cfg.attempts()
	for attempt := 1; ; attempt++ {
		err := p.attempt(ctx, vendor, fn)
		if err == nil {
			return nil
		}
		if attempt >= attempts || ctx.Err() != nil || !provider.IsTransient(err) {
			return err
		}

		delay := p.delay(attempt, err)
		p.logger.DebugContext(ctx, "retrying chat call",
			slog.String("provider", vendor),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slogx.Error(err),
		)
		if serr := p.sleep(ctx, delay); serr != nil {
			return provider.Canceled(vendor, serr)
		}
	}
}

func (p *Pipeline) attempt(ctx context.Context, vendor string, fn func(context.Context) error) error {
	actx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
	}
	defer cancel()

	err := p.limiter.Acquire(actx)
	if err == nil {
		err = fn(actx)
	} else if errors.Is(err, provider.ErrRateLimited) {
		return fmt.Errorf("%s: %w", vendor, err)
	}
	if err == nil {
		return nil
	}

	if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return &provider.CancellationError{Provider: vendor, Timeout: true, Err: context.DeadlineExceeded}
	}
	if ctx.Err() != nil {
		var ce *provider.CancellationError
		if !errors.As(err, &ce) {
			return provider.Canceled(vendor, ctx.Err())
		}
	}
	return err
}

func (p *Pipeline) delay(attempt int, err error) time.Duration {
	if d, ok := hintedDelay(err); ok {
		if p.cfg.MaxRateLimitDelay > 0 {
			d = min(d, p.cfg.MaxRateLimitDelay)
		}
		return d
	}
	return p.backoff.next(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
