// Package breaker guards the synchronous channel to the account service.
//
// A single Breaker is shared by every concurrent caller. Each attempt asks
// Allow for a Permit and resolves it with Success or Failure once the
// outcome is known. State transitions are serialized by the underlying
// gobreaker state machine, so at most one Half-Open probe is in flight.
package breaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
)

// State is the breaker's gate position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config holds the trip and recovery thresholds.
type Config struct {
	Name string
	// FailureRatio trips the breaker once failures/requests in the window exceed it.
	FailureRatio float64
	// MinRequests is the sample size required before the ratio is evaluated.
	MinRequests uint32
	// Window is the Closed-state observation period; counts reset at each boundary.
	Window time.Duration
	// Cooldown is how long the breaker stays Open before letting a probe through.
	Cooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		Name:         "account-service",
		FailureRatio: 0.5,
		MinRequests:  5,
		Window:       time.Minute,
		Cooldown:     10 * time.Second,
	}
}

// Counts is a snapshot of the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// StateChangeListener is notified after every transition. Listeners run
// synchronously under the breaker's lock and must not block.
type StateChangeListener func(name string, from, to State)

type Breaker struct {
	name   string
	cb     *gobreaker.TwoStepCircuitBreaker
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []StateChangeListener
}

func New(cfg Config, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}

	b := &Breaker{
		name:   cfg.Name,
		logger: logger.With("breaker", cfg.Name),
	}

	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio > cfg.FailureRatio
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			b.handleStateChange(convertState(from), convertState(to))
		},
	})

	metrics.BreakerState.WithLabelValues(cfg.Name).Set(float64(StateClosed))
	return b
}

// Permit is one admitted attempt. Exactly one of Success, Failure or Release
// takes effect; later calls are ignored.
type Permit struct {
	once  sync.Once
	done  func(success bool)
	probe bool
}

func (p *Permit) Success() { p.resolve(true) }
func (p *Permit) Failure() { p.resolve(false) }

// Release hands back an attempt whose outcome says nothing about the
// account service, such as one abandoned by its caller. In Closed it is
// counted with the successes. A released Half-Open probe counts as a failure,
// so the breaker only closes on an answer from the service.
func (p *Permit) Release() { p.resolve(!p.probe) }

func (p *Permit) resolve(success bool) {
	p.once.Do(func() { p.done(success) })
}

// Allow reports whether an attempt may go to the network now. When it may
// not, the returned error is a failure.KindBreakerOpen error.
func (b *Breaker) Allow() (*Permit, error) {
	done, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, failure.BreakerOpen("breaker.Allow", fmt.Errorf("%s is half-open and a probe is in flight: %w", b.name, err))
		}
		return nil, failure.BreakerOpen("breaker.Allow", fmt.Errorf("%s is open: %w", b.name, err))
	}
	return &Permit{done: done, probe: b.cb.State() == gobreaker.StateHalfOpen}, nil
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	return convertState(b.cb.State())
}

func (b *Breaker) Counts() Counts {
	c := b.cb.Counts()
	return Counts{
		Requests:             c.Requests,
		TotalSuccesses:       c.TotalSuccesses,
		TotalFailures:        c.TotalFailures,
		ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		ConsecutiveFailures:  c.ConsecutiveFailures,
	}
}

func (b *Breaker) OnStateChange(l StateChangeListener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Breaker) handleStateChange(from, to State) {
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(to))
	metrics.BreakerTransitions.WithLabelValues(b.name, from.String(), to.String()).Inc()

	switch to {
	case StateOpen:
		b.logger.Error("circuit breaker opened, calls will fast-fail", "from", from.String())
	case StateHalfOpen:
		b.logger.Info("circuit breaker half-open, probing account service")
	case StateClosed:
		b.logger.Info("circuit breaker closed, account service healthy", "from", from.String())
	}

	b.mu.RLock()
	listeners := make([]StateChangeListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		l(b.name, from, to)
	}
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
