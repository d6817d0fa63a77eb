// Package breaker guards calls to optional dependencies with a
// sony/gobreaker circuit breaker and exports its state to Prometheus.
package breaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

type Config struct {
	Name         string
	MaxRequests  uint32        // trial requests allowed while half-open
	Interval     time.Duration // closed-state counter reset period
	Timeout      time.Duration // open duration before probing
	FailureRatio float64
	MinRequests  uint32
}

func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var (
	state = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bookify",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})

	rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "circuit_breaker_rejected_total",
		Help:      "Calls short-circuited by an open breaker.",
	}, []string{"name"})
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Breaker wraps a gobreaker circuit breaker.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

func New(cfg Config, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.WithLabelValues(name).Set(stateValue(to))
		},
	}
	state.WithLabelValues(cfg.Name).Set(0)
	return &Breaker{name: cfg.Name, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// IsOpen reports whether err came from the breaker refusing the call rather
// than from the guarded operation.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Do runs fn through b.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		if IsOpen(err) {
			rejected.WithLabelValues(b.name).Inc()
		}
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
