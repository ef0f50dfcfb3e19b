package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/disc-herniation-assistant/internal/domain"
)

// ResilientGenerator bounds calls to a Generator with a timeout, a rate
// limit and a circuit breaker. Every failure it returns is a
// *domain.GenerationError.
type ResilientGenerator struct {
	next      Generator
	breaker   *gobreaker.CircuitBreaker
	rateLimit *rate.Limiter
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewResilientGenerator wraps next using the backend configuration. A
// RateLimit of zero disables throttling and a zero Timeout leaves the call
// bounded only by ctx.
func NewResilientGenerator(next Generator, cfg domain.LLMConfig, logger *logrus.Logger) *ResilientGenerator {
	bc := cfg.Breaker
	minRequests := bc.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	failureRatio := bc.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		// A caller that gave up says nothing about the backend's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &ResilientGenerator{
		next:      next,
		breaker:   breaker,
		rateLimit: limiter,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Complete implements Generator
func (g *ResilientGenerator) Complete(ctx context.Context, prompt string, history []Message) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.rateLimit != nil {
		if err := g.rateLimit.Wait(ctx); err != nil {
			return "", &domain.GenerationError{Err: err}
		}
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Complete(ctx, prompt, history)
	})
	if err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
			"breaker":     g.breaker.State().String(),
		}).Warn("Generation failed")
		return "", &domain.GenerationError{Err: err}
	}

	completion := result.(string)
	g.logger.WithFields(logrus.Fields{
		"duration_ms":    time.Since(start).Milliseconds(),
		"prompt_len":     len(prompt),
		"history_len":    len(history),
		"completion_len": len(completion),
	}).Debug("Generation completed")
	return completion, nil
}

// State reports the circuit breaker state.
func (g *ResilientGenerator) State() gobreaker.State {
	return g.breaker.State()
}
