package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/scan-service/pkg/logging"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	Name                  string
	MaxRequests           uint32        // Requests allowed while half-open
	Interval              time.Duration // Interval to clear the failure count (0 = never)
	Timeout               time.Duration // Open to half-open wait
	FailureThreshold      uint32        // Consecutive failures to trip
	FailureRatioThreshold float64       // Failure ratio to trip (0.5 = 50%)
	MinRequestsToTrip     uint32        // Minimum requests before evaluating the ratio
}

// DefaultCircuitBreakerConfig returns sensible defaults
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                  name,
		MaxRequests:           DefaultMaxRequests,
		Interval:              DefaultInterval,
		Timeout:               DefaultTimeout,
		FailureThreshold:      DefaultFailureThreshold,
		FailureRatioThreshold: DefaultFailureRatioThreshold,
		MinRequestsToTrip:     DefaultMinRequestsToTrip,
	}
}

// CircuitBreaker wraps gobreaker with logging
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *logging.Logger
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *logging.Logger) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= config.FailureThreshold {
				return true
			}
			if counts.Requests >= config.MinRequestsToTrip {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= config.FailureRatioThreshold
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreaker{
		cb:     gobreaker.NewCircuitBreaker(settings),
		name:   config.Name,
		logger: logger,
	}
}

// Execute runs a function through the circuit breaker
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		c.logger.Warn("Circuit breaker rejected call", "name", c.name)
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.name)
	}

	return result, err
}

// State returns the current state of the circuit breaker
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

// Counts returns the current counts
func (c *CircuitBreaker) Counts() gobreaker.Counts {
	return c.cb.Counts()
}

// CircuitBreakerRegistry manages multiple circuit breakers by name
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	logger   *logging.Logger
}

// NewCircuitBreakerRegistry creates a new registry
func NewCircuitBreakerRegistry(logger *logging.Logger) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
	}
}

// Get returns a circuit breaker by name, creating it with defaults if needed
func (r *CircuitBreakerRegistry) Get(name string) *CircuitBreaker {
	return r.GetWithConfig(DefaultCircuitBreakerConfig(name))
}

// GetWithConfig returns a circuit breaker, creating it with the given config if needed
func (r *CircuitBreakerRegistry) GetWithConfig(config *CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, exists := r.breakers[config.Name]; exists {
		return cb
	}
	cb := NewCircuitBreaker(config, r.logger)
	r.breakers[config.Name] = cb
	return cb
}
