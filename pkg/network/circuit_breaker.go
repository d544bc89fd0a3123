// Package network streams simulation frames to remote viewers over
// websockets. Writes and dials go through a circuit breaker so a failing
// peer or server is isolated instead of retried in a tight loop.
package network

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/logging"
)

// NetworkService wraps network operations with circuit breaker functionality.
// It provides retry logic with linear backoff and failure isolation.
type NetworkService struct {
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	config  *config.EnvironmentConfig

	maxRetries int
	baseDelay  time.Duration
}

// NetworkOperation represents a function that performs a network operation.
// It should return an error if the operation fails.
type NetworkOperation func() error

// NewNetworkService creates a NetworkService whose breaker is configured
// from environment settings. name identifies the breaker in logs.
func NewNetworkService(name string, envConfig *config.EnvironmentConfig, logger *logging.Logger) *NetworkService {
	if envConfig == nil {
		envConfig = config.DefaultEnvironmentConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("circuit_breaker")

	maxFails := envConfig.CircuitBreakerMaxConsecutiveFails
	if maxFails == 0 {
		maxFails = 1
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: envConfig.CircuitBreakerMaxRequests,
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &NetworkService{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		config:     envConfig,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// SetRetryPolicy changes how ExecuteWithRetry retries. The delay before
// attempt n+1 is n*baseDelay.
func (ns *NetworkService) SetRetryPolicy(maxRetries int, baseDelay time.Duration) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	ns.maxRetries = maxRetries
	ns.baseDelay = baseDelay
}

// Execute runs a network operation through the circuit breaker.
// If the circuit is open, it returns an error without calling operation.
func (ns *NetworkService) Execute(ctx context.Context, operation NetworkOperation) error {
	_, err := ns.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err != nil {
		ns.logger.Debug(ctx, "circuit breaker execution failed",
			"error", err,
			"state", ns.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}

	return nil
}

// ExecuteWithRetry runs a network operation, retrying failed attempts with
// an increasing delay. It stops early when the circuit opens or ctx is done.
func (ns *NetworkService) ExecuteWithRetry(ctx context.Context, operation NetworkOperation) error {
	for attempt := 0; attempt < ns.maxRetries; attempt++ {
		err := ns.Execute(ctx, operation)
		if err == nil {
			return nil
		}

		if ns.breaker.State() == gobreaker.StateOpen {
			ns.logger.Warn(ctx, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", ns.maxRetries,
			)
			return err
		}

		if attempt == ns.maxRetries-1 {
			ns.logger.Error(ctx, "all retry attempts failed", err,
				"attempts", ns.maxRetries,
			)
			return fmt.Errorf("max retries (%d) exceeded: %w", ns.maxRetries, err)
		}

		delay := time.Duration(attempt+1) * ns.baseDelay
		ns.logger.Warn(ctx, "operation failed, retrying",
			"attempt", attempt+1,
			"max_retries", ns.maxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("unexpected exit from retry loop")
}

// GetState returns the current state of the circuit breaker.
func (ns *NetworkService) GetState() gobreaker.State {
	return ns.breaker.State()
}

// GetCounts returns the current failure/success counts of the circuit breaker.
func (ns *NetworkService) GetCounts() gobreaker.Counts {
	return ns.breaker.Counts()
}
