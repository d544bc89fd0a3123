// Package resource tracks the orrery server's long-running goroutines and
// memory use, and drains them on shutdown.
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/logging"
)

// ErrGoroutineLimit is returned by StartGoroutine when the tracked
// goroutine budget is exhausted.
var ErrGoroutineLimit = errors.New("goroutine limit exceeded")

// Option configures a ResourceManager
type Option func(*ResourceManager)

// WithLogger sets the manager's logger
func WithLogger(l *logging.Logger) Option {
	return func(rm *ResourceManager) { rm.logger = l.WithComponent("resource_manager") }
}

// ResourceManager runs named worker goroutines under a shared budget and
// samples heap usage on an interval.
type ResourceManager struct {
	maxMemoryMB     int64
	maxGoroutines   int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	goroutineCount atomic.Int64
	memoryUsageMB  atomic.Int64
	workers        sync.WaitGroup

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	logger  *logging.Logger

	lastMemoryCheck time.Time
}

// NewResourceManager creates a manager with the limits in env. A nil env
// uses the defaults.
func NewResourceManager(env *config.EnvironmentConfig, opts ...Option) *ResourceManager {
	if env == nil {
		env = config.DefaultEnvironmentConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	rm := &ResourceManager{
		maxMemoryMB:     int64(env.MaxMemoryMB),
		maxGoroutines:   int64(env.MaxGoroutines),
		shutdownTimeout: env.ShutdownTimeout,
		checkInterval:   env.ResourceCheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		logger:          logging.Discard(),
	}
	if rm.checkInterval <= 0 {
		rm.checkInterval = 10 * time.Second
	}
	for _, opt := range opts {
		opt(rm)
	}
	return rm
}

// Start begins the resource monitoring loop.
func (rm *ResourceManager) Start() error {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return fmt.Errorf("resource manager already running")
	}
	rm.running = true
	rm.mu.Unlock()

	go rm.monitoringLoop()

	rm.logger.Info(rm.ctx, "resource manager started",
		"max_memory_mb", rm.maxMemoryMB,
		"max_goroutines", rm.maxGoroutines,
		"check_interval", rm.checkInterval,
	)
	return nil
}

// Context is cancelled when Shutdown begins. Workers started with
// StartGoroutine receive a context derived from it.
func (rm *ResourceManager) Context() context.Context {
	return rm.ctx
}

// StartGoroutine runs fn in a tracked goroutine. The context passed to fn
// is cancelled when either ctx or the manager shuts down. A panic in fn is
// recovered and logged; a returned error other than cancellation is logged.
func (rm *ResourceManager) StartGoroutine(ctx context.Context, name string, fn func(context.Context) error) error {
	current := rm.goroutineCount.Add(1)
	if current > rm.maxGoroutines {
		rm.goroutineCount.Add(-1)
		rm.logger.Warn(ctx, "goroutine limit exceeded",
			"current", current-1,
			"limit", rm.maxGoroutines,
			"name", name,
		)
		return fmt.Errorf("%w: %d/%d", ErrGoroutineLimit, current-1, rm.maxGoroutines)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(rm.ctx, cancel)

	rm.workers.Add(1)
	go func() {
		defer rm.workers.Done()
		defer rm.goroutineCount.Add(-1)
		defer stop()
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				rm.logger.Error(workerCtx, "goroutine panic", fmt.Errorf("panic: %v", r), "name", name)
			}
		}()

		if err := fn(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			rm.logger.Error(workerCtx, "goroutine failed", err, "name", name)
		}
	}()

	return nil
}

// CheckMemoryUsage samples the heap and compares it with the limit.
func (rm *ResourceManager) CheckMemoryUsage() error {
	currentMB := rm.sampleMemory()
	if currentMB > rm.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, rm.maxMemoryMB)
	}
	return nil
}

// MemoryUsageMB samples and returns the heap size in MB, suitable for a
// health.MemoryHealthCheck.
func (rm *ResourceManager) MemoryUsageMB() int64 {
	return rm.sampleMemory()
}

func (rm *ResourceManager) sampleMemory() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	currentMB := int64(m.HeapAlloc / 1024 / 1024)
	rm.memoryUsageMB.Store(currentMB)

	rm.mu.Lock()
	rm.lastMemoryCheck = time.Now()
	rm.mu.Unlock()
	return currentMB
}

// GetGoroutineCount returns the current number of tracked goroutines.
func (rm *ResourceManager) GetGoroutineCount() int64 {
	return rm.goroutineCount.Load()
}

// GetMemoryUsage returns the most recently sampled heap size in MB.
func (rm *ResourceManager) GetMemoryUsage() int64 {
	return rm.memoryUsageMB.Load()
}

// GetResourceStats returns current resource usage statistics.
func (rm *ResourceManager) GetResourceStats() ResourceStats {
	rm.mu.RLock()
	last := rm.lastMemoryCheck
	rm.mu.RUnlock()

	return ResourceStats{
		GoroutineCount:  rm.GetGoroutineCount(),
		MaxGoroutines:   rm.maxGoroutines,
		MemoryUsageMB:   rm.GetMemoryUsage(),
		MaxMemoryMB:     rm.maxMemoryMB,
		LastMemoryCheck: last,
	}
}

// ResourceStats contains resource usage statistics.
type ResourceStats struct {
	GoroutineCount  int64     `json:"goroutine_count"`
	MaxGoroutines   int64     `json:"max_goroutines"`
	MemoryUsageMB   int64     `json:"memory_usage_mb"`
	MaxMemoryMB     int64     `json:"max_memory_mb"`
	LastMemoryCheck time.Time `json:"last_memory_check"`
}

// Shutdown cancels every tracked goroutine and waits for them to return,
// bounded by ctx and the configured shutdown timeout.
func (rm *ResourceManager) Shutdown(ctx context.Context) error {
	rm.mu.Lock()
	wasRunning := rm.running
	rm.running = false
	rm.mu.Unlock()

	rm.logger.Info(ctx, "shutting down resource manager")
	rm.cancel()

	shutdownCtx := ctx
	if rm.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, rm.shutdownTimeout)
		defer cancel()
	}

	if wasRunning {
		select {
		case <-rm.done:
		case <-shutdownCtx.Done():
			rm.logger.Warn(ctx, "resource monitoring loop did not stop in time")
		}
	}

	return rm.waitForGoroutines(shutdownCtx)
}

func (rm *ResourceManager) waitForGoroutines(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		rm.workers.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		rm.logger.Debug(ctx, "all tracked goroutines finished")
		return nil
	case <-ctx.Done():
		remaining := rm.GetGoroutineCount()
		rm.logger.Warn(ctx, "shutdown timeout exceeded with goroutines still running",
			"remaining", remaining,
		)
		return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
	}
}

func (rm *ResourceManager) monitoringLoop() {
	defer close(rm.done)

	ticker := time.NewTicker(rm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.performResourceChecks()
		case <-rm.ctx.Done():
			return
		}
	}
}

func (rm *ResourceManager) performResourceChecks() {
	if err := rm.CheckMemoryUsage(); err != nil {
		rm.logger.Error(rm.ctx, "memory limit exceeded", err,
			"current_mb", rm.GetMemoryUsage(),
			"limit_mb", rm.maxMemoryMB,
		)
	}

	rm.logger.Debug(rm.ctx, "resource usage check",
		"goroutines", rm.GetGoroutineCount(),
		"max_goroutines", rm.maxGoroutines,
		"memory_mb", rm.GetMemoryUsage(),
		"max_memory_mb", rm.maxMemoryMB,
	)
}
