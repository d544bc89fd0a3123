package resource

import (
	"context"
	"fmt"
)

// goroutineWarnRatio is the share of the goroutine budget above which the
// manager reports unhealthy
const goroutineWarnRatio = 0.8

// ResourceHealthCheck reports the manager's memory and goroutine budgets as
// a readiness check.
type ResourceHealthCheck struct {
	manager *ResourceManager
}

// NewResourceHealthCheck creates a new health check for the resource manager.
func NewResourceHealthCheck(manager *ResourceManager) *ResourceHealthCheck {
	return &ResourceHealthCheck{manager: manager}
}

// Name returns the name of this health check.
func (r *ResourceHealthCheck) Name() string {
	return "resource"
}

// Check fails when the last memory sample is over the limit or the tracked
// goroutines exceed the warning ratio of their budget.
func (r *ResourceHealthCheck) Check(ctx context.Context) error {
	stats := r.manager.GetResourceStats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := int64(float64(stats.MaxGoroutines) * goroutineWarnRatio)
	if stats.GoroutineCount > threshold {
		return fmt.Errorf("goroutine count %d exceeds %d%% threshold (%d/%d)",
			stats.GoroutineCount, int(goroutineWarnRatio*100), threshold, stats.MaxGoroutines)
	}

	return nil
}
