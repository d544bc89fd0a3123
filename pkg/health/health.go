// Package health serves liveness and readiness probes for the orrery
// server. Readiness aggregates named checks over the simulation, the
// telemetry listener and process resources.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe paths
const (
	LivePath  = "/health/live"
	ReadyPath = "/health/ready"
)

// Status values reported per check and overall
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// DefaultTimeout bounds a readiness request
const DefaultTimeout = 5 * time.Second

// HealthCheck is one named readiness condition
type HealthCheck interface {
	Name() string
	// Check returns nil when the component is ready
	Check(ctx context.Context) error
}

// HealthStatus is the readiness report
type HealthStatus struct {
	Status    string                     `json:"status"`
	CheckedAt time.Time                  `json:"checkedAt"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check
type ComponentHealth struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// HealthChecker runs registered checks concurrently
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthChecker creates a checker with no checks and DefaultTimeout
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: DefaultTimeout,
	}
}

// SetTimeout changes the readiness deadline; non-positive values are ignored
func (hc *HealthChecker) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	hc.mu.Lock()
	hc.timeout = d
	hc.mu.Unlock()
}

// AddCheck registers check, replacing one with the same name
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a check by name
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names returns the registered check names in sorted order
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check in parallel and waits for all of them. The
// report is healthy only when every check passed. Checks should honor ctx;
// one that does not holds up the report.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	checks := make([]HealthCheck, 0, len(hc.checks))
	for _, c := range hc.checks {
		checks = append(checks, c)
	}
	hc.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runCheck(ctx, c)
		}()
	}
	wg.Wait()

	status := HealthStatus{
		Status:    StatusHealthy,
		CheckedAt: time.Now().UTC(),
		Checks:    make(map[string]ComponentHealth, len(checks)),
	}
	for i, c := range checks {
		if results[i].Status != StatusHealthy {
			status.Status = StatusUnhealthy
		}
		status.Checks[c.Name()] = results[i]
	}
	return status
}

func runCheck(ctx context.Context, c HealthCheck) ComponentHealth {
	started := time.Now()
	err := c.Check(ctx)
	result := ComponentHealth{
		Status:   StatusHealthy,
		Duration: time.Since(started).Round(time.Microsecond).String(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// LivenessHandler answers 200 while the process can serve HTTP at all
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler answers 200 when every check passes and 503 otherwise,
// with the full report as the body.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hc.mu.RLock()
	timeout := hc.timeout
	hc.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	report := hc.CheckHealth(ctx)
	code := http.StatusOK
	if report.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Mux is satisfied by *http.ServeMux and the telemetry server
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Register mounts both probes on mux
func (hc *HealthChecker) Register(mux Mux) {
	mux.Handle(LivePath, http.HandlerFunc(hc.LivenessHandler))
	mux.Handle(ReadyPath, http.HandlerFunc(hc.ReadinessHandler))
}

// SimulationHealthCheck fails when the simulation is stopped or has not
// stepped within maxStall.
type SimulationHealthCheck struct {
	running  func() bool
	lastStep func() time.Time
	maxStall time.Duration
	now      func() time.Time
}

// NewSimulationHealthCheck creates a health check for the simulation loop.
func NewSimulationHealthCheck(running func() bool, lastStep func() time.Time, maxStall time.Duration) *SimulationHealthCheck {
	return &SimulationHealthCheck{
		running:  running,
		lastStep: lastStep,
		maxStall: maxStall,
		now:      time.Now,
	}
}

// Name returns the name of this health check.
func (s *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies that the simulation is running and advancing.
func (s *SimulationHealthCheck) Check(ctx context.Context) error {
	if !s.running() {
		return fmt.Errorf("simulation is not running")
	}
	if s.maxStall <= 0 {
		return nil
	}
	last := s.lastStep()
	if last.IsZero() {
		return fmt.Errorf("simulation has not stepped yet")
	}
	if stalled := s.now().Sub(last); stalled > s.maxStall {
		return fmt.Errorf("simulation stalled for %v (limit %v)", stalled.Round(time.Millisecond), s.maxStall)
	}
	return nil
}

// TelemetryHealthCheck fails when the telemetry listener is down.
type TelemetryHealthCheck struct {
	listenerAddr func() string
}

// NewTelemetryHealthCheck creates a health check for the telemetry listener.
func NewTelemetryHealthCheck(listenerAddr func() string) *TelemetryHealthCheck {
	return &TelemetryHealthCheck{listenerAddr: listenerAddr}
}

// Name returns the name of this health check.
func (n *TelemetryHealthCheck) Name() string {
	return "telemetry"
}

// Check verifies that the telemetry listener is active.
func (n *TelemetryHealthCheck) Check(ctx context.Context) error {
	if n.listenerAddr() == "" {
		return fmt.Errorf("telemetry listener is not active")
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}
