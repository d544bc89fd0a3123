package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scrape status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestCollector_Exposition(t *testing.T) {
	c := NewCollector()
	c.RecordFrame(2 * time.Millisecond)
	c.RecordFrame(3 * time.Millisecond)
	c.RecordSolve("Earth", 3, true)
	c.RecordSolve("Mercury", 10, false)
	c.ClientConnected()
	c.ClientConnected()
	c.ClientDisconnected()
	c.MessageSent("frame", 512)
	c.MessageSent("layout", 0)
	c.FrameDropped()
	c.MessageRejected("rate_limited")

	body := scrape(t, c)
	wants := []string{
		"orrery_frames_total 2",
		"orrery_step_duration_seconds_count 2",
		`orrery_solver_iterations_count{body="Earth"} 1`,
		`orrery_solver_not_converged_total{body="Mercury"} 1`,
		"orrery_telemetry_clients 1",
		`orrery_telemetry_messages_sent_total{type="frame"} 1`,
		`orrery_telemetry_messages_sent_total{type="layout"} 1`,
		"orrery_telemetry_bytes_sent_total 512",
		"orrery_telemetry_frames_dropped_total 1",
		`orrery_telemetry_messages_rejected_total{reason="rate_limited"} 1`,
		"go_goroutines",
	}
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
	if strings.Contains(body, `orrery_solver_not_converged_total{body="Earth"}`) {
		t.Error("converged solve counted as not converged")
	}
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.RecordFrame(time.Millisecond)

	if strings.Contains(scrape(t, b), "orrery_frames_total 1") {
		t.Error("collectors share state")
	}
	if a.Registry() == b.Registry() {
		t.Error("collectors share a registry")
	}
}
