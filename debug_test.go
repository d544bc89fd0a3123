package main

import (
	"math"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/orbit"
)

// Debug test to isolate slow Newton-Raphson convergence near perihelion
func TestDebugSolverConvergence(t *testing.T) {
	for _, e := range []float64{0.2056, 0.9, 0.99} {
		worst, worstM := 0, 0.0
		for i := 0; i < 360; i++ {
			M := float64(i) * math.Pi / 180
			E, iterations, converged := orbit.EccentricAnomaly(M, e)
			if iterations > worst {
				worst, worstM = iterations, M
			}
			if converged && math.Abs(E-e*math.Sin(E)-M) > 1e-5 {
				t.Errorf("e=%v M=%v: residual %g after convergence", e, M, E-e*math.Sin(E)-M)
			}
		}
		t.Logf("e=%v: worst case %d iterations at M=%.4f", e, worst, worstM)
	}

	for _, b := range config.DefaultBodies() {
		sol := b.Elements.Solve(b.Elements.Period / 2)
		t.Logf("%s at half period: E=%.6f r=%.3f iterations=%d", b.Name, sol.EccentricAnomaly, sol.Radius, sol.Iterations)
		if !sol.Converged {
			t.Errorf("%s did not converge at half period", b.Name)
		}
	}
}
