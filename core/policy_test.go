// core/policy_test.go
package core

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestBinaryPolicy_TwoValuedOnly(t *testing.T) {
	p := binaryPolicy{}
	for _, residual := range []float64{0, 0.0001, 0.5, 1, 3, 100, 99999} {
		got := p.Availability(residual)
		if residual > 0 && got != 0 {
			t.Errorf("Availability(%v) = %v, want 0", residual, got)
		}
		if residual == 0 && got != 1 {
			t.Errorf("Availability(0) = %v, want 1", got)
		}
		if got != 0 && got != 1 {
			t.Errorf("binary policy produced intermediate value %v", got)
		}
	}
}

func TestDepthDamagePolicy_UnitConversion(t *testing.T) {
	tests := []struct {
		unit     string
		residual float64
		want     float64
	}{
		{"feet", 0, 1},
		{"feet", 0.5, 1 - 0.5*304.8/300},
		{"ft", 1, 1 - 304.8/300.0}, // just past the cutoff, floors at 0
		{"meters", 0.15, 0.5},
		{"m", 0.3, 0},
		{"yards", 5, 0},
	}
	for _, tc := range tests {
		p, err := newDepthDamagePolicy(tc.unit)
		if err != nil {
			t.Fatalf("newDepthDamagePolicy(%q): %v", tc.unit, err)
		}
		got := p.Availability(tc.residual)
		want := tc.want
		if want < 0 {
			want = 0
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s: Availability(%v) = %v, want %v", tc.unit, tc.residual, got, want)
		}
	}
}

func TestDepthDamagePolicy_UnknownUnitRejected(t *testing.T) {
	if _, err := newDepthDamagePolicy("furlongs"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("newDepthDamagePolicy(furlongs) error = %v, want ErrInvalidConfig", err)
	}
}

func TestManualPolicy_BreakpointRanges(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "breakpoints.csv")
	writeFile(t, csvPath, "min,max,availability\n0,2,0.5\n2,10,0.0\n")

	p, err := newManualPolicy(csvPath)
	if err != nil {
		t.Fatalf("newManualPolicy: %v", err)
	}

	tests := []struct {
		residual float64
		want     float64
	}{
		{1, 0.5},
		{0, 0.5},
		{2, 0.0},   // min inclusive
		{9.999, 0}, // max exclusive
		{10, 1.0},  // outside all ranges: fully available
		{20, 1.0},
	}
	for _, tc := range tests {
		if got := p.Availability(tc.residual); got != tc.want {
			t.Errorf("Availability(%v) = %v, want %v", tc.residual, got, tc.want)
		}
	}
}

func TestManualPolicy_LastMatchingRowWins(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "breakpoints.csv")
	writeFile(t, csvPath, "min,max,availability\n0,10,0.8\n0,5,0.2\n")

	p, err := newManualPolicy(csvPath)
	if err != nil {
		t.Fatalf("newManualPolicy: %v", err)
	}
	if got := p.Availability(3); got != 0.2 {
		t.Errorf("Availability(3) = %v, want 0.2 (last matching row)", got)
	}
	if got := p.Availability(7); got != 0.8 {
		t.Errorf("Availability(7) = %v, want 0.8", got)
	}
}

func TestManualPolicy_MissingFileFatal(t *testing.T) {
	_, err := newManualPolicy(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("newManualPolicy error = %v, want ErrMissingArtifact", err)
	}
}

func TestManualPolicy_BadRowRejectedBeforeUse(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "breakpoints.csv")
	writeFile(t, csvPath, "min,max,availability\n0,two,0.5\n")
	if _, err := newManualPolicy(csvPath); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("newManualPolicy error = %v, want ErrInvalidConfig", err)
	}
}

func betaConfig(method string) *RunConfig {
	return &RunConfig{
		Alpha:      2,
		Beta:       5,
		LowerBound: 1,
		UpperBound: 4,
		BetaMethod: method,
	}
}

func TestBetaPolicy_LowerCumulativeMonotonicWithBoundaries(t *testing.T) {
	p, err := newBetaPolicy(betaConfig("lower cumulative"))
	if err != nil {
		t.Fatalf("newBetaPolicy: %v", err)
	}

	if got := p.Availability(0.5); got != 0 {
		t.Errorf("below support: Availability = %v, want 0", got)
	}
	if got := p.Availability(4.5); got != 1 {
		t.Errorf("above support: Availability = %v, want 1", got)
	}

	// Non-decreasing across the support.
	prev := -1.0
	for residual := 1.0; residual <= 4.0; residual += 0.1 {
		got := p.Availability(residual)
		if got < prev-1e-12 {
			t.Fatalf("Availability(%v) = %v decreased from %v", residual, got, prev)
		}
		if got < 0 || got > 1 {
			t.Fatalf("Availability(%v) = %v outside [0,1]", residual, got)
		}
		prev = got
	}
}

func TestBetaPolicy_UpperCumulativeMonotonicWithBoundaries(t *testing.T) {
	p, err := newBetaPolicy(betaConfig("upper cumulative"))
	if err != nil {
		t.Fatalf("newBetaPolicy: %v", err)
	}

	if got := p.Availability(0.5); got != 1 {
		t.Errorf("below support: Availability = %v, want 1", got)
	}
	if got := p.Availability(4.5); got != 0 {
		t.Errorf("above support: Availability = %v, want 0", got)
	}

	// Non-increasing across the support.
	prev := 2.0
	for residual := 1.0; residual <= 4.0; residual += 0.1 {
		got := p.Availability(residual)
		if got > prev+1e-12 {
			t.Fatalf("Availability(%v) = %v increased from %v", residual, got, prev)
		}
		prev = got
	}
}

func TestBetaPolicy_UnknownMethodRejected(t *testing.T) {
	if _, err := newBetaPolicy(betaConfig("sideways cumulative")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("newBetaPolicy error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewPolicy_UnknownNameRejectedBeforeIO(t *testing.T) {
	cfg := &RunConfig{LinkAvailabilityApproach: "percentile_function"}
	if _, err := NewPolicy(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("NewPolicy error = %v, want ErrInvalidConfig", err)
	}
}
