package floats_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"example.com/fuzzy-inference/base/floats"
)

func TestLinspace(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
		n      int
		want   []float64
	}{
		{
			name: "Zero points",
			lo:   0, hi: 1, n: 0,
			want: []float64{},
		},
		{
			name: "Single point",
			lo:   3, hi: 7, n: 1,
			want: []float64{3},
		},
		{
			name: "Two points",
			lo:   -1, hi: 1, n: 2,
			want: []float64{-1, 1},
		},
		{
			name: "Unit steps",
			lo:   0, hi: 6, n: 7,
			want: []float64{0, 1, 2, 3, 4, 5, 6},
		},
		{
			name: "Fractional steps",
			lo:   0, hi: 1, n: 5,
			want: []float64{0, 0.25, 0.5, 0.75, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := floats.Linspace(tt.lo, tt.hi, tt.n)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("Linspace(%v, %v, %v) mismatch (-want +got):\n%s", tt.lo, tt.hi, tt.n, diff)
			}
		})
	}
}

func TestLinspaceEndpointExact(t *testing.T) {
	fs := floats.Linspace(0.1, 0.7, 1000)
	if fs[len(fs)-1] != 0.7 {
		t.Errorf("last value: got %v, want 0.7", fs[len(fs)-1])
	}
}

func TestInterp(t *testing.T) {
	xp := []float64{0, 1, 2, 4}
	fp := []float64{0, 10, 20, 0}
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "Below range", x: -5, want: 0},
		{name: "First knot", x: 0, want: 0},
		{name: "Between knots", x: 0.5, want: 5},
		{name: "Interior knot", x: 2, want: 20},
		{name: "Falling segment", x: 3, want: 10},
		{name: "Last knot", x: 4, want: 0},
		{name: "Above range", x: 9, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := floats.Interp(tt.x, xp, fp)
			if got != tt.want {
				t.Errorf("Interp(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}

	t.Run("Mismatched lengths", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic, got none")
			}
		}()
		_ = floats.Interp(1, xp, fp[:2])
	})
}

func TestInterpAll(t *testing.T) {
	xp := []float64{0, 1, 2}
	fp := []float64{0, 1, 0}
	got := floats.InterpAll([]float64{-1, 0.25, 1, 1.5, 3}, xp, fp)
	want := []float64{0, 0.25, 1, 0.5, 0}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("InterpAll mismatch (-want +got):\n%s", diff)
	}

	got = floats.InterpAll([]float64{-1, 5}, []float64{2}, []float64{0.5})
	if diff := cmp.Diff([]float64{0.5, 0.5}, got); diff != "" {
		t.Errorf("InterpAll with one knot mismatch (-want +got):\n%s", diff)
	}

	for _, tt := range []struct {
		name   string
		xp, fp []float64
	}{
		{name: "No knots"},
		{name: "Unordered knots", xp: []float64{0, 2, 1}, fp: []float64{0, 1, 2}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("expected panic, got none")
				}
			}()
			_ = floats.InterpAll([]float64{1}, tt.xp, tt.fp)
		})
	}
}
