// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y0, y1, y2, y3 float64
		x, want, tol   float64
	}{
		{"linear quarter", 1, 2, 3, 4, 0.25, 2.25, 1e-9},
		{"linear middle", 0, 1, 2, 3, 0.5, 1.5, 1e-9},
		{"silence", 0, 0, 0, 0, 0.7, 0, 0},
		{"symmetric crossing", -1, -0.5, 0.5, 1, 0.5, 0, 1e-9},
		{"peak overshoots neighbours", 0, 1, 1, 0, 0.5, 1.125, 1e-9},
		{"s16 full scale step", -32767, -32767, 32767, 32767, 0.5, 0, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("CubicInterpolate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The curve passes through the two inner samples and is exact for lines.
func TestCubicInterpolate_Properties(t *testing.T) {
	t.Parallel()

	sample := rapid.Float64Range(-1<<23, 1<<23)

	rapid.Check(t, func(t *rapid.T) {
		y0, y1 := sample.Draw(t, "y0"), sample.Draw(t, "y1")
		y2, y3 := sample.Draw(t, "y2"), sample.Draw(t, "y3")

		if got := CubicInterpolate(y0, y1, y2, y3, 0); got != y1 {
			t.Fatalf("x=0: got %v, want %v", got, y1)
		}
		if got := CubicInterpolate(y0, y1, y2, y3, 1); math.Abs(got-y2) > 1e-6*math.Max(1, math.Abs(y2)) {
			t.Fatalf("x=1: got %v, want %v", got, y2)
		}

		slope := rapid.Float64Range(-1000, 1000).Draw(t, "slope")
		x := rapid.Float64Range(0, 1).Draw(t, "x")
		want := y0 + slope*(1+x)
		got := CubicInterpolate(y0, y0+slope, y0+2*slope, y0+3*slope, x)
		if math.Abs(got-want) > 1e-6*math.Max(1, math.Abs(want)) {
			t.Fatalf("line: got %v, want %v", got, want)
		}
	})
}

func TestCubicInterpolate_Float32(t *testing.T) {
	t.Parallel()

	if got := CubicInterpolate[float32](0.1, 0.5, 0.3, -0.2, 0); got != 0.5 {
		t.Errorf("CubicInterpolate(x=0) = %v, want 0.5", got)
	}
}

func TestCubicInterpolate_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	allocs := testing.AllocsPerRun(1000, func() {
		_ = CubicInterpolate(0.5, 1.0, 0.8, 0.3, 0.5)
	})
	if allocs > 0 {
		t.Errorf("CubicInterpolate allocated %v times, want 0", allocs)
	}
}

func BenchmarkCubicInterpolate(b *testing.B) {
	out := make([]float64, 8000)

	b.ReportAllocs()
	for range b.N {
		for j := range out {
			out[j] = CubicInterpolate(0.1, 0.5, 0.3, -0.2, float64(j%100)/100)
		}
	}
}
