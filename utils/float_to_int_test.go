// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestFloatToInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bits int
		in   float32
		want int
	}{
		{"zero", 16, 0, 0},
		{"full positive", 16, 1, math.MaxInt16},
		{"full negative", 16, -1, -math.MaxInt16},
		{"half", 16, 0.5, 16383},
		{"small negative", 16, -0.001, -32},
		{"clamp high", 16, 1.5, math.MaxInt16},
		{"clamp low", 16, -100, -math.MaxInt16},
		{"20 bit", 20, 1, 1<<19 - 1},
		{"24 bit negative", 24, -1, -(1<<23 - 1)},
		{"24 bit half", 24, 0.5, 1<<22 - 1},
		{"32 bit", 32, 1, math.MaxInt32},
		{"32 bit clamp", 32, 2, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FloatToInt(tt.in, tt.bits)
			if diff := got - tt.want; diff > 1 || diff < -1 {
				t.Errorf("FloatToInt(%v, %d) = %d, want %d", tt.in, tt.bits, got, tt.want)
			}
		})
	}
}

func TestFloatToInt_Properties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SampledFrom([]int{8, 16, 24, 32}).Draw(t, "bits")
		a := rapid.Float32Range(-2, 2).Draw(t, "a")
		b := rapid.Float32Range(-2, 2).Draw(t, "b")
		full := int(int64(1)<<(bits-1) - 1)

		got := FloatToInt(a, bits)
		if got > full || got < -full {
			t.Fatalf("FloatToInt(%v, %d) = %d outside ±%d", a, bits, got, full)
		}
		if neg := FloatToInt(-a, bits); got+neg != 0 {
			t.Fatalf("not symmetric: %d and %d", got, neg)
		}
		if a <= b && got > FloatToInt(b, bits) {
			t.Fatalf("not monotonic at %v <= %v", a, b)
		}
	})
}

func TestFloatToInt_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	buf := make([]float32, 1024)
	out := make([]int, 1024)

	allocs := testing.AllocsPerRun(100, func() {
		for i := range buf {
			out[i] = FloatToInt(buf[i], 16)
		}
	})
	if allocs > 0 {
		t.Errorf("FloatToInt allocated %v times, want 0", allocs)
	}
}

func BenchmarkFloatToInt(b *testing.B) {
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.1))
	}

	b.ReportAllocs()
	for range b.N {
		for _, s := range samples {
			_ = FloatToInt(s, 24)
		}
	}
}
