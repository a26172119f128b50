// SPDX-License-Identifier: EPL-2.0

package dma

import "testing"

func TestRegion_Contains(t *testing.T) {
	t.Parallel()

	r := Region{Addr: 0x1000, Buf: make([]byte, 256)}

	tests := []struct {
		name string
		addr uint64
		n    int
		want bool
	}{
		{"whole region", 0x1000, 256, true},
		{"empty at start", 0x1000, 0, true},
		{"tail", 0x10f0, 16, true},
		{"past end", 0x10f0, 17, false},
		{"before start", 0x0fff, 1, false},
		{"negative length", 0x1000, -1, false},
		{"far away", 0x9000, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := r.Contains(tt.addr, tt.n); got != tt.want {
				t.Errorf("Contains(%#x, %d) = %v, want %v", tt.addr, tt.n, got, tt.want)
			}
		})
	}
}

func TestRegion_Slice(t *testing.T) {
	t.Parallel()

	r := Region{Addr: 0x1000, Buf: make([]byte, 64)}
	for i := range r.Buf {
		r.Buf[i] = byte(i)
	}

	b := r.Slice(0x1010, 4)
	if len(b) != 4 || b[0] != 0x10 || b[3] != 0x13 {
		t.Fatalf("Slice(0x1010, 4) = %v", b)
	}
	b[0] = 0xff
	if r.Buf[0x10] != 0xff {
		t.Error("Slice() should share memory with the region")
	}

	if b := r.Slice(0x1040, 1); b != nil {
		t.Errorf("Slice() past end = %v, want nil", b)
	}
	if r.Len() != 64 {
		t.Errorf("Len() = %d, want 64", r.Len())
	}
}

func TestStringers(t *testing.T) {
	t.Parallel()

	if MemToDev.String() != "mem-to-dev" || DevToMem.String() != "dev-to-mem" {
		t.Error("unexpected Direction names")
	}
	if CmdFlush.String() != "flush" || Command(9).String() != "unknown" {
		t.Error("unexpected Command names")
	}
	if ResultAbort.String() != "abort" || Result(9).String() != "unknown" {
		t.Error("unexpected Result names")
	}
}
