// SPDX-License-Identifier: EPL-2.0

package sim

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ik5/pcmring/dma"
)

// Memory is a dma.Allocator backed by ordinary byte slices. Every region gets
// a distinct, aligned bus address so descriptors can be resolved back to
// bytes.
type Memory struct {
	mu      sync.Mutex
	next    uint64
	align   uint64
	limit   int
	used    int
	regions []dma.Region // sorted by Addr
}

// NewMemory hands out addresses starting at base. limit caps the total bytes
// outstanding; zero means unlimited.
func NewMemory(base uint64, limit int) *Memory {
	return &Memory{next: base, align: 4096, limit: limit}
}

func (m *Memory) Allocate(size int) (dma.Region, error) {
	if size <= 0 {
		return dma.Region{}, fmt.Errorf("sim: allocate %d bytes: %w", size, dma.ErrOutOfMemory)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit > 0 && m.used+size > m.limit {
		return dma.Region{}, fmt.Errorf("sim: allocate %d bytes, %d of %d used: %w", size, m.used, m.limit, dma.ErrOutOfMemory)
	}

	r := dma.Region{Addr: m.next, Buf: make([]byte, size)}
	m.next += (uint64(size) + m.align - 1) / m.align * m.align
	m.used += size
	m.regions = append(m.regions, r)
	return r, nil
}

func (m *Memory) Free(r dma.Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, have := range m.regions {
		if have.Addr == r.Addr {
			m.used -= have.Len()
			m.regions = append(m.regions[:i], m.regions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("sim: free %#x: %w", r.Addr, dma.ErrBadAddress)
}

// Resolve returns the bytes behind [addr, addr+n).
func (m *Memory) Resolve(addr uint64, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].Addr > addr })
	if i > 0 {
		if b := m.regions[i-1].Slice(addr, n); b != nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("sim: resolve %#x+%d: %w", addr, n, dma.ErrBadAddress)
}

// Used is the number of bytes currently allocated.
func (m *Memory) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
