// SPDX-License-Identifier: EPL-2.0

package dma

// Region is a DMA-capable memory area. Addr is what descriptors carry, Buf is
// the CPU view of the same bytes.
type Region struct {
	Addr uint64
	Buf  []byte
}

// Len returns the region size in bytes.
func (r Region) Len() int { return len(r.Buf) }

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr uint64, n int) bool {
	if n < 0 || addr < r.Addr {
		return false
	}
	return addr-r.Addr+uint64(n) <= uint64(len(r.Buf))
}

// Slice returns the CPU view of [addr, addr+n), or nil when it is out of range.
func (r Region) Slice(addr uint64, n int) []byte {
	if !r.Contains(addr, n) {
		return nil
	}
	off := addr - r.Addr
	return r.Buf[off : off+uint64(n)]
}

// Allocator hands out and takes back regions.
type Allocator interface {
	Allocate(size int) (Region, error)
	Free(r Region) error
}
