// Package heap implements the per-process byte-addressable memory that MiniC
// pointers refer to. Every process owns exactly one Heap; nothing is shared.
package heap

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
)

const DefaultCapacity = 1 << 20

// allocBase keeps address 0 out of circulation. A valid allocation must test
// truthy and compare unequal to the null pointer.
const allocBase = 8

var (
	ErrOutOfRange = errors.New("heap access out of range")
	ErrDoubleFree = errors.New("free of address that is not allocated")
	ErrExhausted  = errors.New("heap exhausted")
)

type block struct {
	addr, size int32
}

// Heap is a fixed-capacity buffer with a first-fit free list and a growing
// break pointer. Freed blocks are reused but never coalesced.
type Heap struct {
	mu sync.Mutex

	mem    []byte
	brk    int32
	allocs map[int32]int32
	free   []block
}

func New(capacity int32) *Heap {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Heap{
		mem:    make([]byte, capacity),
		brk:    allocBase,
		allocs: make(map[int32]int32),
	}
}

// Allocate returns the address of a fresh region of at least size bytes.
func (h *Heap) Allocate(size int32) (int32, error) {
	if size <= 0 {
		size = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for i, b := range h.free {
		if b.size >= size {
			h.free = append(h.free[:i], h.free[i+1:]...)
			h.allocs[b.addr] = b.size
			return b.addr, nil
		}
	}

	if h.brk+size > int32(len(h.mem)) {
		return 0, errors.Wrapf(ErrExhausted, "allocating %d bytes", size)
	}

	addr := h.brk
	h.brk += size
	h.allocs[addr] = size

	// Fresh allocations start zeroed; reused blocks were zeroed on free.
	return addr, nil
}

// Free releases an allocation for reuse. Freeing an address that is not live
// is a double-free error.
func (h *Heap) Free(addr int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	size, ok := h.allocs[addr]
	if !ok {
		return errors.Wrapf(ErrDoubleFree, "address 0x%x", addr)
	}

	delete(h.allocs, addr)

	for i := addr; i < addr+size; i++ {
		h.mem[i] = 0
	}

	h.free = append(h.free, block{addr: addr, size: size})
	return nil
}

// project validates that [addr, addr+size) lies entirely inside one live
// allocation and returns the backing bytes.
func (h *Heap) project(addr, size int32) ([]byte, error) {
	if addr >= 0 && size >= 0 {
		for base, asize := range h.allocs {
			if addr >= base && addr+size <= base+asize {
				return h.mem[addr : addr+size], nil
			}
		}
	}

	return nil, errors.Wrapf(ErrOutOfRange, "[0x%x, 0x%x)", addr, addr+size)
}

func (h *Heap) ReadByte(addr int32) (byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (h *Heap) WriteByte(addr int32, v byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, 1)
	if err != nil {
		return err
	}

	b[0] = v
	return nil
}

func (h *Heap) ReadInt32(addr int32) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, 4)
	if err != nil {
		return 0, err
	}

	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (h *Heap) WriteInt32(addr int32, v int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, 4)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}

func (h *Heap) ReadBytes(addr, size int32) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, size)
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

func (h *Heap) WriteBytes(addr int32, p []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, int32(len(p)))
	if err != nil {
		return err
	}

	copy(b, p)
	return nil
}

func (h *Heap) Copy(dst, src, size int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.project(src, size)
	if err != nil {
		return err
	}

	d, err := h.project(dst, size)
	if err != nil {
		return err
	}

	copy(d, s)
	return nil
}

func (h *Heap) SetBytes(addr int32, value byte, size int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, size)
	if err != nil {
		return err
	}

	for i := range b {
		b[i] = value
	}

	return nil
}

// StoreString allocates len(s)+1 bytes and writes s NUL-terminated.
func (h *Heap) StoreString(s string) (int32, error) {
	addr, err := h.Allocate(int32(len(s)) + 1)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.project(addr, int32(len(s))+1)
	if err != nil {
		return 0, err
	}

	copy(b, s)
	b[len(s)] = 0
	return addr, nil
}

// ReadString reads a NUL-terminated string starting at addr. The terminator
// must lie within the same live allocation.
func (h *Heap) ReadString(addr int32) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if addr >= 0 {
		for base, asize := range h.allocs {
			if addr >= base && addr < base+asize {
				region := h.mem[addr : base+asize]
				for i, c := range region {
					if c == 0 {
						return string(region[:i]), nil
					}
				}
				// Unterminated: the whole remainder of the allocation.
				return string(region), nil
			}
		}
	}

	return "", errors.Wrapf(ErrOutOfRange, "string at 0x%x", addr)
}

// InUse reports the number of live allocated bytes.
func (h *Heap) InUse() int32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var total int32
	for _, size := range h.allocs {
		total += size
	}

	return total
}

// Capacity reports the fixed buffer size.
func (h *Heap) Capacity() int32 {
	return int32(len(h.mem))
}
