// Package mempool manages the contiguous block regions backing process
// stacks and heaps, including the grow-in-place expansion path. Expansion
// can fail whenever the space past the region is already spoken for; that
// is a policy outcome the caller handles, not an error.
package mempool

import "github.com/behrlich/go-actly/internal/constants"

// Region is a contiguous run of fixed-size blocks with a bump allocator on
// top. reserved is the hard ceiling the region may grow to; the backing
// beyond blocks*blockSize models address space that an expansion claims.
type Region struct {
	buf       []byte
	blockSize uint64
	blocks    uint64
	reserved  uint64
	next      uint64
}

// NewRegion creates a region of blocks*blockSize bytes that may expand up
// to maxBlocks. Returns nil on zero sizes or blocks > maxBlocks.
func NewRegion(blocks, blockSize, maxBlocks uint64) *Region {
	if blocks == 0 || blockSize == 0 || maxBlocks < blocks {
		return nil
	}
	return &Region{
		buf:       make([]byte, maxBlocks*blockSize),
		blockSize: blockSize,
		blocks:    blocks,
		reserved:  maxBlocks,
	}
}

// Size returns the usable region size in bytes.
func (r *Region) Size() uint64 {
	if r == nil {
		return 0
	}
	return r.blocks * r.blockSize
}

// Blocks returns the current block count.
func (r *Region) Blocks() uint64 {
	if r == nil {
		return 0
	}
	return r.blocks
}

// AllocBlock bump-allocates one block and returns its byte offset. The
// second result is false when the region is exhausted.
func (r *Region) AllocBlock() (uint64, bool) {
	if r == nil || r.next >= r.blocks {
		return 0, false
	}
	off := r.next * r.blockSize
	r.next++
	return off, true
}

// Reset rewinds the bump pointer, recycling every block at once.
func (r *Region) Reset() {
	if r != nil {
		r.next = 0
	}
}

// Bytes returns the backing store for the block at offset off.
func (r *Region) Bytes(off uint64) []byte {
	if r == nil || off+r.blockSize > r.Size() {
		return nil
	}
	return r.buf[off : off+r.blockSize]
}

// Expand grows the region by expansionBlocks contiguous blocks. It returns
// false without mutating the region when the arguments are invalid
// (nil region, zero block or expansion size, expansion beyond
// MaxExpansionBlocks) or when the address space past the region is not
// available for contiguous growth.
func (r *Region) Expand(expansionBlocks uint64) bool {
	if r == nil || r.blockSize == 0 || expansionBlocks == 0 {
		return false
	}
	if expansionBlocks > constants.MaxExpansionBlocks {
		return false
	}
	if r.blocks+expansionBlocks > r.reserved {
		// Non-contiguous: the space past the region is taken.
		return false
	}
	r.blocks += expansionBlocks
	return true
}
