package cache

import (
	"fmt"
	"math/bits"
)

// An AddressDecoder splits a 64-bit address into the tag, the set index, and
// the offset within the block.
//
// Both the number of sets and the block size must be powers of two, so that
// every field is a contiguous run of address bits.
type AddressDecoder struct {
	offsetBits uint
	setBits    uint
	setMask    uint64
	offsetMask uint64
}

// NewAddressDecoder creates an AddressDecoder for a cache with numSets sets
// of blockSize-byte blocks. It panics if either value is not a power of two.
func NewAddressDecoder(numSets, blockSize int) AddressDecoder {
	mustBePowerOfTwo("number of sets", numSets)
	mustBePowerOfTwo("block size", blockSize)

	return AddressDecoder{
		offsetBits: log2(blockSize),
		setBits:    log2(numSets),
		setMask:    uint64(numSets - 1),
		offsetMask: uint64(blockSize - 1),
	}
}

// Decode returns the tag, the set index and the block offset of addr.
func (d AddressDecoder) Decode(addr uint64) (tag uint64, setID int, offset uint64) {
	offset = addr & d.offsetMask
	setID = int((addr >> d.offsetBits) & d.setMask)
	tag = addr >> (d.offsetBits + d.setBits)

	return tag, setID, offset
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) uint {
	return uint(bits.TrailingZeros64(uint64(n)))
}

func mustBePowerOfTwo(what string, n int) {
	if !IsPowerOfTwo(n) {
		panic(fmt.Sprintf("%s must be a power of 2, got %d", what, n))
	}
}
