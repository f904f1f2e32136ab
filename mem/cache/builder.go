package cache

import (
	"fmt"

	"github.com/sarchlab/csim/sim"
)

// Builder can build caches.
type Builder struct {
	numSets          int
	wayAssociativity int
	blockSize        int
	policy           ReplacementPolicy
}

// MakeBuilder creates a new builder with a 16-set, direct-mapped, 16-byte
// block LRU cache as the default.
func MakeBuilder() Builder {
	return Builder{
		numSets:          16,
		wayAssociativity: 1,
		blockSize:        16,
	}
}

// WithNumSets sets the number of sets. It must be a power of two.
func (b Builder) WithNumSets(numSets int) Builder {
	b.numSets = numSets
	return b
}

// WithWayAssociativity sets the number of blocks per set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithBlockSize sets the number of bytes per block. It must be a power of
// two.
func (b Builder) WithBlockSize(blockSize int) Builder {
	b.blockSize = blockSize
	return b
}

// WithPolicy sets the replacement policy.
func (b Builder) WithPolicy(policy ReplacementPolicy) Builder {
	b.policy = policy
	return b
}

// Build builds a cache. It panics if the geometry or the name is invalid.
func (b Builder) Build(name string) *Cache {
	sim.NameMustBeValid(name)
	b.mustBeValid()

	policy := b.policy
	if policy == nil {
		policy = NewLRUPolicy()
	}

	return &Cache{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		tags:         NewTagArray(b.numSets, b.wayAssociativity, b.blockSize),
		policy:       policy,
	}
}

func (b Builder) mustBeValid() {
	mustBePowerOfTwo("number of sets", b.numSets)
	mustBePowerOfTwo("block size", b.blockSize)

	if b.wayAssociativity <= 0 {
		panic(fmt.Sprintf(
			"way associativity must be positive, got %d", b.wayAssociativity))
	}
}
