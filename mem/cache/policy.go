package cache

import (
	"errors"
	"fmt"
)

// Names of the supported replacement policies.
const (
	PolicyFIFO = "FIFO"
	PolicyLRU  = "LRU"
)

// ErrUnknownPolicy is returned when a replacement policy name is not
// recognized.
var ErrUnknownPolicy = errors.New("p must be either LRU or FIFO")

// A ReplacementPolicy decides which block of a set is evicted and how the
// replacement order reacts to hits and fills.
//
// FIFO and LRU share the Order field of the blocks. Both evict the block with
// the lowest order and both promote a block when it is filled. The only
// difference is Visit: LRU promotes a block on every hit, FIFO never does.
type ReplacementPolicy interface {
	// Name returns the name of the policy, as accepted by NewPolicy.
	Name() string

	// FindVictim returns the block to be replaced on a miss.
	FindVictim(set *Set) *Block

	// Visit updates the replacement order after a hit on block.
	Visit(set *Set, block *Block)

	// Fill updates the replacement order after block receives a new tag.
	Fill(set *Set, block *Block)
}

// NewPolicy returns the replacement policy with the given name.
func NewPolicy(name string) (ReplacementPolicy, error) {
	switch name {
	case PolicyFIFO:
		return NewFIFOPolicy(), nil
	case PolicyLRU:
		return NewLRUPolicy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

type orderVictimFinder struct{}

func (orderVictimFinder) FindVictim(set *Set) *Block {
	return set.Oldest()
}

func (orderVictimFinder) Fill(set *Set, block *Block) {
	set.Promote(block)
}

// FIFOPolicy evicts the block that was filled earliest.
type FIFOPolicy struct {
	orderVictimFinder
}

// NewFIFOPolicy returns a FIFO replacement policy.
func NewFIFOPolicy() *FIFOPolicy {
	return &FIFOPolicy{}
}

// Name returns "FIFO".
func (p *FIFOPolicy) Name() string {
	return PolicyFIFO
}

// Visit does nothing. The position of a block in the insertion queue depends
// only on when it was filled.
func (p *FIFOPolicy) Visit(_ *Set, _ *Block) {
}

// LRUPolicy evicts the least recently used block.
type LRUPolicy struct {
	orderVictimFinder
}

// NewLRUPolicy returns a LRU replacement policy.
func NewLRUPolicy() *LRUPolicy {
	return &LRUPolicy{}
}

// Name returns "LRU".
func (p *LRUPolicy) Name() string {
	return PolicyLRU
}

// Visit makes the hit block the most recently used one.
func (p *LRUPolicy) Visit(set *Set, block *Block) {
	set.Promote(block)
}
