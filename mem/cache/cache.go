// Package cache models a set-associative cache that tracks which memory
// blocks are resident. It counts hits, misses and evictions; it does not hold
// any data.
package cache

import (
	"github.com/sarchlab/csim/sim"
)

// HookPosAccess is the hook position triggered after every cache access. The
// hook item is an AccessEvent.
var HookPosAccess = &sim.HookPos{Name: "CacheAccess"}

// AccessResult is the outcome of a single cache access.
type AccessResult int

// All possible access results.
const (
	Hit AccessResult = iota
	Miss
	MissWithEviction
)

// String returns the words used in verbose traces.
func (r AccessResult) String() string {
	switch r {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case MissWithEviction:
		return "miss eviction"
	default:
		return "unknown"
	}
}

// IsHit reports whether the block was resident.
func (r AccessResult) IsHit() bool {
	return r == Hit
}

// Evicted reports whether a valid block was displaced.
func (r AccessResult) Evicted() bool {
	return r == MissWithEviction
}

// AccessEvent describes one cache access to hooks.
type AccessEvent struct {
	Address uint64
	Tag     uint64
	SetID   int
	WayID   int
	Result  AccessResult

	// EvictedTag is the tag that was displaced. It is only meaningful when
	// Result is MissWithEviction.
	EvictedTag uint64
}

// Statistics holds the running totals of a cache.
type Statistics struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Accesses returns the number of accesses.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// A Cache is a set-associative cache with a pluggable replacement policy.
//
// A Cache is not safe for concurrent use.
type Cache struct {
	*sim.HookableBase

	name   string
	tags   *TagArray
	policy ReplacementPolicy
	stats  Statistics
}

// Name returns the name of the cache.
func (c *Cache) Name() string {
	return c.name
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return c.tags.NumSets
}

// NumWays returns the associativity.
func (c *Cache) NumWays() int {
	return c.tags.NumWays
}

// BlockSize returns the number of bytes per block.
func (c *Cache) BlockSize() int {
	return c.tags.BlockSize
}

// Policy returns the replacement policy.
func (c *Cache) Policy() ReplacementPolicy {
	return c.policy
}

// Sets returns the sets of the cache. Callers must not modify them.
func (c *Cache) Sets() []Set {
	return c.tags.Sets
}

// Stats returns the totals accumulated since the cache was built or last
// reset.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Reset invalidates every block and clears all counters.
func (c *Cache) Reset() {
	c.tags.Reset()
	c.stats = Statistics{}
}

// Access looks up the block that contains addr, installing it on a miss.
func (c *Cache) Access(addr uint64) AccessResult {
	set, tag := c.tags.GetSet(addr)

	if block, found := set.Lookup(tag); found {
		c.stats.Hits++
		set.Hits++
		c.policy.Visit(set, block)
		c.invokeAccessHook(addr, block, Hit, 0)

		return Hit
	}

	c.stats.Misses++
	set.Misses++

	victim := c.policy.FindVictim(set)
	c.policy.Fill(set, victim)

	result := Miss
	evictedTag := victim.Tag

	if victim.IsValid {
		c.stats.Evictions++
		set.Evictions++
		result = MissWithEviction
	}

	victim.Tag = tag
	victim.IsValid = true

	c.invokeAccessHook(addr, victim, result, evictedTag)

	return result
}

func (c *Cache) invokeAccessHook(
	addr uint64,
	block *Block,
	result AccessResult,
	evictedTag uint64,
) {
	if c.NumHooks() == 0 {
		return
	}

	event := AccessEvent{
		Address: addr,
		Tag:     block.Tag,
		SetID:   block.SetID,
		WayID:   block.WayID,
		Result:  result,
	}

	if result == MissWithEviction {
		event.EvictedTag = evictedTag
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosAccess,
		Item:   event,
	})
}
