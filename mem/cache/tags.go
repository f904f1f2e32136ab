package cache

// A Block of a cache is the information that is associated with a cache line.
// Data is not modeled; only the identity of the resident memory block is.
type Block struct {
	SetID   int
	WayID   int
	Tag     uint64
	IsValid bool

	// Order ranks the block for replacement. A higher value means the block
	// was placed (FIFO) or touched (LRU) more recently. The block with the
	// lowest value is the next victim.
	Order int
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []Block

	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Accesses returns the number of accesses that mapped to the set.
func (s *Set) Accesses() uint64 {
	return s.Hits + s.Misses
}

// Lookup returns the valid block holding tag, if any.
func (s *Set) Lookup(tag uint64) (*Block, bool) {
	for i := range s.Blocks {
		block := &s.Blocks[i]
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return nil, false
}

// Promote makes block the most recent member of the set. Every block ages by
// one and the promoted block takes the highest order, the associativity.
func (s *Set) Promote(block *Block) {
	for i := range s.Blocks {
		s.Blocks[i].Order--
	}

	block.Order = len(s.Blocks)
}

// Oldest returns the block with the lowest order. Ties go to the block with
// the lowest way ID.
func (s *Set) Oldest() *Block {
	oldest := &s.Blocks[0]
	for i := 1; i < len(s.Blocks); i++ {
		if s.Blocks[i].Order < oldest.Order {
			oldest = &s.Blocks[i]
		}
	}

	return oldest
}

// A TagArray holds the sets of a cache and knows which set an address maps to.
type TagArray struct {
	NumSets   int
	NumWays   int
	BlockSize int
	Sets      []Set

	decoder AddressDecoder
}

// NewTagArray creates a TagArray with every block invalid.
func NewTagArray(numSets, numWays, blockSize int) *TagArray {
	t := &TagArray{
		NumSets:   numSets,
		NumWays:   numWays,
		BlockSize: blockSize,
		decoder:   NewAddressDecoder(numSets, blockSize),
	}

	t.Reset()

	return t
}

// TotalSize returns the maximum number of bytes can be stored in the cache
func (t *TagArray) TotalSize() uint64 {
	return uint64(t.NumSets) * uint64(t.NumWays) * uint64(t.BlockSize)
}

// GetSet returns the set that addr maps to, together with the tag of addr.
func (t *TagArray) GetSet(addr uint64) (set *Set, tag uint64) {
	tag, setID, _ := t.decoder.Decode(addr)

	return &t.Sets[setID], tag
}

// Lookup finds the valid block that holds addr.
func (t *TagArray) Lookup(addr uint64) (*Block, bool) {
	set, tag := t.GetSet(addr)

	return set.Lookup(tag)
}

// Reset will mark all the blocks in the directory invalid and clear the
// per-set counters.
func (t *TagArray) Reset() {
	t.Sets = make([]Set, t.NumSets)
	for i := 0; i < t.NumSets; i++ {
		t.Sets[i].Blocks = make([]Block, t.NumWays)
		for j := 0; j < t.NumWays; j++ {
			t.Sets[i].Blocks[j] = Block{
				SetID: i,
				WayID: j,
			}
		}
	}
}
