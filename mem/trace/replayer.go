package trace

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/sim"
)

// Hook positions of a Replayer. The hook item is the Record. At
// HookPosRecordEnd, the detail is the RecordOutcome of the record.
var (
	HookPosRecordStart = &sim.HookPos{Name: "RecordStart"}
	HookPosRecordEnd   = &sim.HookPos{Name: "RecordEnd"}
)

// An Accessor is a cache that can be accessed one line at a time.
type Accessor interface {
	Access(addr uint64) cache.AccessResult
}

// A Replayer turns trace records into cache line accesses.
type Replayer struct {
	*sim.HookableBase

	lock       sync.Mutex
	cache      Accessor
	blockSize  uint64
	numRecords uint64
}

// NewReplayer creates a Replayer that drives c, whose blocks are blockSize
// bytes long.
func NewReplayer(c Accessor, blockSize int) *Replayer {
	if !cache.IsPowerOfTwo(blockSize) {
		panic(fmt.Sprintf("block size must be a power of 2, got %d", blockSize))
	}

	return &Replayer{
		HookableBase: sim.NewHookableBase(),
		cache:        c,
		blockSize:    uint64(blockSize),
	}
}

// Guard returns the lock held while a record is being replayed. Holding it
// keeps the cache state stable for readers on other goroutines.
func (r *Replayer) Guard() sync.Locker {
	return &r.lock
}

// NumRecords returns the number of records replayed so far.
func (r *Replayer) NumRecords() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.numRecords
}

// Replay replays every record of src in order.
func (r *Replayer) Replay(src Source) error {
	for {
		record, err := src.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading trace: %w", err)
		}

		r.lock.Lock()
		r.ReplayRecord(record)
		r.numRecords++
		r.lock.Unlock()
	}
}

// A RecordOutcome summarizes the accesses of one record.
type RecordOutcome struct {
	Accesses  uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (o *RecordOutcome) add(result cache.AccessResult) {
	o.Accesses++

	switch result {
	case cache.Hit:
		o.Hits++
	case cache.Miss:
		o.Misses++
	case cache.MissWithEviction:
		o.Misses++
		o.Evictions++
	}
}

// ReplayRecord performs the line accesses of one record and returns their
// totals. Records of unknown kinds are ignored and have zero accesses.
//
// Loads and stores access the line of the record address, then every block
// boundary inside [Address, Address+Length), in address order. A modify is a
// load followed by a store, so each of those lines is accessed twice in a
// row. Lines are accessed as they are found, so memory use does not depend on
// the length of the record.
func (r *Replayer) ReplayRecord(record Record) RecordOutcome {
	var outcome RecordOutcome

	repeat := 1

	switch record.Kind {
	case Load, Store:
	case Modify:
		repeat = 2
	default:
		return outcome
	}

	r.invokeHook(HookPosRecordStart, record, nil)

	access := func(addr uint64) {
		for i := 0; i < repeat; i++ {
			outcome.add(r.cache.Access(addr))
		}
	}

	access(record.Address)

	if record.Length > 1 {
		last := record.Address + record.Length - 1
		if last < record.Address {
			last = ^uint64(0)
		}

		next := (record.Address | (r.blockSize - 1)) + 1
		for m := next; m != 0 && m <= last; m += r.blockSize {
			access(m)
		}
	}

	r.invokeHook(HookPosRecordEnd, record, outcome)

	return outcome
}

func (r *Replayer) invokeHook(
	pos *sim.HookPos,
	record Record,
	detail interface{},
) {
	if r.NumHooks() == 0 {
		return
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    pos,
		Item:   record,
		Detail: detail,
	})
}
