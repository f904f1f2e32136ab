// Package tracing provides hooks that observe a trace replay.
package tracing

import (
	"fmt"

	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim"
)

// Table names used by the DBTracer.
const (
	RecordTable = "trace_records"
	AccessTable = "cache_accesses"
)

type recordTableEntry struct {
	ID        string
	Op        string
	Address   string
	Length    uint64
	Accesses  uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type accessTableEntry struct {
	ID         string
	RecordID   string
	Address    string
	SetID      int
	WayID      int
	Tag        string
	Result     string
	EvictedTag string
}

// DBTracer is a hook that stores every trace record and every cache access
// into a DataRecorder. It must be attached to both the replayer and the
// cache.
type DBTracer struct {
	backend datarecording.DataRecorder
	idGen   sim.IDGenerator

	currentRecordID string
}

// NewDBTracer creates a DBTracer and the tables it writes to.
func NewDBTracer(
	backend datarecording.DataRecorder,
	idGen sim.IDGenerator,
) *DBTracer {
	t := &DBTracer{
		backend: backend,
		idGen:   idGen,
	}

	backend.CreateTable(RecordTable, recordTableEntry{})
	backend.CreateTable(AccessTable, accessTableEntry{})

	return t
}

// Func records the hook item.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case trace.HookPosRecordStart:
		t.currentRecordID = t.idGen.Generate()
	case cache.HookPosAccess:
		t.recordAccess(ctx.Item.(cache.AccessEvent))
	case trace.HookPosRecordEnd:
		t.recordRecord(ctx.Item.(trace.Record), ctx.Detail.(trace.RecordOutcome))
	}
}

func (t *DBTracer) recordAccess(event cache.AccessEvent) {
	entry := accessTableEntry{
		ID:       t.idGen.Generate(),
		RecordID: t.currentRecordID,
		Address:  fmt.Sprintf("%x", event.Address),
		SetID:    event.SetID,
		WayID:    event.WayID,
		Tag:      fmt.Sprintf("%x", event.Tag),
		Result:   event.Result.String(),
	}

	if event.Result.Evicted() {
		entry.EvictedTag = fmt.Sprintf("%x", event.EvictedTag)
	}

	t.backend.InsertData(AccessTable, entry)
}

func (t *DBTracer) recordRecord(
	record trace.Record,
	outcome trace.RecordOutcome,
) {
	t.backend.InsertData(RecordTable, recordTableEntry{
		ID:        t.currentRecordID,
		Op:        record.Kind.String(),
		Address:   fmt.Sprintf("%x", record.Address),
		Length:    record.Length,
		Accesses:  outcome.Accesses,
		Hits:      outcome.Hits,
		Misses:    outcome.Misses,
		Evictions: outcome.Evictions,
	})

	t.currentRecordID = ""
}
