package tracing

import (
	"database/sql"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim"
)

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		tracer   *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(RecordTable, gomock.Any())
		recorder.EXPECT().CreateTable(AccessTable, gomock.Any())

		tracer = NewDBTracer(recorder, sim.NewSequentialIDGenerator())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should link accesses to their record", func() {
		record := trace.Record{Kind: trace.Load, Address: 0x10, Length: 1}
		event := cache.AccessEvent{
			Address:    0x10,
			Tag:        0x1,
			SetID:      0,
			WayID:      0,
			Result:     cache.MissWithEviction,
			EvictedTag: 0x2,
		}

		recorder.EXPECT().
			InsertData(AccessTable, accessTableEntry{
				ID:         "2",
				RecordID:   "1",
				Address:    "10",
				Tag:        "1",
				Result:     "miss eviction",
				EvictedTag: "2",
			})
		recorder.EXPECT().
			InsertData(RecordTable, recordTableEntry{
				ID:        "1",
				Op:        "L",
				Address:   "10",
				Length:    1,
				Accesses:  1,
				Misses:    1,
				Evictions: 1,
			})

		tracer.Func(sim.HookCtx{Pos: trace.HookPosRecordStart, Item: record})
		tracer.Func(sim.HookCtx{Pos: cache.HookPosAccess, Item: event})
		tracer.Func(sim.HookCtx{
			Pos:    trace.HookPosRecordEnd,
			Item:   record,
			Detail: trace.RecordOutcome{Accesses: 1, Misses: 1, Evictions: 1},
		})
	})

	It("should leave the evicted tag empty without an eviction", func() {
		recorder.EXPECT().
			InsertData(AccessTable, gomock.Any()).
			Do(func(_ string, entry any) {
				Expect(entry.(accessTableEntry).EvictedTag).To(BeEmpty())
			})

		tracer.Func(sim.HookCtx{
			Pos:  cache.HookPosAccess,
			Item: cache.AccessEvent{Address: 0x20, Result: cache.Miss},
		})
	})
})

var _ = Describe("DBTracer with SQLite", func() {
	It("should store a replay", func() {
		path := filepath.Join(GinkgoT().TempDir(), "replay")
		writer := datarecording.NewSQLiteWriter(path)
		writer.Init()

		c := cache.MakeBuilder().
			WithNumSets(1).
			WithWayAssociativity(1).
			WithBlockSize(16).
			Build("Cache")
		replayer := trace.NewReplayer(c, 16)

		tracer := NewDBTracer(writer, sim.NewSequentialIDGenerator())
		c.AcceptHook(tracer)
		replayer.AcceptHook(tracer)

		src := trace.NewReader(strings.NewReader(" L 10,1\n M 20,1\n"))
		Expect(replayer.Replay(src)).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		db, err := sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var numRecords, numAccesses, numEvictions, recordedAccesses int
		Expect(db.QueryRow("SELECT COUNT(*) FROM " + RecordTable).
			Scan(&numRecords)).To(Succeed())
		Expect(db.QueryRow("SELECT COUNT(*) FROM " + AccessTable).
			Scan(&numAccesses)).To(Succeed())
		Expect(db.QueryRow(
			"SELECT COUNT(*) FROM " + AccessTable +
				" WHERE Result = 'miss eviction'").
			Scan(&numEvictions)).To(Succeed())

		Expect(db.QueryRow("SELECT SUM(Accesses) FROM " + RecordTable).
			Scan(&recordedAccesses)).To(Succeed())

		Expect(numRecords).To(Equal(2))
		Expect(recordedAccesses).To(Equal(3))
		Expect(numAccesses).To(Equal(3))
		Expect(numEvictions).To(Equal(1))
	})
})
