package trace

import (
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/sim"
)

func newCache(numSets, numWays, blockSize int, policy string) *cache.Cache {
	p, err := cache.NewPolicy(policy)
	Expect(err).NotTo(HaveOccurred())

	return cache.MakeBuilder().
		WithNumSets(numSets).
		WithWayAssociativity(numWays).
		WithBlockSize(blockSize).
		WithPolicy(p).
		Build("Cache")
}

var _ = Describe("Replayer", func() {
	var (
		mockCtrl *gomock.Controller
		accessor *MockAccessor
		replayer *Replayer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		accessor = NewMockAccessor(mockCtrl)
		replayer = NewReplayer(accessor, 16)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should access one line for a load inside a line", func() {
		accessor.EXPECT().Access(uint64(0x14)).Return(cache.Miss)

		outcome := replayer.ReplayRecord(Record{Load, 0x14, 8})

		Expect(outcome).To(Equal(RecordOutcome{Accesses: 1, Misses: 1}))
	})

	It("should access both lines of a store crossing a boundary, in order", func() {
		gomock.InOrder(
			accessor.EXPECT().Access(uint64(0x1e)).Return(cache.Miss),
			accessor.EXPECT().Access(uint64(0x20)).Return(cache.Hit),
		)

		outcome := replayer.ReplayRecord(Record{Store, 0x1e, 4})

		Expect(outcome).To(Equal(
			RecordOutcome{Accesses: 2, Hits: 1, Misses: 1}))
	})

	It("should not access the next line when the span ends on a boundary", func() {
		accessor.EXPECT().Access(uint64(0x10)).Return(cache.Hit)

		replayer.ReplayRecord(Record{Load, 0x10, 16})
	})

	It("should access every line of a long span", func() {
		gomock.InOrder(
			accessor.EXPECT().Access(uint64(0x08)),
			accessor.EXPECT().Access(uint64(0x10)),
			accessor.EXPECT().Access(uint64(0x20)),
			accessor.EXPECT().Access(uint64(0x30)),
		)

		outcome := replayer.ReplayRecord(Record{Load, 0x08, 0x29})

		Expect(outcome.Accesses).To(Equal(uint64(4)))
	})

	It("should access the start line for a zero-length record", func() {
		accessor.EXPECT().Access(uint64(0x33))

		replayer.ReplayRecord(Record{Load, 0x33, 0})
	})

	It("should access every line twice for a modify", func() {
		gomock.InOrder(
			accessor.EXPECT().Access(uint64(0x1c)).Return(cache.Miss),
			accessor.EXPECT().Access(uint64(0x1c)).Return(cache.Hit),
			accessor.EXPECT().Access(uint64(0x20)).Return(cache.MissWithEviction),
			accessor.EXPECT().Access(uint64(0x20)).Return(cache.Hit),
		)

		outcome := replayer.ReplayRecord(Record{Modify, 0x1c, 8})

		Expect(outcome).To(Equal(RecordOutcome{
			Accesses: 4, Hits: 2, Misses: 2, Evictions: 1,
		}))
	})

	It("should ignore unknown kinds", func() {
		Expect(replayer.ReplayRecord(Record{Kind('I'), 0x10, 4})).
			To(BeZero())
	})

	It("should not wrap around the address space", func() {
		gomock.InOrder(
			accessor.EXPECT().Access(uint64(0xfffffffffffffff8)),
		)

		replayer.ReplayRecord(Record{Load, 0xfffffffffffffff8, 100})
	})

	It("should access the next line of a two-byte span", func() {
		gomock.InOrder(
			accessor.EXPECT().Access(uint64(0x0f)),
			accessor.EXPECT().Access(uint64(0x10)),
		)

		replayer.ReplayRecord(Record{Load, 0x0f, 2})
	})

	It("should stop at the end of the address space", func() {
		gomock.InOrder(
			accessor.EXPECT().Access(uint64(0xffffffffffffffe8)),
			accessor.EXPECT().Access(uint64(0xfffffffffffffff0)),
		)

		outcome := replayer.ReplayRecord(
			Record{Load, 0xffffffffffffffe8, 0x40})

		Expect(outcome.Accesses).To(Equal(uint64(2)))
	})

	It("should invoke hooks around each record", func() {
		var positions []string
		var details []interface{}
		replayer.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			positions = append(positions, ctx.Pos.Name)
			details = append(details, ctx.Detail)
			Expect(ctx.Item).To(Equal(Record{Load, 0x10, 1}))
		}))
		accessor.EXPECT().Access(uint64(0x10)).Return(cache.Hit)

		replayer.ReplayRecord(Record{Load, 0x10, 1})

		Expect(positions).To(Equal([]string{"RecordStart", "RecordEnd"}))
		Expect(details[0]).To(BeNil())
		Expect(details[1]).To(Equal(RecordOutcome{Accesses: 1, Hits: 1}))
	})

	It("should replay a source until EOF", func() {
		source := NewMockSource(mockCtrl)
		gomock.InOrder(
			source.EXPECT().Read().Return(Record{Load, 0x10, 1}, nil),
			source.EXPECT().Read().Return(Record{Store, 0x20, 1}, nil),
			source.EXPECT().Read().Return(Record{}, io.EOF),
		)
		accessor.EXPECT().Access(uint64(0x10))
		accessor.EXPECT().Access(uint64(0x20))

		err := replayer.Replay(source)

		Expect(err).NotTo(HaveOccurred())
		Expect(replayer.NumRecords()).To(Equal(uint64(2)))
	})

	It("should stop on source errors", func() {
		source := NewMockSource(mockCtrl)
		readErr := errors.New("boom")
		source.EXPECT().Read().Return(Record{}, readErr)

		err := replayer.Replay(source)

		Expect(err).To(MatchError(readErr))
	})

	It("should panic when the block size is not a power of two", func() {
		Expect(func() { NewReplayer(accessor, 24) }).To(Panic())
	})
})

// countingAccessor hits every access and only counts them.
type countingAccessor struct {
	accesses uint64
	last     uint64
}

func (a *countingAccessor) Access(addr uint64) cache.AccessResult {
	a.accesses++
	a.last = addr

	return cache.Hit
}

var _ = Describe("Replaying long spans", func() {
	It("should access every line without allocating per line", func() {
		accessor := &countingAccessor{}
		replayer := NewReplayer(accessor, 1)
		record := Record{Load, 0, 1 << 22}

		var outcome RecordOutcome
		allocs := testing.AllocsPerRun(1, func() {
			outcome = replayer.ReplayRecord(record)
		})

		Expect(outcome).To(Equal(
			RecordOutcome{Accesses: 1 << 22, Hits: 1 << 22}))
		Expect(accessor.last).To(Equal(uint64(1<<22 - 1)))
		Expect(allocs).To(BeNumerically("<", 4))
	})

	It("should walk a maximal span up to the last byte", func() {
		accessor := &countingAccessor{}
		replayer := NewReplayer(accessor, 1<<20)

		outcome := replayer.ReplayRecord(Record{Modify, 0, 0xffffffff})

		Expect(outcome.Accesses).To(Equal(uint64(2 * 4096)))
		Expect(accessor.last).To(Equal(uint64(0xfff00000)))
	})
})

var _ = Describe("Replaying against a cache", func() {
	replay := func(c *cache.Cache, text string) cache.Statistics {
		r := NewReplayer(c, c.BlockSize())
		err := r.Replay(NewReader(strings.NewReader(text)))
		Expect(err).NotTo(HaveOccurred())

		return c.Stats()
	}

	It("should hit the second load of the same byte", func() {
		stats := replay(newCache(1, 1, 1, "LRU"), " L 0,1\n L 0,1\n")

		Expect(stats).To(Equal(cache.Statistics{Hits: 1, Misses: 1}))
	})

	It("should evict on alternating bytes with one-byte lines", func() {
		stats := replay(newCache(1, 1, 1, "FIFO"), " L 0,1\n L 1,1\n L 0,1\n")

		Expect(stats).To(Equal(
			cache.Statistics{Hits: 0, Misses: 3, Evictions: 2}))
	})

	It("should always hit the second access of a modify", func() {
		c := newCache(4, 2, 16, "LRU")
		r := NewReplayer(c, 16)

		var results []cache.AccessResult
		c.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			results = append(results, ctx.Item.(cache.AccessEvent).Result)
		}))

		r.ReplayRecord(Record{Modify, 0x48, 16})

		Expect(results).To(Equal([]cache.AccessResult{
			cache.Miss, cache.Hit, cache.Miss, cache.Hit,
		}))
	})

	It("should produce two accesses for a modify within one line", func() {
		c := newCache(4, 2, 16, "FIFO")
		r := NewReplayer(c, 16)

		outcome := r.ReplayRecord(Record{Modify, 0x40, 16})

		Expect(outcome).To(Equal(
			RecordOutcome{Accesses: 2, Hits: 1, Misses: 1}))
	})

	It("should simulate a small trace", func() {
		text := " L 10,1\n" +
			" M 20,1\n" +
			" L 22,1\n" +
			" S 18,1\n" +
			" L 110,1\n" +
			" L 210,1\n" +
			" M 12,1\n"

		stats := replay(newCache(16, 1, 16, "LRU"), text)

		Expect(stats).To(Equal(
			cache.Statistics{Hits: 4, Misses: 5, Evictions: 3}))
	})
})
