package tracing

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
)

var _ = Describe("VerbosePrinter", func() {
	var (
		buf      *bytes.Buffer
		c        *cache.Cache
		replayer *trace.Replayer
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		c = cache.MakeBuilder().
			WithNumSets(1).
			WithWayAssociativity(1).
			WithBlockSize(16).
			Build("Cache")
		replayer = trace.NewReplayer(c, 16)

		printer := NewVerbosePrinter(buf).DisableColor()
		c.AcceptHook(printer)
		replayer.AcceptHook(printer)
	})

	It("should print one line per record", func() {
		src := trace.NewReader(strings.NewReader(
			"I 0400d7d4,8\n L 10,1\n M 20,1\n L 10,1\n"))

		Expect(replayer.Replay(src)).To(Succeed())

		Expect(buf.String()).To(Equal(
			"L 10,1 miss \n" +
				"M 20,1 miss eviction hit \n" +
				"L 10,1 miss eviction \n"))
	})

	It("should print every line of a record that spans blocks", func() {
		replayer.ReplayRecord(
			trace.Record{Kind: trace.Store, Address: 0x18, Length: 16})

		Expect(buf.String()).To(Equal("S 18,16 miss miss eviction \n"))
	})
})
