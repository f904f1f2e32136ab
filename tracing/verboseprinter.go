package tracing

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim"
)

// VerbosePrinter writes one line per trace record, listing the outcome of
// each cache access of the record:
//
//	L 10,1 miss
//	M 20,1 miss hit
//
// It must be attached to both the replayer and the cache.
type VerbosePrinter struct {
	w        io.Writer
	hit      *color.Color
	miss     *color.Color
	eviction *color.Color
}

// NewVerbosePrinter creates a VerbosePrinter that writes to w. Outcomes are
// colored when the terminal supports it.
func NewVerbosePrinter(w io.Writer) *VerbosePrinter {
	return &VerbosePrinter{
		w:        w,
		hit:      color.New(color.FgGreen),
		miss:     color.New(color.FgYellow),
		eviction: color.New(color.FgRed, color.Bold),
	}
}

// DisableColor turns coloring off regardless of the terminal.
func (p *VerbosePrinter) DisableColor() *VerbosePrinter {
	p.hit.DisableColor()
	p.miss.DisableColor()
	p.eviction.DisableColor()

	return p
}

// Func prints the part of the line that belongs to the hook position.
func (p *VerbosePrinter) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case trace.HookPosRecordStart:
		fmt.Fprintf(p.w, "%s ", ctx.Item.(trace.Record))
	case cache.HookPosAccess:
		p.printResult(ctx.Item.(cache.AccessEvent).Result)
	case trace.HookPosRecordEnd:
		fmt.Fprintln(p.w)
	}
}

func (p *VerbosePrinter) printResult(result cache.AccessResult) {
	switch result {
	case cache.Hit:
		p.hit.Fprint(p.w, "hit")
		fmt.Fprint(p.w, " ")
	case cache.Miss:
		p.miss.Fprint(p.w, "miss")
		fmt.Fprint(p.w, " ")
	case cache.MissWithEviction:
		p.miss.Fprint(p.w, "miss")
		fmt.Fprint(p.w, " ")
		p.eviction.Fprint(p.w, "eviction")
		fmt.Fprint(p.w, " ")
	}
}
