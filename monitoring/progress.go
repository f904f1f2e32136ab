package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

type progressBarSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) snapshot() progressBarSnapshot {
	b.Lock()
	defer b.Unlock()

	return progressBarSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// Func lets the bar follow a replayer. A record is in progress between its
// start and end hooks.
func (b *ProgressBar) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case trace.HookPosRecordStart:
		b.IncrementInProgress(1)
	case trace.HookPosRecordEnd:
		b.MoveInProgressToFinished(1)
	}
}
