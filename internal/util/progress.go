package util

import (
	"fmt"
	"sync/atomic"
)

// StepProgress tracks completion of a fixed number of work items.
type StepProgress struct {
	total int64
	done  atomic.Int64
}

func NewStepProgress(total int) *StepProgress {
	return &StepProgress{total: int64(total)}
}

// Add marks n items done and returns the new percentage.
func (p *StepProgress) Add(n int) int32 {
	done := p.done.Add(int64(n))
	return CalculateProgressPercentage(p.total, done)
}

func (p *StepProgress) Percentage() int32 {
	return CalculateProgressPercentage(p.total, p.done.Load())
}

// String renders progress as "done/total".
func (p *StepProgress) String() string {
	return fmt.Sprintf("%d/%d", p.done.Load(), p.total)
}

// CalculateProgressPercentage returns done/total as an integer percentage in [0,100].
// An empty step counts as complete.
func CalculateProgressPercentage(total int64, done int64) int32 {
	if total <= 0 {
		return 100
	}
	done = max(0, min(done, total))
	return int32(done * 100 / total)
}
