package pipeline

import "sync/atomic"

// Phase names a pipeline stage for progress reporting.
type Phase string

const (
	PhaseScan   Phase = "scan"
	PhaseSplit  Phase = "split"
	PhaseEmbed  Phase = "embed"
	PhaseInsert Phase = "insert"
)

// RunStatus transitions reported via Status progress events.
type RunStatus string

const (
	StatusIndexing     RunStatus = "Indexing"
	StatusIndexed      RunStatus = "Indexed"
	StatusLimitReached RunStatus = "LimitReached"
	StatusFailed       RunStatus = "Failed"
)

// ProgressEvent is either a Progress tick (Phase/Current/Total set) or a
// Status transition (Status set, other fields zero).
type ProgressEvent struct {
	Phase      Phase
	Current    int
	Total      int
	Percentage float64
	Status     RunStatus
}

// OnProgress receives progress events; nil is a valid no-op callback.
type OnProgress func(ProgressEvent)

func reportProgress(cb OnProgress, phase Phase, current, total int) {
	if cb == nil {
		return
	}
	var pct float64
	if total > 0 {
		c := current
		if c > total {
			c = total
		}
		pct = float64(c) * 100 / float64(total)
	}
	cb(ProgressEvent{Phase: phase, Current: current, Total: total, Percentage: pct})
}

func reportStatus(cb OnProgress, status RunStatus) {
	if cb == nil {
		return
	}
	cb(ProgressEvent{Status: status})
}

// stageCounters accumulates processed/failed counts for a single stage,
// safe for concurrent increment from a worker pool.
type stageCounters struct {
	processed int64
	failed    int64
}

func (c *stageCounters) addProcessed(n int64) { atomic.AddInt64(&c.processed, n) }
func (c *stageCounters) addFailed(n int64)     { atomic.AddInt64(&c.failed, n) }

// StageStats is the final, read-only snapshot of a stage's counters.
type StageStats struct {
	Processed int64
	Failed    int64
}

func (c *stageCounters) snapshot() StageStats {
	return StageStats{Processed: atomic.LoadInt64(&c.processed), Failed: atomic.LoadInt64(&c.failed)}
}
