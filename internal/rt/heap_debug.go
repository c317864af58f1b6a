package rt

import (
	"fmt"
	"sort"
	"strings"
)

type heapCounters struct {
	allocCount    uint64
	copyCount     uint64
	freeCount     uint64
	rcIncrCount   uint64
	rcDecrCount   uint64
	forceCount    uint64
	evalCallCount uint64
}

// StatsSnapshot is a point-in-time view of heap activity.
type StatsSnapshot struct {
	LiveBlocks uint64
	Allocs     uint64
	Copies     uint64
	Frees      uint64
	RCIncr     uint64
	RCDecr     uint64
	Forces     uint64
	EvalCalls  uint64
}

// Stats returns a snapshot of the heap counters plus a live-block count.
func (h *Heap) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		Allocs:    h.counters.allocCount,
		Copies:    h.counters.copyCount,
		Frees:     h.counters.freeCount,
		RCIncr:    h.counters.rcIncrCount,
		RCDecr:    h.counters.rcDecrCount,
		Forces:    h.counters.forceCount,
		EvalCalls: h.counters.evalCallCount,
	}
	h.Walk(func(Handle, *Block) {
		snap.LiveBlocks++
	})
	return snap
}

// String renders the snapshot in the --heap-stats format.
func (s StatsSnapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "heap stats:\n")
	fmt.Fprintf(&sb, "  live_blocks %d\n", s.LiveBlocks)
	fmt.Fprintf(&sb, "  allocs      %d (copies %d)\n", s.Allocs, s.Copies)
	fmt.Fprintf(&sb, "  frees       %d\n", s.Frees)
	fmt.Fprintf(&sb, "  rc          +%d -%d\n", s.RCIncr, s.RCDecr)
	fmt.Fprintf(&sb, "  forces      %d (eval calls %d)\n", s.Forces, s.EvalCalls)
	return sb.String()
}

// EvalCalls returns how many evaluator invocations this heap has seen.
func (h *Heap) EvalCalls() uint64 {
	return h.counters.evalCallCount
}

// CheckLeaksOrPanic audits the heap at teardown. Every live block is a
// leak: with all handles released, the block table must be empty.
func (h *Heap) CheckLeaksOrPanic() {
	leakCount := 0
	familyCounts := make(map[string]int, 4)
	const maxList = 8
	list := make([]string, 0, maxList)
	h.Walk(func(handle Handle, b *Block) {
		leakCount++
		familyCounts[tagFamilyLabel(b.Tag)]++
		if len(list) < maxList {
			list = append(list, fmt.Sprintf("%s#%d(rc=%d,tag=%s)", tagFamilyLabel(b.Tag), handle, b.RefCount(), b.Tag))
		}
	})
	if leakCount == 0 {
		return
	}
	msg := fmt.Sprintf("heap leak detected: %d blocks still alive", leakCount)
	familyList := make([]string, 0, len(familyCounts))
	for family := range familyCounts {
		familyList = append(familyList, fmt.Sprintf("%s=%d", family, familyCounts[family]))
	}
	sort.Strings(familyList)
	if len(familyList) > 0 {
		msg += " (" + strings.Join(familyList, ", ") + ")"
	}
	if len(list) > 0 {
		msg += ": " + strings.Join(list, ", ")
	}
	h.panic(PanicHeapLeakDetected, msg)
}

func tagFamilyLabel(t Tag) string {
	switch {
	case t.IsIndirection():
		return "indirect"
	case t.IsBlackhole():
		return "blackhole"
	case t == TagLazyPrep:
		return "prep"
	case t.IsLazyCon():
		return "lazy_con"
	default:
		return "con"
	}
}
