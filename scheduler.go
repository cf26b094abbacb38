package leosim

// scheduler.go implements the discrete-event core: a single virtual clock
// and a min-heap of (fire_at, seq) events. The heap reuses the same
// container/heap idiom link_channel.go's TaskScheduler applies to
// residual service time, just applied here to the top-level event queue
// instead of core-allocation, with a cancel tombstone added since that
// use case never needed one. Virtual time is represented with
// iti/evt/vrtime.Time so the rest of the simulator keeps consistent time
// arithmetic, without taking on an event-manager dependency whose
// constructor and cancellation story aren't pinned down.

import (
	"container/heap"

	"github.com/iti/evt/vrtime"
)

// EventHandle identifies a previously scheduled event so it can be
// cancelled before it fires.
type EventHandle uint64

// EventAction is the unit of work a Scheduler fires when an event's time
// comes due.
type EventAction func()

type event struct {
	fireAt vrtime.Time
	seq    uint64
	handle EventHandle
	action EventAction
}

// eventHeap is a min-priority heap ordered by (fireAt, seq), giving time
// monotonicity and FIFO ordering at equal time directly from heap
// ordering.
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].fireAt, h[j].fireAt
	if ti.Seconds() != tj.Seconds() {
		return ti.Seconds() < tj.Seconds()
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// Scheduler owns the virtual clock and the pending-event heap. There is
// exactly one per Simulation (never a package-level singleton, per the
// Design Notes' rejection of a global NetworkState).
type Scheduler struct {
	now       vrtime.Time
	nextSeq   uint64
	nextHdl   EventHandle
	pending   eventHeap
	cancelled map[EventHandle]struct{}
}

// NewScheduler constructs an empty Scheduler with virtual time at zero.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		pending:   eventHeap{},
		cancelled: make(map[EventHandle]struct{}),
	}
	heap.Init(&s.pending)
	return s
}

// Now returns the current virtual time in seconds.
func (s *Scheduler) Now() float64 { return s.now.Seconds() }

// NowTime returns the current virtual time as a vrtime.Time.
func (s *Scheduler) NowTime() vrtime.Time { return s.now }

// Schedule inserts action to fire delay seconds from now and returns a
// handle that can later be passed to Cancel. delay must be >= 0. Actions
// scheduled with delay == 0 run after every event already queued for the
// current instant: since now-events already in the heap were pushed with
// an earlier seq, FIFO-on-seq ordering gives this for free.
func (s *Scheduler) Schedule(delay float64, action EventAction) EventHandle {
	return s.scheduleAt(vrtime.SecondsToTime(s.now.Seconds()+delay), action)
}

// ScheduleAt inserts action to fire at the given absolute virtual time.
func (s *Scheduler) ScheduleAt(at float64, action EventAction) EventHandle {
	return s.scheduleAt(vrtime.SecondsToTime(at), action)
}

func (s *Scheduler) scheduleAt(at vrtime.Time, action EventAction) EventHandle {
	s.nextSeq++
	s.nextHdl++
	evt := &event{fireAt: at, seq: s.nextSeq, handle: s.nextHdl, action: action}
	heap.Push(&s.pending, evt)
	return evt.handle
}

// Cancel marks a previously scheduled event so that it is skipped when
// popped. Cancelling an event that has already fired or was never
// scheduled is a silent no-op.
func (s *Scheduler) Cancel(h EventHandle) {
	s.cancelled[h] = struct{}{}
}

// RunUntil pops and fires events in (time, seq) order, advancing the
// virtual clock to each event's fire time before running its action,
// until the queue empties or the next event's fire time exceeds stop.
func (s *Scheduler) RunUntil(stop float64) {
	for s.pending.Len() > 0 {
		next := s.pending[0]
		if next.fireAt.Seconds() > stop {
			return
		}
		heap.Pop(&s.pending)

		if _, dead := s.cancelled[next.handle]; dead {
			delete(s.cancelled, next.handle)
			continue
		}

		s.now = next.fireAt
		next.action()
	}
}

// Empty reports whether the event queue has no more pending events.
func (s *Scheduler) Empty() bool { return s.pending.Len() == 0 }
