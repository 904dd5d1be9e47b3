package instrument

import "container/heap"

type eventKind int

const (
	evNoteOn eventKind = iota
	evRevert
)

type event struct {
	at     int64 // sample index
	seq    uint64
	kind   eventKind
	handle Handle
	freq   float64
	length int64
	volume float64
}

// eventQueue is a min-heap on (at, seq) for container/heap.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// drop removes every event matching fn and restores heap order.
func (q *eventQueue) drop(fn func(*event) bool) {
	kept := (*q)[:0]
	for _, ev := range *q {
		if !fn(ev) {
			kept = append(kept, ev)
		}
	}
	for i := len(kept); i < len(*q); i++ {
		(*q)[i] = nil
	}
	*q = kept
	heap.Init(q)
}
