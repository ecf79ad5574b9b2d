package transport

import (
	"container/heap"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

// delivery is one scheduled message. seq breaks ties between equal delivery
// times so that same-instant messages leave in the order they were sent.
type delivery struct {
	at  time.Duration
	seq uint64
	msg election.Message
}

type deliveryQueue []delivery

func (q deliveryQueue) Len() int { return len(q) }

func (q deliveryQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q deliveryQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *deliveryQueue) Push(x any) { *q = append(*q, x.(delivery)) }

func (q *deliveryQueue) Pop() any {
	old := *q
	n := len(old)
	d := old[n-1]
	old[n-1] = delivery{}
	*q = old[:n-1]
	return d
}

func (q *deliveryQueue) push(d delivery) { heap.Push(q, d) }

func (q *deliveryQueue) popDue(now time.Duration) (delivery, bool) {
	if len(*q) == 0 || (*q)[0].at > now {
		return delivery{}, false
	}
	return heap.Pop(q).(delivery), true
}
