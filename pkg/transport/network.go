package transport

import (
	"math/rand"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

// MinDelay is the floor applied to every computed delivery delay.
const MinDelay = time.Millisecond

// Network is the simulated medium between nodes. It decides whether a message
// is lost, when it arrives, and whether a partition blocks it at arrival. It
// is not safe for concurrent use; the simulator owning it is single-threaded.
type Network struct {
	rng       *rand.Rand
	latency   time.Duration
	jitter    time.Duration
	dropRate  float64
	partition *Partition

	queue deliveryQueue
	seq   uint64
	lost  int
}

func NewNetwork(rng *rand.Rand) *Network {
	return &Network{rng: rng}
}

// SetDelay sets the base one-way latency and the half-width of the uniform
// jitter added to it.
func (n *Network) SetDelay(latency, jitter time.Duration) {
	n.latency = latency
	n.jitter = jitter
}

func (n *Network) SetDropRate(rate float64) {
	n.dropRate = rate
}

// SetPartition installs a partition window; nil removes it.
func (n *Network) SetPartition(p *Partition) {
	n.partition = p
}

// Send schedules msg for delivery. It reports false when the message was lost
// in transit; the sender is never told.
func (n *Network) Send(msg election.Message, now time.Duration) bool {
	if n.dropRate > 0 && n.rng.Float64() < n.dropRate {
		n.lost++
		return false
	}
	n.queue.push(delivery{at: now + n.delay(), seq: n.seq, msg: msg})
	n.seq++
	return true
}

func (n *Network) delay() time.Duration {
	d := n.latency
	if n.jitter > 0 {
		d += time.Duration((n.rng.Float64()*2 - 1) * float64(n.jitter))
	}
	return max(MinDelay, d)
}

// Next pops the earliest message due at or before now.
func (n *Network) Next(now time.Duration) (election.Message, bool) {
	d, ok := n.queue.popDue(now)
	return d.msg, ok
}

// Reachable reports whether a message from one node may be delivered to
// another at the given instant.
func (n *Network) Reachable(from, to election.NodeID, now time.Duration) bool {
	if n.partition == nil || !n.partition.Active(now) {
		return true
	}
	return n.partition.SameGroup(from, to)
}

// Pending is the number of messages in flight.
func (n *Network) Pending() int { return n.queue.Len() }

// Lost is the number of messages dropped by the loss probability so far.
func (n *Network) Lost() int { return n.lost }
