package election

import (
	"fmt"
	"time"
)

// Node is the contract every protocol variant satisfies. The simulator only
// talks to nodes through it: messages go in through Receive, time goes in
// through Tick, and anything the node wants to say comes back as outbound
// messages.
type Node interface {
	ID() NodeID
	State() State
	// Leader reports who the node currently believes leads. The belief can be
	// stale.
	Leader() (NodeID, bool)
	Crashed() bool

	StartElection(now time.Duration) []Message
	Receive(msg Message, now time.Duration) []Message
	Tick(now time.Duration) []Message

	Crash()
	Restart()
}

// Base holds the identity and role bookkeeping shared by all protocols.
// Protocol nodes embed it and drive the transitions from their own methods.
type Base struct {
	id      NodeID
	total   int
	state   State
	leader  NodeID
	crashed bool
}

func NewBase(id NodeID, total int) Base {
	if total <= 0 || id < 0 || int(id) >= total {
		panic(fmt.Sprintf("election: node id %d out of range for %d nodes", id, total))
	}
	return Base{id: id, total: total, state: Follower, leader: None}
}

func (b *Base) ID() NodeID    { return b.id }
func (b *Base) Total() int    { return b.total }
func (b *Base) State() State  { return b.state }
func (b *Base) Crashed() bool { return b.crashed }

func (b *Base) Leader() (NodeID, bool) {
	return b.leader, b.leader != None
}

func (b *Base) Crash() {
	b.crashed = true
	b.state = Crashed
}

// Reset clears a crash and returns to a leaderless follower.
func (b *Base) Reset() {
	b.crashed = false
	b.state = Follower
	b.leader = None
}

func (b *Base) Become(s State) { b.state = s }

// Follow records leader and demotes to Follower.
func (b *Base) Follow(leader NodeID) {
	b.state = Follower
	b.leader = leader
}

func (b *Base) ClaimLeadership() {
	b.state = Leader
	b.leader = b.id
}

func (b *Base) ForgetLeader() { b.leader = None }

// Majority is the smallest vote count strictly greater than half the cluster.
func (b *Base) Majority() int { return b.total/2 + 1 }
