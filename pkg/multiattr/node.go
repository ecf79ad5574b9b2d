// Package multiattr elects the node with the best fitness score, a weighted
// mix of simulated battery level and CPU headroom. It runs the Bully
// algorithm over scores instead of ids, so candidates have to broadcast.
package multiattr

import (
	"math/rand"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

const (
	OkTimeout          = 300 * time.Millisecond
	HeartbeatInterval  = 100 * time.Millisecond
	HeartbeatTimeout   = 400 * time.Millisecond
	CoordinatorTimeout = 500 * time.Millisecond

	BatteryWeight = 0.7
	CPUWeight     = 0.3
)

// Attributes are the simulated resources a node is ranked by.
type Attributes struct {
	Battery int // percent, 50..100
	CPULoad int // percent, 0..60
}

func RandomAttributes(rng *rand.Rand) Attributes {
	return Attributes{
		Battery: 50 + rng.Intn(51),
		CPULoad: rng.Intn(61),
	}
}

func (a Attributes) Score() float64 {
	return BatteryWeight*float64(a.Battery) + CPUWeight*float64(100-a.CPULoad)
}

type Node struct {
	election.Base
	attrs Attributes
	score float64

	awaitingOk bool
	okDeadline time.Duration
	// heartbeatDeadline is when a follower gives up on its leader, or on the
	// coordinator it was told to wait for.
	heartbeatDeadline time.Duration
	lastHeartbeat     time.Duration
}

func New(id election.NodeID, total int, rng *rand.Rand) election.Node {
	return NewWithAttributes(id, total, RandomAttributes(rng))
}

func NewWithAttributes(id election.NodeID, total int, attrs Attributes) *Node {
	return &Node{
		Base:  election.NewBase(id, total),
		attrs: attrs,
		score: attrs.Score(),
	}
}

func (n *Node) Score() float64 { return n.score }

func (n *Node) Attributes() Attributes { return n.attrs }

// Restart keeps the node's attributes; they describe the machine, not the
// protocol.
func (n *Node) Restart() {
	n.Reset()
	n.awaitingOk = false
	n.okDeadline = 0
	n.heartbeatDeadline = 0
	n.lastHeartbeat = 0
}

// outranks orders nodes by score, then by id.
func (n *Node) outranks(score float64, id election.NodeID) bool {
	return n.score > score || (n.score == score && n.ID() > id)
}

func (n *Node) StartElection(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	n.Become(election.Candidate)
	n.awaitingOk = true
	n.okDeadline = now + OkTimeout
	n.heartbeatDeadline = 0
	return election.Broadcast(n.ID(), n.Total(), Election{Score: n.score}, now)
}

func (n *Node) Receive(msg election.Message, now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	switch p := msg.Payload.(type) {
	case Election:
		if !n.outranks(p.Score, msg.From) {
			return nil
		}
		out := []election.Message{election.NewMessage(n.ID(), msg.From, Ok{}, now)}
		if n.State() == election.Follower {
			out = append(out, n.StartElection(now)...)
		}
		return out
	case Ok:
		if n.awaitingOk && n.State() == election.Candidate {
			n.awaitingOk = false
			n.okDeadline = 0
			n.Become(election.Follower)
			n.heartbeatDeadline = now + CoordinatorTimeout
		}
	case Coordinator:
		return n.onAnnouncement(p.Leader, p.Score, now)
	case Heartbeat:
		return n.onAnnouncement(p.Leader, p.Score, now)
	default:
		panic(election.UnexpectedPayload("multiattr", msg))
	}
	return nil
}

// onAnnouncement follows a better leader. A node that outranks the announcer
// keeps leading or contending, and a follower challenges it.
func (n *Node) onAnnouncement(leader election.NodeID, score float64, now time.Duration) []election.Message {
	if n.outranks(score, leader) {
		if n.State() == election.Follower {
			n.ForgetLeader()
			return n.StartElection(now)
		}
		return nil
	}
	n.Follow(leader)
	n.awaitingOk = false
	n.okDeadline = 0
	n.heartbeatDeadline = now + HeartbeatTimeout
	return nil
}

func (n *Node) Tick(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	switch n.State() {
	case election.Leader:
		if now-n.lastHeartbeat >= HeartbeatInterval {
			n.lastHeartbeat = now
			return election.Broadcast(n.ID(), n.Total(), Heartbeat{Leader: n.ID(), Score: n.score}, now)
		}
	case election.Follower:
		if n.heartbeatDeadline > 0 && now >= n.heartbeatDeadline {
			n.ForgetLeader()
			return n.StartElection(now)
		}
	case election.Candidate:
		if n.awaitingOk && now >= n.okDeadline {
			n.ClaimLeadership()
			n.awaitingOk = false
			n.lastHeartbeat = now
			return election.Broadcast(n.ID(), n.Total(), Coordinator{Leader: n.ID(), Score: n.score}, now)
		}
	}
	return nil
}
