// Package bully implements the Bully election: the highest live id wins.
package bully

import (
	"math/rand"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

const (
	OkTimeout          = 200 * time.Millisecond
	CoordinatorTimeout = 500 * time.Millisecond
	HeartbeatInterval  = 100 * time.Millisecond
	LeaderTimeout      = 400 * time.Millisecond
)

type Node struct {
	election.Base

	awaitingOk bool
	okDeadline time.Duration
	// coordinatorDeadline bounds the wait for a Coordinator after a higher
	// node told us to yield. Zero when not waiting.
	coordinatorDeadline time.Duration
	leaderDeadline      time.Duration
	lastHeartbeat       time.Duration
}

func New(id election.NodeID, total int, _ *rand.Rand) election.Node {
	return &Node{Base: election.NewBase(id, total)}
}

func (n *Node) Restart() {
	n.Reset()
	n.awaitingOk = false
	n.okDeadline = 0
	n.coordinatorDeadline = 0
	n.leaderDeadline = 0
	n.lastHeartbeat = 0
}

func (n *Node) StartElection(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	n.coordinatorDeadline = 0
	if int(n.ID()) == n.Total()-1 {
		return n.becomeLeader(now)
	}
	n.Become(election.Candidate)
	n.awaitingOk = true
	n.okDeadline = now + OkTimeout

	msgs := make([]election.Message, 0, n.Total()-int(n.ID())-1)
	for id := n.ID() + 1; int(id) < n.Total(); id++ {
		msgs = append(msgs, election.NewMessage(n.ID(), id, Election{}, now))
	}
	return msgs
}

func (n *Node) Receive(msg election.Message, now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	var out []election.Message
	switch p := msg.Payload.(type) {
	case Election:
		if msg.From < n.ID() {
			out = append(out, election.NewMessage(n.ID(), msg.From, Ok{}, now))
			if n.State() != election.Leader {
				out = append(out, n.StartElection(now)...)
			}
		}
	case Ok:
		if n.awaitingOk && n.State() != election.Leader {
			n.awaitingOk = false
			n.Become(election.Follower)
			n.coordinatorDeadline = now + CoordinatorTimeout
		}
	case Coordinator:
		if p.Leader < n.ID() {
			// A lower node claimed leadership; bully it.
			if n.State() != election.Candidate {
				out = append(out, n.StartElection(now)...)
			}
			break
		}
		n.follow(p.Leader, now)
	case Heartbeat:
		if p.Leader < n.ID() {
			if n.State() == election.Follower {
				out = append(out, n.StartElection(now)...)
			}
			break
		}
		if cur, ok := n.Leader(); ok && cur > p.Leader {
			break
		}
		n.follow(p.Leader, now)
	default:
		panic(election.UnexpectedPayload("bully", msg))
	}
	return append(out, n.checkOkTimeout(now)...)
}

func (n *Node) Tick(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	switch n.State() {
	case election.Leader:
		if now-n.lastHeartbeat >= HeartbeatInterval {
			n.lastHeartbeat = now
			return election.Broadcast(n.ID(), n.Total(), Heartbeat{Leader: n.ID()}, now)
		}
	case election.Candidate:
		return n.checkOkTimeout(now)
	case election.Follower:
		if n.coordinatorDeadline > 0 && now >= n.coordinatorDeadline {
			return n.StartElection(now)
		}
		if _, ok := n.Leader(); ok && n.leaderDeadline > 0 && now >= n.leaderDeadline {
			n.ForgetLeader()
			return n.StartElection(now)
		}
	}
	return nil
}

// checkOkTimeout promotes a candidate nobody higher answered in time.
func (n *Node) checkOkTimeout(now time.Duration) []election.Message {
	if n.State() == election.Candidate && n.awaitingOk && now >= n.okDeadline {
		return n.becomeLeader(now)
	}
	return nil
}

func (n *Node) becomeLeader(now time.Duration) []election.Message {
	n.ClaimLeadership()
	n.awaitingOk = false
	n.coordinatorDeadline = 0
	n.lastHeartbeat = now
	return election.Broadcast(n.ID(), n.Total(), Coordinator{Leader: n.ID()}, now)
}

func (n *Node) follow(leader election.NodeID, now time.Duration) {
	n.Follow(leader)
	n.awaitingOk = false
	n.coordinatorDeadline = 0
	n.leaderDeadline = now + LeaderTimeout
}
