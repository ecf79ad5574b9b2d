// Package ring implements a Chang-Roberts style ring election. Each node only
// ever talks to its successor; a dead successor is skipped after an
// unanswered ping. Skipped nodes are probed and the closest one that answers
// is linked back in.
package ring

import (
	"math/rand"
	"slices"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

const (
	PingInterval    = 500 * time.Millisecond
	AckTimeout      = 300 * time.Millisecond
	TokenInterval   = 200 * time.Millisecond
	LeaderTimeout   = 500 * time.Millisecond
	ElectionTimeout = time.Second
)

type Node struct {
	election.Base

	participant      bool
	next             election.NodeID
	lastPing         time.Duration
	ackDeadline      time.Duration
	leaderDeadline   time.Duration
	electionDeadline time.Duration
	lastToken        time.Duration
}

func New(id election.NodeID, total int, _ *rand.Rand) election.Node {
	n := &Node{Base: election.NewBase(id, total)}
	n.next = n.successor()
	return n
}

// Next is the neighbor the node currently forwards to.
func (n *Node) Next() election.NodeID { return n.next }

func (n *Node) Participant() bool { return n.participant }

func (n *Node) Restart() {
	n.Reset()
	n.participant = false
	n.next = n.successor()
	n.lastPing = 0
	n.ackDeadline = 0
	n.leaderDeadline = 0
	n.electionDeadline = 0
	n.lastToken = 0
}

func (n *Node) successor() election.NodeID { return n.after(n.ID()) }

func (n *Node) after(id election.NodeID) election.NodeID {
	return election.NodeID((int(id) + 1) % n.Total())
}

// distance counts hops from this node to id along the ring. The node itself
// is a full circle away.
func (n *Node) distance(id election.NodeID) int {
	d := (int(id) - int(n.ID()) + n.Total()) % n.Total()
	if d == 0 {
		return n.Total()
	}
	return d
}

func (n *Node) StartElection(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	if n.next == n.ID() {
		n.participant = false
		n.ClaimLeadership()
		n.lastToken = now
		return nil
	}
	n.Become(election.Candidate)
	n.participant = true
	n.electionDeadline = now + ElectionTimeout
	return []election.Message{n.send(Election{IDs: []election.NodeID{n.ID()}}, now)}
}

func (n *Node) Receive(msg election.Message, now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	switch p := msg.Payload.(type) {
	case Ping:
		return []election.Message{election.NewMessage(n.ID(), msg.From, Ack{Probe: p.Probe}, now)}
	case Ack:
		if p.Probe && n.distance(msg.From) < n.distance(n.next) {
			n.next = msg.From
			n.ackDeadline = 0
		} else if msg.From == n.next {
			n.ackDeadline = 0
		}
	case Token:
		return n.onToken(p, now)
	case Election:
		return n.onElection(p, now)
	case Elected:
		return n.onElected(p, now)
	default:
		panic(election.UnexpectedPayload("ring", msg))
	}
	return nil
}

func (n *Node) onToken(t Token, now time.Duration) []election.Message {
	if t.Hops >= n.Total() {
		// Went all the way round without meeting its leader.
		return nil
	}
	if n.State() == election.Leader {
		if t.Leader > n.ID() {
			n.Follow(t.Leader)
			n.leaderDeadline = now + LeaderTimeout
		}
		return nil
	}
	if t.Leader == n.ID() {
		return nil
	}
	n.leaderDeadline = now + LeaderTimeout
	if cur, ok := n.Leader(); !ok || cur != t.Leader {
		n.Follow(t.Leader)
	}
	return []election.Message{n.send(Token{Leader: t.Leader, Hops: t.Hops + 1}, now)}
}

func (n *Node) onElection(e Election, now time.Duration) []election.Message {
	if !e.contains(n.ID()) {
		n.participant = true
		return []election.Message{n.send(e.extend(n.ID()), now)}
	}
	if !n.participant {
		return nil
	}
	// The token has been all the way round.
	winner := slices.Max(e.IDs)
	n.adopt(winner, now)
	return []election.Message{n.send(Elected{Leader: winner}, now)}
}

func (n *Node) onElected(e Elected, now time.Duration) []election.Message {
	n.participant = false
	if n.State() == election.Leader && e.Leader < n.ID() {
		return nil
	}
	if cur, ok := n.Leader(); ok && cur == e.Leader {
		return nil
	}
	n.adopt(e.Leader, now)
	return []election.Message{n.send(Elected{Leader: e.Leader}, now)}
}

func (n *Node) adopt(leader election.NodeID, now time.Duration) {
	n.electionDeadline = 0
	if leader == n.ID() {
		n.ClaimLeadership()
		n.lastToken = now
		return
	}
	n.Follow(leader)
	n.leaderDeadline = now + LeaderTimeout
}

func (n *Node) Tick(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	var out []election.Message

	if now-n.lastPing >= PingInterval {
		n.lastPing = now
		for id := n.successor(); id != n.next; id = n.after(id) {
			out = append(out, election.NewMessage(n.ID(), id, Ping{Probe: true}, now))
		}
		if n.next != n.ID() {
			out = append(out, n.send(Ping{}, now))
			if n.ackDeadline == 0 {
				n.ackDeadline = now + AckTimeout
			}
		}
	}
	if n.ackDeadline > 0 && now >= n.ackDeadline {
		n.next = n.after(n.next)
		n.ackDeadline = 0
		if n.next != n.ID() {
			out = append(out, n.send(Ping{}, now))
			n.ackDeadline = now + AckTimeout
		}
	}

	switch n.State() {
	case election.Leader:
		if now-n.lastToken >= TokenInterval && n.next != n.ID() {
			n.lastToken = now
			out = append(out, n.send(Token{Leader: n.ID()}, now))
		}
	case election.Candidate:
		if n.electionDeadline > 0 && now >= n.electionDeadline {
			out = append(out, n.StartElection(now)...)
		}
	case election.Follower:
		if _, ok := n.Leader(); ok && now >= n.leaderDeadline {
			n.ForgetLeader()
			out = append(out, n.StartElection(now)...)
		}
	}
	return out
}

func (n *Node) send(p election.Payload, now time.Duration) election.Message {
	return election.NewMessage(n.ID(), n.next, p, now)
}
