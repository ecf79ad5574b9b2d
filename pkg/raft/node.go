// Package raft implements the leader-election half of Raft: terms, one vote
// per term, majority wins, heartbeats hold followers in place.
package raft

import (
	"math/rand"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

const (
	ElectionTimeoutMin = 150 * time.Millisecond
	ElectionTimeoutMax = 300 * time.Millisecond
	HeartbeatInterval  = 100 * time.Millisecond
)

type Node struct {
	election.Base
	rng *rand.Rand
	ps  PersistentState

	votes             map[election.NodeID]struct{}
	electionDeadline  time.Duration
	heartbeatDeadline time.Duration
}

func New(id election.NodeID, total int, rng *rand.Rand) election.Node {
	return &Node{
		Base: election.NewBase(id, total),
		rng:  rng,
		ps:   PersistentState{VotedFor: election.None},
	}
}

func (n *Node) Term() uint64 { return n.ps.CurrentTerm }

func (n *Node) VotedFor() election.NodeID { return n.ps.VotedFor }

func (n *Node) VotesReceived() int { return len(n.votes) }

// Restart keeps the persistent state so that a recovered node cannot vote
// twice in a term it already voted in.
func (n *Node) Restart() {
	n.Reset()
	n.votes = nil
	n.electionDeadline = 0
	n.heartbeatDeadline = 0
}

func (n *Node) resetElectionTimer(now time.Duration) {
	spread := int64(ElectionTimeoutMax - ElectionTimeoutMin)
	n.electionDeadline = now + ElectionTimeoutMin + time.Duration(n.rng.Int63n(spread))
}

func (n *Node) becomeFollower(term uint64) {
	if term > n.ps.CurrentTerm {
		n.ps.CurrentTerm = term
		n.ps.VotedFor = election.None
		n.ForgetLeader()
	}
	n.Become(election.Follower)
	n.votes = nil
}

func (n *Node) StartElection(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	n.ps.CurrentTerm++
	n.ps.VotedFor = n.ID()
	n.Become(election.Candidate)
	n.ForgetLeader()
	n.votes = map[election.NodeID]struct{}{n.ID(): {}}
	n.resetElectionTimer(now)
	if len(n.votes) >= n.Majority() {
		return n.becomeLeader(now)
	}
	return election.Broadcast(n.ID(), n.Total(), RequestVote{Term: n.ps.CurrentTerm, CandidateID: n.ID()}, now)
}

func (n *Node) Receive(msg election.Message, now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	switch p := msg.Payload.(type) {
	case RequestVote:
		return []election.Message{n.handleRequestVote(p, now)}
	case VoteResponse:
		return n.handleVoteResponse(msg.From, p, now)
	case Heartbeat:
		if p.Term < n.ps.CurrentTerm {
			return nil
		}
		n.becomeFollower(p.Term)
		n.Follow(p.LeaderID)
		n.resetElectionTimer(now)
		return nil
	default:
		panic(election.UnexpectedPayload("raft", msg))
	}
}

func (n *Node) handleRequestVote(req RequestVote, now time.Duration) election.Message {
	if req.Term > n.ps.CurrentTerm {
		n.becomeFollower(req.Term)
	}
	granted := false
	if req.Term == n.ps.CurrentTerm &&
		(n.ps.VotedFor == election.None || n.ps.VotedFor == req.CandidateID) {
		granted = true
		n.ps.VotedFor = req.CandidateID
		n.resetElectionTimer(now)
	}
	return election.NewMessage(n.ID(), req.CandidateID, VoteResponse{Term: n.ps.CurrentTerm, Granted: granted}, now)
}

func (n *Node) handleVoteResponse(from election.NodeID, resp VoteResponse, now time.Duration) []election.Message {
	if resp.Term > n.ps.CurrentTerm {
		n.becomeFollower(resp.Term)
		n.resetElectionTimer(now)
		return nil
	}
	if n.State() != election.Candidate || resp.Term != n.ps.CurrentTerm || !resp.Granted {
		return nil
	}
	n.votes[from] = struct{}{}
	if len(n.votes) >= n.Majority() {
		return n.becomeLeader(now)
	}
	return nil
}

func (n *Node) becomeLeader(now time.Duration) []election.Message {
	n.ClaimLeadership()
	n.electionDeadline = 0
	n.heartbeatDeadline = now + HeartbeatInterval
	return n.heartbeats(now)
}

func (n *Node) heartbeats(now time.Duration) []election.Message {
	return election.Broadcast(n.ID(), n.Total(), Heartbeat{Term: n.ps.CurrentTerm, LeaderID: n.ID()}, now)
}

func (n *Node) Tick(now time.Duration) []election.Message {
	if n.Crashed() {
		return nil
	}
	if n.State() == election.Leader {
		if now >= n.heartbeatDeadline {
			n.heartbeatDeadline = now + HeartbeatInterval
			return n.heartbeats(now)
		}
		return nil
	}
	if n.electionDeadline > 0 && now >= n.electionDeadline {
		return n.StartElection(now)
	}
	return nil
}
