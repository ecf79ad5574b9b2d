package raft

import "github.com/virajbhartiya/electsim/pkg/election"

type RequestVote struct {
	Term        uint64
	CandidateID election.NodeID
}

type VoteResponse struct {
	Term    uint64
	Granted bool
}

// Heartbeat stands in for an empty AppendEntries.
type Heartbeat struct {
	Term     uint64
	LeaderID election.NodeID
}

func (RequestVote) Type() election.MessageType  { return election.MsgRequestVote }
func (VoteResponse) Type() election.MessageType { return election.MsgVoteResponse }
func (Heartbeat) Type() election.MessageType    { return election.MsgHeartbeat }
