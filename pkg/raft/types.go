package raft

import "github.com/virajbhartiya/electsim/pkg/election"

// PersistentState is what a Raft node keeps across a crash. Everything else
// is volatile and reset by Restart.
type PersistentState struct {
	CurrentTerm uint64
	VotedFor    election.NodeID
}
