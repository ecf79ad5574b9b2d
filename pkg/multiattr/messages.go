package multiattr

import "github.com/virajbhartiya/electsim/pkg/election"

// Election announces a candidacy together with the candidate's fitness.
type Election struct {
	Score float64
}

// Ok tells a candidate that someone fitter is taking over.
type Ok struct{}

type Coordinator struct {
	Leader election.NodeID
	Score  float64
}

type Heartbeat struct {
	Leader election.NodeID
	Score  float64
}

func (Election) Type() election.MessageType    { return election.MsgElection }
func (Ok) Type() election.MessageType          { return election.MsgOk }
func (Coordinator) Type() election.MessageType { return election.MsgCoordinator }
func (Heartbeat) Type() election.MessageType   { return election.MsgHeartbeat }
