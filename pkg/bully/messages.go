package bully

import "github.com/virajbhartiya/electsim/pkg/election"

type Election struct{}

type Ok struct{}

type Coordinator struct {
	Leader election.NodeID
}

type Heartbeat struct {
	Leader election.NodeID
}

func (Election) Type() election.MessageType    { return election.MsgElection }
func (Ok) Type() election.MessageType          { return election.MsgOk }
func (Coordinator) Type() election.MessageType { return election.MsgCoordinator }
func (Heartbeat) Type() election.MessageType   { return election.MsgHeartbeat }
