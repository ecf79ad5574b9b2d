package ring

import (
	"slices"

	"github.com/virajbhartiya/electsim/pkg/election"
)

// Election is the circulating token of an election; IDs accumulates every
// node it has passed.
type Election struct {
	IDs []election.NodeID
}

// extend returns a copy of e with id appended, leaving e untouched.
func (e Election) extend(id election.NodeID) Election {
	ids := make([]election.NodeID, 0, len(e.IDs)+1)
	ids = append(ids, e.IDs...)
	return Election{IDs: append(ids, id)}
}

func (e Election) contains(id election.NodeID) bool { return slices.Contains(e.IDs, id) }

type Elected struct {
	Leader election.NodeID
}

// Token is the leader's liveness signal, relayed around the ring.
type Token struct {
	Leader election.NodeID
	Hops   int
}

type Ping struct {
	Probe bool
}

type Ack struct {
	Probe bool
}

func (Election) Type() election.MessageType { return election.MsgElection }
func (Elected) Type() election.MessageType  { return election.MsgElected }
func (Token) Type() election.MessageType    { return election.MsgToken }
func (Ping) Type() election.MessageType     { return election.MsgPing }
func (Ack) Type() election.MessageType      { return election.MsgAck }
