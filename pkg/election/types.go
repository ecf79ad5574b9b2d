package election

import "fmt"

// NodeID indexes the fixed node array of a run.
type NodeID int

// None marks the absence of a leader or vote.
const None NodeID = -1

type State int

const (
	Follower State = iota
	Candidate
	Leader
	Crashed
)

func (s State) String() string {
	switch s {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	case Crashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type MessageType int

const (
	MsgElection MessageType = iota + 1
	MsgOk
	MsgCoordinator
	MsgHeartbeat
	MsgRequestVote
	MsgVoteResponse
	MsgPing
	MsgAck
	MsgToken
	MsgElected
)

var messageTypeNames = map[MessageType]string{
	MsgElection:     "Election",
	MsgOk:           "Ok",
	MsgCoordinator:  "Coordinator",
	MsgHeartbeat:    "Heartbeat",
	MsgRequestVote:  "RequestVote",
	MsgVoteResponse: "VoteResponse",
	MsgPing:         "Ping",
	MsgAck:          "Ack",
	MsgToken:        "Token",
	MsgElected:      "Elected",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}
