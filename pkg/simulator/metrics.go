package simulator

import (
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

// Metrics summarizes one run. Message counts are deliveries, not sends:
// anything lost, partitioned away or addressed to a crashed node is counted
// in MessagesDropped instead.
type Metrics struct {
	ElectionTime       time.Duration `json:"election_time"`
	ReelectionTime     time.Duration `json:"reelection_time"`
	MessagesSent       int           `json:"messages_sent"`
	FinalLeaders       int           `json:"final_leaders"`
	MessagesElection   int           `json:"messages_election"`
	MessagesReelection int           `json:"messages_reelection"`

	MessagesDropped int             `json:"messages_dropped"`
	Elected         bool            `json:"elected"`
	Reelected       bool            `json:"reelected"`
	Faulted         bool            `json:"faulted"`
	Victim          election.NodeID `json:"victim"`
	FinalLeader     election.NodeID `json:"final_leader"`
}

// Succeeded reports whether the run ended with exactly one live leader.
func (m Metrics) Succeeded() bool { return m.FinalLeaders == 1 }
