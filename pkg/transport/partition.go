package transport

import (
	"fmt"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
)

// Partition splits the cluster into groups during [start, end). Only messages
// between members of the same group get through while it is active. Nodes not
// listed in any group are isolated. A Partition is immutable once built, so
// concurrent runs may share one.
type Partition struct {
	start time.Duration
	end   time.Duration
	index map[election.NodeID]int
}

// NewPartition validates the groups and builds the membership index.
func NewPartition(start, end time.Duration, groups [][]election.NodeID) (*Partition, error) {
	if end <= start {
		return nil, fmt.Errorf("partition window [%v, %v) is empty", start, end)
	}
	index := make(map[election.NodeID]int)
	for g, members := range groups {
		for _, id := range members {
			if prev, dup := index[id]; dup {
				return nil, fmt.Errorf("node %d appears in partition groups %d and %d", id, prev, g)
			}
			index[id] = g
		}
	}
	return &Partition{start: start, end: end, index: index}, nil
}

func (p *Partition) Start() time.Duration { return p.start }
func (p *Partition) End() time.Duration   { return p.end }

func (p *Partition) Active(now time.Duration) bool {
	return now >= p.start && now < p.end
}

func (p *Partition) SameGroup(a, b election.NodeID) bool {
	if a == b {
		return true
	}
	ga, okA := p.index[a]
	gb, okB := p.index[b]
	return okA && okB && ga == gb
}
