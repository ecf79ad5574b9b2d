// Package protocol maps protocol names to node constructors.
package protocol

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/virajbhartiya/electsim/pkg/bully"
	"github.com/virajbhartiya/electsim/pkg/election"
	"github.com/virajbhartiya/electsim/pkg/multiattr"
	"github.com/virajbhartiya/electsim/pkg/raft"
	"github.com/virajbhartiya/electsim/pkg/ring"
)

var ErrUnknownProtocol = errors.New("unknown protocol")

// Constructor builds node id of a total-sized cluster. rng is the run's
// random source; protocols that need randomness keep it.
type Constructor func(id election.NodeID, total int, rng *rand.Rand) election.Node

const (
	Bully          = "bully"
	Ring           = "ring"
	Raft           = "raft"
	MultiAttribute = "multi_attribute"
)

var constructors = map[string]Constructor{
	Bully:          bully.New,
	Ring:           ring.New,
	Raft:           raft.New,
	MultiAttribute: multiattr.New,
}

var aliases = map[string]string{
	"multi-attribute": MultiAttribute,
	"multiattr":       MultiAttribute,
	"chang-roberts":   Ring,
}

// Names lists the canonical protocol names in display order.
func Names() []string {
	return []string{Bully, Ring, Raft, MultiAttribute}
}

// Canonical resolves aliases and case.
func Canonical(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if _, ok := constructors[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
	}
	return key, nil
}

func Lookup(name string) (Constructor, error) {
	key, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	return constructors[key], nil
}

// Cluster builds all n nodes of one protocol.
func Cluster(name string, n int, rng *rand.Rand) ([]election.Node, error) {
	ctor, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("cluster needs at least one node, got %d", n)
	}
	nodes := make([]election.Node, n)
	for i := range nodes {
		nodes[i] = ctor(election.NodeID(i), n, rng)
	}
	return nodes, nil
}
