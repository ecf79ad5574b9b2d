package bully

import (
	"math/rand"
	"testing"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
	"github.com/virajbhartiya/electsim/pkg/simulator"
	"github.com/virajbhartiya/electsim/pkg/transport"
)

func newCluster(n int) []election.Node {
	nodes := make([]election.Node, n)
	for i := range nodes {
		nodes[i] = New(election.NodeID(i), n, nil)
	}
	return nodes
}

func newSim(nodes []election.Node) *simulator.Simulator {
	net := transport.NewNetwork(rand.New(rand.NewSource(1)))
	net.SetDelay(50*time.Millisecond, 0)
	return simulator.New(nodes, net)
}

func TestHighestNodeWinsThenNextHighestAfterCrash(t *testing.T) {
	var first election.NodeID = election.None
	nodes := newCluster(5)
	net := transport.NewNetwork(rand.New(rand.NewSource(1)))
	net.SetDelay(50*time.Millisecond, 0)
	sim := simulator.New(nodes, net, simulator.WithObserver(simulator.ObserverFunc(
		func(now time.Duration, nodes []election.Node) {
			if first == election.None && now < 2*time.Second {
				for _, n := range nodes {
					if n.State() == election.Leader {
						first = n.ID()
					}
				}
			}
		})))
	m := sim.Run(simulator.RunOptions{Duration: 5 * time.Second, KillTime: 2 * time.Second})

	if first != 4 {
		t.Fatalf("first leader = %d, want 4", first)
	}
	if m.ElectionTime != 50*time.Millisecond {
		t.Errorf("election took %v, want 50ms", m.ElectionTime)
	}
	if m.MessagesElection > 8 {
		t.Errorf("initial election used %d messages, want at most 8", m.MessagesElection)
	}
	if m.Victim != 4 {
		t.Fatalf("victim = %d, want 4", m.Victim)
	}
	if !m.Reelected || m.ReelectionTime > time.Second {
		t.Fatalf("reelected=%v after %v", m.Reelected, m.ReelectionTime)
	}
	if m.FinalLeaders != 1 || m.FinalLeader != 3 {
		t.Fatalf("final leaders=%d leader=%d, want node 3 alone", m.FinalLeaders, m.FinalLeader)
	}
	for _, n := range nodes[:4] {
		if l, ok := n.Leader(); !ok || l != 3 {
			t.Errorf("node %d believes leader is %d", n.ID(), l)
		}
	}
}

func TestRestartedHighestNodeRetakesLeadership(t *testing.T) {
	nodes := newCluster(5)
	m := newSim(nodes).Run(simulator.RunOptions{
		Duration:    5 * time.Second,
		KillTime:    2 * time.Second,
		RestartTime: 3500 * time.Millisecond,
	})
	if m.FinalLeaders != 1 || m.FinalLeader != 4 {
		t.Fatalf("final leaders=%d leader=%d, want node 4 alone", m.FinalLeaders, m.FinalLeader)
	}
}

func TestHighestNodeClaimsImmediately(t *testing.T) {
	n := New(4, 5, nil)
	out := n.StartElection(0)
	if n.State() != election.Leader {
		t.Fatalf("state = %v, want leader", n.State())
	}
	if len(out) != 4 {
		t.Fatalf("sent %d messages, want 4 coordinators", len(out))
	}
	for _, m := range out {
		if c, ok := m.Payload.(Coordinator); !ok || c.Leader != 4 {
			t.Fatalf("unexpected message %v", m)
		}
	}
}

func TestElectionOnlyAddressesHigherNodes(t *testing.T) {
	n := New(1, 5, nil)
	out := n.StartElection(0)
	if n.State() != election.Candidate {
		t.Fatalf("state = %v, want candidate", n.State())
	}
	if len(out) != 3 {
		t.Fatalf("sent %d messages, want 3", len(out))
	}
	for _, m := range out {
		if m.To <= 1 || m.Type != election.MsgElection {
			t.Fatalf("unexpected message %v", m)
		}
	}
}

func TestElectionFromLowerNodeIsAnswered(t *testing.T) {
	n := New(2, 5, nil)
	out := n.Receive(election.NewMessage(0, 2, Election{}, 0), 10*time.Millisecond)

	var oks, elections int
	for _, m := range out {
		switch m.Payload.(type) {
		case Ok:
			oks++
			if m.To != 0 {
				t.Errorf("ok sent to %d", m.To)
			}
		case Election:
			elections++
		}
	}
	if oks != 1 || elections != 2 {
		t.Fatalf("oks=%d elections=%d, want 1 and 2", oks, elections)
	}
}

func TestUnansweredCandidateWins(t *testing.T) {
	n := New(2, 5, nil)
	n.StartElection(0)
	if out := n.Tick(OkTimeout - time.Millisecond); len(out) != 0 || n.State() != election.Candidate {
		t.Fatalf("won before the ok timeout")
	}
	out := n.Tick(OkTimeout)
	if n.State() != election.Leader || len(out) != 4 {
		t.Fatalf("state=%v sent=%d after ok timeout", n.State(), len(out))
	}
}

func TestLateOkIsIgnored(t *testing.T) {
	n := New(2, 5, nil).(*Node)
	n.StartElection(0)
	n.Receive(election.NewMessage(4, 2, Coordinator{Leader: 4}, 0), 50*time.Millisecond)
	n.Receive(election.NewMessage(3, 2, Ok{}, 0), 60*time.Millisecond)
	if n.coordinatorDeadline != 0 {
		t.Fatal("ok after coordinator armed a coordinator wait")
	}
	if l, _ := n.Leader(); l != 4 || n.State() != election.Follower {
		t.Fatalf("leader=%d state=%v", l, n.State())
	}
}

func TestMissingHeartbeatsTriggerElection(t *testing.T) {
	n := New(2, 5, nil)
	n.Receive(election.NewMessage(4, 2, Heartbeat{Leader: 4}, 0), 100*time.Millisecond)
	if out := n.Tick(100*time.Millisecond + LeaderTimeout - time.Millisecond); len(out) != 0 {
		t.Fatal("election started before the leader timeout")
	}
	out := n.Tick(100*time.Millisecond + LeaderTimeout)
	if len(out) == 0 || n.State() != election.Candidate {
		t.Fatalf("state=%v sent=%d after the leader timeout", n.State(), len(out))
	}
	if _, ok := n.Leader(); ok {
		t.Fatal("stale leader kept")
	}
}

func TestRestartMatchesFreshNode(t *testing.T) {
	n := New(1, 5, nil).(*Node)
	n.StartElection(0)
	n.Receive(election.NewMessage(2, 1, Ok{}, 0), 50*time.Millisecond)
	n.Receive(election.NewMessage(4, 1, Heartbeat{Leader: 4}, 0), 60*time.Millisecond)
	n.Crash()
	n.Restart()

	fresh := New(1, 5, nil).(*Node)
	if *n != *fresh {
		t.Fatalf("restarted node %+v differs from fresh %+v", *n, *fresh)
	}
}

func TestCrashedNodeIsSilent(t *testing.T) {
	n := New(1, 5, nil)
	n.Crash()
	if out := n.StartElection(0); out != nil {
		t.Fatal("crashed node started an election")
	}
	if out := n.Receive(election.NewMessage(0, 1, Election{}, 0), 0); out != nil {
		t.Fatal("crashed node answered")
	}
}

func TestUnexpectedPayloadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(1, 5, nil).Receive(election.NewMessage(0, 1, foreign{}, 0), 0)
}

type foreign struct{}

func (foreign) Type() election.MessageType { return election.MsgToken }

func TestHealsAfterPartition(t *testing.T) {
	tests := []struct {
		name string
		kill time.Duration
	}{
		{"split only", 0},
		{"leader crash during split", 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(1); seed <= 20; seed++ {
				p, err := transport.NewPartition(time.Second, 2500*time.Millisecond,
					[][]election.NodeID{{0, 1}, {2, 3, 4}})
				if err != nil {
					t.Fatal(err)
				}
				net := transport.NewNetwork(rand.New(rand.NewSource(seed)))
				net.SetDelay(50*time.Millisecond, 10*time.Millisecond)
				m := simulator.New(newCluster(5), net).Run(simulator.RunOptions{
					Duration:  5 * time.Second,
					KillTime:  tt.kill,
					Partition: p,
				})
				if m.FinalLeaders != 1 {
					t.Errorf("seed %d: %d leaders at the end, want 1", seed, m.FinalLeaders)
				}
			}
		})
	}
}
