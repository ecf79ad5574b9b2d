package multiattr

import (
	"math/rand"
	"testing"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
	"github.com/virajbhartiya/electsim/pkg/simulator"
	"github.com/virajbhartiya/electsim/pkg/transport"
)

// scores: 0→90, 1→57, 2→100, 3→70, 4→47
var fleet = []Attributes{
	{Battery: 90, CPULoad: 10},
	{Battery: 60, CPULoad: 50},
	{Battery: 100, CPULoad: 0},
	{Battery: 70, CPULoad: 30},
	{Battery: 50, CPULoad: 60},
}

func newFleet() []election.Node {
	nodes := make([]election.Node, len(fleet))
	for i, a := range fleet {
		nodes[i] = NewWithAttributes(election.NodeID(i), len(fleet), a)
	}
	return nodes
}

func newSim(nodes []election.Node, opts ...simulator.Option) *simulator.Simulator {
	net := transport.NewNetwork(rand.New(rand.NewSource(1)))
	net.SetDelay(50*time.Millisecond, 0)
	return simulator.New(nodes, net, opts...)
}

func TestBestScoreLeadsThenRunnerUp(t *testing.T) {
	first := election.None
	watch := simulator.ObserverFunc(func(now time.Duration, nodes []election.Node) {
		for _, n := range nodes {
			if first == election.None && n.State() == election.Leader {
				first = n.ID()
			}
		}
	})
	m := newSim(newFleet(), simulator.WithObserver(watch)).Run(simulator.RunOptions{
		Duration: 5 * time.Second,
		KillTime: 2 * time.Second,
	})

	if first != 2 {
		t.Fatalf("first leader = %d, want best-scored node 2", first)
	}
	if m.ElectionTime != 350*time.Millisecond {
		t.Errorf("election took %v, want 350ms", m.ElectionTime)
	}
	if m.Victim != 2 {
		t.Fatalf("victim = %d, want 2", m.Victim)
	}
	if !m.Reelected || m.ReelectionTime > time.Second {
		t.Fatalf("reelected=%v after %v", m.Reelected, m.ReelectionTime)
	}
	if m.FinalLeaders != 1 || m.FinalLeader != 0 {
		t.Fatalf("final leaders=%d leader=%d, want runner-up node 0", m.FinalLeaders, m.FinalLeader)
	}
}

func TestRestartedBestNodeTakesOver(t *testing.T) {
	m := newSim(newFleet()).Run(simulator.RunOptions{
		Duration:    5 * time.Second,
		KillTime:    2 * time.Second,
		RestartTime: 3500 * time.Millisecond,
	})
	if m.FinalLeaders != 1 || m.FinalLeader != 2 {
		t.Fatalf("final leaders=%d leader=%d, want node 2", m.FinalLeaders, m.FinalLeader)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		attrs Attributes
		want  float64
	}{
		{Attributes{Battery: 100, CPULoad: 0}, 100},
		{Attributes{Battery: 50, CPULoad: 60}, 47},
		{Attributes{Battery: 80, CPULoad: 20}, 80},
	}
	for _, tt := range tests {
		if got := tt.attrs.Score(); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("Score(%+v) = %v, want %v", tt.attrs, got, tt.want)
		}
	}
}

func TestRandomAttributesInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 1000 {
		a := RandomAttributes(rng)
		if a.Battery < 50 || a.Battery > 100 || a.CPULoad < 0 || a.CPULoad > 60 {
			t.Fatalf("out of range: %+v", a)
		}
	}
}

func TestEqualScoresFavorHigherID(t *testing.T) {
	a := Attributes{Battery: 80, CPULoad: 20}
	low := NewWithAttributes(1, 3, a)
	high := NewWithAttributes(2, 3, a)
	if !high.outranks(low.Score(), low.ID()) || low.outranks(high.Score(), high.ID()) {
		t.Fatal("tie not broken by id")
	}
}

func TestOutrankedElectionIsAnswered(t *testing.T) {
	n := NewWithAttributes(2, 5, fleet[2])
	out := n.Receive(election.NewMessage(1, 2, Election{Score: 57}, 0), 0)
	if len(out) != 5 {
		t.Fatalf("sent %d messages, want an ok and 4 elections", len(out))
	}
	if out[0].To != 1 || out[0].Type != election.MsgOk {
		t.Fatalf("first message %v", out[0])
	}
	if n.State() != election.Candidate {
		t.Fatalf("state = %v", n.State())
	}

	lower := NewWithAttributes(4, 5, fleet[4])
	if out := lower.Receive(election.NewMessage(1, 4, Election{Score: 57}, 0), 0); len(out) != 0 {
		t.Fatalf("outranked node answered %v", out)
	}
}

func TestYieldingCandidateWaitsForCoordinator(t *testing.T) {
	n := NewWithAttributes(1, 5, fleet[1])
	n.StartElection(0)
	n.Receive(election.NewMessage(2, 1, Ok{}, 0), 100*time.Millisecond)
	if n.State() != election.Follower {
		t.Fatalf("state = %v after ok", n.State())
	}
	if out := n.Tick(OkTimeout); len(out) != 0 {
		t.Fatal("yielded candidate claimed leadership")
	}
	out := n.Tick(100*time.Millisecond + CoordinatorTimeout)
	if n.State() != election.Candidate || len(out) != 4 {
		t.Fatalf("state=%v sent=%d after the coordinator wait", n.State(), len(out))
	}
}

func TestLeaderYieldsToBetterLeader(t *testing.T) {
	n := NewWithAttributes(0, 5, fleet[0])
	n.StartElection(0)
	n.Tick(OkTimeout)
	if n.State() != election.Leader {
		t.Fatalf("state = %v", n.State())
	}
	n.Receive(election.NewMessage(3, 0, Heartbeat{Leader: 3, Score: 70}, 0), OkTimeout)
	if n.State() != election.Leader {
		t.Fatal("leader yielded to a worse leader")
	}
	n.Receive(election.NewMessage(2, 0, Coordinator{Leader: 2, Score: 100}, 0), OkTimeout)
	if l, _ := n.Leader(); l != 2 || n.State() != election.Follower {
		t.Fatalf("leader=%d state=%v", l, n.State())
	}
}

func TestRestartKeepsAttributes(t *testing.T) {
	n := NewWithAttributes(3, 5, fleet[3])
	n.StartElection(0)
	n.Tick(OkTimeout)
	n.Crash()
	n.Restart()

	if n.Attributes() != fleet[3] || n.Score() != fleet[3].Score() {
		t.Fatalf("attributes %+v score %v after restart", n.Attributes(), n.Score())
	}
	fresh := NewWithAttributes(3, 5, fleet[3])
	if *n != *fresh {
		t.Fatalf("restarted node %+v differs from fresh %+v", *n, *fresh)
	}
}

func TestUnexpectedPayloadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewWithAttributes(1, 5, fleet[1]).Receive(election.NewMessage(0, 1, foreign{}, 0), 0)
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
				rng := rand.New(rand.NewSource(seed))
				nodes := make([]election.Node, 5)
				for i := range nodes {
					nodes[i] = New(election.NodeID(i), len(nodes), rng)
				}
				net := transport.NewNetwork(rand.New(rand.NewSource(seed)))
				net.SetDelay(50*time.Millisecond, 10*time.Millisecond)
				m := simulator.New(nodes, net).Run(simulator.RunOptions{
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
