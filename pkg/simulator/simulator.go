package simulator

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/virajbhartiya/electsim/pkg/election"
	"github.com/virajbhartiya/electsim/pkg/transport"
)

// Step is the fixed amount simulated time advances per loop iteration.
const Step = 10 * time.Millisecond

// RunOptions configures one call to Run. Zero KillTime disables fault
// injection and zero RestartTime disables the restart.
type RunOptions struct {
	Duration    time.Duration
	KillTime    time.Duration
	RestartTime time.Duration
	// KilledNode picks the crash victim. When nil the lowest-id live leader
	// is crashed, or node 0 if there is none.
	KilledNode *election.NodeID
	Partition  *transport.Partition
}

// Observer sees the node array once per step, after ticks have run.
// Observers must not mutate the nodes.
type Observer interface {
	Observe(now time.Duration, nodes []election.Node)
}

type ObserverFunc func(now time.Duration, nodes []election.Node)

func (f ObserverFunc) Observe(now time.Duration, nodes []election.Node) { f(now, nodes) }

type Option func(*Simulator)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func WithStep(d time.Duration) Option {
	return func(s *Simulator) { s.step = d }
}

// Simulator owns the nodes of one run and the network between them, and
// drives both from a single loop over simulated time.
type Simulator struct {
	nodes     []election.Node
	net       *transport.Network
	step      time.Duration
	logger    *slog.Logger
	observers []Observer

	now       time.Duration
	delivered int
	discarded int
	leaders   []election.NodeID
}

func New(nodes []election.Node, net *transport.Network, opts ...Option) *Simulator {
	if len(nodes) == 0 {
		panic("simulator: no nodes")
	}
	for i, n := range nodes {
		if n.ID() != election.NodeID(i) {
			panic(fmt.Sprintf("simulator: node at index %d has id %d", i, n.ID()))
		}
	}
	s := &Simulator{
		nodes:  nodes,
		net:    net,
		step:   Step,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Now() time.Duration { return s.now }

func (s *Simulator) Node(id election.NodeID) election.Node { return s.nodes[id] }

// Send hands outbound messages to the network at the current instant.
func (s *Simulator) Send(msgs []election.Message) {
	for _, m := range msgs {
		if !s.net.Send(m, s.now) {
			s.logger.Debug("message lost", "msg", m.String())
		}
	}
}

// Crash fails a node. Survivors are not told; they have to notice.
func (s *Simulator) Crash(id election.NodeID) {
	n := s.nodes[id]
	if n.Crashed() {
		return
	}
	n.Crash()
	s.logger.Info("node crashed", "node", id, "at", s.now)
}

// Restart brings a crashed node back and lets it contend immediately.
func (s *Simulator) Restart(id election.NodeID) {
	n := s.nodes[id]
	if !n.Crashed() {
		return
	}
	n.Restart()
	s.logger.Info("node restarted", "node", id, "at", s.now)
	s.Send(n.StartElection(s.now))
}

// Leaders lists the live nodes currently in Leader state.
func (s *Simulator) Leaders() []election.NodeID {
	var ids []election.NodeID
	for _, n := range s.nodes {
		if !n.Crashed() && n.State() == election.Leader {
			ids = append(ids, n.ID())
		}
	}
	return ids
}

// Run seeds an election on node 1 and advances time until opts.Duration,
// injecting the configured faults along the way. It is meant to be called
// once per Simulator.
func (s *Simulator) Run(opts RunOptions) Metrics {
	m := Metrics{FinalLeader: election.None, Victim: election.None}
	s.net.SetPartition(opts.Partition)

	start := s.now
	starter := election.NodeID(1)
	if len(s.nodes) < 2 {
		starter = 0
	}
	s.logger.Debug("seeding election", "node", starter)
	s.Send(s.nodes[starter].StartElection(s.now))

	var (
		faultAt     time.Duration
		sentAtFault int
		restarted   bool
	)
	for s.now < opts.Duration {
		if !m.Faulted && opts.KillTime > 0 && s.now >= opts.KillTime {
			m.Victim = s.victim(opts.KilledNode)
			s.Crash(m.Victim)
			m.Faulted = true
			faultAt, sentAtFault = s.now, s.delivered
		}
		if m.Faulted && !restarted && opts.RestartTime > 0 && s.now >= opts.RestartTime {
			restarted = true
			s.Restart(m.Victim)
		}

		s.deliver()
		for _, n := range s.nodes {
			if !n.Crashed() {
				s.Send(n.Tick(s.now))
			}
		}

		leaders := s.Leaders()
		if len(leaders) > 0 {
			switch {
			case !m.Faulted && !m.Elected:
				m.Elected = true
				m.ElectionTime = s.now - start
				m.MessagesElection = s.delivered
			case m.Faulted && !m.Reelected:
				m.Reelected = true
				m.ReelectionTime = s.now - faultAt
				m.MessagesReelection = s.delivered - sentAtFault
			}
		}
		if !slices.Equal(leaders, s.leaders) {
			s.logger.Debug("leaders changed", "at", s.now, "leaders", leaders)
			s.leaders = leaders
		}
		for _, o := range s.observers {
			o.Observe(s.now, s.nodes)
		}
		s.now += s.step
	}

	if !m.Elected {
		if opts.KillTime > 0 {
			m.ElectionTime = opts.KillTime - start
		} else {
			m.ElectionTime = opts.Duration - start
		}
	}
	if m.Faulted && !m.Reelected {
		m.ReelectionTime = opts.Duration - faultAt
		m.MessagesReelection = s.delivered - sentAtFault
	}
	final := s.Leaders()
	m.FinalLeaders = len(final)
	if len(final) == 1 {
		m.FinalLeader = final[0]
	}
	m.MessagesSent = s.delivered
	m.MessagesDropped = s.discarded + s.net.Lost()
	return m
}

// deliver drains every message due by now.
func (s *Simulator) deliver() {
	for {
		msg, ok := s.net.Next(s.now)
		if !ok {
			return
		}
		to := s.nodes[msg.To]
		if to.Crashed() || !s.net.Reachable(msg.From, msg.To, s.now) {
			s.discarded++
			continue
		}
		s.delivered++
		s.Send(to.Receive(msg, s.now))
	}
}

func (s *Simulator) victim(requested *election.NodeID) election.NodeID {
	if requested != nil {
		if *requested < 0 || int(*requested) >= len(s.nodes) {
			panic(fmt.Sprintf("simulator: killed node %d out of range", *requested))
		}
		return *requested
	}
	if leaders := s.Leaders(); len(leaders) > 0 {
		return leaders[0]
	}
	return 0
}
