// Package experiment runs repeated simulations of each selected protocol
// and aggregates their metrics.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/virajbhartiya/electsim/pkg/config"
	"github.com/virajbhartiya/electsim/pkg/protocol"
	"github.com/virajbhartiya/electsim/pkg/simulator"
	"github.com/virajbhartiya/electsim/pkg/stats"
	"github.com/virajbhartiya/electsim/pkg/transport"
)

// nodeSeedMask separates the nodes' random stream from the network's.
const nodeSeedMask = 0x5DEECE66D

type Trial struct {
	Protocol string            `json:"protocol"`
	Index    int               `json:"index"`
	Seed     int64             `json:"seed"`
	Metrics  simulator.Metrics `json:"metrics"`
}

// Result aggregates all trials of one protocol. Times are in seconds.
type Result struct {
	Protocol   string        `json:"protocol"`
	Trials     []Trial       `json:"trials"`
	Successes  int           `json:"successes"`
	Election   stats.Summary `json:"election"`
	Reelection stats.Summary `json:"reelection"`
	Messages   stats.Summary `json:"messages"`
}

func (r Result) SuccessRate() float64 {
	if len(r.Trials) == 0 {
		return 0
	}
	return float64(r.Successes) / float64(len(r.Trials))
}

type Report struct {
	ID      string        `json:"id"`
	Config  config.Config `json:"config"`
	Results []Result      `json:"results"`
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

type Runner struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewRunner(cfg config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	r := &Runner{cfg: cfg, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// TrialSeed is shared by every protocol for a given trial index, so all of
// them face the same network randomness.
func (r *Runner) TrialSeed(index int) int64 {
	return r.cfg.Seed + int64(index)
}

// RunTrial simulates one run of the named protocol.
func (r *Runner) RunTrial(name string, index int) (Trial, error) {
	name, err := protocol.Canonical(name)
	if err != nil {
		return Trial{}, err
	}
	seed := r.TrialSeed(index)
	nodes, err := protocol.Cluster(name, r.cfg.NumNodes, rand.New(rand.NewSource(seed^nodeSeedMask)))
	if err != nil {
		return Trial{}, err
	}
	opts, err := r.cfg.RunOptions()
	if err != nil {
		return Trial{}, err
	}

	net := transport.NewNetwork(rand.New(rand.NewSource(seed)))
	net.SetDelay(r.cfg.Latency(), r.cfg.Jitter())
	net.SetDropRate(r.cfg.MessageLossProb)

	logger := r.logger.With("protocol", name, "trial", index)
	sim := simulator.New(nodes, net, simulator.WithLogger(logger))
	m := sim.Run(opts)
	logger.Debug("trial finished",
		"final_leaders", m.FinalLeaders,
		"election", m.ElectionTime,
		"reelection", m.ReelectionTime,
		"messages", m.MessagesSent)
	return Trial{Protocol: name, Index: index, Seed: seed, Metrics: m}, nil
}

// Run executes every configured trial of every configured protocol, spread
// over the configured number of workers.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	names := make([]string, len(r.cfg.Protocols))
	for i, name := range r.cfg.Protocols {
		canonical, err := protocol.Canonical(name)
		if err != nil {
			return nil, err
		}
		names[i] = canonical
	}
	workers := r.cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	trials := make([][]Trial, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for p, name := range names {
		trials[p] = make([]Trial, r.cfg.Trials)
		for i := range r.cfg.Trials {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				t, err := r.RunTrial(name, i)
				if err != nil {
					return fmt.Errorf("%s trial %d: %w", name, i, err)
				}
				trials[p][i] = t
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{ID: uuid.NewString(), Config: r.cfg}
	for p, name := range names {
		report.Results = append(report.Results, summarize(name, trials[p]))
	}
	r.logger.Info("experiment finished", "id", report.ID, "protocols", len(names), "trials", r.cfg.Trials)
	return report, nil
}

func summarize(name string, trials []Trial) Result {
	res := Result{Protocol: name, Trials: trials}
	var election, reelection, messages []float64
	for _, t := range trials {
		m := t.Metrics
		if m.Succeeded() {
			res.Successes++
		}
		election = append(election, m.ElectionTime.Seconds())
		if m.Faulted {
			reelection = append(reelection, m.ReelectionTime.Seconds())
		}
		messages = append(messages, float64(m.MessagesSent))
	}
	res.Election = stats.Summarize(election)
	res.Reelection = stats.Summarize(reelection)
	res.Messages = stats.Summarize(messages)
	return res
}
