// Package config loads experiment settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/virajbhartiya/electsim/pkg/election"
	"github.com/virajbhartiya/electsim/pkg/protocol"
	"github.com/virajbhartiya/electsim/pkg/simulator"
	"github.com/virajbhartiya/electsim/pkg/transport"
)

// Config mirrors the YAML file. Times are seconds, latencies milliseconds.
type Config struct {
	NumNodes        int     `yaml:"num_nodes" json:"num_nodes"`
	LatencyMs       float64 `yaml:"latency_ms" json:"latency_ms"`
	LatencyJitterMs float64 `yaml:"latency_jitter_ms" json:"latency_jitter_ms"`
	MessageLossProb float64 `yaml:"message_loss_prob" json:"message_loss_prob"`

	LeaderKillTime float64 `yaml:"leader_kill_time" json:"leader_kill_time"`
	KilledNode     *int    `yaml:"killed_node,omitempty" json:"killed_node,omitempty"`

	EnableRestart       bool    `yaml:"enable_restart" json:"enable_restart"`
	OptionalRestartTime float64 `yaml:"optional_restart_time" json:"optional_restart_time"`

	EnablePartition    bool    `yaml:"enable_partition" json:"enable_partition"`
	PartitionStartTime float64 `yaml:"partition_start_time" json:"partition_start_time"`
	PartitionEndTime   float64 `yaml:"partition_end_time" json:"partition_end_time"`
	PartitionGroups    [][]int `yaml:"partition_groups" json:"partition_groups"`

	Duration  float64  `yaml:"duration" json:"duration"`
	Trials    int      `yaml:"trials" json:"trials"`
	Seed      int64    `yaml:"seed" json:"seed"`
	Workers   int      `yaml:"workers" json:"workers"`
	Protocols []string `yaml:"protocols" json:"protocols"`
}

// Default is the setup the comparison is usually run with.
func Default() Config {
	return Config{
		NumNodes:            5,
		LatencyMs:           50,
		LeaderKillTime:      2.0,
		OptionalRestartTime: 3.5,
		Duration:            5.0,
		Trials:              1,
		Seed:                1,
		Workers:             runtime.GOMAXPROCS(0),
		Protocols:           protocol.Names(),
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.NumNodes < 1 {
		errs = append(errs, fmt.Errorf("num_nodes must be positive, got %d", c.NumNodes))
	}
	if c.LatencyMs < 0 || c.LatencyJitterMs < 0 {
		errs = append(errs, errors.New("latency_ms and latency_jitter_ms must not be negative"))
	}
	if c.MessageLossProb < 0 || c.MessageLossProb > 1 {
		errs = append(errs, fmt.Errorf("message_loss_prob must be in [0,1], got %v", c.MessageLossProb))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", c.Duration))
	}
	if c.LeaderKillTime < 0 {
		errs = append(errs, fmt.Errorf("leader_kill_time must not be negative, got %v", c.LeaderKillTime))
	}
	if c.KilledNode != nil && (*c.KilledNode < 0 || *c.KilledNode >= c.NumNodes) {
		errs = append(errs, fmt.Errorf("killed_node %d out of range", *c.KilledNode))
	}
	if c.EnableRestart && c.OptionalRestartTime <= c.LeaderKillTime {
		errs = append(errs, fmt.Errorf("optional_restart_time %v must come after leader_kill_time %v",
			c.OptionalRestartTime, c.LeaderKillTime))
	}
	if c.EnablePartition {
		if _, err := c.partition(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Trials < 1 {
		errs = append(errs, fmt.Errorf("trials must be positive, got %d", c.Trials))
	}
	if len(c.Protocols) == 0 {
		errs = append(errs, errors.New("no protocols selected"))
	}
	for _, name := range c.Protocols {
		if _, err := protocol.Canonical(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func millis(ms float64) time.Duration { return time.Duration(ms * float64(time.Millisecond)) }

func (c Config) Latency() time.Duration { return millis(c.LatencyMs) }

func (c Config) Jitter() time.Duration { return millis(c.LatencyJitterMs) }

func (c Config) partition() (*transport.Partition, error) {
	groups := make([][]election.NodeID, len(c.PartitionGroups))
	for g, members := range c.PartitionGroups {
		for _, id := range members {
			if id < 0 || id >= c.NumNodes {
				return nil, fmt.Errorf("partition group %d names unknown node %d", g, id)
			}
			groups[g] = append(groups[g], election.NodeID(id))
		}
	}
	return transport.NewPartition(seconds(c.PartitionStartTime), seconds(c.PartitionEndTime), groups)
}

// RunOptions converts the fault and timing settings for the simulator.
func (c Config) RunOptions() (simulator.RunOptions, error) {
	opts := simulator.RunOptions{
		Duration: seconds(c.Duration),
		KillTime: seconds(c.LeaderKillTime),
	}
	if c.KilledNode != nil {
		id := election.NodeID(*c.KilledNode)
		opts.KilledNode = &id
	}
	if c.EnableRestart {
		opts.RestartTime = seconds(c.OptionalRestartTime)
	}
	if c.EnablePartition {
		p, err := c.partition()
		if err != nil {
			return simulator.RunOptions{}, err
		}
		opts.Partition = p
	}
	return opts, nil
}
