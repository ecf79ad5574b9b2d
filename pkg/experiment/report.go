package experiment

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteTable prints the comparison table followed by a short analysis.
func (r *Report) WriteTable(w io.Writer) error {
	cfg := r.Config
	fmt.Fprintf(w, "Leader election comparison (%s)\n", r.ID)
	fmt.Fprintf(w, "Setup: %d nodes, %.0fms latency (±%.0fms), loss %.2f, %d trial(s), seed %d\n",
		cfg.NumNodes, cfg.LatencyMs, cfg.LatencyJitterMs, cfg.MessageLossProb, cfg.Trials, cfg.Seed)
	if cfg.LeaderKillTime > 0 {
		fmt.Fprintf(w, "Leader crash at t=%.2fs", cfg.LeaderKillTime)
		if cfg.EnableRestart {
			fmt.Fprintf(w, ", restart at t=%.2fs", cfg.OptionalRestartTime)
		}
		fmt.Fprintln(w)
	}
	if cfg.EnablePartition {
		fmt.Fprintf(w, "Partition %v during [%.2fs, %.2fs)\n",
			cfg.PartitionGroups, cfg.PartitionStartTime, cfg.PartitionEndTime)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Algorithm\tElection P50\tElection P95\tRe-election P50\tRe-election P95\tMessages P50\tMessages P95\tSuccess rate")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%.3fs\t%.3fs\t%.3fs\t%.3fs\t%.0f\t%.0f\t%.0f%%\n",
			res.Protocol,
			res.Election.P50, res.Election.P95,
			res.Reelection.P50, res.Reelection.P95,
			res.Messages.P50, res.Messages.P95,
			100*res.SuccessRate())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Results) == 0 {
		return nil
	}
	fastest, fastestRe, fewest := r.Results[0], r.Results[0], r.Results[0]
	perfect := 0
	for _, res := range r.Results {
		if res.Election.P50 < fastest.Election.P50 {
			fastest = res
		}
		if res.Reelection.P50 < fastestRe.Reelection.P50 {
			fastestRe = res
		}
		if res.Messages.P50 < fewest.Messages.P50 {
			fewest = res
		}
		if res.Successes == len(res.Trials) {
			perfect++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Fastest election:     %s (%.3fs)\n", fastest.Protocol, fastest.Election.P50)
	if cfg.LeaderKillTime > 0 {
		fmt.Fprintf(w, "Fastest re-election:  %s (%.3fs)\n", fastestRe.Protocol, fastestRe.Reelection.P50)
	}
	fmt.Fprintf(w, "Fewest messages:      %s (%.0f msgs)\n", fewest.Protocol, fewest.Messages.P50)
	_, err := fmt.Fprintf(w, "Success rate:         %d/%d algorithms\n", perfect, len(r.Results))
	return err
}
