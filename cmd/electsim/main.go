package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/virajbhartiya/electsim/pkg/config"
	"github.com/virajbhartiya/electsim/pkg/experiment"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		trials     = flag.Int("trials", 0, "Trials per protocol (overrides config)")
		seed       = flag.Int64("seed", 0, "Base random seed (overrides config)")
		protocols  = flag.String("protocols", "", "Comma-separated protocols to compare (overrides config)")
		workers    = flag.Int("workers", 0, "Concurrent trials (overrides config)")
		verbose    = flag.Bool("v", false, "Debug logging")
		jsonOut    = flag.Bool("json", false, "Print the report as JSON")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *trials > 0 {
		cfg.Trials = *trials
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *protocols != "" {
		cfg.Protocols = nil
		for _, name := range strings.Split(*protocols, ",") {
			cfg.Protocols = append(cfg.Protocols, strings.TrimSpace(name))
		}
	}

	runner, err := experiment.NewRunner(cfg, experiment.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		err = report.WriteJSON(os.Stdout)
	} else {
		err = report.WriteTable(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
}
