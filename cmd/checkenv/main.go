package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aluiziolira/go-enrich-products/config"
	"github.com/aluiziolira/go-enrich-products/store"
)

type check struct {
	name string
	run  func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if failed := runChecks(ctx, os.Stdout, checksFor(cfg)); failed > 0 {
		fmt.Printf("\n%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("\nenvironment ready")
}

func checksFor(cfg *config.Config) []check {
	checks := []check{
		{name: "configuration", run: func(context.Context) error { return cfg.Validate() }},
		{name: config.EnvAPIKey, run: func(context.Context) error {
			if cfg.AIAPIKey == "" {
				return fmt.Errorf("not set")
			}
			return nil
		}},
		{name: "output dir " + cfg.OutputDir, run: func(context.Context) error { return writableDir(cfg.OutputDir) }},
	}
	if cfg.SaveBatches {
		checks = append(checks, check{
			name: "checkpoint dir " + cfg.CheckpointDir,
			run:  func(context.Context) error { return writableDir(cfg.CheckpointDir) },
		})
	}

	switch cfg.Sink {
	case "sqlite":
		checks = append(checks, check{name: "sqlite " + cfg.SQLitePath, run: func(ctx context.Context) error {
			s, err := store.NewSQLiteStore(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Ping(ctx)
		}})
	case "pebble":
		checks = append(checks, check{name: "pebble " + cfg.PebbleDir, run: func(context.Context) error {
			s, err := store.NewPebbleStore(cfg.PebbleDir)
			if err != nil {
				return err
			}
			return s.Close()
		}})
	case "kafka":
		checks = append(checks, check{name: "kafka " + cfg.KafkaTopic, run: func(ctx context.Context) error {
			s := store.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
			defer s.Close()
			return s.Ping(ctx)
		}})
	}
	return checks
}

func runChecks(ctx context.Context, w io.Writer, checks []check) int {
	failed := 0
	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			failed++
			fmt.Fprintf(w, "  FAIL  %s: %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(w, "  ok    %s\n", c.name)
	}
	return failed
}

func writableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".checkenv-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
