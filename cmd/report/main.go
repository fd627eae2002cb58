package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/detector"
	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/report"
	"github.com/earlyshift/earlyshift/internal/storage/driver"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	limit      = flag.Int("limit", 20, "Maximum rows per table")
	movers     = flag.Bool("movers", false, "Also show the current growth ranking")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Errors only, so log lines never interleave with the tables.
	logger.Init("error", cfg.Logging.Format)

	ctx := context.Background()

	store, err := driver.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	spikes, err := store.RecentSpikes(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to load spikes: %v", err)
	}

	fmt.Println(report.FormatSpikesTable(spikes))
	fmt.Printf("\n%d spikes recorded.\n", len(spikes))

	if *movers {
		snaps, err := store.SnapshotsSince(ctx, time.Time{})
		if err != nil {
			log.Fatalf("Failed to load snapshots: %v", err)
		}
		names, err := store.DisplayNames(ctx)
		if err != nil {
			log.Fatalf("Failed to load display names: %v", err)
		}

		events, _ := detector.ComputeGrowth(snaps, names, time.Now().UTC(), cfg.Detector.TrailingWindow())
		if len(events) > *limit {
			events = events[:*limit]
		}

		fmt.Println()
		fmt.Println(report.FormatMoversTable(events))
	}
}
