// Smoke check for a deployment: verifies the Roblox games mirror, the
// configured storage backend, and the YouTube API (when a key is set) are
// all reachable before the daemon goes live.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/roblox"
	"github.com/earlyshift/earlyshift/internal/storage/driver"
	"github.com/earlyshift/earlyshift/internal/youtube"
)

// Blox Fruits: reliably near the top of the CCU charts, so a zero or
// missing reading means the mirror is broken, not the game.
const bloxFruitsUniverse = 994732206

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

var (
	okMark   = color.New(color.FgGreen).Sprint("[OK]")
	failMark = color.New(color.FgRed).Sprint("[FAIL]")
	skipMark = color.New(color.FgYellow).Sprint("[SKIP]")
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

	// Errors only, so log lines never interleave with the check output.
	logger.Init("error", cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("Checking Early Shift components...")
	failures := 0

	fmt.Println("\n1) Roblox games API...")
	robloxClient := roblox.NewClient(cfg.Roblox)
	snaps, _, err := robloxClient.FetchGames(ctx, []int64{bloxFruitsUniverse})
	switch {
	case err != nil:
		fmt.Printf("%s games API unreachable: %v\n", failMark, err)
		failures++
	case len(snaps) == 0 || snaps[0].CCU == 0:
		fmt.Printf("%s games API returned no live CCU reading\n", failMark)
		failures++
	default:
		fmt.Printf("%s Blox Fruits CCU: %d\n", okMark, snaps[0].CCU)
	}

	fmt.Println("\n2) Storage backend...")
	store, err := driver.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Printf("%s %s storage unavailable: %v\n", failMark, cfg.Storage.Driver, err)
		failures++
	} else {
		spikes, err := store.RecentSpikes(ctx, 1)
		if err != nil {
			fmt.Printf("%s spike ledger query failed: %v\n", failMark, err)
			failures++
		} else {
			fmt.Printf("%s %s storage ready (ledger rows sampled: %d)\n", okMark, cfg.Storage.Driver, len(spikes))
		}
		store.Close()
	}

	fmt.Println("\n3) YouTube collector...")
	youtubeClient := youtube.NewClient(cfg.YouTube)
	if !youtubeClient.Enabled() {
		fmt.Printf("%s no API key configured, detection will run growth-only\n", skipMark)
	} else {
		videos, err := youtubeClient.CollectAll(ctx)
		if err != nil {
			fmt.Printf("%s video collection failed: %v\n", failMark, err)
			failures++
		} else {
			fmt.Printf("%s collected %d recent videos\n", okMark, len(videos))
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d check(s) failed.\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nEarly Shift is ready.")
}
