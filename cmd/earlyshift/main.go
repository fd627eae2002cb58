package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/earlyshift/earlyshift/internal/api"
	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/detector"
	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/notify"
	"github.com/earlyshift/earlyshift/internal/roblox"
	"github.com/earlyshift/earlyshift/internal/storage"
	"github.com/earlyshift/earlyshift/internal/storage/driver"
	"github.com/earlyshift/earlyshift/internal/youtube"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	runOnce    = flag.Bool("once", false, "Run a single monitoring cycle and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Initialize storage
	store, err := driver.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()
	logger.Info("Storage initialized (driver: %s)", cfg.Storage.Driver)

	// Initialize collectors
	robloxClient := roblox.NewClient(cfg.Roblox)
	youtubeClient := youtube.NewClient(cfg.YouTube)
	if !youtubeClient.Enabled() {
		logger.Warn("YouTube API key not configured, detection runs growth-only")
	}

	// Initialize the detection pipeline
	matcher := detector.NewMatcher(cfg.Detector.FuzzyMatchThreshold, cfg.Detector.KeywordHints)
	extractor := detector.NewExtractor(cfg.Detector.KeywordHints)
	aggregator := detector.NewAggregator(store, matcher, extractor, detector.AggregatorConfig{
		Cooldown: cfg.Detector.Cooldown(),
		Lookback: cfg.Detector.VideoLookback(),
		Confidence: detector.ConfidenceParams{
			GrowthWeight:      cfg.Confidence.GrowthWeight,
			SaturationPercent: cfg.Confidence.GrowthSaturationPercent,
			GrowthOnlyCap:     cfg.Confidence.GrowthOnlyCap,
		},
		Aliases: cfg.Detector.AliasesFor,
	})

	// Initialize notification sinks
	var sinks []notify.Sink
	var telegramSink *notify.Telegram
	if cfg.Notify.Telegram.Enabled {
		telegramSink, err = notify.NewTelegram(cfg.Notify.Telegram)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram sink: %v", err)
		}
		sinks = append(sinks, telegramSink)
		logger.Info("Telegram sink initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}
	if cfg.Notify.Ntfy.Enabled {
		sinks = append(sinks, notify.NewNtfy(cfg.Notify.Ntfy, cfg.Detector.MobileAlertGrowthPercent))
	}
	if cfg.Notify.Notion.Enabled {
		sinks = append(sinks, notify.NewNotion(cfg.Notify.Notion))
	}
	dispatcher := notify.NewDispatcher(sinks...)
	logger.Info("Notification sinks active: %d", dispatcher.Sinks())

	// Optional read-only API
	if cfg.HTTP.Enabled {
		apiServer := api.NewServer(store, cfg.Detector)
		httpServer := &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: apiServer.Router()}
		go func() {
			logger.Info("HTTP API listening on %s", cfg.HTTP.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown failed: %v", err)
			}
		}()
	}

	if *runOnce {
		if err := runCycle(ctx, cfg, store, robloxClient, youtubeClient, aggregator, dispatcher, time.Now().UTC()); err != nil {
			logger.Fatal("Monitoring cycle failed: %v", err)
		}
		logger.Info("Single cycle complete")
		return
	}

	logger.Info("Starting monitoring service (cycle: %v, growth threshold: %.1f%%, window: %dd, video lookback: %dh, cooldown: %dh)",
		cfg.Monitor.CycleInterval(),
		cfg.Detector.GrowthThresholdPercent,
		cfg.Detector.TrailingWindowDays,
		cfg.Detector.VideoLookbackHours,
		cfg.Detector.CooldownHours,
	)

	ticker := time.NewTicker(cfg.Monitor.CycleInterval())
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramSink != nil {
				if sendErr := telegramSink.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			if consecutiveFailures >= cfg.Monitor.MaxConsecutiveFailures {
				logger.Error("Stopping after %d consecutive failed cycles", consecutiveFailures)
				cancel()
			}
			return
		}
		if consecutiveFailures > 0 && telegramSink != nil {
			if sendErr := telegramSink.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	// Run initial cycle immediately
	logger.Debug("Running initial monitoring cycle")
	handleCycleResult(runCycle(ctx, cfg, store, robloxClient, youtubeClient, aggregator, dispatcher, time.Now().UTC()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case tickTime := <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			handleCycleResult(runCycle(ctx, cfg, store, robloxClient, youtubeClient, aggregator, dispatcher, tickTime.UTC()))
		}
	}
}

// runCycle executes one full detection pass: poll CCU, collect videos,
// compute growth, correlate, and deliver. Partial failures inside a step are
// logged; only systemic failures (polling, snapshot storage) fail the cycle.
func runCycle(
	ctx context.Context,
	cfg *config.Config,
	store storage.Store,
	robloxClient *roblox.Client,
	youtubeClient *youtube.Client,
	aggregator *detector.Aggregator,
	dispatcher *notify.Dispatcher,
	cycleTime time.Time,
) error {
	startTime := time.Now()
	logger.Info("Starting monitoring cycle")

	// Poll CCU for the tracked universes
	universeIDs := robloxClient.TopUniverseIDs(ctx)
	logger.Debug("Polling CCU for %d universes", len(universeIDs))
	snaps, metas, err := robloxClient.FetchGames(ctx, universeIDs)
	if err != nil {
		return fmt.Errorf("failed to poll CCU: %w", err)
	}
	logger.Info("Polled %d universes", len(snaps))

	if err := store.UpsertSnapshots(ctx, snaps); err != nil {
		return fmt.Errorf("failed to store snapshots: %w", err)
	}
	if err := store.UpsertMetadata(ctx, metas); err != nil {
		logger.Warn("Failed to store universe metadata: %v", err)
	}

	// Collect creator uploads
	if youtubeClient.Enabled() {
		videos, err := youtubeClient.CollectAll(ctx)
		if err != nil {
			logger.Warn("Video collection failed, correlation falls back to stored videos: %v", err)
		} else if err := store.UpsertVideos(ctx, videos); err != nil {
			logger.Warn("Failed to store videos: %v", err)
		}
	}

	// Compute growth over the trailing window. The baseline row predates
	// the window, so the full retained history is loaded.
	snapshots, err := store.SnapshotsSince(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to load snapshot history: %w", err)
	}
	names, err := store.DisplayNames(ctx)
	if err != nil {
		logger.Warn("Failed to load display names, using poll-time names: %v", err)
		names = nil
	}

	events, entityErrs := detector.ComputeGrowth(snapshots, names, cycleTime, cfg.Detector.TrailingWindow())
	for _, entityErr := range entityErrs {
		logger.Warn("Skipped universe during growth detection: %v", entityErr)
	}
	spiking := detector.FilterThreshold(events, cfg.Detector.GrowthThresholdPercent)
	logger.Info("Growth computed for %d universes, %d above %.1f%%",
		len(events), len(spiking), cfg.Detector.GrowthThresholdPercent)

	// Correlate with the collected video feed and dedup against the ledger
	videos, err := store.VideosPublishedSince(ctx, cycleTime.Add(-cfg.Detector.VideoLookback()))
	if err != nil {
		logger.Warn("Failed to load videos for correlation: %v", err)
	}
	candidates, processErrs := aggregator.Process(ctx, spiking, videos, time.Now().UTC())
	for _, procErr := range processErrs {
		logger.Warn("Failed to process spike: %v", procErr)
	}

	if len(candidates) > 0 {
		logger.Info("Emitting %d spike alerts", len(candidates))
		if err := dispatcher.Dispatch(ctx, candidates); err != nil {
			logger.Error("Notification delivery incomplete: %v", err)
		}
	} else {
		logger.Info("No new spikes this cycle")
	}

	// Rotate old data
	if removed, err := store.DeleteSnapshotsBefore(ctx, cycleTime.Add(-cfg.Storage.SnapshotRetention())); err != nil {
		logger.Warn("Failed to rotate snapshots: %v", err)
	} else if removed > 0 {
		logger.Debug("Rotated %d snapshots", removed)
	}
	if removed, err := store.DeleteVideosBefore(ctx, cycleTime.Add(-cfg.Storage.VideoRetention())); err != nil {
		logger.Warn("Failed to rotate videos: %v", err)
	} else if removed > 0 {
		logger.Debug("Rotated %d videos", removed)
	}

	logger.Info("Monitoring cycle completed in %v", time.Since(startTime))
	return nil
}
