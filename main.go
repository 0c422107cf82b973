package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kosoku-tracker/config"
	"kosoku-tracker/models"
	"kosoku-tracker/notify"
	"kosoku-tracker/scraper/kosoku"
	"kosoku-tracker/services"
	"kosoku-tracker/storage"
	"kosoku-tracker/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Bus Seat Tracker starting ===")
	logger.Info("Config — site: %s | default interval: %ds", cfg.SiteBaseURL, cfg.DefaultIntervalSeconds)

	repo, err := storage.NewPostgresRepository(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer repo.Close()

	client, err := kosoku.NewClient(cfg.SiteBaseURL, logger)
	if err != nil {
		logger.Error("Failed to create site client: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subs, err := repo.ActiveSubscriptions(ctx)
	if err != nil {
		logger.Error("Failed to load subscriptions: %v", err)
		os.Exit(1)
	}
	if len(subs) == 0 {
		logger.Error("No active subscriptions configured. Exiting.")
		os.Exit(1)
	}

	for _, s := range subs {
		if s.IntervalSeconds <= 0 {
			s.IntervalSeconds = cfg.DefaultIntervalSeconds
		}
	}

	refreshStationCache(ctx, logger, client, repo, subs)

	notifier := notify.NewWebhookNotifier(logger)
	translator := services.DefaultTranslator()

	// One startup notification per distinct webhook destination.
	for _, summary := range notify.SummarizeStartup(subs) {
		if err := notifier.SendStartup(ctx, summary.WebhookURL, summary.Users, summary.Routes); err != nil {
			logger.Warn("Startup notification failed for %s: %v", summary.WebhookURL, err)
		}
	}

	var group utils.WorkerGroup
	started := 0
	for _, sub := range subs {
		tracker, err := services.NewTracker(sub, client, repo, notifier, translator, logger)
		if err != nil {
			logger.Error("Subscription %d is misconfigured, skipping: %v", sub.ID, err)
			continue
		}
		group.Spawn(func() { tracker.Run(ctx) })
		started++
	}

	if started == 0 {
		logger.Error("No subscription could be started. Exiting.")
		os.Exit(1)
	}

	logger.Info("Tracking %d subscription(s) — press Ctrl+C to stop", started)

	// In-flight polling cycles are abandoned on termination; there is no
	// drain.
	group.Wait()
	logger.Info("All workers stopped. Bye.")
}

// refreshStationCache pulls the station catalogs for every tracked route so
// alerts can show display names instead of raw station codes. Failures are
// logged and tolerated; alerts fall back to station ids.
func refreshStationCache(ctx context.Context, logger *utils.Logger, client *kosoku.Client, repo *storage.PostgresRepository, subs []*models.Subscription) {
	seen := make(map[string]struct{})
	for _, sub := range subs {
		if _, done := seen[sub.RouteID]; done {
			continue
		}
		seen[sub.RouteID] = struct{}{}

		stations, err := client.DepartureStations(ctx, sub.RouteID)
		if err != nil {
			logger.Warn("Station catalog for route %s failed: %v", sub.RouteID, err)
			continue
		}
		arrivals, err := client.ArrivalStations(ctx, sub.RouteID, sub.DepartureStationID)
		if err != nil {
			logger.Warn("Arrival catalog for route %s failed: %v", sub.RouteID, err)
		} else {
			stations = append(stations, arrivals...)
		}

		if err := repo.SaveStations(ctx, stations); err != nil {
			logger.Warn("Saving station names for route %s failed: %v", sub.RouteID, err)
		}
	}
}
