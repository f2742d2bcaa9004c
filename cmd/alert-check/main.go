// alert-check performs one low-stock check-and-notify pass and exits. It is
// intended to be invoked by a scheduler (cron, systemd timer) once a week.
// Repeat invocations are harmless: at-least-once delivery, no other side
// effects.
//
// Usage: go run ./cmd/alert-check
package main

import (
	"context"
	"log"
	"os"

	"stockroom/internal/alert"
	"stockroom/internal/config"
	"stockroom/internal/core"
	"stockroom/internal/db"
	"stockroom/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	notifier, err := notify.NewWebhookNotifier(cfg.Slack.WebhookURL)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}

	checker := alert.NewChecker(core.NewInventoryService(pool), notifier, cfg.DefaultReorderPoint, cfg.Slack.ReorderLinkTemplate)
	report, err := checker.Run(ctx)
	if report != nil {
		log.Printf("checked %d items, %d low on stock, notified=%v",
			report.ItemsChecked, len(report.LowStock), report.Notified)
	}
	if err != nil {
		log.Printf("low-stock check failed: %v", err)
		os.Exit(1)
	}
}
