package main

import (
	"context"
	"log"
	"net/http"

	webAdapter "stockroom/internal/adapters/web"
	"stockroom/internal/alert"
	"stockroom/internal/app"
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

	inventoryService := core.NewInventoryService(pool)
	changeService := core.NewChangeService(pool, inventoryService)
	userService := core.NewUserService(pool)

	notifier, err := notify.NewWebhookNotifier(cfg.Slack.WebhookURL)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}
	checker := alert.NewChecker(inventoryService, notifier, cfg.DefaultReorderPoint, cfg.Slack.ReorderLinkTemplate)

	svc := app.NewAppService(changeService, inventoryService, userService, notifier, checker, cfg.DefaultReorderPoint)
	handler := webAdapter.NewHandler(svc, cfg.Server.AllowedOrigins, cfg.JWTSecret)

	log.Printf("server starting on :%s", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
