package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	httpProtocol "timelinehub/internal/protocols/http"
	"timelinehub/internal/protocols/stream"
	"timelinehub/internal/repository"
	"timelinehub/pkg/config"
	"timelinehub/pkg/logger"
	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

var eventTypes = []string{
	"intake.completed",
	"document.uploaded",
	"schema.migrated",
	"workflow.advanced",
	"review.requested",
	"verification.passed",
}

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	logger.Info("Starting TimelineHub development server...")

	events := repository.NewEventRepository()
	hub := stream.NewHub(cfg.Stream.MaxClients, cfg.Stream.BroadcastPerSecond, cfg.Stream.BroadcastBurst)
	streamHandler := stream.NewHandler(hub)

	httpServer := httpProtocol.NewServer(cfg, events, hub)
	httpServer.Router().GET("/ws/activity", streamHandler.HandleStream)
	httpServer.Router().GET("/ws/activity/status", streamHandler.GetStatus)

	if cfg.Seed.Enabled {
		seedBacklog(events, cfg.Seed.Backlog)
		logger.Infof("Seeded %d backlog events", cfg.Seed.Backlog)

		go runSeeder(events, hub, cfg.Seed.Interval)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("HTTP server panic recovered: %v", r)
			}
		}()
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Infof("Starting HTTP server on %s", addr)
		if err := httpServer.Start(addr); err != nil {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	hub.Stop()
	logger.Info("Goodbye")
}

// seedBacklog preloads events so a fresh dashboard has pages to load
func seedBacklog(events repository.EventRepository, n int) {
	ctx := context.Background()
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		event := syntheticEvent(base.Add(time.Duration(i) * time.Minute))
		if err := events.Create(ctx, &event); err != nil {
			logger.Warnf("Failed to seed event: %v", err)
		}
	}
}

// runSeeder emits a synthetic event on every tick and broadcasts it
func runSeeder(events repository.EventRepository, hub *stream.Hub, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		event := syntheticEvent(time.Now())
		ctx, cancel := utils.WithTimeout(context.Background())
		err := events.Create(ctx, &event)
		cancel()
		if err != nil {
			logger.Warnf("Failed to record synthetic event: %v", err)
			continue
		}
		hub.BroadcastCreated(models.ActivityFromEvent(event))
	}
}

func syntheticEvent(at time.Time) models.TimelineEvent {
	eventType := eventTypes[rand.Intn(len(eventTypes))]
	return models.TimelineEvent{
		ID:         utils.GenerateEventID(),
		SubjectID:  uuid.New().String(),
		Type:       eventType,
		OccurredAt: at,
		Payload: map[string]any{
			"title":  eventType,
			"source": "devserver",
		},
	}
}
