package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"meritbot/bot"
	"meritbot/config"
	"meritbot/database"
	"meritbot/domain/entities"
	"meritbot/domain/interfaces"
	"meritbot/infrastructure"
	"meritbot/store"

	"github.com/jonboulle/clockwork"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting meritbot...")

	// Load configuration
	cfg := config.Get()

	// Initialize snapshot persistence
	var snapshots interfaces.SnapshotStore
	var db *database.DB
	switch cfg.SnapshotBackend {
	case "postgres":
		log.Println("Connecting to database...")
		conn, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		db = conn
		snapshots = infrastructure.NewPostgresSnapshotStore(db)
		log.Println("Database connection established successfully")
	case "file":
		snapshots = infrastructure.NewFileSnapshotStore(cfg.SnapshotPath)
		log.Printf("Using file snapshot store at %s", cfg.SnapshotPath)
	default:
		return fmt.Errorf("unknown snapshot backend: %s", cfg.SnapshotBackend)
	}

	// Initialize event publishing, NATS when configured, no-op otherwise
	var publisher interfaces.EventPublisher
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient)
		if err := natsPublisher.EnsureDomainEventStream(); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		publisher = natsPublisher
		log.Println("NATS connection established successfully")
	} else {
		publisher = infrastructure.NewNoopEventPublisher()
		log.Println("NATS not configured, event publishing disabled")
	}

	// Load persisted guild state
	log.Println("Loading guild state snapshot...")
	state, err := snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load guild state: %w", err)
	}
	st := store.NewWithState(state)
	log.Printf("Loaded state for %d guilds", len(state))

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:                   cfg.DiscordToken,
		LifecycleTickMinutes:    cfg.LifecycleTickMinutes,
		SnapshotIntervalMinutes: cfg.SnapshotIntervalMinutes,
	}
	discordBot, err := bot.New(botConfig, st, snapshots, publisher, clockwork.NewRealClock())
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	// Close Discord bot connection
	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Persist a final snapshot so no activity since the last tick is lost
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = st.RunExclusive(shutdownCtx, func(state entities.GuildState) error {
		return snapshots.Save(shutdownCtx, state)
	})
	if err != nil {
		log.Printf("Error saving final snapshot: %v", err)
	} else {
		log.Println("Final snapshot saved")
	}

	if natsClient != nil {
		natsClient.Close()
	}
	if db != nil {
		log.Println("Closing database connection...")
		db.Close()
	}

	log.Println("Shutdown completed")
	return nil
}
