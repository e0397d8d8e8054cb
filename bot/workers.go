package bot

import (
	"context"
	"time"

	"meritbot/domain/entities"
	"meritbot/domain/events"

	log "github.com/sirupsen/logrus"
)

// StartRoundLifecycleWorker starts a background worker that periodically
// closes expired rounds and opens their successors.
// Returns a cleanup function to stop the worker gracefully.
func (b *Bot) StartRoundLifecycleWorker(ctx context.Context) func() {
	interval := time.Duration(b.config.LifecycleTickMinutes) * time.Minute
	ticker := b.clock.NewTicker(interval)
	stopChan := make(chan struct{})

	tick := func() {
		err := b.store.RunExclusive(ctx, func(state entities.GuildState) error {
			b.lifecycle.CheckEndRounds(ctx, state, b.roster)
			return nil
		})
		if err != nil {
			log.Errorf("Error running round lifecycle pass: %v", err)
		}
	}

	go func() {
		log.Infof("Round lifecycle worker started, interval %v", interval)

		// Run immediately on startup
		tick()

		for {
			select {
			case <-ctx.Done():
				log.Info("Round lifecycle worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Round lifecycle worker shutting down (stop requested)...")
				return
			case <-ticker.Chan():
				tick()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// StartSnapshotWorker starts a background worker that periodically persists
// the full guild state to the snapshot store.
// Returns a cleanup function to stop the worker gracefully.
func (b *Bot) StartSnapshotWorker(ctx context.Context) func() {
	interval := time.Duration(b.config.SnapshotIntervalMinutes) * time.Minute
	ticker := b.clock.NewTicker(interval)
	stopChan := make(chan struct{})

	save := func() {
		var guilds int
		err := b.store.RunExclusive(ctx, func(state entities.GuildState) error {
			guilds = len(state)
			return b.snapshots.Save(ctx, state)
		})
		if err != nil {
			log.Errorf("Error saving state snapshot: %v", err)
			return
		}

		if err := b.publisher.Publish(events.SnapshotSavedEvent{Guilds: guilds}); err != nil {
			log.WithError(err).Warn("Failed to publish snapshot event")
		}
	}

	go func() {
		log.Infof("Snapshot worker started, interval %v", interval)

		for {
			select {
			case <-ctx.Done():
				log.Info("Snapshot worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Snapshot worker shutting down (stop requested)...")
				return
			case <-ticker.Chan():
				save()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
