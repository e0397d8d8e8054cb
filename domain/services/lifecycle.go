package services

import (
	"context"
	"fmt"

	"meritbot/domain/entities"
	"meritbot/domain/events"
	"meritbot/domain/interfaces"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// RoundLifecycleService advances guild rounds from open to closed and opens
// the next one, invoking the distribution engine at the boundary. It is
// driven by an external periodic tick and relies on the caller to hold the
// state guard for the whole pass.
type RoundLifecycleService struct {
	clock     clockwork.Clock
	publisher interfaces.EventPublisher
}

// NewRoundLifecycleService creates a lifecycle service. publisher may be a
// no-op implementation.
func NewRoundLifecycleService(clock clockwork.Clock, publisher interfaces.EventPublisher) *RoundLifecycleService {
	return &RoundLifecycleService{
		clock:     clock,
		publisher: publisher,
	}
}

// CheckEndRounds scans every guild and closes rounds whose scheduled end has
// passed. Guilds are processed independently: a failure on one is logged and
// the rest of the batch continues.
func (s *RoundLifecycleService) CheckEndRounds(ctx context.Context, state entities.GuildState, roster interfaces.Roster) {
	for guildUUID, guild := range state {
		if err := s.closeIfExpired(ctx, guildUUID, guild, roster); err != nil {
			log.WithFields(log.Fields{
				"guild": guildUUID,
				"error": err,
			}).Error("Failed to close round, guild left at last successful write")
		}
	}
}

func (s *RoundLifecycleService) closeIfExpired(ctx context.Context, guildUUID string, guild *entities.Guild, roster interfaces.Roster) error {
	round := guild.OpenRound()
	if round == nil {
		return fmt.Errorf("guild has no rounds")
	}
	if !round.Open() {
		return fmt.Errorf("last round is already closed")
	}

	end := round.ScheduledEnd()
	if s.clock.Now().Before(end) {
		return nil
	}

	log.WithFields(log.Fields{
		"guild": guildUUID,
		"round": len(guild.Rounds) - 1,
	}).Info("Round ended, distributing reputation")

	result, err := Distribute(ctx, guild, 0, roster)
	if err != nil {
		return fmt.Errorf("failed to distribute reputation: %w", err)
	}

	var matchedTotal float64
	for _, m := range result.UsersMatched {
		matchedTotal += m
	}

	for id, u := range guild.Users {
		u.Reputations = append(u.Reputations, result.Users[id])
	}
	round.Close(end)
	guild.Rounds = append(guild.Rounds, entities.NewRound(round.NextStart(), entities.RoundConfigFromGuild(guild.Config)))

	if s.publisher != nil {
		if err := s.publisher.Publish(events.RoundClosedEvent{
			GuildUUID:  guildUUID,
			RoundIndex: len(guild.Rounds) - 2,
			EndDate:    round.EndDate,
			TotalUsers: len(guild.Users),
			Matched:    matchedTotal,
		}); err != nil {
			log.WithError(err).Warn("Failed to publish round closed event")
		}
	}

	SyncReputationRoles(ctx, guild, roster)

	return nil
}

// Recompute replays the distribution over every closed round from the first
// forward, rewriting each member's reputation trajectory in place. Grant and
// mint ledgers are left untouched, so a recompute over unchanged inputs
// reproduces the incremental round-by-round closes exactly.
//
// With useGuildConfig set, every round's config snapshot is first replaced
// by the current guild config.
func (s *RoundLifecycleService) Recompute(ctx context.Context, guild *entities.Guild, roster interfaces.Roster, useGuildConfig bool) error {
	if useGuildConfig {
		for _, r := range guild.Rounds {
			r.Config = entities.RoundConfigFromGuild(guild.Config)
		}
	}

	for i, r := range guild.Rounds {
		if r.Open() {
			break
		}

		shift := len(guild.Rounds) - 1 - i
		result, err := Distribute(ctx, guild, shift, roster)
		if err != nil {
			return fmt.Errorf("failed to distribute reputation for round %d: %w", i, err)
		}

		for id, u := range guild.Users {
			if i+1 < len(u.Reputations) {
				u.Reputations[i+1] = result.Users[id]
			} else {
				log.WithFields(log.Fields{
					"user":  id,
					"round": i,
				}).Warn("User history shorter than recomputed round, skipping")
			}
		}
	}

	return nil
}
