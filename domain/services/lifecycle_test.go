package services

import (
	"context"
	"testing"
	"time"

	"meritbot/domain/entities"
	"meritbot/domain/events"
	"meritbot/domain/interfaces"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records every published event.
type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func TestCheckEndRounds_BeforeScheduledEndIsNoop(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	guild := entities.NewGuild("guild-1", start)
	state := entities.GuildState{"uuid-1": guild}

	svc := NewRoundLifecycleService(clock, nil)

	// Half a day before the scheduled end of a 14-day round
	clock.Advance(13*24*time.Hour + 12*time.Hour)
	svc.CheckEndRounds(context.Background(), state, nil)

	assert.Len(t, guild.Rounds, 1)
	assert.True(t, guild.Rounds[0].Open())
}

func TestCheckEndRounds_ClosesExpiredRoundAndOpensNext(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	guild := entities.NewGuild("guild-1", start)
	guild.EnsureUser("discord-alice", "Alice", start)
	state := entities.GuildState{"uuid-1": guild}

	publisher := &capturePublisher{}
	svc := NewRoundLifecycleService(clock, publisher)

	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(context.Background(), state, nil)

	require.Len(t, guild.Rounds, 2)

	closed, open := guild.Rounds[0], guild.Rounds[1]
	assert.False(t, closed.Open())
	assert.Equal(t, "2024-03-14T23:59:59Z", closed.EndDate)
	assert.True(t, open.Open())
	assert.Equal(t, "2024-03-15T00:00:00Z", open.StartDate)

	// Every member gains a new reputation snapshot
	for _, u := range guild.Users {
		assert.Len(t, u.Reputations, 2)
	}

	require.Len(t, publisher.events, 1)
	closedEvent, ok := publisher.events[0].(events.RoundClosedEvent)
	require.True(t, ok)
	assert.Equal(t, "uuid-1", closedEvent.GuildUUID)
	assert.Equal(t, 0, closedEvent.RoundIndex)
}

func TestCheckEndRounds_RunsTwiceWithoutDoubleClosing(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	guild := entities.NewGuild("guild-1", start)
	state := entities.GuildState{"uuid-1": guild}

	svc := NewRoundLifecycleService(clock, nil)

	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(context.Background(), state, nil)
	svc.CheckEndRounds(context.Background(), state, nil)

	// The second pass sees a fresh open round that has not expired yet
	assert.Len(t, guild.Rounds, 2)
}

func TestCheckEndRounds_GuildFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)

	broken := entities.NewGuild("guild-broken", start)
	broken.Rounds = nil // no open round, closing must fail

	healthy := entities.NewGuild("guild-healthy", start)
	state := entities.GuildState{
		"uuid-broken":  broken,
		"uuid-healthy": healthy,
	}

	svc := NewRoundLifecycleService(clock, nil)

	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(context.Background(), state, nil)

	assert.Len(t, healthy.Rounds, 2, "healthy guild must close despite the broken one")
}

func TestCheckEndRounds_GrantsReputationRolesAfterClose(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	guild := entities.NewGuild("guild-1", start)
	guild.Config.ReputationRoles = map[string]float64{"role-elder": 1}
	guild.EnsureUser("discord-alice", "Alice", start)
	state := entities.GuildState{"uuid-1": guild}

	roster := &stubRoster{members: map[string]*interfaces.Member{
		"discord-alice": {Roles: map[string]bool{}},
	}}
	svc := NewRoundLifecycleService(clock, nil)

	// Alice stays at the reputation floor of 1 and meets the threshold
	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(context.Background(), state, roster)

	require.Len(t, guild.Rounds, 2)
	assert.Equal(t, []string{"discord-alice:role-elder"}, roster.rolesAdded)
}

func TestRecompute_ReproducesIncrementalCloses(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	guild := entities.NewGuild("guild-1", start)
	aliceUUID, _, _ := guild.EnsureUser("discord-alice", "Alice", start)
	bobUUID, _, _ := guild.EnsureUser("discord-bob", "Bob", start)
	state := entities.GuildState{"uuid-1": guild}

	svc := NewRoundLifecycleService(clock, nil)
	ctx := context.Background()

	// Round 1: alice grants to bob, then the round closes
	require.NoError(t, AddGrant(guild.OpenRound(), bobUUID, aliceUUID, 2))
	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(ctx, state, nil)

	// Round 2: bob grants back, then the round closes
	require.NoError(t, AddGrant(guild.OpenRound(), aliceUUID, bobUUID, 1))
	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(ctx, state, nil)

	require.Len(t, guild.Rounds, 3)

	incremental := map[string][]float64{}
	for id, u := range guild.Users {
		incremental[id] = append([]float64(nil), u.Reputations...)
	}

	require.NoError(t, svc.Recompute(ctx, guild, nil, false))

	for id, u := range guild.Users {
		assert.InDeltaSlice(t, incremental[id], u.Reputations, 1e-9, "user %s trajectory must be reproduced", id)
	}
}

func TestRecompute_UseGuildConfigReplacesRoundSnapshots(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	guild := entities.NewGuild("guild-1", start)
	guild.EnsureUser("discord-alice", "Alice", start)
	state := entities.GuildState{"uuid-1": guild}

	svc := NewRoundLifecycleService(clock, nil)
	ctx := context.Background()

	clock.Advance(14 * 24 * time.Hour)
	svc.CheckEndRounds(ctx, state, nil)

	guild.Config.MinReputationDecay = 0.01
	require.NoError(t, svc.Recompute(ctx, guild, nil, true))

	for _, r := range guild.Rounds {
		assert.Equal(t, 0.01, r.Config.MinReputationDecay)
	}
}
