package reputation

import (
	"context"
	"testing"
	"time"

	"meritbot/domain/entities"
	"meritbot/domain/services"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildRounds_BuildsAndReplaysFromHistory(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	guild := entities.NewGuild("guild-1", created)
	aliceUUID, alice, _ := guild.EnsureUser("discord-alice", "Alice", created)
	alice.Reputations = []float64{1, 7, 12} // stale trajectory from before the rebuild

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	history := []recordedGrant{
		{senderDiscordID: "discord-alice", receiverDiscordID: "discord-bob", channelID: "channel-1", reply: true, at: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)},
		{senderDiscordID: "discord-bob", receiverDiscordID: "discord-alice", channelID: "channel-1", emoji: "🔥", at: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)},
		{senderDiscordID: "discord-bob", receiverDiscordID: "discord-alice", channelID: "channel-1", emoji: "🔥", at: time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)}, // predates the window
		{senderDiscordID: "discord-alice", receiverDiscordID: "discord-alice", channelID: "channel-1", reply: true, at: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)},  // self grant, rejected
	}

	rounds, applied := rebuildRounds(guild, since, now, history)

	// 2024-03-01 and 2024-03-15 close before April; 2024-03-29 stays open
	assert.Equal(t, 3, rounds)
	assert.Equal(t, 2, applied)
	require.Len(t, guild.Rounds, 3)
	assert.False(t, guild.Rounds[0].Open())
	assert.Equal(t, "2024-03-01T00:00:00Z", guild.Rounds[0].StartDate)
	assert.False(t, guild.Rounds[1].Open())
	assert.True(t, guild.Rounds[2].Open())
	assert.Equal(t, "2024-03-29T00:00:00Z", guild.Rounds[2].StartDate)

	bobUUID, bob := guild.FindUserByDiscordID("discord-bob")
	require.NotNil(t, bob, "receiver must be created during the rebuild")

	// Reply grant of 2 lands in the first round, reaction grant of 1 in the second
	assert.Equal(t, 2.0, guild.Rounds[0].Grants[bobUUID][aliceUUID])
	assert.Equal(t, 1.0, guild.Rounds[1].Grants[aliceUUID][bobUUID])

	// Trajectories are reset to the floor and padded for the replay
	for _, u := range guild.Users {
		require.Len(t, u.Reputations, 3)
		assert.Equal(t, 1.0, u.Reputations[0])
	}

	svc := services.NewRoundLifecycleService(clockwork.NewFakeClockAt(now), nil)
	require.NoError(t, svc.Recompute(context.Background(), guild, nil, false))

	for _, u := range guild.Users {
		require.Len(t, u.Reputations, 3)
		for _, r := range u.Reputations {
			assert.GreaterOrEqual(t, r, 1.0)
		}
	}
}

func TestRebuildRounds_EmptyHistoryLeavesOneOpenRound(t *testing.T) {
	t.Parallel()

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	guild := entities.NewGuild("guild-1", since)

	rounds, applied := rebuildRounds(guild, since, since.Add(24*time.Hour), nil)

	assert.Equal(t, 1, rounds)
	assert.Zero(t, applied)
	assert.True(t, guild.OpenRound().Open())
}

func TestMessageGrants_RecoversRepliesAndReactions(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	msg := &discordgo.Message{
		ID:                "msg-1",
		ChannelID:         "channel-1",
		Timestamp:         at,
		Author:            &discordgo.User{ID: "discord-bob"},
		ReferencedMessage: &discordgo.Message{Author: &discordgo.User{ID: "discord-alice"}},
		Reactions:         []*discordgo.MessageReactions{{Emoji: &discordgo.Emoji{Name: "🔥"}}},
	}
	fetch := func(channelID, messageID, emojiAPIName string) ([]*discordgo.User, error) {
		return []*discordgo.User{
			{ID: "discord-carol"},
			{ID: "bot-helper", Bot: true}, // bots never grant
			{ID: "discord-bob"},           // own message, no self grant
		}, nil
	}

	grants := messageGrants(msg, "bot-id", false, fetch)

	require.Len(t, grants, 2)
	assert.Equal(t, recordedGrant{
		senderDiscordID:   "discord-bob",
		receiverDiscordID: "discord-alice",
		channelID:         "channel-1",
		reply:             true,
		at:                at,
	}, grants[0])
	assert.Equal(t, recordedGrant{
		senderDiscordID:   "discord-carol",
		receiverDiscordID: "discord-bob",
		channelID:         "channel-1",
		emoji:             "🔥",
		at:                at,
	}, grants[1])
}

func TestMessageGrants_PantheonRedirectsToMentions(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	msg := &discordgo.Message{
		ID:        "msg-1",
		ChannelID: "channel-pantheon",
		Timestamp: at,
		Author:    &discordgo.User{ID: "discord-bob"},
		Mentions: []*discordgo.User{
			{ID: "discord-dave"},
			{ID: "discord-carol"}, // the reactor, skipped
		},
		Reactions: []*discordgo.MessageReactions{{Emoji: &discordgo.Emoji{Name: "🏆"}}},
	}
	fetch := func(channelID, messageID, emojiAPIName string) ([]*discordgo.User, error) {
		return []*discordgo.User{{ID: "discord-carol"}}, nil
	}

	grants := messageGrants(msg, "bot-id", true, fetch)

	require.Len(t, grants, 1)
	assert.Equal(t, "discord-carol", grants[0].senderDiscordID)
	assert.Equal(t, "discord-dave", grants[0].receiverDiscordID)
	assert.Equal(t, "🏆", grants[0].emoji)
}
