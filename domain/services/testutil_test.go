package services

import (
	"context"
	"time"

	"meritbot/domain/entities"
	"meritbot/domain/interfaces"
)

// testConfig returns the stock round config used across the service tests.
func testConfig() entities.RoundConfig {
	return entities.RoundConfigFromGuild(entities.NewGuildConfig())
}

// newTestGuild builds a guild with one open round and the given members,
// bypassing the Discord-facing constructors.
func newTestGuild(cfg entities.RoundConfig, users map[string]*entities.User) *entities.Guild {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &entities.Guild{
		GuildDiscordID: "guild-1",
		CreationDate:   start.Format(time.RFC3339),
		Config:         entities.GuildConfig{RoundConfig: cfg, ChannelPantheons: map[string]bool{}},
		Rounds:         []*entities.Round{entities.NewRound(start, cfg)},
		Users:          users,
	}
}

// testUser builds a member with a fixed reputation history.
func testUser(discordID string, reputations ...float64) *entities.User {
	return &entities.User{
		DiscordID:   discordID,
		Reputations: reputations,
		Config:      entities.UserConfigFromRound(testConfig()),
	}
}

// stubRoster serves canned member records, counts lookups and records role
// grants and revocations as "user:role" pairs.
type stubRoster struct {
	members      map[string]*interfaces.Member
	lookups      int
	rolesAdded   []string
	rolesRemoved []string
}

func (r *stubRoster) ResolveMemberRoles(ctx context.Context, guildDiscordID, userDiscordID string) (*interfaces.Member, error) {
	r.lookups++
	return r.members[userDiscordID], nil
}

func (r *stubRoster) AddMemberRole(ctx context.Context, guildDiscordID, userDiscordID, roleID string) error {
	r.rolesAdded = append(r.rolesAdded, userDiscordID+":"+roleID)
	return nil
}

func (r *stubRoster) RemoveMemberRole(ctx context.Context, guildDiscordID, userDiscordID, roleID string) error {
	r.rolesRemoved = append(r.rolesRemoved, userDiscordID+":"+roleID)
	return nil
}
