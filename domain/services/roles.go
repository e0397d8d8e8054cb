package services

import (
	"context"

	"meritbot/domain/entities"
	"meritbot/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// SyncReputationRoles grants every configured reputation role to the members
// whose current reputation meets its threshold. Members keep roles they
// already hold; nothing is revoked here. A nil roster or an empty threshold
// map makes this a no-op, and per-member failures are logged and skipped.
func SyncReputationRoles(ctx context.Context, guild *entities.Guild, roster interfaces.Roster) {
	if roster == nil || len(guild.Config.ReputationRoles) == 0 {
		return
	}

	for _, u := range guild.Users {
		if u.DiscordID == "" {
			continue
		}

		var due []string
		for roleID, threshold := range guild.Config.ReputationRoles {
			if u.CurrentReputation() >= threshold {
				due = append(due, roleID)
			}
		}
		if len(due) == 0 {
			continue
		}

		member, err := roster.ResolveMemberRoles(ctx, guild.GuildDiscordID, u.DiscordID)
		if err != nil {
			log.WithFields(log.Fields{
				"guild": guild.GuildDiscordID,
				"user":  u.DiscordID,
				"error": err,
			}).Warn("Failed to resolve member for reputation roles")
			continue
		}
		if member == nil {
			continue // left the guild
		}

		for _, roleID := range due {
			if member.Roles[roleID] {
				continue
			}
			if err := roster.AddMemberRole(ctx, guild.GuildDiscordID, u.DiscordID, roleID); err != nil {
				log.WithFields(log.Fields{
					"guild": guild.GuildDiscordID,
					"user":  u.DiscordID,
					"role":  roleID,
					"error": err,
				}).Warn("Failed to grant reputation role")
			}
		}
	}
}

// RevokeReputationRole removes roleID from every member that holds it. Used
// when an admin stops managing a role by threshold.
func RevokeReputationRole(ctx context.Context, guild *entities.Guild, roster interfaces.Roster, roleID string) {
	if roster == nil {
		return
	}

	for _, u := range guild.Users {
		if u.DiscordID == "" {
			continue
		}

		member, err := roster.ResolveMemberRoles(ctx, guild.GuildDiscordID, u.DiscordID)
		if err != nil {
			log.WithFields(log.Fields{
				"guild": guild.GuildDiscordID,
				"user":  u.DiscordID,
				"error": err,
			}).Warn("Failed to resolve member for reputation roles")
			continue
		}
		if member == nil || !member.Roles[roleID] {
			continue
		}

		if err := roster.RemoveMemberRole(ctx, guild.GuildDiscordID, u.DiscordID, roleID); err != nil {
			log.WithFields(log.Fields{
				"guild": guild.GuildDiscordID,
				"user":  u.DiscordID,
				"role":  roleID,
				"error": err,
			}).Warn("Failed to revoke reputation role")
		}
	}
}
