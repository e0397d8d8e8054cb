package bot

import (
	"context"
	"fmt"

	"meritbot/domain/interfaces"

	"github.com/bwmarrin/discordgo"
)

// discordRoster resolves guild members and their roles through the Discord
// session. It satisfies interfaces.Roster for the allocator and lifecycle
// services.
type discordRoster struct {
	session *discordgo.Session
}

// NewRoster creates a roster backed by a Discord session.
func NewRoster(session *discordgo.Session) interfaces.Roster {
	return &discordRoster{session: session}
}

// ResolveMemberRoles fetches a member's display name and role set. A member
// that has left the guild resolves to (nil, nil): callers fall back to the
// default role multiplier.
func (r *discordRoster) ResolveMemberRoles(ctx context.Context, guildDiscordID, userDiscordID string) (*interfaces.Member, error) {
	member, err := r.session.GuildMember(guildDiscordID, userDiscordID, discordgo.WithContext(ctx))
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch guild member %s: %w", userDiscordID, err)
	}

	roles := make(map[string]bool, len(member.Roles))
	for _, roleID := range member.Roles {
		roles[roleID] = true
	}

	displayName := member.Nick
	if displayName == "" && member.User != nil {
		displayName = member.User.Username
	}

	return &interfaces.Member{
		DisplayName: displayName,
		Roles:       roles,
	}, nil
}

// AddMemberRole grants a role to a guild member.
func (r *discordRoster) AddMemberRole(ctx context.Context, guildDiscordID, userDiscordID, roleID string) error {
	if err := r.session.GuildMemberRoleAdd(guildDiscordID, userDiscordID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add role %s to member %s: %w", roleID, userDiscordID, err)
	}
	return nil
}

// RemoveMemberRole revokes a role from a guild member.
func (r *discordRoster) RemoveMemberRole(ctx context.Context, guildDiscordID, userDiscordID, roleID string) error {
	if err := r.session.GuildMemberRoleRemove(guildDiscordID, userDiscordID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove role %s from member %s: %w", roleID, userDiscordID, err)
	}
	return nil
}
