package interfaces

import (
	"context"

	"meritbot/domain/entities"
	"meritbot/domain/events"
)

// Member is the roster view of a guild member: display name plus the set of
// role IDs they hold.
type Member struct {
	DisplayName string
	Roles       map[string]bool
}

// Roster resolves guild members and their roles on the chat platform, and
// grants or revokes roles for the reputation-role thresholds. The allocator
// treats an unresolved member as holding no roles; callers that have no
// roster at all pass nil and skip matching entirely.
type Roster interface {
	ResolveMemberRoles(ctx context.Context, guildDiscordID, userDiscordID string) (*Member, error)
	AddMemberRole(ctx context.Context, guildDiscordID, userDiscordID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildDiscordID, userDiscordID, roleID string) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// SnapshotStore loads and saves the full guild-state document. The engine
// only ever touches the in-memory handle; an external scheduler decides when
// snapshots happen.
type SnapshotStore interface {
	Load(ctx context.Context) (entities.GuildState, error)
	Save(ctx context.Context, state entities.GuildState) error
}
