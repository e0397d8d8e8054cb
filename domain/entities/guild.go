package entities

import (
	"time"

	"github.com/google/uuid"
)

// Guild is the root of one community's reputation state. All mutation goes
// through the store's guarded critical sections; entities carry no locking
// of their own.
//
// Exactly one round is open at any time and it is always the last element
// of Rounds.
type Guild struct {
	GuildDiscordID string           `json:"guildDiscordId"`
	CreationDate   string           `json:"creationDate"`
	Config         GuildConfig      `json:"config"`
	Rounds         []*Round         `json:"rounds"`
	Users          map[string]*User `json:"users"`
}

// GuildState is the full persisted document: guild UUID -> guild.
type GuildState map[string]*Guild

// FindByDiscordID returns the UUID and guild for a Discord guild ID, or
// ("", nil) when the guild is not tracked yet.
func (s GuildState) FindByDiscordID(discordID string) (string, *Guild) {
	for id, g := range s {
		if g.GuildDiscordID == discordID {
			return id, g
		}
	}
	return "", nil
}

// NewGuild creates a guild with default config and its first open round.
func NewGuild(guildDiscordID string, now time.Time) *Guild {
	cfg := NewGuildConfig()
	return &Guild{
		GuildDiscordID: guildDiscordID,
		CreationDate:   now.UTC().Format(time.RFC3339),
		Config:         cfg,
		Rounds:         []*Round{NewRound(now, RoundConfigFromGuild(cfg))},
		Users:          make(map[string]*User),
	}
}

// OpenRound returns the current open round, or nil for a guild without
// rounds.
func (g *Guild) OpenRound() *Round {
	if len(g.Rounds) == 0 {
		return nil
	}
	return g.Rounds[len(g.Rounds)-1]
}

// RoundAt returns the round shift rounds in the past, or nil when the guild
// does not have that many rounds.
func (g *Guild) RoundAt(shift int) *Round {
	idx := len(g.Rounds) - 1 - shift
	if idx < 0 {
		return nil
	}
	return g.Rounds[idx]
}

// FindUserByDiscordID returns the UUID and user for a Discord ID, or
// ("", nil) when unknown.
func (g *Guild) FindUserByDiscordID(discordID string) (string, *User) {
	for id, u := range g.Users {
		if u.DiscordID == discordID {
			return id, u
		}
	}
	return "", nil
}

// EnsureUser returns the member with the given Discord ID, creating and
// back-filling one when the guild has not seen them before. The third return
// reports whether the member was created by this call.
func (g *Guild) EnsureUser(discordID, displayName string, now time.Time) (string, *User, bool) {
	if id, u := g.FindUserByDiscordID(discordID); u != nil {
		return id, u, false
	}

	round := g.OpenRound()
	cfg := g.Config.RoundConfig
	if round != nil {
		cfg = round.Config
	}
	u := NewUser(discordID, displayName, len(g.Rounds), cfg, now)
	id := uuid.NewString()
	g.Users[id] = u
	return id, u, true
}

// EnsureDefaults fills in maps a hand-edited or legacy snapshot may omit.
// Loaders call it after decoding so nil maps never reach a write site.
func (s GuildState) EnsureDefaults() {
	for _, g := range s {
		if g.Users == nil {
			g.Users = make(map[string]*User)
		}
		if g.Config.ChannelPantheons == nil {
			g.Config.ChannelPantheons = map[string]bool{}
		}
		if g.Config.ReputationRoles == nil {
			g.Config.ReputationRoles = map[string]float64{}
		}
		if g.Config.RolePowerMultipliers == nil {
			g.Config.RolePowerMultipliers = map[string]float64{}
		}
		if g.Config.ChannelGrantMultipliers == nil {
			g.Config.ChannelGrantMultipliers = map[string]float64{}
		}
		if g.Config.ReactionGrants == nil {
			g.Config.ReactionGrants = map[string]float64{}
		}
		for _, r := range g.Rounds {
			if r.Grants == nil {
				r.Grants = make(map[string]map[string]float64)
			}
			if r.Mints == nil {
				r.Mints = make(map[string]map[string]float64)
			}
		}
	}
}
