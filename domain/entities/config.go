package entities

// DefaultKey is the reserved sentinel key of multiplier maps. Lookups for
// keys without an explicit entry fall back to this one.
const DefaultKey = "default"

// LookupWithFallback resolves key in a multiplier map, falling back to the
// DefaultKey entry when key has no explicit value. A map without a default
// entry resolves to 0.
func LookupWithFallback(m map[string]float64, key string) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return m[DefaultKey]
}

// UserConfig is the per-user override of the grant settings. It starts as a
// copy of the round config and can be customized by the user.
type UserConfig struct {
	ChannelGrantMultipliers map[string]float64 `json:"channelGrantMultipliers"`
	ReplyGrant              float64            `json:"replyGrant"`
	ReactionGrants          map[string]float64 `json:"reactionGrants"`
}

// RoundConfig is the immutable config snapshot a round is created with.
type RoundConfig struct {
	DefaultReputation  float64 `json:"defaultReputation"`
	RoundDuration      int     `json:"roundDuration"` // days
	MinReputationDecay float64 `json:"minReputationDecay"`
	MaxReputationDecay float64 `json:"maxReputationDecay"`

	DiscordMatching         float64            `json:"discordMatching"`
	RolePowerMultipliers    map[string]float64 `json:"rolePowerMultipliers"`
	ChannelGrantMultipliers map[string]float64 `json:"channelGrantMultipliers"`
	ReplyGrant              float64            `json:"replyGrant"`
	ReactionGrants          map[string]float64 `json:"reactionGrants"`
}

// GuildConfig is the guild-wide configuration. The embedded RoundConfig
// fields are the defaults each new round snapshots.
//
// ReputationRoles maps a role ID to the minimum current reputation that
// earns it. Qualifying members receive the role after each round close.
type GuildConfig struct {
	RoundConfig

	AdminRole        string             `json:"adminRole"`
	CaptchaRole      string             `json:"captchaRole"`
	ChannelPantheons map[string]bool    `json:"channelPantheons"`
	ReputationRoles  map[string]float64 `json:"reputationRoles"`
}

// NewGuildConfig returns a guild config with the stock defaults.
func NewGuildConfig() GuildConfig {
	return GuildConfig{
		RoundConfig: RoundConfig{
			DefaultReputation:       1,
			RoundDuration:           14,
			MinReputationDecay:      0.05,
			MaxReputationDecay:      0.2,
			DiscordMatching:         0.2,
			RolePowerMultipliers:    map[string]float64{DefaultKey: 0},
			ChannelGrantMultipliers: map[string]float64{DefaultKey: 1},
			ReplyGrant:              2,
			ReactionGrants:          map[string]float64{DefaultKey: 1},
		},
		ChannelPantheons: map[string]bool{},
		ReputationRoles:  map[string]float64{},
	}
}

// RoundConfigFromGuild snapshots the guild defaults into a round config.
// Maps are copied so later guild edits cannot leak into a sealed round.
func RoundConfigFromGuild(cfg GuildConfig) RoundConfig {
	rc := cfg.RoundConfig
	rc.RolePowerMultipliers = cloneMultipliers(cfg.RolePowerMultipliers)
	rc.ChannelGrantMultipliers = cloneMultipliers(cfg.ChannelGrantMultipliers)
	rc.ReactionGrants = cloneMultipliers(cfg.ReactionGrants)
	return rc
}

// UserConfigFromRound derives the initial per-user config from a round config.
func UserConfigFromRound(cfg RoundConfig) UserConfig {
	return UserConfig{
		ChannelGrantMultipliers: cloneMultipliers(cfg.ChannelGrantMultipliers),
		ReplyGrant:              cfg.ReplyGrant,
		ReactionGrants:          cloneMultipliers(cfg.ReactionGrants),
	}
}

func cloneMultipliers(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
