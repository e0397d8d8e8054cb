package guildcfg

import (
	"context"
	"fmt"

	"meritbot/bot/common"
	"meritbot/domain/entities"
	"meritbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// HandleGuildCommand routes the /guild-config subcommands.
func (f *Feature) HandleGuildCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !f.requireAdmin(s, i) {
		return
	}
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "Please specify a subcommand")
		return
	}
	sub := options[0]

	switch sub.Name {
	case "round-duration":
		days := int(optInt(sub.Options, "days"))
		if days <= 0 {
			common.RespondEphemeral(s, i, "❌ Round duration must be at least one day.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Round duration set to %d days. Applies from the next round.", days), func(cfg *entities.GuildConfig) error {
			cfg.RoundDuration = days
			return nil
		})

	case "min-decay":
		decay := optFloat(sub.Options, "decay")
		f.updateGuild(s, i, fmt.Sprintf("Minimum decay set to %.2f. Applies from the next round.", decay), func(cfg *entities.GuildConfig) error {
			if err := checkDecay(decay, decay, cfg.MaxReputationDecay); err != nil {
				return err
			}
			cfg.MinReputationDecay = decay
			return nil
		})

	case "max-decay":
		decay := optFloat(sub.Options, "decay")
		f.updateGuild(s, i, fmt.Sprintf("Maximum decay set to %.2f. Applies from the next round.", decay), func(cfg *entities.GuildConfig) error {
			if err := checkDecay(decay, cfg.MinReputationDecay, decay); err != nil {
				return err
			}
			cfg.MaxReputationDecay = decay
			return nil
		})

	case "default-reputation":
		reputation := optFloat(sub.Options, "reputation")
		if reputation < 0 {
			common.RespondEphemeral(s, i, "❌ The reputation floor cannot be negative.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Reputation floor set to %.2f. Applies from the next round.", reputation), func(cfg *entities.GuildConfig) error {
			cfg.DefaultReputation = reputation
			return nil
		})

	case "matching":
		amount := optFloat(sub.Options, "amount")
		if amount < 0 {
			common.RespondEphemeral(s, i, "❌ The matching pool cannot be negative.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Base matching pool set to %.2f. Applies from the next round.", amount), func(cfg *entities.GuildConfig) error {
			cfg.DiscordMatching = amount
			return nil
		})

	case "role-multiplier":
		role := optRole(s, i, sub.Options, "role")
		multiplier := optFloat(sub.Options, "multiplier")
		if role == nil {
			common.RespondWithError(s, i, "Please specify a role.")
			return
		}
		if multiplier < 0 {
			common.RespondEphemeral(s, i, "❌ Multipliers cannot be negative.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Matching power multiplier for %s set to %.2f. Applies from the next round.", role.Mention(), multiplier), func(cfg *entities.GuildConfig) error {
			cfg.RolePowerMultipliers[role.ID] = multiplier
			return nil
		})

	case "reply-grant":
		amount := optFloat(sub.Options, "amount")
		if amount < 0 {
			common.RespondEphemeral(s, i, "❌ Grants cannot be negative.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Reply grant set to %.2f. Applies from the next round.", amount), func(cfg *entities.GuildConfig) error {
			cfg.ReplyGrant = amount
			return nil
		})

	case "reaction-grant":
		emoji := optString(sub.Options, "emoji")
		amount := optFloat(sub.Options, "amount")
		if emoji == "" {
			common.RespondWithError(s, i, "Please specify an emoji.")
			return
		}
		if amount < 0 {
			common.RespondEphemeral(s, i, "❌ Grants cannot be negative.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Reaction grant for %s set to %.2f. Applies from the next round.", emoji, amount), func(cfg *entities.GuildConfig) error {
			cfg.ReactionGrants[emoji] = amount
			return nil
		})

	case "channel-multiplier":
		channel := optChannel(s, sub.Options, "channel")
		multiplier := optFloat(sub.Options, "multiplier")
		if channel == nil {
			common.RespondWithError(s, i, "Please specify a channel.")
			return
		}
		if multiplier < 0 {
			common.RespondEphemeral(s, i, "❌ Multipliers cannot be negative.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Grant multiplier for <#%s> set to %.2f. Applies from the next round.", channel.ID, multiplier), func(cfg *entities.GuildConfig) error {
			cfg.ChannelGrantMultipliers[channel.ID] = multiplier
			return nil
		})

	case "pantheon":
		channel := optChannel(s, sub.Options, "channel")
		enabled := optBool(sub.Options, "enabled")
		if channel == nil {
			common.RespondWithError(s, i, "Please specify a channel.")
			return
		}
		verb := "no longer"
		if enabled {
			verb = "now"
		}
		f.updateGuild(s, i, fmt.Sprintf("<#%s> is %s a pantheon channel.", channel.ID, verb), func(cfg *entities.GuildConfig) error {
			if enabled {
				cfg.ChannelPantheons[channel.ID] = true
			} else {
				delete(cfg.ChannelPantheons, channel.ID)
			}
			return nil
		})

	case "reputation-role":
		f.handleReputationRole(s, i, sub.Options)

	case "captcha-role":
		role := optRole(s, i, sub.Options, "role")
		if role == nil {
			common.RespondWithError(s, i, "Please specify a role.")
			return
		}
		f.updateGuild(s, i, fmt.Sprintf("Captcha role set to %s.", role.Mention()), func(cfg *entities.GuildConfig) error {
			cfg.CaptchaRole = role.ID
			return nil
		})

	default:
		common.RespondWithError(s, i, "Unknown subcommand")
	}
}

// HandleRoundCommand routes the /round-config subcommands, which patch the
// open round's config snapshot in place.
func (f *Feature) HandleRoundCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !f.requireAdmin(s, i) {
		return
	}
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "Please specify a subcommand")
		return
	}
	sub := options[0]

	switch sub.Name {
	case "min-decay":
		decay := optFloat(sub.Options, "decay")
		f.updateOpenRound(s, i, fmt.Sprintf("Open round's minimum decay set to %.2f.", decay), func(cfg *entities.RoundConfig) error {
			if err := checkDecay(decay, decay, cfg.MaxReputationDecay); err != nil {
				return err
			}
			cfg.MinReputationDecay = decay
			return nil
		})

	case "max-decay":
		decay := optFloat(sub.Options, "decay")
		f.updateOpenRound(s, i, fmt.Sprintf("Open round's maximum decay set to %.2f.", decay), func(cfg *entities.RoundConfig) error {
			if err := checkDecay(decay, cfg.MinReputationDecay, decay); err != nil {
				return err
			}
			cfg.MaxReputationDecay = decay
			return nil
		})

	case "matching":
		amount := optFloat(sub.Options, "amount")
		if amount < 0 {
			common.RespondEphemeral(s, i, "❌ The matching pool cannot be negative.")
			return
		}
		f.updateOpenRound(s, i, fmt.Sprintf("Open round's base matching pool set to %.2f.", amount), func(cfg *entities.RoundConfig) error {
			cfg.DiscordMatching = amount
			return nil
		})

	default:
		common.RespondWithError(s, i, "Unknown subcommand")
	}
}

// handleReputationRole manages the reputation-role threshold map. Setting a
// threshold immediately grants the role to qualifying members; omitting it
// stops managing the role and revokes it from everyone.
func (f *Feature) handleReputationRole(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	role := optRole(s, i, options, "role")
	if role == nil {
		common.RespondWithError(s, i, "Please specify a role.")
		return
	}
	threshold, set := optFloatOk(options, "min-reputation")
	if set && threshold < 0 {
		common.RespondEphemeral(s, i, "❌ The reputation threshold cannot be negative.")
		return
	}

	ctx := context.Background()
	err := f.store.RunExclusive(ctx, func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		if set {
			guild.Config.ReputationRoles[role.ID] = threshold
			services.SyncReputationRoles(ctx, guild, f.roster)
		} else {
			delete(guild.Config.ReputationRoles, role.ID)
			services.RevokeReputationRole(ctx, guild, f.roster, role.ID)
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error updating reputation roles: %v", err)
		common.RespondWithError(s, i, "")
		return
	}

	if set {
		common.RespondEphemeral(s, i, fmt.Sprintf("✅ %s is now granted at %.2f reputation.", role.Mention(), threshold))
		return
	}
	common.RespondEphemeral(s, i, fmt.Sprintf("✅ %s is no longer managed by reputation.", role.Mention()))
}

func (f *Feature) requireAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil || i.Member.User == nil || !common.IsUserAdmin(s, i.GuildID, i.Member.User.ID) {
		common.RespondEphemeral(s, i, "❌ This command requires administrator permissions.")
		return false
	}
	return true
}

// updateGuild applies mutate to the guild config under the guard and confirms.
func (f *Feature) updateGuild(s *discordgo.Session, i *discordgo.InteractionCreate, confirmation string, mutate func(*entities.GuildConfig) error) {
	var rejected error
	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		rejected = mutate(&guild.Config)
		return nil
	})
	f.respond(s, i, confirmation, err, rejected)
}

// updateOpenRound applies mutate to the open round's config snapshot.
func (f *Feature) updateOpenRound(s *discordgo.Session, i *discordgo.InteractionCreate, confirmation string, mutate func(*entities.RoundConfig) error) {
	var rejected error
	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		round := guild.OpenRound()
		if round == nil {
			return fmt.Errorf("guild has no open round")
		}
		rejected = mutate(&round.Config)
		return nil
	})
	f.respond(s, i, confirmation, err, rejected)
}

func (f *Feature) respond(s *discordgo.Session, i *discordgo.InteractionCreate, confirmation string, err, rejected error) {
	if err != nil {
		log.Errorf("Error updating config: %v", err)
		common.RespondWithError(s, i, "")
		return
	}
	if rejected != nil {
		common.RespondEphemeral(s, i, "❌ "+rejected.Error())
		return
	}
	common.RespondEphemeral(s, i, "✅ "+confirmation)
}

// checkDecay validates a decay edit: the value must be a fraction and the
// minimum must not exceed the maximum after the edit.
func checkDecay(value, min, max float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("decay must be between 0 and 1")
	}
	if min > max {
		return fmt.Errorf("minimum decay %.2f cannot exceed maximum decay %.2f", min, max)
	}
	return nil
}

func optFloat(options []*discordgo.ApplicationCommandInteractionDataOption, name string) float64 {
	for _, opt := range options {
		if opt.Name == name {
			return opt.FloatValue()
		}
	}
	return 0
}

func optFloatOk(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (float64, bool) {
	for _, opt := range options {
		if opt.Name == name {
			return opt.FloatValue(), true
		}
	}
	return 0, false
}

func optInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	for _, opt := range options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}

func optString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optBool(options []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, opt := range options {
		if opt.Name == name {
			return opt.BoolValue()
		}
	}
	return false
}

func optRole(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.Role {
	for _, opt := range options {
		if opt.Name == name {
			return opt.RoleValue(s, i.GuildID)
		}
	}
	return nil
}

func optChannel(s *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.Channel {
	for _, opt := range options {
		if opt.Name == name {
			return opt.ChannelValue(s)
		}
	}
	return nil
}
