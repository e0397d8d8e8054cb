package reputation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"meritbot/bot/common"
	"meritbot/domain/entities"
	"meritbot/domain/events"
	"meritbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const leaderboardPageSize = 20

// HandleCommand routes the /reputation subcommands.
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "Please specify a subcommand")
		return
	}

	switch options[0].Name {
	case "top":
		f.handleTop(s, i, options[0].Options)
	case "grant-set":
		f.handleGrantSet(s, i, options[0].Options)
	case "grant-add":
		f.handleGrantAdd(s, i, options[0].Options)
	case "grant-list":
		f.handleGrantList(s, i, options[0].Options)
	case "fetch-history":
		f.handleFetchHistory(s, i, options[0].Options)
	case "recompute":
		f.handleRecompute(s, i, options[0].Options)
	default:
		common.RespondWithError(s, i, "Unknown subcommand")
	}
}

type leaderboardEntry struct {
	discordID   string
	displayName string
	reputation  float64
}

// handleTop shows a page of members sorted by current reputation.
func (f *Feature) handleTop(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	start := 1
	for _, opt := range options {
		if opt.Name == "start" {
			start = int(opt.IntValue())
		}
	}
	if start < 1 {
		start = 1
	}

	var entries []leaderboardEntry
	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return nil
		}
		for _, u := range guild.Users {
			entries = append(entries, leaderboardEntry{
				discordID:   u.DiscordID,
				displayName: u.DisplayName,
				reputation:  u.CurrentReputation(),
			})
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error reading leaderboard: %v", err)
		common.RespondWithError(s, i, "")
		return
	}

	if len(entries) == 0 {
		common.RespondEphemeral(s, i, "No reputation recorded for this server yet.")
		return
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].reputation != entries[b].reputation {
			return entries[a].reputation > entries[b].reputation
		}
		return entries[a].discordID < entries[b].discordID
	})

	if start > len(entries) {
		common.RespondEphemeral(s, i, fmt.Sprintf("Only %d members are ranked.", len(entries)))
		return
	}

	end := start - 1 + leaderboardPageSize
	if end > len(entries) {
		end = len(entries)
	}

	var sb strings.Builder
	sb.WriteString("**Reputation leaderboard**\n")
	for rank := start; rank <= end; rank++ {
		e := entries[rank-1]
		name := e.displayName
		if name == "" {
			name = common.GetDisplayName(s, i.GuildID, e.discordID)
		}
		sb.WriteString(fmt.Sprintf("%d. %s — %.2f\n", rank, name, e.reputation))
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: sb.String()},
	})
	if err != nil {
		log.Errorf("Error responding to top command: %v", err)
	}
}

// handleGrantSet overwrites the caller's grant to the target for the open
// round.
func (f *Feature) handleGrantSet(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	var amount float64
	for _, opt := range options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "amount":
			amount = opt.FloatValue()
		}
	}
	if target == nil {
		common.RespondWithError(s, i, "Please specify a member.")
		return
	}
	caller := interactionUser(i)
	if caller == nil {
		common.RespondWithError(s, i, "")
		return
	}
	if target.ID == caller.ID {
		common.RespondEphemeral(s, i, "❌ You cannot grant reputation to yourself.")
		return
	}
	if amount < 0 {
		common.RespondEphemeral(s, i, "❌ Grants cannot be negative.")
		return
	}

	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		guildUUID, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		round := guild.OpenRound()
		if round == nil {
			return fmt.Errorf("guild has no open round")
		}

		now := f.clock.Now()
		senderUUID, _, senderCreated := guild.EnsureUser(caller.ID, common.GetDisplayName(s, i.GuildID, caller.ID), now)
		receiverUUID, _, receiverCreated := guild.EnsureUser(target.ID, common.GetDisplayName(s, i.GuildID, target.ID), now)
		if senderCreated {
			f.publishUserCreated(guildUUID, senderUUID, caller.ID)
		}
		if receiverCreated {
			f.publishUserCreated(guildUUID, receiverUUID, target.ID)
		}

		if err := services.SetGrant(round, receiverUUID, senderUUID, amount); err != nil {
			return err
		}

		if err := f.publisher.Publish(events.GrantRecordedEvent{
			GuildUUID:    guildUUID,
			SenderUUID:   senderUUID,
			ReceiverUUID: receiverUUID,
			Amount:       amount,
		}); err != nil {
			log.WithError(err).Warn("Failed to publish grant event")
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error setting grant: %v", err)
		common.RespondWithError(s, i, "")
		return
	}

	common.RespondEphemeral(s, i, fmt.Sprintf("✅ Your grant to %s is now %.2f for this round.", target.Mention(), amount))
}

// handleGrantAdd mints reputation to the target. Admin only.
func (f *Feature) handleGrantAdd(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	caller := interactionUser(i)
	if caller == nil || !common.IsUserAdmin(s, i.GuildID, caller.ID) {
		common.RespondEphemeral(s, i, "❌ This command requires administrator permissions.")
		return
	}

	var target *discordgo.User
	var amount float64
	for _, opt := range options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "amount":
			amount = opt.FloatValue()
		}
	}
	if target == nil {
		common.RespondWithError(s, i, "Please specify a member.")
		return
	}
	if amount < 0 {
		common.RespondEphemeral(s, i, "❌ Mints cannot be negative.")
		return
	}

	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		guildUUID, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		round := guild.OpenRound()
		if round == nil {
			return fmt.Errorf("guild has no open round")
		}

		now := f.clock.Now()
		senderUUID, _, senderCreated := guild.EnsureUser(caller.ID, common.GetDisplayName(s, i.GuildID, caller.ID), now)
		receiverUUID, _, receiverCreated := guild.EnsureUser(target.ID, common.GetDisplayName(s, i.GuildID, target.ID), now)
		if senderCreated {
			f.publishUserCreated(guildUUID, senderUUID, caller.ID)
		}
		if receiverCreated {
			f.publishUserCreated(guildUUID, receiverUUID, target.ID)
		}

		if err := services.AddMint(round, receiverUUID, senderUUID, amount); err != nil {
			return err
		}

		if err := f.publisher.Publish(events.MintRecordedEvent{
			GuildUUID:    guildUUID,
			SenderUUID:   senderUUID,
			ReceiverUUID: receiverUUID,
			Amount:       amount,
		}); err != nil {
			log.WithError(err).Warn("Failed to publish mint event")
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error adding mint: %v", err)
		common.RespondWithError(s, i, "")
		return
	}

	common.RespondEphemeral(s, i, fmt.Sprintf("✅ Minted %.2f reputation to %s.", amount, target.Mention()))
}

// handleGrantList shows a member's normalized grants for a round, both
// directions, plus any mints they received. Received and sent views are
// projections of the same normalization pass.
func (f *Feature) handleGrantList(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	shift := 0
	for _, opt := range options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "round":
			shift = int(opt.IntValue())
		}
	}
	if target == nil {
		common.RespondWithError(s, i, "Please specify a member.")
		return
	}
	if shift < 0 {
		shift = 0
	}

	var sb strings.Builder
	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		round := guild.RoundAt(shift)
		if round == nil {
			return fmt.Errorf("no round %d rounds in the past", shift)
		}
		targetUUID, _ := guild.FindUserByDiscordID(target.ID)
		if targetUUID == "" {
			sb.WriteString("No activity recorded for this member.")
			return nil
		}

		normalized := services.NormalizeGrants(round.Grants, guild.Users, round.Config.MinReputationDecay, shift)
		received := services.ReceivedGrants(normalized, targetUUID)
		sent := services.SentGrants(normalized, targetUUID)

		name := func(uuid string) string {
			if u, ok := guild.Users[uuid]; ok && u.DisplayName != "" {
				return u.DisplayName
			}
			if u, ok := guild.Users[uuid]; ok {
				return common.GetDisplayName(s, i.GuildID, u.DiscordID)
			}
			return uuid
		}

		sb.WriteString(fmt.Sprintf("**Grants for %s**\n", target.Mention()))
		sb.WriteString("Received:\n")
		if len(received) == 0 {
			sb.WriteString("  none\n")
		}
		for sender, amount := range received {
			sb.WriteString(fmt.Sprintf("  %s → %.2f\n", name(sender), amount))
		}
		sb.WriteString("Sent:\n")
		if len(sent) == 0 {
			sb.WriteString("  none\n")
		}
		for receiver, amount := range sent {
			sb.WriteString(fmt.Sprintf("  %.2f → %s\n", amount, name(receiver)))
		}

		var minted float64
		for _, amount := range round.Mints[targetUUID] {
			minted += amount
		}
		if minted > 0 {
			sb.WriteString(fmt.Sprintf("Minted: %.2f\n", minted))
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error listing grants: %v", err)
		common.RespondWithError(s, i, "")
		return
	}

	common.RespondEphemeral(s, i, sb.String())
}

// handleRecompute replays the distribution over all closed rounds. Admin
// only. Deferred because replaying a long history can exceed the interaction
// deadline.
func (f *Feature) handleRecompute(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	caller := interactionUser(i)
	if caller == nil || !common.IsUserAdmin(s, i.GuildID, caller.ID) {
		common.RespondEphemeral(s, i, "❌ This command requires administrator permissions.")
		return
	}

	useGuildConfig := false
	for _, opt := range options {
		if opt.Name == "use-guild-config" {
			useGuildConfig = opt.BoolValue()
		}
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring recompute response: %v", err)
		return
	}

	ctx := context.Background()
	var rounds int
	err := f.store.RunExclusive(ctx, func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}
		rounds = len(guild.Rounds) - 1
		return f.lifecycle.Recompute(ctx, guild, f.roster, useGuildConfig)
	})
	if err != nil {
		log.Errorf("Error recomputing reputation: %v", err)
		common.FollowUp(s, i, "❌ Recompute failed. See the logs for details.", true)
		return
	}

	common.FollowUp(s, i, fmt.Sprintf("✅ Recomputed reputation over %d closed rounds.", rounds), true)
}

func (f *Feature) publishUserCreated(guildUUID, userUUID, discordID string) {
	if err := f.publisher.Publish(events.UserCreatedEvent{
		GuildUUID: guildUUID,
		UserUUID:  userUUID,
		DiscordID: discordID,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish user created event")
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
