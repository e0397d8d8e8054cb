package reputation

import (
	"context"
	"fmt"
	"time"

	"meritbot/bot/common"
	"meritbot/domain/entities"
	"meritbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const historyPageSize = 100

// recordedGrant is one grant recovered from the guild's chat history.
type recordedGrant struct {
	senderDiscordID   string
	receiverDiscordID string
	channelID         string
	emoji             string // empty for replies
	reply             bool
	at                time.Time
}

// reactorFetcher lists the members who reacted to a message with one emoji.
type reactorFetcher func(channelID, messageID, emojiAPIName string) ([]*discordgo.User, error)

// handleFetchHistory rebuilds the guild's rounds and grant ledgers from the
// chat history since a start date, then replays the distribution. Admin only.
// The whole walk runs under the guard so gateway events cannot interleave
// with the rebuild.
func (f *Feature) handleFetchHistory(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	caller := interactionUser(i)
	if caller == nil || !common.IsUserAdmin(s, i.GuildID, caller.ID) {
		common.RespondEphemeral(s, i, "❌ This command requires administrator permissions.")
		return
	}

	var startDate string
	for _, opt := range options {
		if opt.Name == "start-date" {
			startDate = opt.StringValue()
		}
	}
	since, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		common.RespondEphemeral(s, i, "❌ Invalid start date, expected YYYY-MM-DD.")
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring fetch-history response: %v", err)
		return
	}

	ctx := context.Background()
	var rounds, applied int
	err = f.store.RunExclusive(ctx, func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID(i.GuildID)
		if guild == nil {
			return fmt.Errorf("guild not initialized")
		}

		history, err := collectHistory(s, i.GuildID, s.State.User.ID, guild.Config.ChannelPantheons, since)
		if err != nil {
			return err
		}

		rounds, applied = rebuildRounds(guild, since, f.clock.Now(), history)
		return f.lifecycle.Recompute(ctx, guild, f.roster, false)
	})
	if err != nil {
		log.Errorf("Error rebuilding history: %v", err)
		common.FollowUp(s, i, "❌ History rebuild failed. See the logs for details.", true)
		return
	}

	common.FollowUp(s, i, fmt.Sprintf("✅ Rebuilt %d rounds from %d recovered grants.", rounds, applied), true)
}

// rebuildRounds replaces the guild's rounds with a fresh sequence covering
// [since, now], refills the grant ledgers from the recovered history and
// resets every member's trajectory for a full replay. Rounds whose scheduled
// end has passed are sealed; the final round stays open. Returns the number
// of rounds built and of grants applied.
func rebuildRounds(guild *entities.Guild, since, now time.Time, history []recordedGrant) (int, int) {
	guild.Rounds = nil
	start := since.UTC()
	for {
		round := entities.NewRound(start, entities.RoundConfigFromGuild(guild.Config))
		guild.Rounds = append(guild.Rounds, round)
		end := round.ScheduledEnd()
		if end.After(now) {
			break
		}
		round.Close(end)
		start = round.NextStart()
	}

	applied := 0
	for _, g := range history {
		round := roundCovering(guild, g.at)
		if round == nil {
			continue // older than the rebuild window
		}

		senderUUID, sender, _ := guild.EnsureUser(g.senderDiscordID, "", g.at)
		receiverUUID, _, _ := guild.EnsureUser(g.receiverDiscordID, "", g.at)

		var quantity float64
		if g.reply {
			quantity = sender.Config.ReplyGrant
		} else {
			quantity = entities.LookupWithFallback(sender.Config.ReactionGrants, g.emoji)
		}
		quantity *= entities.LookupWithFallback(sender.Config.ChannelGrantMultipliers, g.channelID)
		if quantity == 0 {
			continue
		}

		if err := services.AddGrant(round, receiverUUID, senderUUID, quantity); err != nil {
			log.WithFields(log.Fields{
				"sender":   senderUUID,
				"receiver": receiverUUID,
				"error":    err,
			}).Warn("Rejected recovered grant")
			continue
		}
		applied++
	}

	// Every member restarts at the floor; Recompute fills the rest of the
	// trajectory from the rebuilt ledgers.
	for _, u := range guild.Users {
		reps := make([]float64, len(guild.Rounds))
		reps[0] = guild.Config.DefaultReputation
		u.Reputations = reps
	}

	return len(guild.Rounds), applied
}

// roundCovering returns the rebuilt round whose window contains at, or nil
// when at predates the first round.
func roundCovering(guild *entities.Guild, at time.Time) *entities.Round {
	for i := len(guild.Rounds) - 1; i >= 0; i-- {
		if !at.Before(guild.Rounds[i].Start()) {
			return guild.Rounds[i]
		}
	}
	return nil
}

// collectHistory walks every text channel of the guild and recovers the
// reply and reaction grants newer than since. Channel failures are logged
// and the remaining channels still contribute.
func collectHistory(s *discordgo.Session, guildDiscordID, botID string, pantheons map[string]bool, since time.Time) ([]recordedGrant, error) {
	channels, err := s.GuildChannels(guildDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}

	fetch := func(channelID, messageID, emojiAPIName string) ([]*discordgo.User, error) {
		return fetchReactors(s, channelID, messageID, emojiAPIName)
	}

	var history []recordedGrant
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		grants, err := collectChannelHistory(s, ch.ID, botID, pantheons[ch.ID], since, fetch)
		if err != nil {
			log.WithFields(log.Fields{
				"channel": ch.ID,
				"error":   err,
			}).Warn("Failed to walk channel history")
			continue
		}
		history = append(history, grants...)
	}
	return history, nil
}

// collectChannelHistory pages one channel backwards from its newest message
// until it crosses since.
func collectChannelHistory(s *discordgo.Session, channelID, botID string, pantheon bool, since time.Time, fetch reactorFetcher) ([]recordedGrant, error) {
	var history []recordedGrant
	beforeID := ""
	for {
		msgs, err := s.ChannelMessages(channelID, historyPageSize, beforeID, "", "")
		if err != nil {
			return nil, fmt.Errorf("failed to page channel messages: %w", err)
		}
		if len(msgs) == 0 {
			return history, nil
		}
		for _, m := range msgs {
			if m.Timestamp.Before(since) {
				return history, nil
			}
			history = append(history, messageGrants(m, botID, pantheon, fetch)...)
		}
		beforeID = msgs[len(msgs)-1].ID
		if len(msgs) < historyPageSize {
			return history, nil
		}
	}
}

// messageGrants recovers the grants one message carries: a reply grant to
// the referenced author, and a reaction grant per human reactor. In pantheon
// channels reaction grants go to the mentioned members instead of the author.
func messageGrants(m *discordgo.Message, botID string, pantheon bool, fetch reactorFetcher) []recordedGrant {
	var grants []recordedGrant

	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil && m.Author != nil &&
		!m.Author.Bot && m.Author.ID != botID &&
		!ref.Author.Bot && ref.Author.ID != botID && ref.Author.ID != m.Author.ID {
		grants = append(grants, recordedGrant{
			senderDiscordID:   m.Author.ID,
			receiverDiscordID: ref.Author.ID,
			channelID:         m.ChannelID,
			reply:             true,
			at:                m.Timestamp,
		})
	}

	for _, r := range m.Reactions {
		if r.Emoji == nil {
			continue
		}
		reactors, err := fetch(m.ChannelID, m.ID, r.Emoji.APIName())
		if err != nil {
			log.WithFields(log.Fields{
				"message": m.ID,
				"emoji":   r.Emoji.Name,
				"error":   err,
			}).Warn("Failed to fetch reactors")
			continue
		}

		for _, reactor := range reactors {
			if reactor == nil || reactor.Bot || reactor.ID == botID {
				continue
			}

			if pantheon && len(m.Mentions) > 0 {
				for _, mention := range m.Mentions {
					if mention == nil || mention.Bot || mention.ID == reactor.ID {
						continue
					}
					grants = append(grants, recordedGrant{
						senderDiscordID:   reactor.ID,
						receiverDiscordID: mention.ID,
						channelID:         m.ChannelID,
						emoji:             r.Emoji.Name,
						at:                m.Timestamp,
					})
				}
				continue
			}

			if m.Author == nil || m.Author.Bot || m.Author.ID == botID || m.Author.ID == reactor.ID {
				continue
			}
			grants = append(grants, recordedGrant{
				senderDiscordID:   reactor.ID,
				receiverDiscordID: m.Author.ID,
				channelID:         m.ChannelID,
				emoji:             r.Emoji.Name,
				at:                m.Timestamp,
			})
		}
	}

	return grants
}

// fetchReactors pages through everyone who reacted with one emoji.
func fetchReactors(s *discordgo.Session, channelID, messageID, emojiAPIName string) ([]*discordgo.User, error) {
	var users []*discordgo.User
	afterID := ""
	for {
		page, err := s.MessageReactions(channelID, messageID, emojiAPIName, historyPageSize, "", afterID)
		if err != nil {
			return nil, fmt.Errorf("failed to page reactions: %w", err)
		}
		users = append(users, page...)
		if len(page) < historyPageSize {
			return users, nil
		}
		afterID = page[len(page)-1].ID
	}
}
