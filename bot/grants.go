package bot

import (
	"context"

	"meritbot/domain/entities"
	"meritbot/domain/events"
	"meritbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleMessageCreate turns replies into reply grants.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" {
		return
	}

	msg := classifyMessage(s.State.User.ID, m)
	switch msg.kind {
	case messageReplyGrant:
		b.applyGrant(m.GuildID, msg.senderDiscordID, []string{msg.authorDiscordID}, msg.channelID, "", true, 1)
	case messageIgnored:
	}
}

// handleReactionAdd turns reactions into reaction grants.
func (b *Bot) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.handleReaction(s, r.GuildID, r.ChannelID, r.MessageID, r.UserID, r.Emoji.Name, 1)
}

// handleReactionRemove withdraws the matching grant.
func (b *Bot) handleReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	b.handleReaction(s, r.GuildID, r.ChannelID, r.MessageID, r.UserID, r.Emoji.Name, -1)
}

func (b *Bot) handleReaction(s *discordgo.Session, guildID, channelID, messageID, reactorID, emoji string, sign float64) {
	if guildID == "" {
		return
	}

	msg, err := s.ChannelMessage(channelID, messageID)
	if err != nil {
		log.WithFields(log.Fields{
			"channel": channelID,
			"message": messageID,
			"error":   err,
		}).Warn("Failed to fetch reacted message, grant skipped")
		return
	}

	pantheons := b.pantheonChannels(guildID)
	reaction := classifyReaction(s.State.User.ID, pantheons, msg, reactorID, emoji)
	switch reaction.kind {
	case reactionAuthorGrant:
		b.applyGrant(guildID, reaction.senderDiscordID, []string{reaction.authorDiscordID}, reaction.channelID, reaction.emoji, false, sign)
	case reactionPantheonGrant:
		b.applyGrant(guildID, reaction.senderDiscordID, reaction.mentionDiscordIDs, reaction.channelID, reaction.emoji, false, sign)
	case reactionIgnored:
	}
}

// pantheonChannels reads the guild's pantheon channel set under the guard.
func (b *Bot) pantheonChannels(guildDiscordID string) map[string]bool {
	pantheons := map[string]bool{}
	err := b.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		if _, guild := state.FindByDiscordID(guildDiscordID); guild != nil {
			for ch, on := range guild.Config.ChannelPantheons {
				pantheons[ch] = on
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to read pantheon channels")
	}
	return pantheons
}

// applyGrant writes one social grant to the open round. The whole
// read-modify-write runs in a single guarded section: user creation, grant
// sizing from the sender's config, and the ledger write.
func (b *Bot) applyGrant(guildDiscordID, senderDiscordID string, receiverDiscordIDs []string, channelID, emoji string, reply bool, sign float64) {
	ctx := context.Background()

	err := b.store.RunExclusive(ctx, func(state entities.GuildState) error {
		guildUUID, guild := state.FindByDiscordID(guildDiscordID)
		if guild == nil {
			return nil // guild not initialized yet
		}
		round := guild.OpenRound()
		if round == nil {
			return nil
		}

		now := b.clock.Now()
		senderUUID, sender, created := guild.EnsureUser(senderDiscordID, b.displayName(guildDiscordID, senderDiscordID), now)
		if created {
			b.publishUserCreated(guildUUID, senderUUID, senderDiscordID)
		}

		var quantity float64
		if reply {
			quantity = sender.Config.ReplyGrant
		} else {
			quantity = entities.LookupWithFallback(sender.Config.ReactionGrants, emoji)
		}
		quantity *= entities.LookupWithFallback(sender.Config.ChannelGrantMultipliers, channelID)
		if quantity == 0 {
			return nil
		}

		for _, receiverDiscordID := range receiverDiscordIDs {
			receiverUUID, _, created := guild.EnsureUser(receiverDiscordID, b.displayName(guildDiscordID, receiverDiscordID), now)
			if created {
				b.publishUserCreated(guildUUID, receiverUUID, receiverDiscordID)
			}

			var err error
			if sign >= 0 {
				err = services.AddGrant(round, receiverUUID, senderUUID, quantity)
			} else {
				err = services.RemoveGrant(round, receiverUUID, senderUUID, quantity)
			}
			if err != nil {
				log.WithFields(log.Fields{
					"guild":    guildUUID,
					"sender":   senderUUID,
					"receiver": receiverUUID,
					"error":    err,
				}).Warn("Rejected grant")
				continue
			}

			if sign >= 0 {
				if err := b.publisher.Publish(events.GrantRecordedEvent{
					GuildUUID:    guildUUID,
					SenderUUID:   senderUUID,
					ReceiverUUID: receiverUUID,
					Amount:       quantity,
				}); err != nil {
					log.WithError(err).Warn("Failed to publish grant event")
				}
			}
		}
		return nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"guild": guildDiscordID,
			"error": err,
		}).Error("Failed to apply grant")
	}
}

func (b *Bot) publishUserCreated(guildUUID, userUUID, discordID string) {
	if err := b.publisher.Publish(events.UserCreatedEvent{
		GuildUUID: guildUUID,
		UserUUID:  userUUID,
		DiscordID: discordID,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish user created event")
	}
}

func (b *Bot) displayName(guildDiscordID, userDiscordID string) string {
	member, err := b.roster.ResolveMemberRoles(context.Background(), guildDiscordID, userDiscordID)
	if err != nil || member == nil {
		return ""
	}
	return member.DisplayName
}
