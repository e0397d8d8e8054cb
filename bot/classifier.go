package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Social events arrive as loosely shaped gateway payloads. Rather than
// chaining boolean probes, each event is classified once into a tagged
// variant and then dispatched by a switch on the tag.

type messageEventKind int

const (
	messageIgnored messageEventKind = iota
	messageReplyGrant
)

// classifiedMessage is the tagged form of a message-create event.
type classifiedMessage struct {
	kind            messageEventKind
	senderDiscordID string
	authorDiscordID string
	channelID       string
}

// classifyMessage tags a message-create event. Only a genuine reply from one
// human member to another becomes a reply grant.
func classifyMessage(botUserID string, m *discordgo.MessageCreate) classifiedMessage {
	ignored := classifiedMessage{kind: messageIgnored}

	if m.Author == nil || m.Author.Bot || m.Author.ID == botUserID {
		return ignored
	}
	ref := m.ReferencedMessage
	if ref == nil || ref.Author == nil {
		return ignored
	}
	if ref.Author.Bot || ref.Author.ID == botUserID || ref.Author.ID == m.Author.ID {
		return ignored
	}

	return classifiedMessage{
		kind:            messageReplyGrant,
		senderDiscordID: m.Author.ID,
		authorDiscordID: ref.Author.ID,
		channelID:       m.ChannelID,
	}
}

type reactionEventKind int

const (
	reactionIgnored reactionEventKind = iota
	reactionAuthorGrant
	reactionPantheonGrant
)

// classifiedReaction is the tagged form of a reaction add/remove event. For
// pantheon channels the grant goes to the message's mentioned members instead
// of its author.
type classifiedReaction struct {
	kind               reactionEventKind
	senderDiscordID    string
	authorDiscordID    string
	mentionDiscordIDs  []string
	channelID          string
	emoji              string
}

// classifyReaction tags a reaction event against its fetched message.
func classifyReaction(botUserID string, pantheonChannels map[string]bool, msg *discordgo.Message, reactorID, emoji string) classifiedReaction {
	ignored := classifiedReaction{kind: reactionIgnored}

	if msg == nil || msg.Author == nil || reactorID == "" {
		return ignored
	}
	if msg.Author.ID == botUserID || reactorID == botUserID {
		return ignored
	}

	if pantheonChannels[msg.ChannelID] && len(msg.Mentions) > 0 {
		mentions := make([]string, 0, len(msg.Mentions))
		for _, u := range msg.Mentions {
			if u == nil || u.Bot || u.ID == reactorID {
				continue
			}
			mentions = append(mentions, u.ID)
		}
		if len(mentions) == 0 {
			return ignored
		}
		return classifiedReaction{
			kind:              reactionPantheonGrant,
			senderDiscordID:   reactorID,
			mentionDiscordIDs: mentions,
			channelID:         msg.ChannelID,
			emoji:             emoji,
		}
	}

	if msg.Author.Bot || msg.Author.ID == reactorID {
		return ignored
	}

	return classifiedReaction{
		kind:            reactionAuthorGrant,
		senderDiscordID: reactorID,
		authorDiscordID: msg.Author.ID,
		channelID:       msg.ChannelID,
		emoji:           emoji,
	}
}
