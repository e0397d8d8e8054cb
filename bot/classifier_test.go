package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

const botID = "bot-user"

func message(authorID string, ref *discordgo.Message) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID:         "chan-1",
		Author:            &discordgo.User{ID: authorID},
		ReferencedMessage: ref,
	}}
}

func TestClassifyMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      *discordgo.MessageCreate
		expected messageEventKind
	}{
		{
			name:     "reply to another member is a grant",
			msg:      message("alice", &discordgo.Message{Author: &discordgo.User{ID: "bob"}}),
			expected: messageReplyGrant,
		},
		{
			name:     "plain message is ignored",
			msg:      message("alice", nil),
			expected: messageIgnored,
		},
		{
			name:     "reply to self is ignored",
			msg:      message("alice", &discordgo.Message{Author: &discordgo.User{ID: "alice"}}),
			expected: messageIgnored,
		},
		{
			name:     "reply to a bot is ignored",
			msg:      message("alice", &discordgo.Message{Author: &discordgo.User{ID: "helper", Bot: true}}),
			expected: messageIgnored,
		},
		{
			name:     "reply to this bot is ignored",
			msg:      message("alice", &discordgo.Message{Author: &discordgo.User{ID: botID}}),
			expected: messageIgnored,
		},
		{
			name: "message from a bot is ignored",
			msg: &discordgo.MessageCreate{Message: &discordgo.Message{
				Author:            &discordgo.User{ID: "helper", Bot: true},
				ReferencedMessage: &discordgo.Message{Author: &discordgo.User{ID: "bob"}},
			}},
			expected: messageIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyMessage(botID, tt.msg)
			assert.Equal(t, tt.expected, result.kind)
			if tt.expected == messageReplyGrant {
				assert.Equal(t, "alice", result.senderDiscordID)
				assert.Equal(t, "bob", result.authorDiscordID)
				assert.Equal(t, "chan-1", result.channelID)
			}
		})
	}
}

func TestClassifyReaction_AuthorGrant(t *testing.T) {
	t.Parallel()

	msg := &discordgo.Message{
		ChannelID: "chan-1",
		Author:    &discordgo.User{ID: "bob"},
	}

	result := classifyReaction(botID, nil, msg, "alice", "heart")
	assert.Equal(t, reactionAuthorGrant, result.kind)
	assert.Equal(t, "alice", result.senderDiscordID)
	assert.Equal(t, "bob", result.authorDiscordID)
	assert.Equal(t, "heart", result.emoji)
}

func TestClassifyReaction_Ignored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		msg       *discordgo.Message
		reactorID string
	}{
		{
			name:      "own message",
			msg:       &discordgo.Message{ChannelID: "chan-1", Author: &discordgo.User{ID: "alice"}},
			reactorID: "alice",
		},
		{
			name:      "bot message",
			msg:       &discordgo.Message{ChannelID: "chan-1", Author: &discordgo.User{ID: "helper", Bot: true}},
			reactorID: "alice",
		},
		{
			name:      "reaction by this bot",
			msg:       &discordgo.Message{ChannelID: "chan-1", Author: &discordgo.User{ID: "bob"}},
			reactorID: botID,
		},
		{
			name:      "nil message",
			msg:       nil,
			reactorID: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyReaction(botID, nil, tt.msg, tt.reactorID, "heart")
			assert.Equal(t, reactionIgnored, result.kind)
		})
	}
}

func TestClassifyReaction_PantheonGrantsToMentions(t *testing.T) {
	t.Parallel()

	pantheons := map[string]bool{"chan-shrine": true}
	msg := &discordgo.Message{
		ChannelID: "chan-shrine",
		Author:    &discordgo.User{ID: "bob"},
		Mentions: []*discordgo.User{
			{ID: "carol"},
			{ID: "dave"},
			{ID: "helper", Bot: true}, // bots are never grant receivers
			{ID: "alice"},             // the reactor cannot receive their own grant
		},
	}

	result := classifyReaction(botID, pantheons, msg, "alice", "heart")
	assert.Equal(t, reactionPantheonGrant, result.kind)
	assert.Equal(t, []string{"carol", "dave"}, result.mentionDiscordIDs)
}

func TestClassifyReaction_PantheonWithoutMentionsIsIgnored(t *testing.T) {
	t.Parallel()

	pantheons := map[string]bool{"chan-shrine": true}
	msg := &discordgo.Message{
		ChannelID: "chan-shrine",
		Author:    &discordgo.User{ID: "bob"},
		Mentions:  []*discordgo.User{{ID: "alice"}},
	}

	// Only the reactor is mentioned, leaving no valid receivers
	result := classifyReaction(botID, pantheons, msg, "alice", "heart")
	assert.Equal(t, reactionIgnored, result.kind)
}
