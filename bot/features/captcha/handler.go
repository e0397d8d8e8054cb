package captcha

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"meritbot/domain/entities"
	"meritbot/store"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	customIDPrefix = "captcha:"
	challengeTTL   = 15 * time.Minute
	answerChoices  = 3
)

// pendingChallenge is one outstanding captcha for a joining member.
type pendingChallenge struct {
	guildDiscordID string
	code           string
	issuedAt       time.Time
}

// Feature gates new members behind an image captcha. Members who answer
// correctly receive the guild's configured captcha role.
type Feature struct {
	store *store.Store

	mu      sync.Mutex
	pending map[string]pendingChallenge // user Discord ID -> challenge
	rng     *rand.Rand
}

// New creates the captcha feature
func New(st *store.Store) *Feature {
	return &Feature{
		store:   st,
		pending: make(map[string]pendingChallenge),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IsCaptchaInteraction reports whether a component custom ID belongs to this
// feature.
func IsCaptchaInteraction(customID string) bool {
	return strings.HasPrefix(customID, customIDPrefix)
}

// HandleMemberAdd sends a captcha challenge to a newly joined member. Guilds
// without a configured captcha role skip the gate entirely.
func (f *Feature) HandleMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	role := f.captchaRole(m.GuildID)
	if role == "" {
		return
	}

	if err := f.sendChallenge(s, m.GuildID, m.User.ID); err != nil {
		log.WithFields(log.Fields{
			"guild": m.GuildID,
			"user":  m.User.ID,
			"error": err,
		}).Warn("Failed to send captcha challenge")
	}
}

// HandleInteraction verifies a captcha button press.
func (f *Feature) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	parts := strings.Split(strings.TrimPrefix(customID, customIDPrefix), ":")
	if len(parts) != 3 {
		return
	}
	guildDiscordID, userDiscordID, answer := parts[0], parts[1], parts[2]

	presser := i.User
	if presser == nil && i.Member != nil {
		presser = i.Member.User
	}
	if presser == nil || presser.ID != userDiscordID {
		return
	}

	f.mu.Lock()
	challenge, ok := f.pending[userDiscordID]
	if ok {
		delete(f.pending, userDiscordID)
	}
	f.mu.Unlock()

	if !ok || challenge.guildDiscordID != guildDiscordID || time.Since(challenge.issuedAt) > challengeTTL {
		f.respond(s, i, "This challenge has expired. A new one is on its way.")
		if err := f.sendChallenge(s, guildDiscordID, userDiscordID); err != nil {
			log.WithError(err).Warn("Failed to reissue captcha challenge")
		}
		return
	}

	if answer != challenge.code {
		f.respond(s, i, "❌ Wrong answer. A new challenge is on its way.")
		if err := f.sendChallenge(s, guildDiscordID, userDiscordID); err != nil {
			log.WithError(err).Warn("Failed to reissue captcha challenge")
		}
		return
	}

	role := f.captchaRole(guildDiscordID)
	if role == "" {
		f.respond(s, i, "✅ Verified.")
		return
	}
	if err := s.GuildMemberRoleAdd(guildDiscordID, userDiscordID, role); err != nil {
		log.WithFields(log.Fields{
			"guild": guildDiscordID,
			"user":  userDiscordID,
			"error": err,
		}).Error("Failed to grant captcha role")
		f.respond(s, i, "Verified, but the role could not be granted. Please contact a moderator.")
		return
	}

	f.respond(s, i, "✅ Welcome! You now have access to the server.")
}

// sendChallenge DMs a fresh captcha image with answer buttons.
func (f *Feature) sendChallenge(s *discordgo.Session, guildDiscordID, userDiscordID string) error {
	f.mu.Lock()
	code := newCode(f.rng)
	candidates := make([]string, answerChoices)
	candidates[0] = code
	for n := 1; n < answerChoices; n++ {
		candidates[n] = newCode(f.rng)
	}
	f.rng.Shuffle(len(candidates), func(a, b int) {
		candidates[a], candidates[b] = candidates[b], candidates[a]
	})
	image, err := renderCode(code, f.rng)
	if err == nil {
		f.pending[userDiscordID] = pendingChallenge{
			guildDiscordID: guildDiscordID,
			code:           code,
			issuedAt:       time.Now(),
		}
	}
	f.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to render captcha: %w", err)
	}

	channel, err := s.UserChannelCreate(userDiscordID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	buttons := make([]discordgo.MessageComponent, 0, len(candidates))
	for _, candidate := range candidates {
		buttons = append(buttons, discordgo.Button{
			Label:    candidate,
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s%s:%s:%s", customIDPrefix, guildDiscordID, userDiscordID, candidate),
		})
	}

	_, err = s.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: "Please verify you are human. Which code is shown in the image?",
		Files: []*discordgo.File{
			{Name: "captcha.png", ContentType: "image/png", Reader: bytes.NewReader(image)},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send captcha message: %w", err)
	}
	return nil
}

// captchaRole reads the guild's configured captcha role under the guard.
func (f *Feature) captchaRole(guildDiscordID string) string {
	var role string
	err := f.store.RunExclusive(context.Background(), func(state entities.GuildState) error {
		if _, guild := state.FindByDiscordID(guildDiscordID); guild != nil {
			role = guild.Config.CaptchaRole
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to read captcha role")
	}
	return role
}

func (f *Feature) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		log.Errorf("Failed to respond to captcha interaction: %v", err)
	}
}
