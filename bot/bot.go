package bot

import (
	"context"
	"fmt"

	"meritbot/bot/features/captcha"
	"meritbot/bot/features/guildcfg"
	"meritbot/bot/features/reputation"
	"meritbot/domain/entities"
	"meritbot/domain/interfaces"
	"meritbot/domain/services"
	"meritbot/store"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token                   string
	LifecycleTickMinutes    int
	SnapshotIntervalMinutes int
}

// Bot manages the Discord gateway and all feature modules around the shared
// guild-state store.
type Bot struct {
	config    Config
	session   *discordgo.Session
	store     *store.Store
	snapshots interfaces.SnapshotStore
	publisher interfaces.EventPublisher
	roster    interfaces.Roster
	lifecycle *services.RoundLifecycleService
	clock     clockwork.Clock

	// Feature modules
	reputation  *reputation.Feature
	guildConfig *guildcfg.Feature
	captcha     *captcha.Feature

	// Worker cleanup functions
	stopLifecycleWorker func()
	stopSnapshotWorker  func()
}

// New creates a bot, opens the gateway connection and registers commands.
func New(config Config, st *store.Store, snapshots interfaces.SnapshotStore, publisher interfaces.EventPublisher, clock clockwork.Clock) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	bot := &Bot{
		config:    config,
		session:   dg,
		store:     st,
		snapshots: snapshots,
		publisher: publisher,
		roster:    NewRoster(dg),
		clock:     clock,
	}
	bot.lifecycle = services.NewRoundLifecycleService(clock, publisher)

	bot.reputation = reputation.New(st, bot.lifecycle, bot.roster, clock, publisher)
	bot.guildConfig = guildcfg.New(st, bot.roster)
	bot.captcha = captcha.New(st)

	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.handleInteractions)
	dg.AddHandler(bot.handleGuildCreate)
	dg.AddHandler(bot.handleGuildMemberAdd)
	dg.AddHandler(bot.handleMessageCreate)
	dg.AddHandler(bot.handleReactionAdd)
	dg.AddHandler(bot.handleReactionRemove)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	ctx := context.Background()
	bot.stopLifecycleWorker = bot.StartRoundLifecycleWorker(ctx)
	bot.stopSnapshotWorker = bot.StartSnapshotWorker(ctx)
	log.Info("Background workers started")

	return bot, nil
}

// Close gracefully shuts down the bot
func (b *Bot) Close() error {
	if b.stopLifecycleWorker != nil {
		b.stopLifecycleWorker()
	}
	if b.stopSnapshotWorker != nil {
		b.stopSnapshotWorker()
	}
	log.Info("Background workers stopped")

	return b.session.Close()
}

// handleCommands routes slash commands to appropriate handlers
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "reputation":
		b.reputation.HandleCommand(s, i)
	case "guild-config":
		b.guildConfig.HandleGuildCommand(s, i)
	case "round-config":
		b.guildConfig.HandleRoundCommand(s, i)
	}
}

// handleInteractions routes component interactions to appropriate features
func (b *Bot) handleInteractions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	if captcha.IsCaptchaInteraction(customID) {
		b.captcha.HandleInteraction(s, i, customID)
	}
}

// handleGuildCreate initializes state for guilds the bot joins.
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	ctx := context.Background()
	err := b.store.RunExclusive(ctx, func(state entities.GuildState) error {
		if _, guild := state.FindByDiscordID(g.ID); guild != nil {
			return nil
		}
		guild := entities.NewGuild(g.ID, b.clock.Now())
		state[newGuildUUID()] = guild
		log.WithField("guild", g.ID).Info("Initialized reputation state for new guild")
		return nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"guild": g.ID,
			"error": err,
		}).Error("Failed to initialize guild")
	}
}

// handleGuildMemberAdd starts the captcha gate for new members.
func (b *Bot) handleGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	b.captcha.HandleMemberAdd(s, m)
}
