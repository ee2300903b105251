package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
	"github.com/joho/godotenv"
	"github.com/kz/discordrus"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/config"
	"github.com/wardenbot/warden/helpers"
	"github.com/wardenbot/warden/levels"
	"github.com/wardenbot/warden/moderation"
	"github.com/wardenbot/warden/modules"
	"github.com/wardenbot/warden/modules/plugins"
	"github.com/wardenbot/warden/platform"
)

// Entrypoint
func main() {
	log := logrus.New()
	log.Out = os.Stdout
	log.Level = logrus.InfoLevel
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339}

	// .env overlay, mainly for the discord token
	godotenv.Load()

	configPath := os.Getenv("WARDEN_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}
	conf, err := config.Load(configPath)
	if err != nil {
		log.WithField("module", "launcher").Fatal(err)
	}

	if conf.Debug {
		helpers.DebugMode = true
		log.Level = logrus.DebugLevel
	}

	if conf.Logging.SentryDSN != "" {
		if err := raven.SetDSN(conf.Logging.SentryDSN); err != nil {
			log.WithField("module", "launcher").WithError(err).Error("failed to set up sentry")
		}
	}

	if conf.Logging.DiscordWebhook != "" {
		log.Hooks.Add(discordrus.NewHook(
			conf.Logging.DiscordWebhook,
			logrus.ErrorLevel,
			&discordrus.Opts{
				Username:        "Warden Logging",
				TimestampFormat: "Jan 2 15:04:05.00000",
			},
		))
	}

	log.WithField("module", "launcher").Info("Booting Warden...")

	session, err := discordgo.New("Bot " + conf.Discord.Token)
	if err != nil {
		log.WithField("module", "launcher").Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Wire the services together. Everything is an explicit instance, nothing
	// gets discovered at runtime.
	api := platform.NewDiscord(session, conf.Discord.GuildID, conf.Moderation.LogChannelID, log)
	store := moderation.OpenStore(conf.Moderation.LedgerPath, log)
	manager := moderation.NewManager(store, api, conf.Discord.GuildID, conf.Moderation.MutedRoleName, log)
	guard := moderation.NewGuard(api)
	expiryLoop := moderation.NewExpiryLoop(manager, store, log)

	provider, err := levels.NewSQLiteProvider(conf.Levels.DatabasePath)
	if err != nil {
		log.WithField("module", "launcher").Fatal(err)
	}

	tiers := make([]levels.Tier, 0, len(conf.Levels.Roles))
	for _, tier := range conf.SortedTierRoles() {
		tiers = append(tiers, levels.Tier{RoleID: tier.RoleID, Level: tier.Level})
	}
	reconciler := levels.NewReconciler(api, tiers, log)
	watcher := levels.NewWatcher(provider, reconciler, log)

	registry := modules.NewRegistry(log,
		plugins.NewMod(ctx, manager, guard, api, conf.Discord.GuildID, log),
		plugins.NewLevelRoles(reconciler, provider, conf.Discord.GuildID, log),
	)

	bot := NewBot(ctx, registry, expiryLoop, reconciler, watcher, conf.Discord.Prefix, conf.Discord.GuildID, log)
	session.AddHandler(bot.OnReady)
	session.AddHandler(bot.OnMessageCreate)

	if err := session.Open(); err != nil {
		log.WithField("module", "launcher").Fatal(err)
	}

	// Wait until the os aborts us
	runtimeChannel := make(chan os.Signal, 1)
	signal.Notify(runtimeChannel, os.Interrupt, syscall.SIGTERM)
	<-runtimeChannel

	log.WithField("module", "launcher").Info("Shutting down...")
	cancel()
	session.Close()
	provider.Close()
}
