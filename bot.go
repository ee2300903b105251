package main

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/levels"
	"github.com/wardenbot/warden/moderation"
	"github.com/wardenbot/warden/modules"
)

// Bot glues the gateway events to the services. The background loops start
// once, on the first ready event, so reconciliation never races the gateway
// handshake.
type Bot struct {
	ctx        context.Context
	registry   *modules.Registry
	expiryLoop *moderation.ExpiryLoop
	reconciler *levels.Reconciler
	watcher    *levels.Watcher
	prefix     string
	guildID    string
	log        *logrus.Entry

	readyOnce sync.Once
}

func NewBot(ctx context.Context, registry *modules.Registry, expiryLoop *moderation.ExpiryLoop, reconciler *levels.Reconciler, watcher *levels.Watcher, prefix, guildID string, log *logrus.Logger) *Bot {
	return &Bot{
		ctx:        ctx,
		registry:   registry,
		expiryLoop: expiryLoop,
		reconciler: reconciler,
		watcher:    watcher,
		prefix:     prefix,
		guildID:    guildID,
		log:        log.WithField("module", "bot"),
	}
}

// OnReady gets called after the gateway connected
func (b *Bot) OnReady(session *discordgo.Session, event *discordgo.Ready) {
	b.log.Info("Connected to discord!")

	b.readyOnce.Do(func() {
		b.registry.Init(session)
		b.reconciler.VerifyTable()

		go b.expiryLoop.Run(b.ctx)
		go b.watcher.Run(b.ctx)
	})
}

// OnMessageCreate parses prefixed commands and dispatches them.
func (b *Bot) OnMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	msg := event.Message
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if !strings.HasPrefix(msg.Content, b.prefix) {
		return
	}

	channel, err := session.Channel(msg.ChannelID)
	if err != nil || channel.GuildID != b.guildID {
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(msg.Content, b.prefix), " ", 2)
	command := strings.ToLower(strings.TrimSpace(parts[0]))
	if command == "" {
		return
	}
	content := ""
	if len(parts) > 1 {
		content = strings.TrimSpace(parts[1])
	}

	b.registry.CallBotPlugin(command, content, msg, session)
}
