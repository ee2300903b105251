package plugins

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/helpers"
	"github.com/wardenbot/warden/levels"
)

// LevelRoles exposes the tier-role reconciler as commands.
type LevelRoles struct {
	reconciler *levels.Reconciler
	provider   levels.LevelProvider
	guildID    string
	log        *logrus.Entry
}

func NewLevelRoles(reconciler *levels.Reconciler, provider levels.LevelProvider, guildID string, log *logrus.Logger) *LevelRoles {
	return &LevelRoles{
		reconciler: reconciler,
		provider:   provider,
		guildID:    guildID,
		log:        log.WithField("module", "levelroles"),
	}
}

func (l *LevelRoles) Commands() []string {
	return []string{
		"updateroles",
		"resetroles",
	}
}

func (l *LevelRoles) Init(session *discordgo.Session) {
}

func (l *LevelRoles) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	switch command {
	case "updateroles": // [p]updateroles
		level, err := l.provider.Level(msg.Author.ID)
		if err != nil {
			l.log.WithError(err).Error("failed to read member level")
			session.ChannelMessageSend(msg.ChannelID, "❌ Could not retrieve your level. Please try again later.")
			return
		}

		result, err := l.reconciler.Reconcile(msg.Author.ID, level)
		var notEligible *levels.NotEligibleError
		if errors.As(err, &notEligible) {
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
				"❌ You need to reach level %d to get your first role.", notEligible.Threshold))
			return
		}
		if err != nil {
			l.log.WithError(err).Error("role reconciliation failed")
			session.ChannelMessageSend(msg.ChannelID, "❌ Error updating your roles.")
			return
		}

		session.ChannelMessageSend(msg.ChannelID, "✅ "+result.Summary)

	case "resetroles": // [p]resetroles <user>
		if !helpers.IsAdmin(session, l.guildID, msg.Author.ID) {
			session.ChannelMessageSend(msg.ChannelID, "You need to be an admin to reset level roles.")
			return
		}

		args := strings.Fields(content)
		if len(args) < 1 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `resetroles <user>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}

		removed, err := l.reconciler.ResetTierRoles(targetID)
		if err != nil {
			l.log.WithError(err).Error("role reset failed")
			session.ChannelMessageSend(msg.ChannelID, "❌ Error removing roles.")
			return
		}
		if len(removed) == 0 {
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("<@%s> doesn't have any level roles.", targetID))
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
			"✅ Successfully removed all %d level roles from <@%s>.", len(removed), targetID))
	}
}
