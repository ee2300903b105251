package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/helpers"
	"github.com/wardenbot/warden/moderation"
	"github.com/wardenbot/warden/platform"
)

// Mod handles the moderation command surface. All real work happens in the
// moderation package; this layer only parses arguments and renders replies.
type Mod struct {
	ctx     context.Context
	manager *moderation.Manager
	guard   *moderation.Guard
	api     platform.API
	guildID string
	log     *logrus.Entry
}

func NewMod(ctx context.Context, manager *moderation.Manager, guard *moderation.Guard, api platform.API, guildID string, log *logrus.Logger) *Mod {
	return &Mod{
		ctx:     ctx,
		manager: manager,
		guard:   guard,
		api:     api,
		guildID: guildID,
		log:     log.WithField("module", "mod"),
	}
}

func (m *Mod) Commands() []string {
	return []string{
		"mute",
		"unmute",
		"warn",
		"warnings",
		"clearwarnings",
		"ban",
		"kick",
		"lock",
		"unlock",
	}
}

func (m *Mod) Init(session *discordgo.Session) {
}

func (m *Mod) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	args := strings.Fields(content)

	switch command {
	case "mute": // [p]mute <user> <duration> <reason…>
		if len(args) < 3 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `mute <user> <duration> <reason>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}
		if !m.allowed(session, msg, targetID, platform.CapabilityManageRoles) {
			return
		}

		result, err := m.manager.ApplyMute(targetID, msg.Author.ID, strings.Join(args[2:], " "), args[1])
		if err == moderation.ErrAlreadyMuted {
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
				"<@%s> is already muted. To adjust the mute, unmute them first.", targetID))
			return
		}
		if err != nil {
			m.log.WithError(err).Error("mute failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to mute the user.")
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
			"<@%s> has been muted.\nReason: %s\nDuration: %s\nDM Notification: %s",
			targetID, result.Record.Reason, result.Duration, sentText(result.DMSent)))

	case "unmute": // [p]unmute <user> [<reason…>]
		if len(args) < 1 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `unmute <user> [reason]`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}
		if !m.allowed(session, msg, targetID, platform.CapabilityManageRoles) {
			return
		}

		reason := "Manually unmuted"
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}

		err = m.manager.ReverseMute(targetID, msg.Author.ID, reason)
		if err == moderation.ErrNotMuted {
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("<@%s> is not muted.", targetID))
			return
		}
		if err != nil {
			m.log.WithError(err).Error("unmute failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to unmute the user.")
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
			"<@%s> has been unmuted.\nReason: %s", targetID, reason))

	case "warn": // [p]warn <user> <duration> <reason…>
		if len(args) < 3 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `warn <user> <duration> <reason>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}

		result, err := m.manager.AddWarning(targetID, msg.Author.ID, strings.Join(args[2:], " "), args[1])
		if err != nil {
			m.log.WithError(err).Error("warn failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to warn the user.")
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
			"<@%s> has been warned.\nWarning expires: %s\nCurrent Warning Count: %d\nDM Notification: %s",
			targetID, result.Duration, result.Count, sentText(result.DMSent)))

	case "warnings": // [p]warnings <user>
		if len(args) < 1 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `warnings <user>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}

		warnings := m.manager.Warnings(targetID)
		if len(warnings) == 0 {
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("<@%s> has no active warnings.", targetID))
			return
		}

		text := fmt.Sprintf("<@%s> has %d active warnings:\n", targetID, len(warnings))
		for _, warningID := range moderation.SortedWarningIDs(warnings) {
			warning := warnings[warningID]
			text += fmt.Sprintf("**#%s** %s — by <@%s>, expires: %s\n",
				warningID, warning.Reason, warning.ModeratorID, warning.Duration)
		}
		session.ChannelMessageSend(msg.ChannelID, text)

	case "clearwarnings": // [p]clearwarnings <user>
		if !helpers.IsAdmin(session, m.guildID, msg.Author.ID) {
			session.ChannelMessageSend(msg.ChannelID, "You need to be an admin to clear warnings.")
			return
		}
		if len(args) < 1 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `clearwarnings <user>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}

		count, err := m.manager.ClearWarnings(targetID, msg.Author.ID)
		if err == moderation.ErrNoWarnings {
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("<@%s> has no active warnings to clear.", targetID))
			return
		}
		if err != nil {
			m.log.WithError(err).Error("clearwarnings failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to clear warnings.")
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("Cleared %d warnings for <@%s>.", count, targetID))

	case "ban": // [p]ban <user> <duration> <reason…>
		if len(args) < 3 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `ban <user> <duration> <reason>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}
		if !m.allowed(session, msg, targetID, platform.CapabilityBanMembers) {
			return
		}

		result, err := m.manager.Ban(m.ctx, targetID, msg.Author.ID, strings.Join(args[2:], " "), args[1])
		if err != nil {
			m.log.WithError(err).Error("ban failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to ban the user.")
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
			"<@%s> has been banned.\nDuration: %s\nDM Notification: %s",
			targetID, result.Duration, sentText(result.DMSent)))

	case "kick": // [p]kick <user> <reason…>
		if len(args) < 2 {
			session.ChannelMessageSend(msg.ChannelID, "Too few arguments. Usage: `kick <user> <reason>`")
			return
		}
		targetID, err := helpers.ParseUserID(args[0])
		if err != nil {
			session.ChannelMessageSend(msg.ChannelID, "Invalid user.")
			return
		}
		if !m.allowed(session, msg, targetID, platform.CapabilityKickMembers) {
			return
		}

		dmSent, err := m.manager.Kick(targetID, msg.Author.ID, strings.Join(args[1:], " "))
		if err != nil {
			m.log.WithError(err).Error("kick failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to kick the user.")
			return
		}
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf(
			"<@%s> has been kicked.\nDM Notification: %s", targetID, sentText(dmSent)))

	case "lock", "unlock": // [p]lock [<channel>] [<reason…>]
		if !helpers.IsAdmin(session, m.guildID, msg.Author.ID) {
			session.ChannelMessageSend(msg.ChannelID, "You need to be an admin to lock channels.")
			return
		}

		channelID := msg.ChannelID
		reason := "No reason provided"
		if len(args) > 0 {
			if parsed, err := helpers.ParseChannelID(args[0]); err == nil {
				channelID = parsed
				args = args[1:]
			}
		}
		if len(args) > 0 {
			reason = strings.Join(args, " ")
		}

		locked := command == "lock"
		if err := m.api.SetChannelSendLock(channelID, locked, reason); err != nil {
			m.log.WithError(err).Error("channel lock update failed")
			session.ChannelMessageSend(msg.ChannelID, "Failed to update the channel lock.")
			return
		}

		if locked {
			m.api.SendChannelMessage(channelID, fmt.Sprintf(
				"🔒 This channel has been locked by <@%s>.\nReason: %s", msg.Author.ID, reason))
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("🔒 <#%s> has been locked.", channelID))
		} else {
			m.api.SendChannelMessage(channelID, fmt.Sprintf(
				"🔓 This channel has been unlocked by <@%s>.\nReason: %s", msg.Author.ID, reason))
			session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("🔓 <#%s> has been unlocked.", channelID))
		}
	}
}

// allowed runs the hierarchy guard and renders the specific denial reason.
func (m *Mod) allowed(session *discordgo.Session, msg *discordgo.Message, targetID string, capability platform.Capability) bool {
	err := m.guard.Check(msg.Author.ID, targetID, capability)
	if err == nil {
		return true
	}

	var denied *moderation.HierarchyError
	if errors.As(err, &denied) {
		switch denied.Reason {
		case moderation.DenyBotCapability:
			session.ChannelMessageSend(msg.ChannelID, "I don't have permission to do that.")
		case moderation.DenyBotHierarchy:
			session.ChannelMessageSend(msg.ChannelID, "I cannot do that, their highest role is above or equal to mine.")
		case moderation.DenyActorHierarchy:
			session.ChannelMessageSend(msg.ChannelID, "You cannot do that, their highest role is above or equal to yours.")
		}
		return false
	}

	m.log.WithError(err).Error("hierarchy check failed")
	session.ChannelMessageSend(msg.ChannelID, "Failed to verify role hierarchy.")
	return false
}

func sentText(sent bool) string {
	if sent {
		return "Sent"
	}
	return "Failed"
}
