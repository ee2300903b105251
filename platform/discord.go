package platform

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	embedColorAction   = 0xCC0000
	embedColorReversal = 0x2ECC71
	embedColorWarning  = 0xF1C40F
)

var capabilityBits = map[Capability]int{
	CapabilityBanMembers:     discordgo.PermissionBanMembers,
	CapabilityKickMembers:    discordgo.PermissionKickMembers,
	CapabilityManageRoles:    discordgo.PermissionManageRoles,
	CapabilityManageChannels: discordgo.PermissionManageChannels,
}

// Discord adapts a single guild of a discordgo session to the API surface
// the moderation and levels services mutate through.
type Discord struct {
	session      *discordgo.Session
	guildID      string
	logChannelID string
	log          *logrus.Entry
}

func NewDiscord(session *discordgo.Session, guildID, logChannelID string, log *logrus.Logger) *Discord {
	return &Discord{
		session:      session,
		guildID:      guildID,
		logChannelID: logChannelID,
		log:          log.WithField("module", "platform"),
	}
}

func (d *Discord) BotID() string {
	return d.session.State.User.ID
}

func (d *Discord) GrantRole(memberID, roleID, reason string) error {
	err := d.session.GuildMemberRoleAdd(d.guildID, memberID, roleID)
	return errors.Wrapf(err, "granting role %s to %s", roleID, memberID)
}

func (d *Discord) RevokeRole(memberID, roleID, reason string) error {
	err := d.session.GuildMemberRoleRemove(d.guildID, memberID, roleID)
	return errors.Wrapf(err, "revoking role %s from %s", roleID, memberID)
}

func (d *Discord) SetMemberRoles(memberID string, roleIDs []string) error {
	err := d.session.GuildMemberEdit(d.guildID, memberID, roleIDs)
	return errors.Wrapf(err, "editing roles of %s", memberID)
}

func (d *Discord) BanMember(memberID, reason string, purgeDays int) error {
	err := d.session.GuildBanCreateWithReason(d.guildID, memberID, reason, purgeDays)
	return errors.Wrapf(err, "banning %s", memberID)
}

func (d *Discord) UnbanMember(memberID, reason string) error {
	err := d.session.GuildBanDelete(d.guildID, memberID)
	return errors.Wrapf(err, "unbanning %s", memberID)
}

func (d *Discord) KickMember(memberID, reason string) error {
	err := d.session.GuildMemberDeleteWithReason(d.guildID, memberID, reason)
	return errors.Wrapf(err, "kicking %s", memberID)
}

func (d *Discord) MemberRoles(memberID string) ([]string, error) {
	member, err := d.session.GuildMember(d.guildID, memberID)
	if err != nil {
		if isUnknownMember(err) {
			return nil, ErrUnknownMember
		}
		return nil, errors.Wrapf(err, "fetching member %s", memberID)
	}
	return member.Roles, nil
}

// isUnknownMember reports whether the API said the user is not a guild
// member, as opposed to the lookup itself failing.
func isUnknownMember(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember
}

func (d *Discord) RoleRank(roleID string) (int, error) {
	role, err := d.role(roleID)
	if err != nil {
		return 0, err
	}
	return role.Position, nil
}

func (d *Discord) RoleName(roleID string) (string, error) {
	role, err := d.role(roleID)
	if err != nil {
		return "", err
	}
	return role.Name, nil
}

func (d *Discord) role(roleID string) (*discordgo.Role, error) {
	guild, err := d.session.Guild(d.guildID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching guild")
	}
	for _, role := range guild.Roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, ErrUnknownRole
}

func (d *Discord) EnsureRole(name string) (string, bool, error) {
	guild, err := d.session.Guild(d.guildID)
	if err != nil {
		return "", false, errors.Wrap(err, "fetching guild")
	}
	for _, role := range guild.Roles {
		if role.Name == name {
			return role.ID, false, nil
		}
	}

	role, err := d.session.GuildRoleCreate(d.guildID)
	if err != nil {
		return "", false, errors.Wrapf(err, "creating role %s", name)
	}
	_, err = d.session.GuildRoleEdit(d.guildID, role.ID, name, role.Color, false, 0, false)
	if err != nil {
		return "", false, errors.Wrapf(err, "naming role %s", name)
	}
	return role.ID, true, nil
}

func (d *Discord) ApplyMuteOverwrites(roleID string) error {
	channels, err := d.session.GuildChannels(d.guildID)
	if err != nil {
		return errors.Wrap(err, "fetching guild channels")
	}

	for _, channel := range channels {
		var deny int
		switch channel.Type {
		case discordgo.ChannelTypeGuildText:
			deny = discordgo.PermissionSendMessages | discordgo.PermissionAddReactions
		case discordgo.ChannelTypeGuildVoice:
			deny = discordgo.PermissionVoiceSpeak
		default:
			continue
		}

		err = d.session.ChannelPermissionSet(channel.ID, roleID, "role", 0, deny)
		if err != nil {
			// remaining channels still get their overwrite
			d.log.WithError(err).Warnf("failed to set mute overwrite on channel %s", channel.ID)
		}
	}
	return nil
}

func (d *Discord) SetChannelSendLock(channelID string, locked bool, reason string) error {
	// the @everyone role shares its id with the guild
	everyoneID := d.guildID

	var allow, deny int
	channel, err := d.session.Channel(channelID)
	if err != nil {
		return errors.Wrapf(err, "fetching channel %s", channelID)
	}
	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite.Type == "role" && overwrite.ID == everyoneID {
			allow = overwrite.Allow
			deny = overwrite.Deny
		}
	}

	if locked {
		deny |= discordgo.PermissionSendMessages
		allow &^= discordgo.PermissionSendMessages
	} else {
		deny &^= discordgo.PermissionSendMessages
	}

	err = d.session.ChannelPermissionSet(channelID, everyoneID, "role", allow, deny)
	return errors.Wrapf(err, "updating send lock on channel %s", channelID)
}

func (d *Discord) SendDirectNotice(memberID, message string) error {
	dmChannel, err := d.session.UserChannelCreate(memberID)
	if err != nil {
		return errors.Wrapf(err, "opening DM channel to %s", memberID)
	}
	_, err = d.session.ChannelMessageSend(dmChannel.ID, message)
	return errors.Wrapf(err, "sending DM to %s", memberID)
}

func (d *Discord) SendChannelMessage(channelID, message string) error {
	_, err := d.session.ChannelMessageSend(channelID, message)
	return errors.Wrapf(err, "sending message to channel %s", channelID)
}

func (d *Discord) PostModLog(entry LogEntry) error {
	if d.logChannelID == "" {
		d.log.Debug("no moderation log channel configured, skipping log entry")
		return nil
	}

	color := embedColorAction
	if entry.Reversal {
		color = embedColorReversal
	}
	if entry.Warning {
		color = embedColorWarning
	}

	embed := &discordgo.MessageEmbed{
		Title:       entry.Action + " Action",
		Description: fmt.Sprintf("<@%s> has been affected by a %s action", entry.SubjectID, entry.Action),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "User ID: " + entry.SubjectID},
	}
	if entry.ActorID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Moderator", Value: fmt.Sprintf("<@%s>", entry.ActorID),
		})
	}
	if entry.Reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Reason", Value: entry.Reason,
		})
	}
	if entry.Duration != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Duration", Value: entry.Duration,
		})
	}

	_, err := d.session.ChannelMessageSendEmbed(d.logChannelID, embed)
	return errors.Wrap(err, "posting moderation log entry")
}

func (d *Discord) HasCapability(c Capability) bool {
	bit, ok := capabilityBits[c]
	if !ok {
		return false
	}

	guild, err := d.session.Guild(d.guildID)
	if err != nil {
		d.log.WithError(err).Warn("capability check failed to fetch guild")
		return false
	}
	botMember, err := d.session.GuildMember(d.guildID, d.BotID())
	if err != nil {
		d.log.WithError(err).Warn("capability check failed to fetch bot member")
		return false
	}

	for _, role := range guild.Roles {
		for _, memberRole := range botMember.Roles {
			if memberRole != role.ID {
				continue
			}
			if role.Permissions&bit == bit ||
				role.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
				return true
			}
		}
	}
	return false
}
