package helpers

import (
	"github.com/bwmarrin/discordgo"
)

// IsAdmin checks if $userID owns the guild or holds a role with the
// administrator permission.
func IsAdmin(session *discordgo.Session, guildID, userID string) bool {
	guild, err := session.Guild(guildID)
	if err != nil {
		return false
	}

	if userID == guild.OwnerID {
		return true
	}

	member, err := session.GuildMember(guildID, userID)
	if err != nil {
		return false
	}

	for _, role := range guild.Roles {
		for _, memberRole := range member.Roles {
			if memberRole == role.ID && role.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
				return true
			}
		}
	}
	return false
}
