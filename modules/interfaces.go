package modules

import "github.com/bwmarrin/discordgo"

// Plugin is one command handler group. Implementations are constructed with
// their dependencies up front and registered explicitly; nothing is looked
// up by name at runtime.
type Plugin interface {
	Commands() []string

	Init(session *discordgo.Session)

	Action(
		command string,
		content string,
		msg *discordgo.Message,
		session *discordgo.Session,
	)
}
