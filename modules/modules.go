package modules

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/helpers"
)

// Registry maps commands to the plugins that handle them.
type Registry struct {
	plugins  []Plugin
	commands map[string]Plugin
	log      *logrus.Entry
}

func NewRegistry(log *logrus.Logger, plugins ...Plugin) *Registry {
	registry := &Registry{
		plugins:  plugins,
		commands: make(map[string]Plugin),
		log:      log.WithField("module", "modules"),
	}

	for _, plugin := range plugins {
		for _, command := range plugin.Commands() {
			if occupant, taken := registry.commands[command]; taken {
				registry.log.Fatalf("command %q registered twice (%T and %T)", command, occupant, plugin)
			}
			registry.commands[command] = plugin
		}
	}
	return registry
}

// Init initializes the plugins once the gateway session exists.
func (r *Registry) Init(session *discordgo.Session) {
	for _, plugin := range r.plugins {
		r.log.Infof("[PLUG] %T reacts to [ %s ]", plugin, strings.Join(plugin.Commands(), " "))
		plugin.Init(session)
	}
	r.log.Info("Initializer finished. Loaded " + strconv.Itoa(len(r.plugins)) + " plugins")
}

// CallBotPlugin dispatches a parsed command to its plugin.
// command - The command that triggered this execution
// content - The content without command
// msg     - The message object
func (r *Registry) CallBotPlugin(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	// Defer a recovery in case anything panics
	defer helpers.RecoverDiscord(session, msg)

	if plugin, ok := r.commands[command]; ok {
		plugin.Action(command, content, msg, session)
	}
}
