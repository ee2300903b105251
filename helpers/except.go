// Except.go: Contains functions to make handling panics less PITA

package helpers

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
)

// DebugMode makes Relax dump errors before panicking.
var DebugMode bool

type Callback func()

// RecoverDiscord recover()s and sends a message to the channel the command
// came from
func RecoverDiscord(session *discordgo.Session, msg *discordgo.Message) {
	err := recover()
	if err != nil {
		raven.CaptureError(fmt.Errorf("%v", err), map[string]string{"command_message": msg.Content})
		session.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("Something went wrong: `%v`", err))
	}
}

// Recover recover()s and reports the error to the console and sentry
func Recover() {
	err := recover()
	if err != nil {
		fmt.Printf("%#v\n", err)
		raven.CaptureError(fmt.Errorf("%v", err), map[string]string{})
	}
}

// SoftRelax is a softer form of Relax()
// Calls a callback instead of panicking
func SoftRelax(err error, cb Callback) {
	if err != nil {
		cb()
	}
}

// Relax is a helper to reduce if-checks if panicking is allowed
// If $err is nil this is a no-op. Panics otherwise.
func Relax(err error) {
	if err != nil {
		if DebugMode {
			fmt.Printf("%#v\n", err)
		}
		panic(err)
	}
}
