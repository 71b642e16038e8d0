// Package vocab holds the static command vocabulary for guided sessions.
// The table is fixed at compile time; changing it requires a restart.
package vocab

import (
	"strings"

	"github.com/hammamikhairi/sousvox/internal/domain"
)

// Command registers one or more spoken phrases under a canonical action.
type Command struct {
	Phrases     []string // synonyms, all lowercase
	Action      domain.Action
	Description string
}

// commands is the vocabulary, in match-priority order. The matcher's exact
// pass walks it front to back, so more specific phrases ("start cooking")
// come before the generic ones that could shadow them.
var commands = []Command{
	{
		Phrases:     []string{"start cooking", "let's cook", "begin cooking"},
		Action:      domain.ActionStartCooking,
		Description: "Move from preparation to the cooking phase",
	},
	{
		Phrases:     []string{"next", "next step", "done", "continue"},
		Action:      domain.ActionNext,
		Description: "Advance to the next step",
	},
	{
		Phrases:     []string{"previous", "go back", "back"},
		Action:      domain.ActionPrevious,
		Description: "Return to the previous step",
	},
	{
		Phrases:     []string{"repeat", "say again", "again"},
		Action:      domain.ActionRepeat,
		Description: "Repeat the current step",
	},
	{
		Phrases:     []string{"got it", "check", "have it"},
		Action:      domain.ActionCompleteItem,
		Description: "Mark the current ingredient as gathered",
	},
	{
		Phrases:     []string{"mute", "stop listening"},
		Action:      domain.ActionMute,
		Description: "Stop voice capture until unmuted",
	},
	{
		Phrases:     []string{"unmute", "start listening"},
		Action:      domain.ActionUnmute,
		Description: "Resume voice capture",
	},
	{
		Phrases:     []string{"help", "what can i say"},
		Action:      domain.ActionHelp,
		Description: "List the available commands",
	},
}

// Lookup returns the command table. Read-only; callers must not mutate it.
func Lookup() []Command {
	return commands
}

// HelpText renders the vocabulary as one spoken sentence per command.
func HelpText() string {
	var b strings.Builder
	b.WriteString("You can say: ")
	for i, c := range commands {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Phrases[0])
		b.WriteString(", to ")
		b.WriteString(strings.ToLower(c.Description[:1]) + c.Description[1:])
	}
	b.WriteString(".")
	return b.String()
}
