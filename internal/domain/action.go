package domain

// Action classifies what a recognized utterance asks the session to do.
type Action int

const (
	ActionUnknown Action = iota
	ActionNext
	ActionPrevious
	ActionRepeat
	ActionCompleteItem
	ActionStartCooking
	ActionMute
	ActionUnmute
	ActionHelp
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	case ActionRepeat:
		return "repeat"
	case ActionCompleteItem:
		return "complete_item"
	case ActionStartCooking:
		return "start_cooking"
	case ActionMute:
		return "mute"
	case ActionUnmute:
		return "unmute"
	case ActionHelp:
		return "help"
	default:
		return "unknown"
	}
}

// actionNames maps snake_case names to Action values.
var actionNames = map[string]Action{
	"next":          ActionNext,
	"previous":      ActionPrevious,
	"repeat":        ActionRepeat,
	"complete_item": ActionCompleteItem,
	"start_cooking": ActionStartCooking,
	"mute":          ActionMute,
	"unmute":        ActionUnmute,
	"help":          ActionHelp,
	"unknown":       ActionUnknown,
}

// ActionFromString converts a snake_case action name to an Action.
// Returns ActionUnknown for unrecognized names.
func ActionFromString(name string) Action {
	if a, ok := actionNames[name]; ok {
		return a
	}
	return ActionUnknown
}
