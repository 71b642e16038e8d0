// Package feedback owns spoken output: the serial playback queue and the
// catalogue of every line the controller can say. Edit this file to change
// the assistant's wording; keep lines short, the TTS engine handles
// inflection.
package feedback

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/sousvox/internal/domain"
)

// ── Session lifecycle ────────────────────────────────────────────

func LineWelcome(title string, items int) string {
	return fmt.Sprintf("Let's make %s. There are %d ingredients to gather. Say next when you're ready.", title, items)
}

func LineGoodbye() string {
	return "Session closed. Happy cooking."
}

// ── Preparation phase ────────────────────────────────────────────

// LineItem reads one prep item with its position in the list.
func LineItem(pos, total int, item domain.PrepItem) string {
	return fmt.Sprintf("Ingredient %d of %d: %s.", pos, total, describeItem(item))
}

func LineItemDone(item domain.PrepItem) string {
	return fmt.Sprintf("%s, checked off.", capitalize(item.Name))
}

func LineReadyToCook(title string) string {
	return fmt.Sprintf("That's everything for %s. Say start cooking when you're ready.", title)
}

// LineItemsRemaining is spoken when the user tries to start cooking with
// ingredients still ungathered.
func LineItemsRemaining(n int) string {
	if n == 1 {
		return "One ingredient still needs checking off. Say got it, or next, to continue gathering."
	}
	return fmt.Sprintf("%d ingredients still need checking off. Say got it, or next, to continue gathering.", n)
}

// ── Cooking phase ────────────────────────────────────────────────

func LineCookingStart(title, firstInstruction string) string {
	return fmt.Sprintf("Cooking %s. Step one: %s", title, firstInstruction)
}

func LineInstruction(pos, total int, instruction string) string {
	return fmt.Sprintf("Step %d of %d: %s", pos, total, instruction)
}

func LineAllDone(title string) string {
	return fmt.Sprintf("That was the last step. %s is done. Enjoy.", capitalize(title))
}

func LineAlreadyCooking() string {
	return "You're already cooking."
}

// ── Navigation boundaries ────────────────────────────────────────

func LineFirstStep() string {
	return "This is the first step."
}

func LineNotPreparing() string {
	return "There's nothing to check off while cooking."
}

// ── Capture / mute ───────────────────────────────────────────────

func LineMuted() string {
	return "Muted. Say nothing, I've stopped listening."
}

func LineUnmuted() string {
	return "Listening again."
}

// ── Helpers ──────────────────────────────────────────────────────

// describeItem renders a prep item the way a person would say it:
// "2 cups flour", "3 eggs", "salt".
func describeItem(item domain.PrepItem) string {
	if item.Amount <= 0 {
		return item.Name
	}
	amount := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", item.Amount), "0"), ".")
	if item.Unit == "" {
		return fmt.Sprintf("%s %s", amount, item.Name)
	}
	return fmt.Sprintf("%s %s %s", amount, item.Unit, item.Name)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
