package llm

import (
	"fmt"
	"strings"
)

// ModifierEntry is one option on a menu entry as presented to the
// reasoning service.
type ModifierEntry struct {
	Name            string
	PriceDeltaCents int64
}

// MenuEntry is one orderable item. Only currently-available items are
// ever placed here, so the reasoning service cannot reference anything
// off-menu.
type MenuEntry struct {
	Name        string
	Description string
	PriceCents  int64
	DietaryTags []string
	Modifiers   []ModifierEntry
}

// MenuSection groups entries by category.
type MenuSection struct {
	Name  string
	Items []MenuEntry
}

// PromptContext carries everything one grounded turn request needs: the
// tenant snapshot, the machine state, and the conversation so far.
type PromptContext struct {
	RestaurantName string
	OperatingDays  string
	OpensAt        string
	ClosesAt       string
	TaxRateBps     int
	MaxAdvanceDays int
	Sections       []MenuSection

	State          string
	Intent         string
	CartSummary    string
	PendingSummary string
	RecentTurns    []string
}

// BuildTurnPrompt builds the grounded system prompt for one turn.
func BuildTurnPrompt(pc *PromptContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are the phone assistant for %s, taking food orders and table bookings.\n", pc.RestaurantName))
	sb.WriteString(fmt.Sprintf("Opening hours: %s, %s-%s. Bookings accepted up to %d days ahead.\n\n",
		pc.OperatingDays, pc.OpensAt, pc.ClosesAt, pc.MaxAdvanceDays))

	sb.WriteString("=== MENU ===\n")
	for _, section := range pc.Sections {
		sb.WriteString(fmt.Sprintf("[%s]\n", section.Name))
		for _, item := range section.Items {
			sb.WriteString(fmt.Sprintf("- %s: %s", item.Name, FormatCents(item.PriceCents)))
			if item.Description != "" {
				sb.WriteString(" — " + item.Description)
			}
			if len(item.DietaryTags) > 0 {
				sb.WriteString(" (" + strings.Join(item.DietaryTags, ", ") + ")")
			}
			sb.WriteString("\n")
			for _, mod := range item.Modifiers {
				delta := FormatCents(mod.PriceDeltaCents)
				if mod.PriceDeltaCents >= 0 {
					delta = "+" + delta
				}
				sb.WriteString(fmt.Sprintf("    * %s: %s\n", mod.Name, delta))
			}
		}
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Conversation state: %s\n", pc.State))
	if pc.Intent != "" {
		sb.WriteString(fmt.Sprintf("Caller goal: %s\n", pc.Intent))
	}
	if pc.CartSummary != "" {
		sb.WriteString("Current cart:\n" + pc.CartSummary + "\n")
	}
	if pc.PendingSummary != "" {
		sb.WriteString("Details collected so far: " + pc.PendingSummary + "\n")
	}
	if len(pc.RecentTurns) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range pc.RecentTurns {
			sb.WriteString("  " + t + "\n")
		}
	}
	sb.WriteString("\n")

	sb.WriteString(`Respond with ONLY a JSON object, no markdown, no code blocks:
{"intent":"...","reply":"...","item":"...","quantity":1,"modifiers":[],"special_requests":"","name":"","contact":"","pickup_time":"","date":"","time":"","party_size":0,"pay_by_phone":false,"confirmed":false}

Rules:
- intent must be one of: add_item, remove_item, set_quantity, menu_question, provide_details, confirm, book_table, out_of_scope, end_call
- reply is what will be spoken to the caller: short, friendly, one or two sentences, no markdown
- Only mention items, prices and hours from the menu above. Never invent items or times.
- Prices are spoken in dollars, e.g. "fifteen ninety-five".
- Omit fields that do not apply; quantity defaults to 1 for add_item.
- confirmed is true only when the caller explicitly agrees to the read-back.
- Use end_call only when the caller is done.`)

	return sb.String()
}

// BuildSimplifiedPrompt is the single-retry fallback: same grounding,
// fewer instructions, so a struggling model still produces valid JSON.
func BuildSimplifiedPrompt(pc *PromptContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You answer the phone for %s.\n", pc.RestaurantName))
	sb.WriteString("Menu items: ")
	var names []string
	for _, section := range pc.Sections {
		for _, item := range section.Items {
			names = append(names, fmt.Sprintf("%s (%s)", item.Name, FormatCents(item.PriceCents)))
		}
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n\n")
	sb.WriteString(`Reply with ONLY JSON: {"intent":"...","reply":"..."}.
intent: add_item, remove_item, set_quantity, menu_question, provide_details, confirm, book_table, out_of_scope or end_call.
reply: one short spoken sentence.`)

	return sb.String()
}

// FormatCents renders integer cents as "$12.34".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
