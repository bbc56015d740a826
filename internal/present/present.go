// Package present holds the presentation rules shared by the CLI, the chat
// UI and the MCP tools.
package present

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// MinQuestionLength is the shortest question accepted from a user, in
// characters after trimming.
const MinQuestionLength = 3

var ErrQuestionTooShort = errors.New("please ask a more detailed question")

// EmergencyKeywords trigger SafetyNotice. Matching is case-insensitive.
var EmergencyKeywords = []string{"urgence", "accident", "danger", "blessure", "emergency", "injury"}

// EmergencyNumbers are shown with the safety notice and the chat banner.
var EmergencyNumbers = []EmergencyNumber{
	{Service: "Medical (SAMU)", Number: "15"},
	{Service: "Fire brigade", Number: "18"},
	{Service: "Police", Number: "17"},
	{Service: "European emergency number", Number: "112"},
}

type EmergencyNumber struct {
	Service string
	Number  string
}

// ValidateQuestion rejects questions shorter than MinQuestionLength.
func ValidateQuestion(q string) error {
	if len([]rune(strings.TrimSpace(q))) < MinQuestionLength {
		return ErrQuestionTooShort
	}
	return nil
}

// UniqueSources returns sources without duplicates, in first-seen order,
// and without the placeholder for chunks of unknown origin.
func UniqueSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == "" || s == document.UnknownSource {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SafetyNotice returns a warning pointing to the emergency services when the
// question mentions an emergency, or "" otherwise.
func SafetyNotice(question string) string {
	q := strings.ToLower(question)
	for _, k := range EmergencyKeywords {
		if strings.Contains(q, k) {
			return "IMPORTANT: in a real emergency, call the emergency services immediately (15, 18, 17 or 112)."
		}
	}
	return ""
}

// FormatSources renders sources as a numbered list, one per line.
func FormatSources(sources []string) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
