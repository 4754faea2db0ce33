// Package formatter applies per-user presentation preferences to final
// response text. It runs after verification, so it only ever sees text that
// has already passed quality checks.
package formatter

import (
	"fmt"
	"regexp"
	"strings"
)

// Tone adjusts word choice without changing content.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneTechnical    Tone = "technical"
)

// Preferences mirror the stored per-user formatting settings.
type Preferences struct {
	PlainFormat       bool
	UseLists          bool
	UseNumbered       bool
	UseBullets        bool
	UseEmojis         bool
	IncludeConfidence bool
	PreferredTone     Tone
}

// DefaultPreferences is what new and anonymous users get.
func DefaultPreferences() Preferences {
	return Preferences{
		UseLists:          true,
		UseNumbered:       true,
		UseBullets:        true,
		UseEmojis:         true,
		IncludeConfidence: true,
		PreferredTone:     ToneProfessional,
	}
}

var (
	listItemPattern  = regexp.MustCompile(`^(\d+[.)]\s+|[-•]\s+)`)
	conjunctionSplit = regexp.MustCompile(`,\s+|\s+(?:and|also|additionally|furthermore|moreover)\s+`)
	emphasisPattern  = regexp.MustCompile(`(?i)\b(important|critical|must|required|note|remember|key)\b`)
)

// longLineThreshold is the length past which a dense sentence gets broken
// into list items.
const longLineThreshold = 120

var emojiRules = []struct {
	pattern *regexp.Regexp
	emoji   string
}{
	{regexp.MustCompile(`(?i)\bstep[\s\d]`), "📝"},
	{regexp.MustCompile(`(?i)\bexample\b`), "💡"},
	{regexp.MustCompile(`(?i)\berror\b`), "❌"},
	{regexp.MustCompile(`(?i)\bwarning\b`), "⚠️"},
	{regexp.MustCompile(`(?i)\btip\b`), "💡"},
	{regexp.MustCompile(`(?i)\bsummary\b`), "📊"},
}

// Format applies prefs to text and optionally appends the confidence footer.
// Plain format skips restructuring but still honors IncludeConfidence.
func Format(text string, prefs Preferences, confidence string, sources []string) string {
	if prefs.PlainFormat {
		if prefs.IncludeConfidence && confidence != "" {
			return addConfidenceFooter(text, confidence, sources)
		}
		return text
	}

	formatted := text
	if prefs.UseLists {
		formatted = structureIntoLists(formatted, prefs)
	}
	formatted = emphasizeKeyPoints(formatted)
	if prefs.UseEmojis {
		formatted = addEmojis(formatted)
	}
	formatted = ApplyTone(formatted, prefs.PreferredTone)

	if prefs.IncludeConfidence && confidence != "" {
		formatted = addConfidenceFooter(formatted, confidence, sources)
	}
	return formatted
}

// structureIntoLists breaks dense multi-clause lines into list items.
// Existing list items pass through untouched.
func structureIntoLists(text string, prefs Preferences) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || listItemPattern.MatchString(stripped) {
			result = append(result, line)
			continue
		}

		if len(stripped) > longLineThreshold && strings.Contains(stripped, ",") {
			parts := conjunctionSplit.Split(stripped, -1)
			if len(parts) > 1 {
				for i, part := range parts {
					part = strings.TrimSpace(part)
					if part == "" {
						continue
					}
					switch {
					case prefs.UseBullets:
						result = append(result, "• "+part)
					case prefs.UseNumbered:
						result = append(result, fmt.Sprintf("%d. %s", i+1, part))
					default:
						result = append(result, "- "+part)
					}
				}
				continue
			}
		}

		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

func emphasizeKeyPoints(text string) string {
	return emphasisPattern.ReplaceAllString(text, "**$1**")
}

// addEmojis prefixes lines that mention a known concept, once per line.
func addEmojis(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, rule := range emojiRules {
			if rule.pattern.MatchString(line) && !strings.Contains(line, rule.emoji) {
				lines[i] = rule.emoji + " " + line
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

func addConfidenceFooter(text, confidence string, sources []string) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n---\nConfidence: ")
	b.WriteString(confidence)
	if len(sources) > 0 {
		b.WriteString("\nSources:")
		for _, source := range sources {
			b.WriteString("\n- ")
			b.WriteString(source)
		}
	}
	return b.String()
}

// ApplyTone swaps a few word choices to match the requested tone.
func ApplyTone(text string, tone Tone) string {
	switch tone {
	case ToneCasual:
		text = strings.ReplaceAll(text, "Unfortunately,", "Sadly,")
	case ToneTechnical:
		text = strings.ReplaceAll(text, "basically", "technically")
		text = strings.ReplaceAll(text, "really", "fundamentally")
	}
	return text
}
