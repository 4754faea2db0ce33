// Package classifier maps free-text queries onto a fixed intent taxonomy.
//
// Classification is a pure function of the normalized query text and the rule
// table below: no network, no storage, and identical input always yields the
// identical category. Downstream handler selection depends on that stability.
package classifier

import (
	"regexp"
	"strings"
)

// Category is one intent label from the fixed taxonomy. The names are a
// stable external contract and must not change.
type Category string

const (
	CategoryMath         Category = "math"
	CategoryEssay        Category = "essay"
	CategoryCode         Category = "code"
	CategoryTranslation  Category = "translation"
	CategoryCreative     Category = "creative"
	CategoryAnalysis     Category = "analysis"
	CategoryGreeting     Category = "greeting"
	CategoryCapabilities Category = "capabilities"
	CategoryGeneral      Category = "general"
)

// Categories returns every category in the taxonomy, fallback last.
func Categories() []Category {
	return []Category{
		CategoryMath,
		CategoryEssay,
		CategoryCode,
		CategoryTranslation,
		CategoryCreative,
		CategoryAnalysis,
		CategoryGreeting,
		CategoryCapabilities,
		CategoryGeneral,
	}
}

// Classification is the immutable result of classifying one query.
type Classification struct {
	Category   Category
	Confidence float64
	RawQuery   string
}

// Signal is one weighted cue for a category. Keeping the table as data
// rather than inline branching makes the decision boundary testable on its
// own.
type Signal struct {
	Pattern *regexp.Regexp
	Weight  int
}

func keyword(words string, weight int) Signal {
	return Signal{
		Pattern: regexp.MustCompile(`\b(?:` + words + `)\b`),
		Weight:  weight,
	}
}

func pattern(expr string, weight int) Signal {
	return Signal{Pattern: regexp.MustCompile(expr), Weight: weight}
}

// minScore is the threshold a category must clear; below it the query falls
// back to general.
const minScore = 2

// priority breaks score ties deterministically.
var priority = []Category{
	CategoryMath,
	CategoryCode,
	CategoryTranslation,
	CategoryEssay,
	CategoryCreative,
	CategoryAnalysis,
	CategoryCapabilities,
	CategoryGreeting,
	CategoryGeneral,
}

var ruleTable = map[Category][]Signal{
	CategoryMath: {
		keyword(`solve|equation|calculate|compute|derivative|integral|simplify|algebra|theorem|factorize`, 3),
		// Structural cue: an arithmetic or algebraic expression.
		pattern(`[0-9a-z]\s*[\+\-\*/^=]\s*[0-9a-z\(]`, 3),
		keyword(`sum|product|quotient|remainder|percent|percentage`, 1),
	},
	CategoryEssay: {
		keyword(`essay|dissertation|composition`, 4),
		pattern(`\b(?:paragraph|article|report)\s+(?:about|on)\b`, 3),
		keyword(`thesis|introduction and conclusion`, 2),
	},
	CategoryCode: {
		keyword(`function|code|program|script|algorithm|debug|compile|refactor`, 3),
		keyword(`python|javascript|typescript|java|golang|rust|sql|html|css|bash`, 2),
		// Imperative cue: "write a function", "create a script".
		pattern(`\b(?:write|create|implement|build)\s+(?:a|an|the|some)?\s*(?:function|program|script|class|api|regex)\b`, 4),
		pattern("```|\\bdef\\s|\\bfunc\\s|\\bclass\\s", 3),
	},
	CategoryTranslation: {
		pattern(`\btranslat`, 4),
		pattern(`\bhow do you say\b`, 4),
		keyword(`in spanish|in french|in german|in japanese|in chinese|in hindi|in arabic|in italian`, 2),
	},
	CategoryCreative: {
		keyword(`story|poem|fiction|song|lyrics|haiku|screenplay`, 3),
		keyword(`creative|imaginative`, 3),
		pattern(`\bimagine\b|\bonce upon\b`, 2),
	},
	CategoryAnalysis: {
		pattern(`\b(?:compare|comparison|analy[sz]e|analysis|evaluate|assessment)\b`, 3),
		pattern(`\bpros and cons\b|\badvantages and disadvantages\b`, 4),
		keyword(`versus|vs`, 2),
		pattern(`\bdifference between\b|\btrade-?offs?\b`, 3),
	},
	CategoryGreeting: {
		pattern(`^(?:hi|hello|hey|yo|greetings|good (?:morning|afternoon|evening))\b`, 4),
		pattern(`\bhow are you\b|\bnice to meet you\b`, 3),
		keyword(`hello|hi there`, 2),
	},
	CategoryCapabilities: {
		pattern(`\byour capabilities\b|\bwhat can you do\b|\bwhat are you able to\b`, 4),
		pattern(`\bwho are you\b|\bwhat are you\b`, 3),
		pattern(`\bcapabilit`, 3),
	},
	// general has no signals: it is the fallback, never scored.
}

// Classify maps query text to exactly one category. Repeated calls with the
// same text return the same result.
func Classify(text string) Classification {
	normalized := normalize(text)
	if normalized == "" {
		return Classification{Category: CategoryGeneral, Confidence: 0, RawQuery: text}
	}

	scores := make(map[Category]int, len(ruleTable))
	for category, signals := range ruleTable {
		for _, signal := range signals {
			if signal.Pattern.MatchString(normalized) {
				scores[category] += signal.Weight
			}
		}
	}

	best := CategoryGeneral
	bestScore := 0
	for _, category := range priority {
		if score := scores[category]; score > bestScore {
			best = category
			bestScore = score
		}
	}

	if bestScore < minScore {
		return Classification{Category: CategoryGeneral, Confidence: 0.3, RawQuery: text}
	}

	return Classification{
		Category:   best,
		Confidence: confidenceFor(bestScore),
		RawQuery:   text,
	}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// confidenceFor maps an aggregate score to a coarse confidence value.
func confidenceFor(score int) float64 {
	switch {
	case score >= 7:
		return 0.9
	case score >= 5:
		return 0.75
	case score >= 3:
		return 0.6
	default:
		return 0.5
	}
}
