// Package quality checks generated responses against web evidence before
// they reach the user. Verification never invents confidence: a response is
// only rated on evidence that was actually retrieved, and a check that never
// ran reports UNKNOWN rather than guessing.
package quality

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/classifier"
	"github.com/codewiz073-droid/bwami/internal/websearch"
)

// Confidence grades how well evidence supports a response.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

// Report is the outcome of verifying one response.
type Report struct {
	ConfidenceLevel Confidence
	Issues          []string
	VerifiedSources []websearch.EvidenceDocument
	// WebVerified is true only when evidence retrieval was attempted.
	WebVerified bool
	// Replaced is true when ResponseText was synthesized from evidence
	// instead of the original generation.
	Replaced bool
	// Blocked is true when the response should be withheld entirely.
	Blocked bool
	// ResponseText is the text to deliver. It equals the input text unless
	// Replaced is true.
	ResponseText string
}

// sensitiveCategories are those where an uncorroborated factual claim is
// worse than no answer.
var sensitiveCategories = map[classifier.Category]bool{
	classifier.CategoryGeneral:  true,
	classifier.CategoryAnalysis: true,
}

// skipCategories never need web verification: their output is not factual.
var skipCategories = map[classifier.Category]bool{
	classifier.CategoryGreeting:     true,
	classifier.CategoryCapabilities: true,
	classifier.CategoryCreative:     true,
}

const (
	minCorroborationHigh = 2
	maxEvidenceDocs      = 5
)

// Verifier checks responses against retrieved evidence.
type Verifier struct {
	searcher websearch.Searcher
	logger   *logrus.Logger
}

func NewVerifier(searcher websearch.Searcher, logger *logrus.Logger) *Verifier {
	return &Verifier{searcher: searcher, logger: logger}
}

// Verify checks responseText for the given query and category. When the
// search fails or the category is exempt, the report says so honestly with
// ConfidenceLevel UNKNOWN and WebVerified false.
func (v *Verifier) Verify(ctx context.Context, query, responseText string, category classifier.Category) Report {
	report := Report{
		ConfidenceLevel: ConfidenceUnknown,
		ResponseText:    responseText,
	}

	if skipCategories[category] {
		return report
	}

	evidence, err := v.searcher.Search(ctx, query, maxEvidenceDocs)
	if err != nil {
		v.logger.WithError(err).Warn("Evidence retrieval failed, skipping verification")
		report.Issues = append(report.Issues, "web verification unavailable")
		return report
	}

	// Retrieval ran, even if it found nothing. From here on the report is
	// evidence-based.
	report.WebVerified = true

	corroborating := corroboratingDocs(responseText, evidence)
	report.VerifiedSources = corroborating

	switch {
	case len(corroborating) >= minCorroborationHigh:
		report.ConfidenceLevel = ConfidenceHigh
	case len(corroborating) == 1:
		report.ConfidenceLevel = ConfidenceMedium
	default:
		report.ConfidenceLevel = ConfidenceLow
		report.Issues = append(report.Issues, "no retrieved source corroborates the response")
	}

	// Factual queries whose only evidence is encyclopedic get the
	// encyclopedia's answer instead of the model's: the retrieved text is
	// strictly more trustworthy than an uncorroborated generation.
	replace := report.ConfidenceLevel == ConfidenceLow ||
		(len(evidence) > 0 && wikipediaOnly(evidence) && report.ConfidenceLevel != ConfidenceHigh)

	if replace && category == classifier.CategoryGeneral {
		if replacement, ok := synthesizeFromEvidence(query, evidence); ok {
			v.logger.WithField("query", query).Info("Replacing uncorroborated response with evidence summary")
			report.Replaced = true
			report.ResponseText = replacement
			report.ConfidenceLevel = ConfidenceMedium
			report.VerifiedSources = evidence
			report.Issues = append(report.Issues, "original response replaced with web evidence")
			return report
		}
	}

	if report.ConfidenceLevel == ConfidenceLow && sensitiveCategories[category] {
		report.Blocked = true
		report.Issues = append(report.Issues, "response withheld: no supporting evidence found")
	}

	return report
}

func wikipediaOnly(evidence []websearch.EvidenceDocument) bool {
	for _, doc := range evidence {
		if !strings.Contains(doc.URL, "wikipedia.org") {
			return false
		}
	}
	return len(evidence) > 0
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopwords excluded from keyword overlap. Without this, function words
// would corroborate everything.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "for": true, "and": true, "or": true, "not": true,
	"it": true, "its": true, "this": true, "that": true, "with": true,
	"as": true, "by": true, "from": true, "has": true, "have": true,
	"had": true, "but": true, "they": true, "their": true, "which": true,
	"what": true, "who": true, "you": true, "your": true, "can": true,
	"will": true, "would": true, "there": true, "about": true, "also": true,
	"more": true, "most": true, "some": true, "such": true, "than": true,
	"other": true, "into": true, "when": true, "where": true, "how": true,
}

func keywords(text string) map[string]bool {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, word := range words {
		if len(word) > 2 && !stopwords[word] {
			set[word] = true
		}
	}
	return set
}

// corroboratingDocs returns the evidence documents whose text meaningfully
// overlaps the response.
func corroboratingDocs(responseText string, evidence []websearch.EvidenceDocument) []websearch.EvidenceDocument {
	responseWords := keywords(responseText)
	if len(responseWords) == 0 {
		return nil
	}

	var matched []websearch.EvidenceDocument
	for _, doc := range evidence {
		docWords := keywords(doc.Title + " " + doc.Snippet)

		overlap := 0
		for word := range docWords {
			if responseWords[word] {
				overlap++
			}
		}

		// A document corroborates when a meaningful share of its own
		// keywords appears in the response.
		if overlap >= 3 || (len(docWords) > 0 && overlap*2 >= len(docWords)) {
			matched = append(matched, doc)
		}
	}
	return matched
}

// synthesizeFromEvidence builds a replacement answer from search snippets.
// It prefers an encyclopedic source when one is present.
func synthesizeFromEvidence(query string, evidence []websearch.EvidenceDocument) (string, bool) {
	var primary *websearch.EvidenceDocument
	for i := range evidence {
		if strings.Contains(evidence[i].URL, "wikipedia.org") && evidence[i].Snippet != "" {
			primary = &evidence[i]
			break
		}
	}
	if primary == nil {
		for i := range evidence {
			if evidence[i].Snippet != "" {
				primary = &evidence[i]
				break
			}
		}
	}
	if primary == nil {
		return "", false
	}

	var b strings.Builder
	b.WriteString(primary.Snippet)
	for _, doc := range evidence {
		if doc.URL != primary.URL && doc.Snippet != "" {
			b.WriteString(" ")
			b.WriteString(doc.Snippet)
			break
		}
	}
	b.WriteString(fmt.Sprintf("\n\n[VERIFIED - Web Search Results]\nSource: %s", primary.URL))

	return b.String(), true
}
