package security

import (
	"regexp"
	"strings"
)

// detectionThreshold is the confidence at which a scan counts as a
// positive detection.
const detectionThreshold = 0.5

// InjectionMatch records a single pattern hit.
type InjectionMatch struct {
	Category string
	Severity float64
	Fragment string
}

// InjectionResult aggregates all pattern hits for one input.
type InjectionResult struct {
	Detected   bool
	Confidence float64
	Matches    []InjectionMatch
	Categories []string
}

// HasCategory reports whether the given category fired.
func (r InjectionResult) HasCategory(category string) bool {
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// HasAnyCategory reports whether any of the given categories fired.
func (r InjectionResult) HasAnyCategory(categories ...string) bool {
	for _, c := range categories {
		if r.HasCategory(c) {
			return true
		}
	}
	return false
}

var collapseRe = regexp.MustCompile(`\s+`)

// DetectInjection evaluates the full pattern catalogue against the text.
// Each pattern is tried against both the original text and a lowercased,
// whitespace-collapsed variant so spacing tricks don't slip through.
func DetectInjection(text string) InjectionResult {
	if strings.TrimSpace(text) == "" {
		return InjectionResult{}
	}

	collapsed := strings.ToLower(collapseRe.ReplaceAllString(text, " "))

	var matches []InjectionMatch
	categories := make(map[string]struct{})
	var order []string
	maxSeverity := 0.0

	for _, p := range injectionCatalogue {
		fragment := p.re.FindString(text)
		if fragment == "" {
			fragment = p.re.FindString(collapsed)
		}
		if fragment == "" {
			continue
		}
		matches = append(matches, InjectionMatch{
			Category: p.category,
			Severity: p.severity,
			Fragment: truncateFragment(fragment),
		})
		if _, ok := categories[p.category]; !ok {
			categories[p.category] = struct{}{}
			order = append(order, p.category)
		}
		if p.severity > maxSeverity {
			maxSeverity = p.severity
		}
	}

	if len(matches) == 0 {
		return InjectionResult{}
	}

	// Distinct categories compound: two bump the score, three or more
	// make the verdict certain.
	confidence := maxSeverity
	switch {
	case len(order) >= 3:
		confidence = 1.0
	case len(order) == 2:
		confidence += 0.1
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	return InjectionResult{
		Detected:   confidence >= detectionThreshold,
		Confidence: confidence,
		Matches:    matches,
		Categories: order,
	}
}

// truncateFragment keeps matched fragments short enough for logs.
func truncateFragment(s string) string {
	const maxLen = 80
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
