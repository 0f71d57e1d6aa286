package security

import "regexp"

// Classification is the intent tier assigned to a message.
type Classification string

const (
	ClassificationSafe       Classification = "SAFE"
	ClassificationSuspicious Classification = "SUSPICIOUS"
	ClassificationMalicious  Classification = "MALICIOUS"
	ClassificationEmpty      Classification = "EMPTY"
)

// maliciousThreshold and suspiciousThreshold gate the escalation rules.
const (
	maliciousThreshold  = 0.7
	suspiciousThreshold = 0.5
)

// suspiciousCategories escalate to SUSPICIOUS even when overall
// confidence stays below the malicious threshold.
var suspiciousCategories = []string{
	CategorySystemData,
	CategoryMetaQuery,
	CategoryInstructionOverride,
	CategoryRoleplay,
	CategoryChainInjection,
	CategorySocialEngineering,
	CategoryContextManipulation,
}

// Security-adjacent vocabulary. Hits here are a weak signal on their own
// and only escalate in combination with other signals.
var suspiciousKeywordRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsystem\s+prompt\b`),
	regexp.MustCompile(`(?i)\binstructions?\b`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)\bbypass\b`),
	regexp.MustCompile(`(?i)\bexploit\b`),
	regexp.MustCompile(`(?i)\bvulnerab\w+\b`),
	regexp.MustCompile(`(?i)\bapi\s*key\b`),
	regexp.MustCompile(`(?i)\b(password|credential|token|secret)s?\b`),
	regexp.MustCompile(`(?i)\b(admin|root|superuser)\b`),
	regexp.MustCompile(`(?i)\b(decode|encode|base64|rot13)\b`),
	regexp.MustCompile(`(?i)\b(llm|language\s+model|chatbot)\b`),
	regexp.MustCompile(`(?i)\b(database|backend|infrastructure)\b`),
	regexp.MustCompile(`(?i)\bunrestricted\b`),
	regexp.MustCompile(`(?i)\b(override|disable)\b`),
}

// Product-documentation vocabulary. A hit strongly suggests a legitimate
// question about the corpus.
var businessKeywordRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(install|installation|mount|mounting|assembly|assemble)\b`),
	regexp.MustCompile(`(?i)\b(specification|spec\s+sheet|datasheet|dimensions?|size|weight)\b`),
	regexp.MustCompile(`(?i)\b(manual|documentation|guide|instructions\s+manual)\b`),
	regexp.MustCompile(`(?i)\b(warranty|guarantee|return\s+policy)\b`),
	regexp.MustCompile(`(?i)\b(configure|configuration|setup|settings)\b`),
	regexp.MustCompile(`(?i)\b(product|model\s+number|part\s+number|serial)\b`),
	regexp.MustCompile(`(?i)\b(price|pricing|cost|order|purchase)\b`),
	regexp.MustCompile(`(?i)\b(compatible|compatibility|fits?|supported)\b`),
	regexp.MustCompile(`(?i)\b(voltage|wattage|torque|capacity|material|temperature\s+range)\b`),
	regexp.MustCompile(`(?i)\b(firmware|update|maintenance|troubleshoot\w*|repair)\b`),
	regexp.MustCompile(`(?i)\b(screw|bolt|bracket|cable|connector|holes?)\b`),
	regexp.MustCompile(`(?i)\b[A-Z]{2,5}-\d{1,4}\b`),
}

// IntentResult is the classifier verdict for one sanitized message.
type IntentResult struct {
	Classification Classification
	Confidence     float64
	Reason         string
	Injection      InjectionResult
}

// ClassifyIntent merges sanitizer flags, the injection scan, and keyword
// evidence into a single intent tier. Rules are evaluated in order; the
// first that applies wins.
func ClassifyIntent(sanitized SanitizationResult) IntentResult {
	if sanitized.Text == "" {
		return IntentResult{
			Classification: ClassificationSafe,
			Confidence:     1.0,
			Reason:         "empty",
		}
	}

	injection := DetectInjection(sanitized.Text)
	dangerous := sanitized.HasDangerousFlag()
	suspiciousHits := countKeywordHits(sanitized.Text, suspiciousKeywordRes)
	businessHits := countKeywordHits(sanitized.Text, businessKeywordRes)

	switch {
	case injection.Confidence >= maliciousThreshold:
		return IntentResult{
			Classification: ClassificationMalicious,
			Confidence:     injection.Confidence,
			Reason:         "injection pattern match",
			Injection:      injection,
		}
	case injection.Confidence >= suspiciousThreshold && dangerous:
		confidence := injection.Confidence + 0.2
		if confidence > 1.0 {
			confidence = 1.0
		}
		return IntentResult{
			Classification: ClassificationMalicious,
			Confidence:     confidence,
			Reason:         "injection pattern with obfuscated input",
			Injection:      injection,
		}
	case injection.Detected && injection.HasAnyCategory(suspiciousCategories...):
		return IntentResult{
			Classification: ClassificationSuspicious,
			Confidence:     injection.Confidence,
			Reason:         "sensitive injection category",
			Injection:      injection,
		}
	case injection.Confidence >= suspiciousThreshold:
		return IntentResult{
			Classification: ClassificationSuspicious,
			Confidence:     injection.Confidence,
			Reason:         "moderate injection confidence",
			Injection:      injection,
		}
	case suspiciousHits >= 2 && businessHits == 0:
		return IntentResult{
			Classification: ClassificationSuspicious,
			Confidence:     0.6,
			Reason:         "security vocabulary without product context",
			Injection:      injection,
		}
	case suspiciousHits >= 1 && dangerous:
		return IntentResult{
			Classification: ClassificationSuspicious,
			Confidence:     0.6,
			Reason:         "security vocabulary with obfuscated input",
			Injection:      injection,
		}
	case dangerous && businessHits == 0:
		return IntentResult{
			Classification: ClassificationSuspicious,
			Confidence:     0.55,
			Reason:         "obfuscated input without product context",
			Injection:      injection,
		}
	}

	confidence := 0.8
	if businessHits > 0 {
		confidence = 0.95
	}
	return IntentResult{
		Classification: ClassificationSafe,
		Confidence:     confidence,
		Reason:         "no escalation signals",
		Injection:      injection,
	}
}

func countKeywordHits(text string, patterns []*regexp.Regexp) int {
	hits := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}
