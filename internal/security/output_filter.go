package security

import (
	"regexp"
	"strings"
)

// Output leak categories.
const (
	LeakSystem       = "system_leak"
	LeakModel        = "model_leak"
	LeakArchitecture = "architecture_leak"
	LeakSecurity     = "security_leak"
	LeakOverride     = "override_leak"
)

// Filter actions, in increasing order of intervention.
const (
	ActionPass   = "pass"
	ActionRedact = "redact"
	ActionBlock  = "block"
)

// FallbackResponse replaces any reply the filter blocks.
const FallbackResponse = "I can only help with questions about our products and documentation. Is there something specific you'd like to know?"

const redactedMarker = "[redacted]"

type leakPattern struct {
	re       *regexp.Regexp
	category string
}

var leakPatterns = []leakPattern{
	// Disclosure of the system prompt or standing instructions.
	{regexp.MustCompile(`(?i)my\s+(system\s+)?prompt\s+(is|says|reads|instructs|tells)`), LeakSystem},
	{regexp.MustCompile(`(?i)my\s+instructions?\s+(are|say|tell|include|require)`), LeakSystem},
	{regexp.MustCompile(`(?i)(here\s+(are|is)|these\s+are|the\s+following\s+are)\s+(my\s+)?(system\s+)?(instructions?|rules|prompt)`), LeakSystem},
	{regexp.MustCompile(`(?i)i\s+(was|am|'ve\s+been)\s+(told|instructed|programmed|configured)\s+(to|not\s+to|that)`), LeakSystem},
	{regexp.MustCompile(`(?i)my\s+(initial|original|hidden)\s+(prompt|instructions?|directives?)`), LeakSystem},

	// Disclosure of the model, vendor, or credentials.
	{regexp.MustCompile(`(?i)(powered|built|running|based)\s+(by|on)\s+(gpt|claude|gemini|llama|deepseek|grok|mistral|openai|anthropic|xai)[-\s\w.]*`), LeakModel},
	{regexp.MustCompile(`(?i)i\s+am\s+(gpt|claude|gemini|llama|deepseek|grok|mistral)[-\w.]*`), LeakModel},
	{regexp.MustCompile(`(?i)\b(gpt-[45][\w.-]*|claude[-\s][\w.]+|deepseek-(chat|coder|r\d)|gemini[-\s][\w.]+)\b`), LeakModel},
	{regexp.MustCompile(`(?i)(api[_\s-]?key|secret[_\s-]?key|access[_\s-]?token|bearer\s+token)\s*[:=]\s*\S+`), LeakModel},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9]{16,}\b`), LeakModel},
	{regexp.MustCompile(`(?i)my\s+(model|version|temperature|context\s+window)\s+(is|was\s+set)`), LeakModel},

	// Disclosure of the serving stack.
	{regexp.MustCompile(`(?i)\b(pinecone|weaviate|qdrant|milvus|chroma|faiss|pgvector)\b`), LeakArchitecture},
	{regexp.MustCompile(`(?i)\brag\s+(pipeline|system|architecture|setup)\b`), LeakArchitecture},
	{regexp.MustCompile(`(?i)\b(vector|embedding)\s+(database|store|index|search)\b`), LeakArchitecture},
	{regexp.MustCompile(`(?i)\bcosine\s+similarity\b`), LeakArchitecture},
	{regexp.MustCompile(`(?i)\b(reciprocal\s+rank\s+fusion|tf-?idf|hybrid\s+(search|retrieval))\b`), LeakArchitecture},
	{regexp.MustCompile(`(?i)\b(express|fastify|flask|fastapi|chi\s+router|gin\s+framework)\b\s*(server|backend|framework)?`), LeakArchitecture},
	{regexp.MustCompile(`(?i)(chunked|retrieved)\s+(from|using)\s+(the\s+)?(index|knowledge\s+base|corpus)`), LeakArchitecture},

	// Self-description of the security pipeline.
	{regexp.MustCompile(`(?i)my\s+(security|safety)\s+(filters?|pipeline|checks?|layers?)`), LeakSecurity},
	{regexp.MustCompile(`(?i)(input\s+sanitiz\w+|injection\s+detect\w+|intent\s+classif\w+|output\s+filter\w*)\b`), LeakSecurity},
	{regexp.MustCompile(`(?i)(your|the)\s+(message|input|query)\s+(was|has\s+been)\s+(flagged|classified|scanned)\s+as`), LeakSecurity},
	{regexp.MustCompile(`(?i)(regex|pattern)\s+(catalogue|catalog|list)\s+(for|of)\s+(injection|attack)`), LeakSecurity},

	// Acknowledgment of a successful override attempt.
	{regexp.MustCompile(`(?i)(ok(ay)?|sure|fine)[,.!]?\s+(i\s+(will|'ll)\s+)?(ignore|ignoring|disregard)\s+(my|the|all)\s+(previous\s+)?(instructions?|rules)`), LeakOverride},
	{regexp.MustCompile(`(?i)i\s+(will|'ll|can)\s+now\s+(act|behave|respond)\s+(as|without)`), LeakOverride},
	{regexp.MustCompile(`(?i)(entering|enabled?|activated?)\s+(developer|dan|unrestricted|jailbreak)\s+mode`), LeakOverride},
	{regexp.MustCompile(`(?i)restrictions?\s+(are\s+now\s+)?(lifted|removed|disabled)`), LeakOverride},
}

// blockCategories force full replacement rather than redaction.
var blockCategories = map[string]bool{
	LeakSystem:       true,
	LeakModel:        true,
	LeakArchitecture: true,
	LeakSecurity:     true,
}

// OutputLeak is a single leak hit inside a response.
type OutputLeak struct {
	Category string
	Matched  string
	Index    int
}

// OutputScan is the verdict for one LLM response.
type OutputScan struct {
	Clean  bool
	Leaks  []OutputLeak
	Action string
}

// FilterResult is the applied outcome of a scan.
type FilterResult struct {
	Response string
	Filtered bool
	Action   string
	Reason   string
}

// ScanOutput checks an LLM response for disclosure of internals.
func ScanOutput(response string) OutputScan {
	if strings.TrimSpace(response) == "" {
		return OutputScan{Clean: true, Action: ActionPass}
	}

	var leaks []OutputLeak
	blocking := false
	for _, p := range leakPatterns {
		loc := p.re.FindStringIndex(response)
		if loc == nil {
			continue
		}
		leaks = append(leaks, OutputLeak{
			Category: p.category,
			Matched:  response[loc[0]:loc[1]],
			Index:    loc[0],
		})
		if blockCategories[p.category] {
			blocking = true
		}
	}

	if len(leaks) == 0 {
		return OutputScan{Clean: true, Action: ActionPass}
	}

	action := ActionRedact
	if blocking || len(leaks) >= 2 {
		action = ActionBlock
	}
	return OutputScan{Leaks: leaks, Action: action}
}

// FilterOutput scans the response and applies the selected action.
func FilterOutput(response string) FilterResult {
	scan := ScanOutput(response)
	switch scan.Action {
	case ActionBlock:
		return FilterResult{
			Response: FallbackResponse,
			Filtered: true,
			Action:   ActionBlock,
			Reason:   leakReason(scan.Leaks),
		}
	case ActionRedact:
		redacted := response
		for _, leak := range scan.Leaks {
			redacted = strings.ReplaceAll(redacted, leak.Matched, redactedMarker)
		}
		return FilterResult{
			Response: redacted,
			Filtered: true,
			Action:   ActionRedact,
			Reason:   leakReason(scan.Leaks),
		}
	}
	return FilterResult{Response: response, Action: ActionPass}
}

func leakReason(leaks []OutputLeak) string {
	seen := make(map[string]struct{})
	var cats []string
	for _, l := range leaks {
		if _, ok := seen[l.Category]; ok {
			continue
		}
		seen[l.Category] = struct{}{}
		cats = append(cats, l.Category)
	}
	return strings.Join(cats, ",")
}
