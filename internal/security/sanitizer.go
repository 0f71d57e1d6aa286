package security

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sanitization flags attached to a scrubbed input. The sanitizer never
// rejects a message; it annotates it for the classifier.
const (
	FlagEmptyInput          = "empty_input"
	FlagInputTruncated      = "input_truncated"
	FlagInvisibleChars      = "invisible_chars_removed"
	FlagControlChars        = "control_chars_removed"
	FlagBase64Detected      = "base64_detected"
	FlagCyrillicHomoglyphs  = "unicode_cyrillic_homoglyphs"
	FlagGreekHomoglyphs     = "unicode_greek_homoglyphs"
	FlagFullwidthChars      = "unicode_fullwidth_chars"
	FlagMathAlphanumeric    = "unicode_mathematical_alphanumeric"
	FlagZalgoText           = "unicode_zalgo_text"
	FlagHomoglyphNormalized = "unicode_homoglyph_normalized"
)

// maxInputRunes caps input length before any other processing.
const maxInputRunes = 2000

// SanitizationResult is the annotated output of Sanitize.
type SanitizationResult struct {
	Text  string
	Flags []string
}

// HasFlag reports whether the result carries the given flag.
func (r SanitizationResult) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// HasDangerousFlag reports whether any flag indicates obfuscation that the
// classifier treats as an escalation signal (base64 payloads and all
// unicode probes).
func (r SanitizationResult) HasDangerousFlag() bool {
	for _, f := range r.Flags {
		if f == FlagBase64Detected || strings.HasPrefix(f, "unicode_") {
			return true
		}
	}
	return false
}

var (
	base64RunRe     = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	tripleNewlineRe = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe    = regexp.MustCompile(` {2,}`)
)

// homoglyphTable maps Cyrillic and Greek characters that render identically
// to Latin letters onto their Latin equivalents.
var homoglyphTable = map[rune]rune{
	// Cyrillic lowercase
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x',
	'і': 'i', 'ѕ': 's', 'ј': 'j', 'ԁ': 'd', 'ɡ': 'g', 'һ': 'h', 'ԛ': 'q', 'ԝ': 'w',
	// Cyrillic uppercase
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H', 'О': 'O',
	'Р': 'P', 'С': 'C', 'Т': 'T', 'У': 'Y', 'Х': 'X', 'Ѕ': 'S', 'І': 'I', 'Ј': 'J',
	// Greek lowercase
	'ο': 'o', 'ν': 'v', 'α': 'a', 'ρ': 'p', 'τ': 't', 'υ': 'u', 'ι': 'i', 'κ': 'k',
	// Greek uppercase
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H', 'Ι': 'I', 'Κ': 'K',
	'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X',
}

// Sanitize scrubs raw user input. Deterministic and pure: the same input
// always produces the same text and flags, and sanitizing the output again
// is a no-op.
func Sanitize(raw string) SanitizationResult {
	if strings.TrimSpace(raw) == "" {
		return SanitizationResult{Text: "", Flags: []string{FlagEmptyInput}}
	}

	flags := newFlagSet()
	text := raw

	// Length cap first so pathological inputs bound all later passes.
	runes := []rune(text)
	if len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
		flags.add(FlagInputTruncated)
	}

	text = stripInvisible(text, flags)
	text = stripControls(text, flags)
	detectBase64(text, flags)
	probeUnicode(text, flags)
	text = collapseWhitespace(text)
	text = normalizeFullwidth(text)
	text = stripCombining(text, flags)
	text = normalizeHomoglyphs(text, flags)

	return SanitizationResult{Text: text, Flags: flags.list()}
}

// stripInvisible removes zero-width and directional-override code points.
func stripInvisible(s string, flags *flagSet) string {
	removed := 0
	out := strings.Map(func(r rune) rune {
		if isInvisible(r) {
			removed++
			return -1
		}
		return r
	}, s)
	if removed > 0 {
		flags.add(FlagInvisibleChars)
	}
	return out
}

func isInvisible(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F:
		return true
	case r >= 0x202A && r <= 0x202E:
		return true
	case r >= 0x2060 && r <= 0x2064:
		return true
	case r == 0xFEFF, r == 0x00AD:
		return true
	}
	return false
}

// stripControls removes C0/C1 control characters except tab and newline.
func stripControls(s string, flags *flagSet) string {
	removed := 0
	out := strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			removed++
			return -1
		}
		return r
	}, s)
	if removed > 0 {
		flags.add(FlagControlChars)
	}
	return out
}

// detectBase64 flags plausible base64 payloads. A candidate run must decode
// to printable ASCII longer than five bytes to count; that keeps long plain
// words and URLs from false-flagging.
func detectBase64(s string, flags *flagSet) {
	for _, loc := range base64RunRe.FindAllStringIndex(s, -1) {
		if !runIsBordered(s, loc[0], loc[1]) {
			continue
		}
		candidate := s[loc[0]:loc[1]]
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(candidate)
		}
		if err != nil || len(decoded) <= 5 {
			continue
		}
		if isPrintableASCII(decoded) {
			flags.add(FlagBase64Detected)
			return
		}
	}
}

// runIsBordered checks that a candidate run is delimited by whitespace or
// punctuation (or the string boundary) on both sides.
func runIsBordered(s string, start, end int) bool {
	borderOK := func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || isBorderPunct(r)
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if !borderOK(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if !borderOK(r) {
			return false
		}
	}
	return true
}

func isBorderPunct(r rune) bool {
	switch r {
	case '.', ',', ':', ';', '!', '?', '"', '\'', '(', ')', '[', ']', '{', '}', '<', '>', '-':
		return true
	}
	return false
}

func isPrintableASCII(b []byte) bool {
	for _, c := range b {
		if c != '\n' && c != '\t' && (c < 0x20 || c > 0x7E) {
			return false
		}
	}
	return true
}

// probeUnicode flags script-mixing and obfuscation tricks without altering
// the text. Normalization happens in later passes.
func probeUnicode(s string, flags *flagSet) {
	var hasLatin, hasCyrillic, hasGreek, hasFullwidth, hasMath bool
	combiningRun := 0
	maxCombiningRun := 0

	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLatin = true
		case r >= 0x0400 && r <= 0x04FF:
			hasCyrillic = true
		case r >= 0x0370 && r <= 0x03FF:
			hasGreek = true
		case r >= 0xFF01 && r <= 0xFF5E:
			hasFullwidth = true
		case r >= 0x1D400 && r <= 0x1D7FF:
			hasMath = true
		}
		if r >= 0x0300 && r <= 0x036F {
			combiningRun++
			if combiningRun > maxCombiningRun {
				maxCombiningRun = combiningRun
			}
		} else {
			combiningRun = 0
		}
	}

	if hasCyrillic && hasLatin {
		flags.add(FlagCyrillicHomoglyphs)
	}
	if hasGreek && hasLatin {
		flags.add(FlagGreekHomoglyphs)
	}
	if hasFullwidth {
		flags.add(FlagFullwidthChars)
	}
	if hasMath {
		flags.add(FlagMathAlphanumeric)
	}
	if maxCombiningRun >= 3 {
		flags.add(FlagZalgoText)
	}
}

// collapseWhitespace squeezes newline and space runs and trims the ends.
func collapseWhitespace(s string) string {
	s = tripleNewlineRe.ReplaceAllString(s, "\n\n")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeFullwidth folds fullwidth ASCII variants back to ASCII.
func normalizeFullwidth(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0xFF01 && r <= 0xFF5E {
			return r - 0xFEE0
		}
		return r
	}, s)
}

// stripCombining removes combining diacritical marks used for zalgo
// obfuscation.
func stripCombining(s string, flags *flagSet) string {
	removed := 0
	out := strings.Map(func(r rune) rune {
		if r >= 0x0300 && r <= 0x036F {
			removed++
			return -1
		}
		return r
	}, s)
	if removed > 0 {
		flags.add(FlagZalgoText)
	}
	return out
}

// normalizeHomoglyphs maps lookalike Cyrillic/Greek characters to Latin.
func normalizeHomoglyphs(s string, flags *flagSet) string {
	replaced := false
	out := strings.Map(func(r rune) rune {
		if latin, ok := homoglyphTable[r]; ok {
			replaced = true
			return latin
		}
		return r
	}, s)
	if replaced {
		flags.add(FlagHomoglyphNormalized)
	}
	return out
}

// flagSet preserves insertion order without duplicates.
type flagSet struct {
	seen  map[string]struct{}
	order []string
}

func newFlagSet() *flagSet {
	return &flagSet{seen: make(map[string]struct{})}
}

func (f *flagSet) add(flag string) {
	if _, ok := f.seen[flag]; ok {
		return
	}
	f.seen[flag] = struct{}{}
	f.order = append(f.order, flag)
}

func (f *flagSet) list() []string {
	return f.order
}
