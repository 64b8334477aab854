// Package guard screens user input for prompt-injection attempts before it
// reaches the model.
package guard

import (
	"regexp"
	"strings"
)

// maxInputRunes caps sanitized input length so a single message cannot
// overwhelm the model context.
const maxInputRunes = 1000

// blockThreshold: a single pattern match is tolerated (legitimate questions
// can trip one), two or more blocks the message.
const blockThreshold = 2

var suspiciousPatterns = []*regexp.Regexp{
	// Role override attempts
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous\s+)?instructions`),
	regexp.MustCompile(`(?i)forget\s+(?:all\s+)?(?:previous\s+)?instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a\s+)?(?:different\s+)?(?:ai|assistant|bot)`),
	regexp.MustCompile(`(?i)new\s+instructions?`),
	regexp.MustCompile(`(?i)override\s+(?:previous\s+)?(?:system\s+)?(?:instructions?|prompts?)`),

	// System prompt manipulation
	regexp.MustCompile(`(?i)end\s+(?:of\s+)?(?:system\s+)?(?:instructions?|prompts?)`),
	regexp.MustCompile(`(?i)system\s+(?:prompt|message)\s+(?:ends?|over)`),
	regexp.MustCompile(`(?i)---+\s*end`),
	regexp.MustCompile(`(?i)stop\s+being\s+(?:an?\s+)?(?:ai|assistant|bot)`),

	// Tool bypass attempts
	regexp.MustCompile(`(?i)don'?t\s+use\s+(?:any\s+)?tools?`),
	regexp.MustCompile(`(?i)never\s+use\s+(?:the\s+)?(?:currency|tool|function)`),
	regexp.MustCompile(`(?i)without\s+using\s+(?:any\s+)?tools?`),
	regexp.MustCompile(`(?i)make\s+up\s+(?:random\s+)?(?:numbers?|data|rates?)`),
	regexp.MustCompile(`(?i)just\s+(?:say|tell|respond)`),

	// Prompt structure manipulation
	regexp.MustCompile(`(?i)human\s*:|assistant\s*:|user\s*:|system\s*:`),
	regexp.MustCompile(`<\|.*?\|>`),
	regexp.MustCompile(`(?i)\[(?:system|user|assistant)\]`),

	// Direct instruction override
	regexp.MustCompile(`(?i)instead\s+of\s+using\s+tools?`),
	regexp.MustCompile(`(?i)respond\s+with\s+['"].*['"]`),
	regexp.MustCompile(`(?i)say\s+exactly\s+['"].*['"]`),
	regexp.MustCompile(`(?i)pretend\s+(?:to\s+be|you\s+are)`),
}

var (
	delimiterRuns = regexp.MustCompile(`---+`)
	roleMarkers   = regexp.MustCompile(`(?i)(human|assistant|user|system)\s*:`)
	specialTokens = regexp.MustCompile(`<\|.*?\|>`)
	roleBrackets  = regexp.MustCompile(`(?i)\[(?:system|user|assistant)\]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Detect returns the suspicious patterns matched by the input.
func Detect(input string) []string {
	var detected []string
	for _, p := range suspiciousPatterns {
		if p.MatchString(input) {
			detected = append(detected, p.String())
		}
	}
	return detected
}

// Sanitize strips delimiter runs, special tokens and role markers, collapses
// whitespace and truncates overly long input.
func Sanitize(input string) string {
	s := delimiterRuns.ReplaceAllString(input, "---")
	s = roleMarkers.ReplaceAllString(s, "$1 :")
	s = specialTokens.ReplaceAllString(s, "")
	s = roleBrackets.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	if runes := []rune(s); len(runes) > maxInputRunes {
		s = string(runes[:maxInputRunes]) + "..."
	}
	return strings.TrimSpace(s)
}

// Validate screens and sanitizes input. It returns whether the message is
// safe to forward, the sanitized text, and any patterns that matched.
func Validate(input string) (bool, string, []string) {
	detected := Detect(input)
	return len(detected) < blockThreshold, Sanitize(input), detected
}
