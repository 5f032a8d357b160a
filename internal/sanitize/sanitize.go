// Package sanitize strips reasoning artifacts and boilerplate from raw
// model output. The rules mirror the junk actually observed in provider
// responses: leaked <think> blocks, paraphrastic lead-ins ("вот
// переписанный текст:"), meta-commentary in parentheses and wrapping
// quotes around the whole answer.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minKeepRunes guards against rules eating a whole legitimate answer.
const minKeepRunes = 20

// maxMetaLineRunes: lines longer than this are never treated as
// meta-commentary, whatever they start with.
const maxMetaLineRunes = 150

type rule struct {
	re   *regexp.Regexp
	repl string
}

// reasoningRules remove leaked chain-of-thought blocks, content
// included, then any stray unmatched tags.
var reasoningRules = []rule{
	{regexp.MustCompile(`(?is)<think>.*?</think>`), ""},
	{regexp.MustCompile(`(?is)<reasoning>.*?</reasoning>`), ""},
	{regexp.MustCompile(`(?is)<thinking>.*?</thinking>`), ""},
	{regexp.MustCompile(`(?i)</?redacted_reasoning>`), ""},
	{regexp.MustCompile(`(?i)</?reasoning>`), ""},
	{regexp.MustCompile(`(?i)</?thinking>`), ""},
	{regexp.MustCompile(`(?i)</?think>`), ""},
}

// leadIns are boilerplate prefixes models put before the actual rewrite.
// Longer variants come first so they win over their own substrings.
var leadIns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^вот переписанный вариант:?\s*`),
	regexp.MustCompile(`(?i)^вот переписанный текст:?\s*`),
	regexp.MustCompile(`(?i)^переписанный вариант текста:?\s*`),
	regexp.MustCompile(`(?i)^вот как можно переписать:?\s*`),
	regexp.MustCompile(`(?i)^можно переписать так:?\s*`),
	regexp.MustCompile(`(?i)^переписанный вариант:?\s*`),
	regexp.MustCompile(`(?i)^переписанный текст:?\s*`),
	regexp.MustCompile(`(?i)^вот переписанный:?\s*`),
	regexp.MustCompile(`(?i)^текст в стиле:?\s*`),
	regexp.MustCompile(`(?i)^вот вариант:?\s*`),
	regexp.MustCompile(`(?i)^вот текст:?\s*`),
	regexp.MustCompile(`(?i)^переписанный:?\s*`),
	regexp.MustCompile(`(?i)^я думаю[,:]?\s*`),
	regexp.MustCompile(`(?i)^думаю[,:]?\s*`),
	regexp.MustCompile(`(?i)^thinking:?\s*`),
	regexp.MustCompile(`(?i)^think:?\s*`),
	regexp.MustCompile(`(?i)^вот:?\s*`),
}

// parenAside matches parenthesised meta-commentary about the rewrite
// itself, not parentheses in general.
var parenAside = regexp.MustCompile(`(?i)\([^)]*(?:думаю|я думаю|можно|вариант|переписанный|think|thinking)[^)]*\)`)

// metaLine matches lines that read like the model talking about its
// answer rather than the answer itself.
var metaLine = regexp.MustCompile(`(?i)^(?:думаю|я думаю|можно|вариант|переписанный|вот|это|так|например|то есть|think|thinking)`)

var quoteRunes = "\"'«»"

// Clean removes reasoning artifacts and boilerplate from a raw provider
// response. It is idempotent: Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	text := stripReasoning(trimmed)
	text = stripLeadIns(text)
	boilerplateOnly := unwrapQuotes(text)

	// The aggressive rules run to a fixpoint: dropping a line may expose
	// a new lead-in at the start of the text.
	for {
		before := text
		text = parenAside.ReplaceAllString(text, "")
		text = unwrapQuotes(strings.TrimSpace(text))
		text = dropMetaLines(text)
		text = stripLeadIns(text)
		if text == before {
			break
		}
	}

	if utf8.RuneCountInString(text) >= minKeepRunes {
		return text
	}
	// The aggressive rules left almost nothing. Fall back to the result
	// of the loss-free rules only, so short legitimate answers survive.
	if boilerplateOnly != "" {
		return boilerplateOnly
	}
	return trimmed
}

func stripReasoning(text string) string {
	for _, r := range reasoningRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return strings.TrimSpace(text)
}

// stripLeadIns removes boilerplate prefixes until none match. After a
// hit the scan restarts from the first rule: stripping one prefix can
// expose a longer one that sorts earlier in the list, and finishing the
// pass instead would let a bare substring rule split it.
func stripLeadIns(text string) string {
	for {
		matched := false
		for _, re := range leadIns {
			if re.MatchString(text) {
				text = strings.TrimSpace(re.ReplaceAllString(text, ""))
				matched = true
				break
			}
		}
		if !matched {
			return text
		}
	}
}

// unwrapQuotes removes quotation marks wrapping the whole text. Nested
// wrappers are collapsed too, otherwise a second Clean pass would keep
// peeling and break idempotence.
func unwrapQuotes(text string) string {
	for {
		r, firstW := utf8.DecodeRuneInString(text)
		last, lastW := utf8.DecodeLastRuneInString(text)
		if firstW == 0 || len(text) < firstW+lastW {
			return text
		}
		if !strings.ContainsRune(quoteRunes, r) || !strings.ContainsRune(quoteRunes, last) {
			return text
		}
		text = strings.TrimSpace(text[firstW : len(text)-lastW])
	}
}

func dropMetaLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if metaLine.MatchString(line) && utf8.RuneCountInString(line) < maxMetaLineRunes {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
