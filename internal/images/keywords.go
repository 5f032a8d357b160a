package images

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// fallbackQuery is used when no usable keyword survives filtering.
const fallbackQuery = "news article"

var (
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	commentPattern  = regexp.MustCompile(`(?s)<!--.*?-->`)
	entityPattern   = regexp.MustCompile(`&[a-zA-Z]+;|&#\d+;|&#x[0-9a-fA-F]+;`)
	markdownPattern = regexp.MustCompile("[*#`\\[\\]()]")
	spacePattern    = regexp.MustCompile(`\s+`)
)

// stopWords are service and auxiliary words that make poor image search
// terms.
var stopWords = map[string]struct{}{
	"регистрация": {}, "пройдена": {}, "успешно": {}, "пожалуйста": {},
	"перейдите": {}, "нажмите": {}, "вход": {}, "войти": {}, "выход": {},
	"выйти": {}, "далее": {}, "продолжить": {}, "отмена": {},
	"это": {}, "этот": {}, "эта": {}, "эти": {}, "такой": {}, "такая": {}, "такие": {},
	"быть": {}, "есть": {}, "был": {}, "была": {}, "было": {}, "были": {},
	"как": {}, "что": {}, "где": {}, "когда": {}, "кто": {}, "куда": {}, "откуда": {},
	"без": {}, "про": {}, "при": {}, "над": {}, "под": {}, "перед": {},
}

// techWords are markup leftovers and URL fragments that sometimes
// survive tag stripping.
var techWords = map[string]struct{}{
	"html": {}, "div": {}, "span": {}, "img": {}, "src": {}, "alt": {},
	"class": {}, "id": {}, "style": {}, "href": {}, "link": {},
	"http": {}, "https": {}, "www": {}, "com": {}, "org": {}, "net": {},
}

// stripMarkup removes tags, comments and entities, leaving plain words.
func stripMarkup(text string) string {
	text = commentPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = entityPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

// titleCandidate picks a headline-looking line from the first lines of
// the text, to anchor the search terms on the subject of the article.
func titleCandidate(text string) string {
	lines := strings.Split(text, "\n")
	limit := 5
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		n := len([]rune(line))
		if n <= 10 || n >= 200 {
			continue
		}
		first := []rune(line)[0]
		if unicode.IsUpper(first) || len(strings.Fields(line)) <= 10 {
			return line
		}
	}
	return ""
}

// SearchQuery derives up to five keywords for image search from the
// article text, preferring the rewritten text's headline when present.
func SearchQuery(articleText, rewrittenText string) string {
	articleText = stripMarkup(articleText)
	rewrittenText = stripMarkup(rewrittenText)

	source := titleCandidate(articleText)
	if source == "" {
		source = articleText
	}
	if rewrittenText != "" {
		if cand := titleCandidate(rewrittenText); cand != "" {
			source = cand
		}
	}

	source = markdownPattern.ReplaceAllString(source, "")

	keywords := collectKeywords(source, 4, 5)
	if len(keywords) < 3 {
		keywords = appendKeywords(keywords, articleText, 5, 5)
	}
	if len(keywords) < 2 {
		keywords = appendKeywords(keywords, articleText, 4, 3)
	}

	if len(keywords) == 0 {
		return fallbackQuery
	}
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	return strings.Join(keywords, " ")
}

// collectKeywords takes the first words longer than minLen runes that
// are alphabetic and not service words.
func collectKeywords(text string, minLen, max int) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		w := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if len([]rune(w)) < minLen || !isAlpha(w) {
			continue
		}
		if _, ok := stopWords[w]; ok {
			continue
		}
		if _, ok := techWords[w]; ok {
			continue
		}
		out = append(out, w)
		if len(out) >= max {
			break
		}
	}
	return out
}

func appendKeywords(existing []string, text string, minLen, max int) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, k := range existing {
		seen[k] = struct{}{}
	}
	for _, k := range collectKeywords(text, minLen, max) {
		if _, ok := seen[k]; ok {
			continue
		}
		existing = append(existing, k)
		seen[k] = struct{}{}
		if len(existing) >= max {
			break
		}
	}
	return existing
}

// GenPrompt builds a short generation prompt from the article text. The
// prompt is capped at 1000 runes.
func GenPrompt(text string) string {
	clean := stripMarkup(text)
	words := strings.Fields(clean)
	if len(words) > 30 {
		words = words[:30]
	}
	prompt := "Изображение на тему: " + strings.Join(words, " ")
	runes := []rune(prompt)
	if len(runes) > 1000 {
		prompt = string(runes[:1000])
	}
	return prompt
}
