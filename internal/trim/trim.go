// Package trim shortens text to a target length without severing a
// sentence.
package trim

import "strings"

// lookahead allows the cut to land slightly past the target when a
// sentence ends just beyond it.
const lookahead = 50

// backtrack is how far a hard cut searches backward for any terminator.
const backtrack = 100

var terminators = []rune{'.', '!', '?', '…'}

func isTerminator(r rune) bool {
	for _, t := range terminators {
		if r == t {
			return true
		}
	}
	return false
}

// endsComplete reports whether text already ends with a sentence
// terminator (ignoring trailing whitespace).
func endsComplete(text string) bool {
	trimmed := strings.TrimRight(text, " \t\n\r")
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	return isTerminator(runes[len(runes)-1])
}

// ToSentence cuts text to at most maxLen runes (plus the lookahead) at a
// sentence boundary. With maxLen <= 0 no length is enforced: the text is
// only stripped of a trailing incomplete sentence, and left alone when
// that would lose more than half of it.
func ToSentence(text string, maxLen int) string {
	if text == "" {
		return text
	}

	runes := []rune(text)

	if maxLen > 0 && len(runes) <= maxLen {
		if endsComplete(text) {
			return strings.TrimSpace(text)
		}
	}

	if maxLen > 0 && len(runes) > maxLen {
		window := runes
		if len(window) > maxLen+lookahead {
			window = window[:maxLen+lookahead]
		}
		if cut := lastTerminator(window); cut > maxLen/2 {
			return strings.TrimSpace(string(runes[:cut+1]))
		}
		// No boundary in a useful place: hard cut, then look back a
		// little for any terminator.
		hard := runes[:maxLen]
		floor := len(hard) - backtrack
		if floor < 0 {
			floor = 0
		}
		for i := len(hard) - 1; i >= floor; i-- {
			if isTerminator(hard[i]) {
				return strings.TrimSpace(string(hard[:i+1]))
			}
		}
		return strings.TrimSpace(string(hard))
	}

	if !endsComplete(text) {
		if cut := lastTerminator(runes); cut > len(runes)/2 {
			return strings.TrimSpace(string(runes[:cut+1]))
		}
	}

	return strings.TrimSpace(text)
}

func lastTerminator(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if isTerminator(runes[i]) {
			return i
		}
	}
	return -1
}
