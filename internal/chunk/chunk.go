package chunk

import (
	"unicode"
	"unicode/utf8"
)

// Chunk is a bounded, sentence-aligned slice of the source text.
// Concatenating the Content of all chunks in Ordinal order reproduces
// the source text exactly.
type Chunk struct {
	Ordinal int
	Content string
	Start   int // byte offset in the source text
	End     int // byte offset one past the last byte
}

// DefaultMaxSize is the practical per-request input limit of the small
// paraphrase models (in runes).
const DefaultMaxSize = 200

// Split cuts text into chunks of at most maxSize runes, breaking only at
// sentence boundaries (.!? followed by whitespace). A single sentence
// longer than maxSize becomes its own oversized chunk instead of being
// cut mid-word. Text that fits within maxSize comes back as one chunk.
func Split(text string, maxSize int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if utf8.RuneCountInString(text) <= maxSize {
		return []Chunk{{Ordinal: 0, Content: text, Start: 0, End: len(text)}}
	}

	units := sentenceUnits(text)

	var chunks []Chunk
	start := -1
	end := 0
	size := 0

	flush := func() {
		if start < 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Ordinal: len(chunks),
			Content: text[start:end],
			Start:   start,
			End:     end,
		})
		start = -1
		size = 0
	}

	for _, u := range units {
		n := utf8.RuneCountInString(text[u.start:u.end])
		if start >= 0 && size+n > maxSize {
			flush()
		}
		if start < 0 {
			start = u.start
		}
		end = u.end
		size += n
	}
	flush()

	return chunks
}

type span struct {
	start, end int
}

// sentenceUnits splits text into sentence spans. A unit ends after a
// terminator followed by whitespace; the whitespace run stays with the
// unit so concatenation loses nothing. The trailing tail without a
// terminator forms the last unit.
func sentenceUnits(text string) []span {
	var units []span
	start := 0
	i := 0
	for i < len(text) {
		r, w := utf8.DecodeRuneInString(text[i:])
		i += w
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next, nw := utf8.DecodeRuneInString(text[i:])
		if nw == 0 || !unicode.IsSpace(next) {
			continue
		}
		// consume the whitespace run
		for i < len(text) {
			r, w = utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += w
		}
		units = append(units, span{start: start, end: i})
		start = i
	}
	if start < len(text) {
		units = append(units, span{start: start, end: len(text)})
	}
	return units
}
