package segment

import (
	"regexp"
	"strings"
)

var sentenceBoundaryRe = regexp.MustCompile(`([.!?]+)\s+`)

// Chunk breaks a single oversized MT input into pieces of at most max
// characters. Unlike Segment it keeps sentence terminators, because the
// pieces are translated and joined back into one target text. Sentences are
// packed greedily; a sentence longer than max is split on word boundaries.
func Chunk(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxSegmentLength
	}
	if length(text) <= max {
		return []string{text}
	}

	var (
		chunks  []string
		current string
	)
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}
	for _, sentence := range sentences(text) {
		if length(sentence) > max {
			flush()
			chunks = append(chunks, splitLong(sentence, max)...)
			continue
		}
		switch {
		case current == "":
			current = sentence
		case length(current)+1+length(sentence) <= max:
			current += " " + sentence
		default:
			flush()
			current = sentence
		}
	}
	flush()
	return chunks
}

func sentences(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceBoundaryRe.FindAllStringSubmatchIndex(text, -1) {
		if s := strings.TrimSpace(text[start:m[3]]); s != "" {
			out = append(out, s)
		}
		start = m[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
