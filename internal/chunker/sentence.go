// Package chunker splits case narratives into sentences.
package chunker

import (
	"regexp"
	"strings"
)

// A trailing fragment without terminal punctuation still counts as a
// sentence.
var sentenceRe = regexp.MustCompile(`[^.!?。]+[.!?。]*`)

// Sentences returns the trimmed, non-empty sentences of text in order.
func Sentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
