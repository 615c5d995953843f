// Package moderation masks forbidden words in outgoing message content.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Masker replaces occurrences of configured words with a mask rune.
// Matching is case-insensitive over an Aho-Corasick automaton, so one pass
// covers the whole word list regardless of its size.
type Masker struct {
	machine *goahocorasick.Machine
	mask    rune
}

func NewMasker(words []string, mask rune) (*Masker, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		patterns = append(patterns, lowerRunes([]rune(word)))
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Masker{machine: machine, mask: mask}, nil
}

// Mask returns the content with every matched span replaced rune-for-rune
// by the mask character. Length and spacing are preserved so the masked
// text still reads as a message.
func (m *Masker) Mask(content string) string {
	original := []rune(content)
	if len(original) == 0 {
		return content
	}

	spans := m.machine.MultiPatternSearch(lowerRunes(original), false)
	if len(spans) == 0 {
		return content
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(original) {
			continue
		}
		for i := start; i < end; i++ {
			if !unicode.IsSpace(original[i]) {
				original[i] = m.mask
			}
		}
	}
	return string(original)
}

func lowerRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		out[i] = unicode.ToLower(r)
	}
	return out
}
