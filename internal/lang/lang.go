package lang

import (
	"fmt"
	"strings"
)

// Pair is a supported source/target language combination.
type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Name   string `json:"name"`
}

// aliases maps the 3-letter variants clients commonly send to their
// ISO 639-1 codes.
var aliases = map[string]string{
	"ara": "ar",
	"spa": "es",
	"fra": "fr",
	"eng": "en",
}

// Normalize lowercases a language code and maps known 3-letter variants.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if mapped, ok := aliases[code]; ok {
		return mapped
	}
	return code
}

// NewPair builds a Pair named "src -> tgt", optionally suffixed with the
// backend label, e.g. "es -> en (OPUS-MT)".
func NewPair(src, tgt, label string) Pair {
	name := fmt.Sprintf("%s -> %s", src, tgt)
	if label != "" {
		name += " (" + label + ")"
	}
	return Pair{Source: src, Target: tgt, Name: name}
}

// Contains reports whether pairs has an entry for src -> tgt.
func Contains(pairs []Pair, src, tgt string) bool {
	for _, p := range pairs {
		if p.Source == src && p.Target == tgt {
			return true
		}
	}
	return false
}
