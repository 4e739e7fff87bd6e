package lang

import (
	"regexp"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Unknown is returned when no language could be detected.
const Unknown = "unknown"

const minCleanLength = 10

var (
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s_]`)
	digitsRe  = regexp.MustCompile(`\p{Nd}+`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// routing collapses close variants onto the languages the gateway routes.
var routing = map[string]string{
	"ca": "es",
	"pt": "es",
}

// Detector guesses the language of a text among the gateway's languages.
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector restricted to Arabic, Spanish, French and
// English, plus Catalan and Portuguese which are routed to Spanish.
func NewDetector() *Detector {
	languages := []lingua.Language{
		lingua.Arabic,
		lingua.Spanish,
		lingua.French,
		lingua.English,
		lingua.Catalan,
		lingua.Portuguese,
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build(),
	}
}

// Detect returns the ISO 639-1 code of text, or Unknown when the text is too
// short once punctuation and digits are stripped.
func (d *Detector) Detect(text string) string {
	if len(strings.TrimSpace(text)) < 3 {
		return Unknown
	}

	clean := nonWordRe.ReplaceAllString(text, " ")
	clean = digitsRe.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(spaceRe.ReplaceAllString(clean, " "))
	if len([]rune(clean)) < minCleanLength {
		return Unknown
	}

	language, ok := d.detector.DetectLanguageOf(clean)
	if !ok {
		return Unknown
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if mapped, ok := routing[code]; ok {
		return mapped
	}
	return code
}
