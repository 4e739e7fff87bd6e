// Package quality runs advisory checks on a translation against its source.
package quality

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Severity of an Issue.
const (
	Warning = "warning"
	Error   = "error"
)

// Issue types.
const (
	LengthMismatch   = "length_mismatch"
	NumberMismatch   = "number_mismatch"
	NumberChange     = "number_change"
	DateMismatch     = "date_mismatch"
	EmptyTranslation = "empty_translation"
	NoTranslation    = "no_translation"
)

// Defaults for Thresholds.
const (
	DefaultMinLengthRatio = 0.3
	DefaultMaxLengthRatio = 3.0
	DefaultErrorWeight    = 0.3
	DefaultWarningWeight  = 0.1
)

// minTranslationLength is the trimmed length below which a translation is
// treated as empty.
const minTranslationLength = 3

var (
	numberPattern = regexp.MustCompile(`\d+`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`),
		regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
	}
)

type Issue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type Report struct {
	Issues       []Issue `json:"issues"`
	QualityScore float64 `json:"quality_score"`
	LengthRatio  float64 `json:"length_ratio"`
	HasNumbers   bool    `json:"has_numbers"`
	HasDates     bool    `json:"has_dates"`
}

// Count returns how many issues have the given severity.
func (r *Report) Count(severity string) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

// Thresholds tune the checks. Zero fields take the package defaults.
type Thresholds struct {
	MinLengthRatio float64 `json:"min_length_ratio" yaml:"min_length_ratio"`
	MaxLengthRatio float64 `json:"max_length_ratio" yaml:"max_length_ratio"`
	ErrorWeight    float64 `json:"error_weight" yaml:"error_weight"`
	WarningWeight  float64 `json:"warning_weight" yaml:"warning_weight"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLengthRatio: DefaultMinLengthRatio,
		MaxLengthRatio: DefaultMaxLengthRatio,
		ErrorWeight:    DefaultErrorWeight,
		WarningWeight:  DefaultWarningWeight,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MinLengthRatio <= 0 {
		t.MinLengthRatio = d.MinLengthRatio
	}
	if t.MaxLengthRatio <= 0 {
		t.MaxLengthRatio = d.MaxLengthRatio
	}
	if t.ErrorWeight <= 0 {
		t.ErrorWeight = d.ErrorWeight
	}
	if t.WarningWeight <= 0 {
		t.WarningWeight = d.WarningWeight
	}
	return t
}

type Checker struct {
	t Thresholds
}

func NewChecker(t Thresholds) *Checker {
	return &Checker{t: t.withDefaults()}
}

func (c *Checker) Thresholds() Thresholds {
	return c.t
}

// Check compares translation with source. The language codes are accepted
// for callers that record them; none of the checks depend on them.
func (c *Checker) Check(source, translation, _, _ string) *Report {
	r := &Report{Issues: []Issue{}}

	if n := utf8.RuneCountInString(source); n > 0 {
		r.LengthRatio = float64(utf8.RuneCountInString(translation)) / float64(n)
	}
	if r.LengthRatio < c.t.MinLengthRatio || r.LengthRatio > c.t.MaxLengthRatio {
		r.add(LengthMismatch, Warning, fmt.Sprintf("Translation length ratio unusual: %.2f", r.LengthRatio))
	}

	srcNumbers := numberPattern.FindAllString(source, -1)
	tgtNumbers := numberPattern.FindAllString(translation, -1)
	r.HasNumbers = len(srcNumbers) > 0
	switch {
	case len(srcNumbers) != len(tgtNumbers):
		r.add(NumberMismatch, Warning, fmt.Sprintf("Numbers in source (%d) vs translation (%d)", len(srcNumbers), len(tgtNumbers)))
	case !slices.Equal(srcNumbers, tgtNumbers):
		r.add(NumberChange, Error, "Numbers changed during translation")
	}

	srcDates := countDates(source)
	r.HasDates = srcDates > 0
	if srcDates != countDates(translation) {
		r.add(DateMismatch, Warning, "Date count mismatch between source and translation")
	}

	trimmed := strings.TrimSpace(translation)
	if utf8.RuneCountInString(trimmed) < minTranslationLength {
		r.add(EmptyTranslation, Error, "Translation is empty or too short")
	}
	if strings.TrimSpace(source) == trimmed {
		r.add(NoTranslation, Warning, "Translation identical to source")
	}

	score := 1 - c.t.ErrorWeight*float64(r.Count(Error)) - c.t.WarningWeight*float64(r.Count(Warning))
	r.QualityScore = max(0, score)
	return r
}

func (r *Report) add(kind, severity, description string) {
	r.Issues = append(r.Issues, Issue{Type: kind, Description: description, Severity: severity})
}

func countDates(text string) int {
	n := 0
	for _, p := range datePatterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}
