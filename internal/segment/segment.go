// Package segment splits text into translation units.
package segment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/textnorm"
)

// Rule selects how candidate segments are discovered.
type Rule string

const (
	RuleSentence  Rule = "sentence"
	RuleParagraph Rule = "paragraph"
	RuleLine      Rule = "line"
	RuleCustom    Rule = "custom"
)

const (
	DefaultMinSegmentLength = 10
	DefaultMaxSegmentLength = 500
	DefaultMergeThreshold   = 50
)

// sentenceEndRe matches a run of terminators followed by whitespace or the
// end of the text. The terminators are consumed.
var sentenceEndRe = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// Options configures Segment. Zero lengths fall back to the defaults.
type Options struct {
	Rule               Rule     `json:"rule" yaml:"rule"`
	MinSegmentLength   int      `json:"min_segment_length" yaml:"min_segment_length"`
	MaxSegmentLength   int      `json:"max_segment_length" yaml:"max_segment_length"`
	MergeShortSegments bool     `json:"merge_short_segments" yaml:"merge_short_segments"`
	MergeThreshold     int      `json:"merge_threshold" yaml:"merge_threshold"`
	CustomPatterns     []string `json:"custom_patterns" yaml:"custom_patterns"`
	CollapseWhitespace bool     `json:"collapse_whitespace" yaml:"collapse_whitespace"`
}

// DefaultOptions returns sentence segmentation with 10/500 length bounds.
func DefaultOptions() Options {
	return Options{
		Rule:             RuleSentence,
		MinSegmentLength: DefaultMinSegmentLength,
		MaxSegmentLength: DefaultMaxSegmentLength,
		MergeThreshold:   DefaultMergeThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.Rule == "" {
		o.Rule = RuleSentence
	}
	if o.MinSegmentLength <= 0 {
		o.MinSegmentLength = DefaultMinSegmentLength
	}
	if o.MaxSegmentLength <= 0 {
		o.MaxSegmentLength = DefaultMaxSegmentLength
	}
	if o.MergeThreshold <= 0 {
		o.MergeThreshold = DefaultMergeThreshold
	}
	return o.clamp()
}

// clamp lowers MinSegmentLength to MaxSegmentLength when it exceeds it.
func (o Options) clamp() Options {
	if o.MaxSegmentLength > 0 && o.MinSegmentLength > o.MaxSegmentLength {
		o.MinSegmentLength = o.MaxSegmentLength
	}
	return o
}

// Validate reports bounds that cannot hold together.
func (o Options) Validate() error {
	if o.MinSegmentLength < 0 || o.MaxSegmentLength < 0 {
		return fmt.Errorf("segment lengths must not be negative, got min %d max %d", o.MinSegmentLength, o.MaxSegmentLength)
	}
	if o.MaxSegmentLength > 0 && o.MinSegmentLength > o.MaxSegmentLength {
		return fmt.Errorf("min_segment_length %d exceeds max_segment_length %d", o.MinSegmentLength, o.MaxSegmentLength)
	}
	return nil
}

// Segmenter splits documents into segments.
type Segmenter struct {
	log *zap.Logger
}

// New returns a Segmenter. A nil logger disables logging.
func New(log *zap.Logger) *Segmenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Segmenter{log: log}
}

// Segment splits text according to opts. The output preserves the order in
// which segments appear in text and never contains empty strings.
func (s *Segmenter) Segment(text string, opts Options) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	opts = opts.withDefaults()

	var candidates []string
	switch opts.Rule {
	case RuleParagraph:
		candidates = splitOn(text, "\n\n")
	case RuleLine:
		candidates = splitOn(text, "\n")
	case RuleCustom:
		candidates = s.splitCustom(text, opts.CustomPatterns)
	default:
		candidates = splitSentences(text)
	}

	segments := applyLengthConstraints(candidates, opts.MinSegmentLength, opts.MaxSegmentLength)
	if opts.MergeShortSegments {
		segments = mergeShort(segments, opts.MergeThreshold, opts.MaxSegmentLength)
	}

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if opts.CollapseWhitespace {
			seg = textnorm.CollapseSpace(seg)
		}
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func (s *Segmenter) splitCustom(text string, patterns []string) []string {
	if len(patterns) == 0 {
		return splitSentences(text)
	}
	re, err := regexp.Compile(patterns[0])
	if err != nil {
		s.log.Warn("invalid custom segmentation pattern, using sentence rule",
			zap.String("pattern", patterns[0]), zap.Error(err))
		return splitSentences(text)
	}
	return clean(re.Split(text, -1))
}

func splitSentences(text string) []string {
	return clean(sentenceEndRe.Split(text, -1))
}

func splitOn(text, sep string) []string {
	return clean(strings.Split(text, sep))
}

func clean(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyLengthConstraints merges segments shorter than min into their
// predecessor and re-splits segments longer than max on word boundaries.
// A merge that would push the predecessor past max is skipped and the short
// segment stands alone.
func applyLengthConstraints(segments []string, min, max int) []string {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		n := length(seg)
		switch {
		case n > max:
			out = append(out, splitLong(seg, max)...)
		case n < min:
			if last := len(out) - 1; last >= 0 && length(out[last])+1+n <= max {
				out[last] += " " + seg
			} else {
				out = append(out, seg)
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}

// splitLong greedily packs words into parts of at most max characters,
// counting one separating space per word. A word longer than max is emitted
// on its own, unsplit.
func splitLong(seg string, max int) []string {
	var (
		parts   []string
		current []string
		size    int
	)
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, strings.Join(current, " "))
			current, size = nil, 0
		}
	}
	for _, word := range strings.Fields(seg) {
		n := length(word)
		next := n
		if len(current) > 0 {
			next = size + 1 + n
		}
		if next > max {
			flush()
			next = n
		}
		current = append(current, word)
		size = next
	}
	flush()
	return parts
}

// mergeShort folds every segment shorter than threshold into the one after
// it. The last segment is always kept.
func mergeShort(segments []string, threshold, max int) []string {
	if len(segments) == 0 {
		return segments
	}
	merged := make([]string, 0, len(segments))
	current := segments[0]
	for _, next := range segments[1:] {
		if length(current) < threshold && length(current)+1+length(next) <= max {
			current += " " + next
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
