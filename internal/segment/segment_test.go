package segment

import (
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	long := strings.Repeat("x", 600)

	tests := []struct {
		name string
		text string
		opts Options
		want []string
	}{
		{
			name: "sentence rule",
			text: "Hello world. This is a test!",
			opts: Options{Rule: RuleSentence},
			want: []string{"Hello world", "This is a test"},
		},
		{
			name: "default rule is sentence",
			text: "Hello world. This is a test!",
			want: []string{"Hello world", "This is a test"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "whitespace only",
			text: " \n\t  \n",
			want: []string{},
		},
		{
			name: "no terminators",
			text: "a heading without any terminator at all",
			want: []string{"a heading without any terminator at all"},
		},
		{
			name: "short segment merged backward",
			text: "Hi. This is a longer sentence. Ok. Another long sentence here.",
			want: []string{"Hi", "This is a longer sentence Ok", "Another long sentence here"},
		},
		{
			name: "terminator runs",
			text: "Really?! Yes indeed... It works fine.",
			opts: Options{MinSegmentLength: 1},
			want: []string{"Really", "Yes indeed", "It works fine"},
		},
		{
			name: "long segment split on words",
			text: "alpha beta gamma delta epsilon zeta",
			opts: Options{Rule: RuleLine, MaxSegmentLength: 20},
			want: []string{"alpha beta gamma", "delta epsilon zeta"},
		},
		{
			name: "single long token is kept whole",
			text: long,
			want: []string{long},
		},
		{
			name: "long token between words",
			text: "intro text here " + long + " tail words",
			opts: Options{Rule: RuleLine, MinSegmentLength: 1},
			want: []string{"intro text here", long, "tail words"},
		},
		{
			name: "line rule",
			text: "first line here\n\nsecond line here\r\nthird line here",
			opts: Options{Rule: RuleLine},
			want: []string{"first line here", "second line here", "third line here"},
		},
		{
			name: "custom rule",
			text: "first clause here; second clause here;third clause here",
			opts: Options{Rule: RuleCustom, CustomPatterns: []string{`;\s*`}},
			want: []string{"first clause here", "second clause here", "third clause here"},
		},
		{
			name: "custom rule without patterns",
			text: "Hello world. This is a test!",
			opts: Options{Rule: RuleCustom},
			want: []string{"Hello world", "This is a test"},
		},
		{
			name: "custom rule with invalid pattern",
			text: "Hello world. This is a test!",
			opts: Options{Rule: RuleCustom, CustomPatterns: []string{"("}},
			want: []string{"Hello world", "This is a test"},
		},
		{
			name: "merge short segments",
			text: "Title\nSubtitle\n" + strings.Repeat("body ", 12) + "\nEnd",
			opts: Options{Rule: RuleLine, MinSegmentLength: 1, MergeShortSegments: true},
			want: []string{"Title Subtitle " + strings.TrimSpace(strings.Repeat("body ", 12)), "End"},
		},
		{
			name: "collapse whitespace",
			text: "first   part\tof text. second\n part of text.",
			opts: Options{CollapseWhitespace: true},
			want: []string{"first part of text", "second part of text"},
		},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Segment(tt.text, tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSegment_Paragraphs(t *testing.T) {
	text := heredoc.Doc(`
		CERTIFICATE OF BIRTH
		Civil Registry of Madrid

		The undersigned registrar certifies the following entry.
		Entry number 1234, volume 56.

		Issued on 12/05/1990.
	`)

	got := New(nil).Segment(text, Options{Rule: RuleParagraph})
	want := []string{
		"CERTIFICATE OF BIRTH\nCivil Registry of Madrid",
		"The undersigned registrar certifies the following entry.\nEntry number 1234, volume 56.",
		"Issued on 12/05/1990.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_MergeRespectsMax(t *testing.T) {
	prev := strings.TrimSpace(strings.Repeat("word ", 6)) // 29 chars
	got := New(nil).Segment(prev+"\nshort", Options{Rule: RuleLine, MaxSegmentLength: 30})
	assert.Equal(t, []string{prev, "short"}, got)
}

func TestSegment_LengthBound(t *testing.T) {
	s := New(nil)
	for _, max := range []int{15, 40, 120, 500} {
		for _, text := range fixtures() {
			for _, rule := range []Rule{RuleSentence, RuleParagraph, RuleLine} {
				opts := Options{Rule: rule, MaxSegmentLength: max, MergeShortSegments: true}
				for _, seg := range s.Segment(text, opts) {
					if length(seg) <= max {
						continue
					}
					assert.NotContains(t, seg, " ", "segment over %d chars must be a single word: %q", max, seg)
				}
			}
		}
	}
}

func TestSegment_MinAboveMax(t *testing.T) {
	s := New(nil)
	opts := Options{Rule: RuleSentence, MinSegmentLength: 12, MaxSegmentLength: 6}

	got := s.Segment("bb world. aa", opts)
	assert.Equal(t, []string{"bb", "world", "aa"}, got)
	for _, seg := range got {
		assert.LessOrEqual(t, length(seg), 6, seg)
	}

	assert.Equal(t, 6, opts.withDefaults().MinSegmentLength)
	assert.Error(t, opts.Validate())
	assert.NoError(t, DefaultOptions().Validate())
	assert.NoError(t, Options{}.Validate())
	assert.Error(t, Options{MinSegmentLength: -1}.Validate())
}

func TestSegment_NonLoss(t *testing.T) {
	s := New(nil)
	for _, text := range fixtures() {
		for _, rule := range []Rule{RuleParagraph, RuleLine} {
			for _, max := range []int{15, 500} {
				segs := s.Segment(text, Options{Rule: rule, MaxSegmentLength: max, MergeShortSegments: true})
				assert.Equal(t, nonSpace(text), nonSpace(strings.Join(segs, "")), "rule %s max %d", rule, max)
			}
		}
	}
}

func TestSegment_NonLossSentenceKeepsEverythingButTerminators(t *testing.T) {
	s := New(nil)
	for _, text := range fixtures() {
		segs := s.Segment(text, Options{MaxSegmentLength: 40})
		want := strings.Map(dropTerminators, nonSpace(text))
		got := strings.Map(dropTerminators, nonSpace(strings.Join(segs, "")))
		assert.Equal(t, want, got)
	}
}

func TestUnits(t *testing.T) {
	units := Units([]string{"one", "two"})
	assert.Len(t, units, 2)
	assert.Equal(t, "seg_1", units[0].ID)
	assert.Equal(t, "seg_2", units[1].ID)
	assert.Equal(t, "two", units[1].SourceText)
	assert.Equal(t, StatusNew, units[0].Status)
	assert.NotNil(t, units[0].Notes)

	assert.True(t, units[0].Translate("uno"))
	assert.Equal(t, StatusTranslated, units[0].Status)
	assert.Equal(t, "uno", units[0].TargetText)

	units[1].Status = StatusLocked
	assert.False(t, units[1].Translate("dos"))
	assert.Empty(t, units[1].TargetText)

	units[1].AddNote("checked")
	assert.Equal(t, []string{"checked"}, units[1].Notes)
}

func fixtures() []string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Sentence number %d has %s words. ", i, strings.Repeat("many ", i%7))
		if i%5 == 0 {
			b.WriteString("\n\n")
		}
		if i%9 == 0 {
			b.WriteString(strings.Repeat("z", 30+i) + "\n")
		}
	}
	return []string{
		"Hello world. This is a test!",
		b.String(),
		"Ok.\nNo.\nA much longer line that should survive on its own without any merging.\n\nEnd!",
		strings.Repeat("y", 80),
	}
}

func nonSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func dropTerminators(r rune) rune {
	if r == '.' || r == '!' || r == '?' {
		return -1
	}
	return r
}
