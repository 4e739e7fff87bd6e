// Package xliff builds and reads XLIFF 2.1 documents for segmented text.
package xliff

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/bmore/mtgateway/internal/segment"
)

const (
	Version = "2.1"
	// Namespace is the XLIFF 2 core namespace; 2.1 documents keep the 2.0 URN.
	Namespace = "urn:oasis:names:tc:xliff:document:2.0"

	previewSize = 5
)

// Segment states.
const (
	StateInitial    = "initial"
	StateTranslated = "translated"
	StateReviewed   = "reviewed"
	StateFinal      = "final"
)

var ErrNoSegments = errors.New("xliff document has no segments")

type Document struct {
	XMLName xml.Name `xml:"xliff"`
	Xmlns   string   `xml:"xmlns,attr"`
	Version string   `xml:"version,attr"`
	SrcLang string   `xml:"srcLang,attr"`
	TrgLang string   `xml:"trgLang,attr,omitempty"`
	Files   []File   `xml:"file"`
}

type File struct {
	ID       string `xml:"id,attr"`
	Original string `xml:"original,attr,omitempty"`
	Units    []Unit `xml:"unit"`
}

type Unit struct {
	ID       string    `xml:"id,attr"`
	Segments []Segment `xml:"segment"`
}

type Segment struct {
	ID     string `xml:"id,attr"`
	State  string `xml:"state,attr,omitempty"`
	Source string `xml:"source"`
	Target string `xml:"target"`
}

func stateOf(s segment.Status) string {
	switch s {
	case segment.StatusTranslated:
		return StateTranslated
	case segment.StatusApproved:
		return StateReviewed
	case segment.StatusLocked:
		return StateFinal
	default:
		return StateInitial
	}
}

// Build puts units into one file and one unit. original names the source
// document and may be empty.
func Build(units []segment.TranslationUnit, srcLang, tgtLang, original string) *Document {
	segs := make([]Segment, len(units))
	for i, u := range units {
		segs[i] = Segment{
			ID:     u.ID,
			State:  stateOf(u.Status),
			Source: u.SourceText,
			Target: u.TargetText,
		}
	}
	return &Document{
		Xmlns:   Namespace,
		Version: Version,
		SrcLang: srcLang,
		TrgLang: tgtLang,
		Files: []File{{
			ID:       "f1",
			Original: original,
			Units:    []Unit{{ID: "u1", Segments: segs}},
		}},
	}
}

// Marshal renders doc with an XML declaration.
func Marshal(doc *Document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal xliff: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Parse reads an XLIFF 2.x document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse xliff: %w", err)
	}
	if len(doc.Segments()) == 0 {
		return nil, ErrNoSegments
	}
	return &doc, nil
}

// Segments returns every segment in document order.
func (d *Document) Segments() []Segment {
	var out []Segment
	for _, f := range d.Files {
		for _, u := range f.Units {
			out = append(out, u.Segments...)
		}
	}
	return out
}

type Stats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
}

type Merged struct {
	Text  string `json:"text"`
	Stats Stats  `json:"stats"`
}

// Merge joins the targets back into a text, one paragraph per segment.
// Segments without a target contribute their source.
func Merge(doc *Document) Merged {
	var (
		parts []string
		stats Stats
	)
	for _, s := range doc.Segments() {
		stats.Total++
		switch {
		case s.Target != "":
			parts = append(parts, s.Target)
			stats.Translated++
		case s.Source != "":
			parts = append(parts, s.Source)
		}
	}
	return Merged{Text: strings.Join(parts, "\n\n"), Stats: stats}
}

type Summary struct {
	SegmentCount    int                       `json:"segmentCount"`
	WordCount       int                       `json:"wordCount"`
	PreviewSegments []segment.TranslationUnit `json:"previewSegments"`
}

// Summarize counts units and source words and previews the first few units.
func Summarize(units []segment.TranslationUnit) Summary {
	s := Summary{SegmentCount: len(units)}
	for _, u := range units {
		s.WordCount += len(strings.Fields(u.SourceText))
	}
	s.PreviewSegments = units[:min(previewSize, len(units))]
	return s
}
