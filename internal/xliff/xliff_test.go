package xliff

import (
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmore/mtgateway/internal/segment"
)

func TestBuildMarshal(t *testing.T) {
	units := segment.Units([]string{"Hola & adiós", "Fecha <hoy>"})
	units[0].Translate("Hello & goodbye")
	units[1].Status = segment.StatusLocked

	out, err := Marshal(Build(units, "es", "en", "acta.txt"))
	require.NoError(t, err)

	want := heredoc.Doc(`
		<?xml version="1.0" encoding="UTF-8"?>
		<xliff xmlns="urn:oasis:names:tc:xliff:document:2.0" version="2.1" srcLang="es" trgLang="en">
		  <file id="f1" original="acta.txt">
		    <unit id="u1">
		      <segment id="seg_1" state="translated">
		        <source>Hola &amp; adiós</source>
		        <target>Hello &amp; goodbye</target>
		      </segment>
		      <segment id="seg_2" state="final">
		        <source>Fecha &lt;hoy&gt;</source>
		        <target></target>
		      </segment>
		    </unit>
		  </file>
		</xliff>`)
	assert.Equal(t, want, string(out))
}

func TestParseMerge(t *testing.T) {
	doc, err := Parse([]byte(heredoc.Doc(`
		<?xml version="1.0" encoding="UTF-8"?>
		<xliff xmlns="urn:oasis:names:tc:xliff:document:2.1" version="2.1" srcLang="es" trgLang="en">
		  <file id="f1" original="acta.docx">
		    <unit>
		      <segment id="seg_1">
		        <source>Nombre: Juan</source>
		        <target>Name: Juan</target>
		      </segment>
		      <segment id="seg_2">
		        <source>Nacido en Madrid</source>
		        <target></target>
		      </segment>
		      <segment id="seg_3">
		        <source></source>
		        <target></target>
		      </segment>
		    </unit>
		  </file>
		</xliff>
	`)))
	require.NoError(t, err)
	assert.Equal(t, "es", doc.SrcLang)
	assert.Equal(t, "acta.docx", doc.Files[0].Original)

	merged := Merge(doc)
	assert.Equal(t, "Name: Juan\n\nNacido en Madrid", merged.Text)
	assert.Equal(t, Stats{Total: 3, Translated: 1}, merged.Stats)
}

func TestParse_RoundTrip(t *testing.T) {
	units := segment.Units([]string{"uno", "dos"})
	units[1].Translate("two")
	out, err := Marshal(Build(units, "es", "en", ""))
	require.NoError(t, err)

	doc, err := Parse(out)
	require.NoError(t, err)
	segs := doc.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, Segment{ID: "seg_2", State: StateTranslated, Source: "dos", Target: "two"}, segs[1])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("<xliff version=\"2.1\"><file id=\"f1\"></file></xliff>"))
	assert.ErrorIs(t, err, ErrNoSegments)

	_, err = Parse([]byte("<html></html>"))
	assert.Error(t, err)

	_, err = Parse([]byte("not xml"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	segs := []string{"one two", "three", "four five six", "seven", "eight", "nine ten"}
	s := Summarize(segment.Units(segs))

	assert.Equal(t, 6, s.SegmentCount)
	assert.Equal(t, 10, s.WordCount)
	require.Len(t, s.PreviewSegments, 5)
	assert.Equal(t, "seg_5", s.PreviewSegments[4].ID)

	empty := Summarize(nil)
	assert.Zero(t, empty.SegmentCount)
	assert.Empty(t, empty.PreviewSegments)
}
