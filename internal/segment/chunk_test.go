package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk_ShortText(t *testing.T) {
	assert.Equal(t, []string{"Fits easily."}, Chunk("  Fits easily. ", 100))
	assert.Nil(t, Chunk("   ", 100))
}

func TestChunk_PacksSentences(t *testing.T) {
	text := "First sentence is here. Second one follows! Is this the third? Fourth and last."
	chunks := Chunk(text, 45)

	assert.Equal(t, []string{
		"First sentence is here. Second one follows!",
		"Is this the third? Fourth and last.",
	}, chunks)
}

func TestChunk_Bounds(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 30) +
		strings.Repeat("word ", 200)
	for _, max := range []int{20, 64, 500} {
		chunks := Chunk(text, max)
		for _, c := range chunks {
			assert.LessOrEqual(t, length(c), max)
		}
		assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
	}
}
