package llmcorrect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkNeverSplitsALine(t *testing.T) {
	text := "one\ntwo\nthree\nfour\n"
	chunks := Chunk(text, 8)
	for _, c := range chunks {
		assert.LessOrEqual(t, strings.Count(c, "\n"), strings.Count(text, "\n"))
	}
	assert.Equal(t, text, Join(chunks))
}

func TestChunkRespectsBudgetWhenPossible(t *testing.T) {
	text := "aaaa\nbbbb\ncccc\ndddd\n"
	chunks := Chunk(text, 10)
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa\nbbbb\n", chunks[0])
	assert.Equal(t, "cccc\ndddd\n", chunks[1])
}

func TestChunkOversizedLineStillWhole(t *testing.T) {
	longLine := strings.Repeat("x", 100) + "\n"
	chunks := Chunk(longLine, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, longLine, chunks[0])
}

func TestChunkEmptyText(t *testing.T) {
	assert.Nil(t, Chunk("", 100))
}

func TestJoinReassemblesExactly(t *testing.T) {
	text := "Kaelith says, \"hello.\"\nValandil draws her blade.\n"
	chunks := Chunk(text, 25)
	assert.Equal(t, text, Join(chunks))
}
