package diffgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdenticalSkipsDiff(t *testing.T) {
	text := "line one.\nline two.\n"
	assert.True(t, Identical(text, text))
	assert.Empty(t, Unified("before.txt", "after.txt", text, text))
}

func TestUnifiedProducesDeterministicDiff(t *testing.T) {
	before := "Kaelith says, \"The storm is close.\"\nValandil draws her blade.\n"
	after := "Kaelith says, \"The storm is near.\"\nValandil draws her blade.\n"

	d1 := Unified("before.txt", "after.txt", before, after)
	d2 := Unified("before.txt", "after.txt", before, after)
	assert.Equal(t, d1, d2)
	assert.NotEmpty(t, d1)
	assert.True(t, strings.Contains(d1, "-Kaelith"))
	assert.True(t, strings.Contains(d1, "+Kaelith"))
}
