package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRightWithSuffix(t *testing.T) {
	assert.Equal(t, "hello...", TruncateRightWithSuffix("hello, world", 5, "..."))
	assert.Equal(t, "hello", TruncateRight("hello", 10))
	assert.Equal(t, "...", TruncateRightWithSuffix("hello", 0, "..."))
}

func TestTruncateRight_Runes(t *testing.T) {
	assert.Equal(t, "álé", TruncateRight("álért.txt", 3))
	assert.Equal(t, "short", TruncateRightWithSuffix("short", 5, "..."))
}
