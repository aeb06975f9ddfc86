package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_Identical(t *testing.T) {
	assert.Equal(t, 0, Distance("KLKT", "KLKT"))
}

func TestDistance_SingleEdit(t *testing.T) {
	assert.Equal(t, 1, Distance("KLKT", "KLK"))
	assert.Equal(t, 1, Distance("KLKT", "KLKTS"))
	assert.Equal(t, 1, Distance("KLKT", "KLKS"))
}

func TestDistance_EmptyStrings(t *testing.T) {
	assert.Equal(t, 0, Distance("", ""))
	assert.Equal(t, 4, Distance("", "KLKT"))
	assert.Equal(t, 4, Distance("KLKT", ""))
}

func TestTolerantMatch_ExactAlwaysMatches(t *testing.T) {
	set := map[string]struct{}{"KLKT": {}}
	assert.True(t, TolerantMatch("KLKT", set, 0))
}

func TestTolerantMatch_WithinEdits(t *testing.T) {
	set := map[string]struct{}{"KLKT": {}}
	assert.True(t, TolerantMatch("KLK", set, 1))
	assert.False(t, TolerantMatch("XXXX", set, 1))
}

func TestTolerantMatch_EmptyNeverMatches(t *testing.T) {
	set := map[string]struct{}{"": {}, "KLKT": {}}
	assert.False(t, TolerantMatch("", set, 5))
}

func TestExactMatch(t *testing.T) {
	set := map[string]struct{}{"KLKT": {}}
	assert.True(t, ExactMatch("KLKT", set))
	assert.False(t, ExactMatch("KLK", set))
	assert.False(t, ExactMatch("", set))
}
