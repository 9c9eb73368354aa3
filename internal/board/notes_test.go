package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotesToggle(t *testing.T) {
	var n Notes

	n.Toggle(40, 5)
	assert.True(t, n.Has(40, 5))

	n.Toggle(40, 5)
	assert.False(t, n.Has(40, 5))
	assert.Nil(t, n.Digits(40))
}

func TestNotesIgnoresOutOfRangeDigits(t *testing.T) {
	var n Notes
	n.Toggle(0, 0)
	n.Toggle(0, 10)
	assert.Nil(t, n.Digits(0))
	assert.False(t, n.Has(0, 0))
}

func TestNotesDigitsAscending(t *testing.T) {
	var n Notes
	n.Toggle(7, 9)
	n.Toggle(7, 1)
	n.Toggle(7, 4)
	assert.Equal(t, []uint8{1, 4, 9}, n.Digits(7))
}

func TestNotesClear(t *testing.T) {
	var n Notes
	n.Toggle(3, 2)
	n.Toggle(5, 8)

	n.Clear(3)
	assert.Nil(t, n.Digits(3))
	assert.True(t, n.Has(5, 8))

	n.ClearAll()
	assert.False(t, n.Has(5, 8))
}

func TestParseSolution(t *testing.T) {
	s, err := ParseSolution(solved)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), s.Digit(0, 0))
	assert.Equal(t, uint8(2), s.Digit(8, 8))
	assert.True(t, s.Matches(0, 0, 1))
	assert.False(t, s.Matches(0, 0, 9))
}

func TestParseSolutionRejectsBlanks(t *testing.T) {
	_, err := ParseSolution("-" + solved[1:])
	require.Error(t, err)
}

func TestParseSolutionRejectsWrongLength(t *testing.T) {
	_, err := ParseSolution(solved[:80])
	require.Error(t, err)
}
