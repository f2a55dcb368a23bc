package review

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeRoundsToOneDecimal(t *testing.T) {
	s := Summarize("b1", []int{5, 4, 4})
	assert.Equal(t, 4.3, s.Average)
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, int64(2), s.Distribution[4])
	assert.Equal(t, int64(0), s.Distribution[1])

	empty := Summarize("b1", nil)
	assert.Equal(t, 0.0, empty.Average)
	assert.Len(t, empty.Distribution, 5)
}

func TestNewValidatesRating(t *testing.T) {
	_, err := New("r", "u", "b", "", 6, "")
	assert.True(t, errors.Is(err, ErrInvalidRating))
	r, err := New("r", "u", "b", "", 5, "  great ")
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "great", r.Comment)
	assert.False(t, r.Public())
}
