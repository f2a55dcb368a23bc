package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockDeductAndRestock(t *testing.T) {
	s, err := NewStock("s1", "b1", 5, 100000, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, s.Location)

	require.NoError(t, s.Deduct(3))
	assert.Equal(t, 2, s.Quantity)
	assert.True(t, errors.Is(s.Deduct(3), ErrInsufficientStock))
	assert.True(t, errors.Is(s.Deduct(0), ErrInvalidQuantity))

	require.NoError(t, s.Restock(3))
	assert.Equal(t, 5, s.Quantity)
}

func TestStockDeactivate(t *testing.T) {
	s, err := NewStock("s1", "b1", 5, 100000, "MAIN")
	require.NoError(t, err)
	s.Deactivate()
	assert.Equal(t, 0, s.Quantity)
	assert.False(t, s.Covers(1))
	s.Activate()
	assert.True(t, s.Covers(0))
}

func TestNewStockRejectsBadInput(t *testing.T) {
	_, err := NewStock("s", "b", -1, 10, "")
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
	_, err = NewStock("s", "b", 1, 0, "")
	assert.True(t, errors.Is(err, ErrInvalidPrice))
}
