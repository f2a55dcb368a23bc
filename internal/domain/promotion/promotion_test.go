package promotion

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
)

func percent(t *testing.T, value, max int64) *Promotion {
	t.Helper()
	p, err := New("p1", " summer10 ", "Summer", "", Terms{DiscountType: DiscountPercent, DiscountValue: value, MaxDiscount: max, MinOrderValue: 100000}, t0, t1, 2, StatusActive, "admin")
	require.NoError(t, err)
	return p
}

func TestDiscountPercentFloorsAndCaps(t *testing.T) {
	p := percent(t, 15, 0)
	assert.Equal(t, "SUMMER10", p.Code)
	assert.Equal(t, int64(18749), p.Discount(124999))

	capped := percent(t, 50, 30000)
	assert.Equal(t, int64(30000), capped.Discount(200000))
}

func TestDiscountFixedNeverExceedsOrder(t *testing.T) {
	p, err := New("p2", "FLAT", "Flat", "", Terms{DiscountType: DiscountFixed, DiscountValue: 50000}, t0, t1, 0, StatusActive, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), p.Discount(80000))
	assert.Equal(t, int64(30000), p.Discount(30000))
}

func TestValidateOrder(t *testing.T) {
	mid := t0.Add(24 * time.Hour)
	p := percent(t, 10, 0)

	assert.NoError(t, p.Validate("u1", 150000, mid))
	assert.True(t, errors.Is(p.Validate("u1", 150000, t0.Add(-time.Hour)), ErrNotStarted))
	assert.True(t, errors.Is(p.Validate("u1", 150000, t1.Add(time.Hour)), ErrExpired))
	assert.True(t, errors.Is(p.Validate("u1", 50000, mid), ErrMinOrderValue))

	p.UsedByUsers = []string{"u1"}
	p.UsedCount = 1
	assert.True(t, errors.Is(p.Validate("u1", 150000, mid), ErrAlreadyUsed))

	p.UsedCount = 2
	assert.True(t, errors.Is(p.Validate("u2", 150000, mid), ErrUsageLimit))

	p.Status = StatusInactive
	assert.True(t, errors.Is(p.Validate("u2", 150000, mid), ErrNotActive))
}

func TestNewRejectsInvalidTerms(t *testing.T) {
	_, err := New("p", "X", "", "", Terms{DiscountType: DiscountPercent, DiscountValue: 101}, t0, t1, 0, "", "a")
	assert.True(t, errors.Is(err, ErrInvalidPercent))
	_, err = New("p", "X", "", "", Terms{DiscountType: DiscountFixed, DiscountValue: 1}, t1, t0, 0, "", "a")
	assert.True(t, errors.Is(err, ErrInvalidDates))
	p, err := New("p", "X", "", "", Terms{DiscountType: DiscountFixed, DiscountValue: 1}, t0, t1, 0, "", "a")
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, p.Status)
}

func TestApplyLocksTermsOnceStarted(t *testing.T) {
	p := percent(t, 10, 0)
	v := int64(20)
	err := p.Apply(Patch{DiscountValue: &v}, "admin", t0.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, p.Apply(Patch{DiscountValue: &v}, "admin", t0.Add(-time.Hour)))
	assert.Equal(t, int64(20), p.DiscountValue)

	code := "OTHER"
	assert.True(t, errors.Is(p.Apply(Patch{Code: &code}, "admin", t0.Add(-time.Hour)), ErrImmutableField))
}

func TestDeleteRefusedWhenUsed(t *testing.T) {
	p := percent(t, 10, 0)
	p.UsedCount = 1
	assert.True(t, errors.Is(p.SoftDelete("admin"), ErrInUse))
}

func TestDiff(t *testing.T) {
	ch := Diff(map[string]any{"a": 1, "b": "x"}, map[string]any{"a": 2, "b": "x"})
	assert.Len(t, ch, 1)
	assert.Equal(t, Change{From: 1, To: 2}, ch["a"])
}
