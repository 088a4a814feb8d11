package plans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByIDAndKey(t *testing.T) {
	c := Default()

	byID, ok := c.Get("monthly_premium")
	require.True(t, ok)
	byKey, ok := c.Get("monthly")
	require.True(t, ok)
	assert.Equal(t, byID, byKey)
	assert.Equal(t, 30, byID.DurationDays)
	assert.Equal(t, 4900, byID.PricePaise)

	_, ok = c.Get("lifetime")
	assert.False(t, ok)
}

func TestQuoteWithoutCode(t *testing.T) {
	c := Default()

	quote, err := c.Quote("yearly", "")
	require.NoError(t, err)
	assert.Equal(t, 49900, quote.FinalPaise)
	assert.False(t, quote.Applied)
}

func TestQuoteInvalidPlan(t *testing.T) {
	c := Default()

	_, err := c.Quote("gold", "WELCOME10")
	require.ErrorIs(t, err, ErrInvalidPlan)
}

func TestQuoteDiscount(t *testing.T) {
	c := Default()

	// 10% of 4900 is 490, below the 5000 paise cap.
	quote, err := c.Quote("monthly_premium", "WELCOME10")
	require.NoError(t, err)
	assert.True(t, quote.Applied)
	assert.Equal(t, 490, quote.DiscountPaise)
	assert.Equal(t, 4410, quote.FinalPaise)
}

func TestQuoteDiscountCaseInsensitive(t *testing.T) {
	c := Default()

	quote, err := c.Quote("monthly", "welcome10")
	require.NoError(t, err)
	assert.True(t, quote.Applied)
	assert.Equal(t, 4410, quote.FinalPaise)
}

func TestQuoteDiscountCapped(t *testing.T) {
	// 20% of 49900 is 9980, just under the 10000 paise cap; the cap binds on
	// a synthetic plan priced above it.
	custom := New([]Plan{
		{ID: "big", Key: "big", PricePaise: 100000},
	}, []Discount{
		{Code: "PREMIUM20", Percent: 20, MaxPaise: 10000, ValidUntil: time.Now().Add(24 * time.Hour)},
	})

	quote, err := custom.Quote("big", "PREMIUM20")
	require.NoError(t, err)
	assert.Equal(t, 10000, quote.DiscountPaise)
	assert.Equal(t, 90000, quote.FinalPaise)
}

func TestQuoteUnknownCodeIgnored(t *testing.T) {
	c := Default()

	quote, err := c.Quote("monthly", "NOSUCHCODE")
	require.NoError(t, err)
	assert.False(t, quote.Applied)
	assert.Equal(t, 4900, quote.FinalPaise)
}

func TestQuoteExpiredCodeIgnored(t *testing.T) {
	c := New([]Plan{
		{ID: "monthly_premium", Key: "monthly", PricePaise: 4900},
	}, []Discount{
		{Code: "WELCOME10", Percent: 10, MaxPaise: 5000, ValidUntil: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	})
	c.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	quote, err := c.Quote("monthly", "WELCOME10")
	require.NoError(t, err)
	assert.False(t, quote.Applied)
	assert.Equal(t, 4900, quote.FinalPaise)
}
