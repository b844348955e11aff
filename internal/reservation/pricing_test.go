package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeQuote(t *testing.T) {
	t.Run("room only", func(t *testing.T) {
		q := ComputeQuote(25000, 3, nil)
		assert.Equal(t, int64(75000), q.RoomSubtotalCents)
		assert.Zero(t, q.ServicesCents)
		assert.Zero(t, q.DiscountCents)
		assert.Equal(t, int64(75000), q.TotalCents)
	})

	t.Run("per-night services scale with the stay", func(t *testing.T) {
		q := ComputeQuote(25000, 3, []Extra{ExtraBreakfast, ExtraParking})
		// 3 nights of breakfast at 2500 plus parking at 1500.
		assert.Equal(t, int64(12000), q.ServicesCents)
		assert.Equal(t, int64(87000), q.TotalCents)
	})

	t.Run("flat services do not scale", func(t *testing.T) {
		q := ComputeQuote(25000, 3, []Extra{ExtraLaundry, ExtraLateCheckout})
		assert.Equal(t, int64(7000), q.ServicesCents)
	})

	t.Run("duplicate services count once", func(t *testing.T) {
		q := ComputeQuote(25000, 3, []Extra{ExtraLaundry, ExtraLaundry})
		assert.Equal(t, int64(3000), q.ServicesCents)
		assert.Len(t, q.Services, 1)
	})

	t.Run("six nights earn no discount", func(t *testing.T) {
		q := ComputeQuote(25000, 6, nil)
		assert.Zero(t, q.DiscountCents)
		assert.Equal(t, int64(150000), q.TotalCents)
	})

	t.Run("seven nights earn ten percent off the whole stay", func(t *testing.T) {
		q := ComputeQuote(25000, 7, []Extra{ExtraBreakfast})
		subtotal := int64(25000*7 + 2500*7)
		assert.Equal(t, subtotal/10, q.DiscountCents)
		assert.Equal(t, subtotal-subtotal/10, q.TotalCents)
	})

	t.Run("discount truncates toward zero", func(t *testing.T) {
		q := ComputeQuote(3, 7, nil)
		// Subtotal 21, ten percent is 2.1, stored as 2.
		assert.Equal(t, int64(2), q.DiscountCents)
		assert.Equal(t, int64(19), q.TotalCents)
	})
}
