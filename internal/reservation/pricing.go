package reservation

// Service prices in cents. Breakfast and parking accrue per night; laundry
// and late checkout are flat per stay.
const (
	breakfastPerNightCents  = 2500
	parkingPerNightCents    = 1500
	laundryFlatCents        = 3000
	lateCheckoutFlatCents   = 4000
	longStayNights          = 7
	longStayDiscountPercent = 10
)

// Quote is the price breakdown for a stay. TotalCents is what the payment
// must match exactly.
type Quote struct {
	Nights            int     `json:"nights"`
	NightlyRateCents  int64   `json:"nightly_rate_cents"`
	RoomSubtotalCents int64   `json:"room_subtotal_cents"`
	ServicesCents     int64   `json:"services_cents"`
	DiscountCents     int64   `json:"discount_cents"`
	TotalCents        int64   `json:"total_cents"`
	Services          []Extra `json:"services,omitempty"`
}

// ComputeQuote prices a stay: nights times the room rate, plus selected
// services, minus the long-stay discount (10% off the whole stay from seven
// nights). Integer cents throughout; the discount truncates toward zero.
// Duplicate services are counted once.
func ComputeQuote(nightlyRateCents int64, nightCount int, services []Extra) Quote {
	q := Quote{
		Nights:            nightCount,
		NightlyRateCents:  nightlyRateCents,
		RoomSubtotalCents: nightlyRateCents * int64(nightCount),
		Services:          dedupe(services),
	}

	for _, extra := range q.Services {
		switch extra {
		case ExtraBreakfast:
			q.ServicesCents += breakfastPerNightCents * int64(nightCount)
		case ExtraParking:
			q.ServicesCents += parkingPerNightCents * int64(nightCount)
		case ExtraLaundry:
			q.ServicesCents += laundryFlatCents
		case ExtraLateCheckout:
			q.ServicesCents += lateCheckoutFlatCents
		}
	}

	subtotal := q.RoomSubtotalCents + q.ServicesCents
	if nightCount >= longStayNights {
		q.DiscountCents = subtotal * longStayDiscountPercent / 100
	}
	q.TotalCents = subtotal - q.DiscountCents
	return q
}

func dedupe(services []Extra) []Extra {
	if len(services) == 0 {
		return nil
	}
	seen := make(map[Extra]struct{}, len(services))
	out := make([]Extra, 0, len(services))
	for _, s := range services {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
