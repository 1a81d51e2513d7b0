package availability

import (
	"time"

	"restoboost/internal/model"
)

// Slots at or above this load are not offered.
const loadThreshold = 0.9

type stay struct {
	start, end time.Time
	guests     int
}

// occupancy holds the seat-holding bookings of one day.
type occupancy struct {
	stays []stay
}

// newOccupancy keeps confirmed and completed bookings whose stored datetime
// starts with date. Bookings with unparseable timestamps are skipped and counted.
func newOccupancy(bookings []model.Booking, date string) (occ occupancy, skipped int) {
	for i := range bookings {
		b := &bookings[i]
		if !b.HoldsSeats() || !b.OnDate(date) {
			continue
		}
		start, end, err := b.Interval()
		if err != nil {
			skipped++
			continue
		}
		occ.stays = append(occ.stays, stay{start: start, end: end, guests: b.Guests()})
	}
	return occ, skipped
}

// guests sums party sizes of stays overlapping [from, to). Touching intervals
// do not overlap.
func (o occupancy) guests(from, to time.Time) int {
	total := 0
	for _, s := range o.stays {
		if s.start.Before(to) && s.end.After(from) {
			total += s.guests
		}
	}
	return total
}

// load is guests/capacity, or 0 when capacity is not positive.
func load(guests, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(guests) / float64(capacity)
}

func isAvailable(l float64) bool {
	return l < loadThreshold
}
