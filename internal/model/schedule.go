package model

// DefaultSlotStepMinutes applies to services without a usable step.
const DefaultSlotStepMinutes = 60

// DefaultCapacitySeats applies when a service has no default capacity row.
const DefaultCapacitySeats = 16

// RestaurantHours is the opening window of a restaurant on one weekday (Monday=0).
type RestaurantHours struct {
	ID           int64  `json:"id,omitempty"`
	RestaurantID int64  `json:"restaurant_id"`
	Weekday      int    `json:"weekday"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	IsClosed     bool   `json:"is_closed"`
}

// Service is a bookable sub-period of a restaurant with its own slot granularity.
type Service struct {
	ID              ID     `json:"id"`
	RestaurantID    int64  `json:"restaurant_id"`
	Name            string `json:"name"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
	IsActive        bool   `json:"is_active"`
}

// Step returns the slot step, falling back to an hour for missing or invalid values.
func (s *Service) Step() int {
	if s.SlotStepMinutes <= 0 {
		return DefaultSlotStepMinutes
	}
	return s.SlotStepMinutes
}

// Capacity is the seat count of a service. A nil Date marks the default row.
type Capacity struct {
	ID            int64   `json:"id,omitempty"`
	ServiceID     ID      `json:"service_id"`
	RestaurantID  int64   `json:"restaurant_id,omitempty"`
	CapacitySeats *int    `json:"capacity_seats"`
	Date          *string `json:"date"`
}

// Seats returns the configured seats or the default when the column is empty.
func (c *Capacity) Seats() int {
	if c == nil || c.CapacitySeats == nil {
		return DefaultCapacitySeats
	}
	return *c.CapacitySeats
}
