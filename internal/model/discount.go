package model

// DiscountRule is a time-bounded, date-ranged promotion scoped to a service or,
// when ServiceID is nil, to the whole restaurant.
type DiscountRule struct {
	ID           int64  `json:"id,omitempty"`
	RestaurantID int64  `json:"restaurant_id"`
	ServiceID    *ID    `json:"service_id"`
	Discount     int    `json:"discount"`
	TimeStart    string `json:"time_start"`
	TimeEnd      string `json:"time_end"`
	ValidFrom    string `json:"valid_from"`
	ValidTo      string `json:"valid_to"`
	IsActive     bool   `json:"is_active"`
	Description  string `json:"description"`
}

// AppliesOn reports whether the rule is active and date (YYYY-MM-DD) lies within
// [ValidFrom, ValidTo]. ISO dates compare correctly as strings.
func (r *DiscountRule) AppliesOn(date string) bool {
	return r.IsActive && r.ValidFrom <= date && date <= r.ValidTo
}

// Covers reports whether t falls in the rule's [TimeStart, TimeEnd) window.
func (r *DiscountRule) Covers(t TimeOfDay) bool {
	start, err := ParseTimeOfDay(r.TimeStart)
	if err != nil {
		return false
	}
	end, err := ParseTimeOfDay(r.TimeEnd)
	if err != nil {
		return false
	}
	return start <= t && t < end
}
