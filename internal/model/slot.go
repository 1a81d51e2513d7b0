package model

// Slot is one bookable start time in the availability response. The optional
// fields are only set for slots derived from services.
type Slot struct {
	Time         string `json:"time"`
	Available    bool   `json:"available"`
	Discount     int    `json:"discount"`
	ServiceID    *ID    `json:"service_id,omitempty"`
	BookedGuests *int   `json:"booked_guests,omitempty"`
	Capacity     *int   `json:"capacity,omitempty"`
	Load         *int   `json:"load,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s Slot) Clone() Slot {
	out := s
	if s.ServiceID != nil {
		id := *s.ServiceID
		out.ServiceID = &id
	}
	out.BookedGuests = cloneInt(s.BookedGuests)
	out.Capacity = cloneInt(s.Capacity)
	out.Load = cloneInt(s.Load)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
