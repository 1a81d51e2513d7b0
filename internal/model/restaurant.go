package model

// Restaurant is a venue listed on the platform.
type Restaurant struct {
	ID          int64          `json:"id,omitempty"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Rating      float64        `json:"rating"`
	AvgCheck    int            `json:"avg_check"`
	Address     string         `json:"address"`
	Phone       string         `json:"phone"`
	Cuisine     []string       `json:"cuisine"`
	Description string         `json:"description"`
	Photos      []string       `json:"photos"`
	CreatedAt   string         `json:"created_at,omitempty"`
	Timeslots   []DiscountRule `json:"timeslots,omitempty"`
	Popularity  *int           `json:"popularity,omitempty"`
}

// HasCuisine reports whether c is among the restaurant's cuisines.
func (r *Restaurant) HasCuisine(c string) bool {
	for _, v := range r.Cuisine {
		if v == c {
			return true
		}
	}
	return false
}

// MaxDiscount returns the best discount among attached timeslots.
func (r *Restaurant) MaxDiscount() int {
	best := 0
	for _, ts := range r.Timeslots {
		if ts.Discount > best {
			best = ts.Discount
		}
	}
	return best
}
