package availability

import (
	"math"
	"time"

	"restoboost/internal/model"
)

// materialize walks every plan window on day and emits one slot per full step.
func materialize(day time.Time, plans []plan, occ occupancy) []model.Slot {
	var slots []model.Slot
	for _, p := range plans {
		step := time.Duration(p.step) * time.Minute
		if step <= 0 {
			step = model.DefaultSlotStepMinutes * time.Minute
		}
		end := p.window.End.On(day)
		for cur := p.window.Start.On(day); !cur.Add(step).After(end); cur = cur.Add(step) {
			slots = append(slots, p.slotAt(cur, step, occ))
		}
	}
	return slots
}

func (p plan) slotAt(start time.Time, step time.Duration, occ occupancy) model.Slot {
	slot := model.Slot{
		Time:      start.Format(model.ClockLayout),
		Available: true,
		Discount:  p.discount,
	}
	if p.service == nil {
		return slot
	}

	guests := occ.guests(start, start.Add(step))
	l := load(guests, p.capacity)
	pct := int(math.RoundToEven(l * 100))
	capacity := p.capacity
	id := p.service.ID

	slot.Available = isAvailable(l)
	slot.ServiceID = &id
	slot.BookedGuests = &guests
	slot.Capacity = &capacity
	slot.Load = &pct
	return slot
}

// dedupe keeps one slot per time label, in first-seen order. A later slot
// replaces an earlier one only with a strictly greater discount.
func dedupe(slots []model.Slot) []model.Slot {
	out := make([]model.Slot, 0, len(slots))
	index := make(map[string]int, len(slots))
	for _, s := range slots {
		i, seen := index[s.Time]
		if !seen {
			index[s.Time] = len(out)
			out = append(out, s)
			continue
		}
		if s.Discount > out[i].Discount {
			out[i] = s
		}
	}
	return out
}
