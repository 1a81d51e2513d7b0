package availability

import (
	"context"
	"time"

	"restoboost/internal/model"
)

// Window is a [Start, End) time-of-day range.
type Window struct {
	Start model.TimeOfDay
	End   model.TimeOfDay
}

// DefaultWindow applies when a restaurant has no usable opening hours.
var DefaultWindow = Window{Start: model.MustTimeOfDay("10:00"), End: model.MustTimeOfDay("23:00")}

// parseWindow parses start/end, substituting fallback for empty values.
func parseWindow(start, end string, fallback Window) (Window, error) {
	w := fallback
	var err error
	if start != "" {
		if w.Start, err = model.ParseTimeOfDay(start); err != nil {
			return Window{}, err
		}
	}
	if end != "" {
		if w.End, err = model.ParseTimeOfDay(end); err != nil {
			return Window{}, err
		}
	}
	return w, nil
}

// resolveHours returns the operating window of the restaurant on day. Missing or
// unreadable hours are not an error: the default window is returned with
// explicit=false.
func (e *Engine) resolveHours(ctx context.Context, restaurantID int64, day time.Time) (w Window, explicit bool) {
	weekday := model.WeekdayIndex(day)
	hours, err := e.source.OpenHours(ctx, restaurantID, weekday)
	if err != nil {
		e.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Int("weekday", weekday).
			Msg("opening hours lookup failed, using default window")
		return DefaultWindow, false
	}
	if hours == nil {
		e.logger.Debug().Int64("restaurant_id", restaurantID).Int("weekday", weekday).Msg("no opening hours")
		return DefaultWindow, false
	}
	w, err = parseWindow(hours.OpenTime, hours.CloseTime, DefaultWindow)
	if err != nil {
		e.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("malformed opening hours, using default window")
		return DefaultWindow, false
	}
	return w, true
}
