package availability

import (
	"context"

	"restoboost/internal/model"
)

// plan is one generation unit: a window walked in fixed steps with a flat discount.
// service is nil for plans derived directly from restaurant rules; those carry
// no capacity and are always available.
type plan struct {
	service  *model.Service
	rule     *model.DiscountRule
	window   Window
	step     int
	discount int
	capacity int
}

// loadPlans builds the generation plans for a restaurant on date. hours is the
// resolved operating window, used where a service or rule leaves its own window empty.
func (e *Engine) loadPlans(ctx context.Context, res *Result, restaurantID int64, date string, hours Window) []plan {
	services, err := e.source.ActiveServices(ctx, restaurantID)
	if err != nil {
		e.degrade(res, "active services", err)
		services = nil
	}
	if len(services) == 0 {
		return e.rulePlans(ctx, res, restaurantID, date, hours)
	}
	return e.servicePlans(ctx, res, restaurantID, date, hours, services)
}

// rulePlans covers restaurants without services: every valid restaurant rule
// is its own hourly window.
func (e *Engine) rulePlans(ctx context.Context, res *Result, restaurantID int64, date string, hours Window) []plan {
	rules, err := e.source.RulesForRestaurant(ctx, restaurantID, date)
	if err != nil {
		e.degrade(res, "restaurant rules", err)
		return nil
	}

	plans := make([]plan, 0, len(rules))
	for i := range rules {
		rule := &rules[i]
		w, err := parseWindow(rule.TimeStart, rule.TimeEnd, hours)
		if err != nil {
			e.logger.Warn().Err(err).Int64("rule_id", rule.ID).Msg("skipping rule with malformed window")
			continue
		}
		plans = append(plans, plan{
			rule:     rule,
			window:   w,
			step:     model.DefaultSlotStepMinutes,
			discount: rule.Discount,
		})
	}
	return plans
}

// servicePlans resolves discount, window and capacity for each active service.
// A service takes its first service-scoped rule, else the first rule of the
// restaurant, else no discount. A found rule's window replaces the service's.
func (e *Engine) servicePlans(ctx context.Context, res *Result, restaurantID int64, date string, hours Window, services []model.Service) []plan {
	ids := make([]model.ID, len(services))
	for i, s := range services {
		ids[i] = s.ID
	}

	capacities, err := e.source.DefaultCapacities(ctx, ids)
	if err != nil {
		e.degrade(res, "service capacity", err)
		capacities = nil
	}

	scoped, err := e.source.RulesForServices(ctx, ids, date)
	if err != nil {
		e.degrade(res, "service rules", err)
		scoped = nil
	}
	firstScoped := make(map[model.ID]*model.DiscountRule, len(scoped))
	for i := range scoped {
		r := &scoped[i]
		if r.ServiceID == nil {
			continue
		}
		if _, seen := firstScoped[*r.ServiceID]; !seen {
			firstScoped[*r.ServiceID] = r
		}
	}

	var restaurantWide *model.DiscountRule
	restaurantLoaded := false

	plans := make([]plan, 0, len(services))
	for i := range services {
		svc := &services[i]
		rule := firstScoped[svc.ID]
		if rule == nil {
			if !restaurantLoaded {
				restaurantWide = e.firstRestaurantRule(ctx, res, restaurantID, date)
				restaurantLoaded = true
			}
			rule = restaurantWide
		}

		p := plan{service: svc, rule: rule, step: svc.Step()}
		if c, ok := capacities[svc.ID]; ok {
			p.capacity = c.Seats()
		} else {
			p.capacity = model.DefaultCapacitySeats
		}

		if rule != nil {
			p.discount = rule.Discount
			p.window, err = parseWindow(rule.TimeStart, rule.TimeEnd, hours)
		} else {
			p.window, err = parseWindow(svc.StartTime, svc.EndTime, hours)
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("service_id", svc.ID.String()).Msg("skipping service with malformed window")
			continue
		}
		plans = append(plans, p)
	}
	return plans
}

func (e *Engine) firstRestaurantRule(ctx context.Context, res *Result, restaurantID int64, date string) *model.DiscountRule {
	rules, err := e.source.RulesForRestaurant(ctx, restaurantID, date)
	if err != nil {
		e.degrade(res, "restaurant rules", err)
		return nil
	}
	if len(rules) == 0 {
		return nil
	}
	return &rules[0]
}
