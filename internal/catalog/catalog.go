// Package catalog holds the fixed set of subscribable plans.
package catalog

import (
	"errors"
	"fmt"

	"marketplace/internal/model"
)

// ErrUnknownPlan is returned for plan ids outside the catalog. Callers are
// expected to validate ids first, so seeing it means a programming error.
var ErrUnknownPlan = errors.New("unknown plan")

// Catalog is an immutable, ordered registry of plans.
type Catalog struct {
	plans []model.Plan
	byID  map[model.PlanID]model.Plan
}

// New builds a catalog, rejecting duplicate ids, negative prices, and a
// trialable free plan.
func New(plans ...model.Plan) (*Catalog, error) {
	c := &Catalog{
		plans: make([]model.Plan, 0, len(plans)),
		byID:  make(map[model.PlanID]model.Plan, len(plans)),
	}
	for _, p := range plans {
		if p.ID == "" {
			return nil, errors.New("plan id is required")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan %q", p.ID)
		}
		if p.PricePerMonth < 0 {
			return nil, fmt.Errorf("plan %q has negative price", p.ID)
		}
		if p.TrialDays < 0 {
			return nil, fmt.Errorf("plan %q has negative trial days", p.ID)
		}
		if p.ID == model.PlanFree && p.TrialDays != 0 {
			return nil, fmt.Errorf("plan %q cannot offer a trial", p.ID)
		}
		p.Features = append([]string(nil), p.Features...)
		c.plans = append(c.plans, p)
		c.byID[p.ID] = p
	}
	if _, ok := c.byID[model.PlanFree]; !ok {
		return nil, fmt.Errorf("catalog must contain the %q plan", model.PlanFree)
	}
	return c, nil
}

// Default returns the marketplace's deploy-time catalog.
func Default() *Catalog {
	c, err := New(
		model.Plan{
			ID:            model.PlanFree,
			Name:          "Free",
			PricePerMonth: 0,
			Features:      []string{"Browse the marketplace catalog", "Contact stores"},
		},
		model.Plan{
			ID:            model.PlanSupplier,
			Name:          "Supplier",
			PricePerMonth: 29,
			TrialDays:     1,
			Features:      []string{"Own storefront", "Unlimited product listings", "Order dashboard"},
		},
		model.Plan{
			ID:            model.PlanTrader,
			Name:          "Trader",
			PricePerMonth: 49,
			TrialDays:     1,
			Features:      []string{"Bulk sourcing requests", "Supplier directory", "Trade dashboard"},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// ListPlans returns every plan in catalog order.
func (c *Catalog) ListPlans() []model.Plan {
	out := make([]model.Plan, len(c.plans))
	for i, p := range c.plans {
		p.Features = append([]string(nil), p.Features...)
		out[i] = p
	}
	return out
}

// GetPlan resolves a plan by id.
func (c *Catalog) GetPlan(id model.PlanID) (model.Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return model.Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
	}
	p.Features = append([]string(nil), p.Features...)
	return p, nil
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id model.PlanID) bool {
	_, ok := c.byID[id]
	return ok
}
