// Package routing maps request paths to the plan they require.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"marketplace/internal/catalog"
	"marketplace/internal/model"
)

type route struct {
	prefix string
	plan   model.PlanID
}

// PlanRoutes is a static prefix table. The longest matching prefix wins and
// a prefix only matches on a path segment boundary.
type PlanRoutes struct {
	routes []route
}

// NewPlanRoutes builds the table from prefix->plan pairs, rejecting plans
// the catalog does not know.
func NewPlanRoutes(table map[string]string, plans *catalog.Catalog) (*PlanRoutes, error) {
	pr := &PlanRoutes{routes: make([]route, 0, len(table))}
	for prefix, plan := range table {
		prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
		id := model.PlanID(strings.TrimSpace(plan))
		if !plans.Has(id) {
			return nil, fmt.Errorf("route %s: %w: %q", prefix, catalog.ErrUnknownPlan, plan)
		}
		pr.routes = append(pr.routes, route{prefix: prefix, plan: id})
	}
	sort.Slice(pr.routes, func(i, j int) bool {
		if len(pr.routes[i].prefix) != len(pr.routes[j].prefix) {
			return len(pr.routes[i].prefix) > len(pr.routes[j].prefix)
		}
		return pr.routes[i].prefix < pr.routes[j].prefix
	})
	return pr, nil
}

// RequiredPlan returns the plan guarding path, if any.
func (pr *PlanRoutes) RequiredPlan(path string) (model.PlanID, bool) {
	for _, r := range pr.routes {
		if matches(r.prefix, path) {
			return r.plan, true
		}
	}
	return "", false
}

// Prefixes lists the configured prefixes, longest first.
func (pr *PlanRoutes) Prefixes() []string {
	out := make([]string, len(pr.routes))
	for i, r := range pr.routes {
		out[i] = r.prefix
	}
	return out
}

func matches(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
