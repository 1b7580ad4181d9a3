package routing

import (
	"testing"

	"marketplace/internal/catalog"
	"marketplace/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredPlan(t *testing.T) {
	pr, err := NewPlanRoutes(map[string]string{
		"/dashboard/supplier":         "supplier",
		"/dashboard/trader":           "trader",
		"/dashboard/supplier/public/": "free",
	}, catalog.Default())
	require.NoError(t, err)

	tests := []struct {
		path  string
		plan  model.PlanID
		found bool
	}{
		{"/dashboard/supplier", model.PlanSupplier, true},
		{"/dashboard/supplier/orders/42", model.PlanSupplier, true},
		{"/dashboard/trader/", model.PlanTrader, true},
		{"/dashboard/supplier/public/faq", model.PlanFree, true},
		{"/dashboard/suppliers", "", false},
		{"/dashboard", "", false},
		{"/pricing", "", false},
	}
	for _, tt := range tests {
		plan, found := pr.RequiredPlan(tt.path)
		assert.Equal(t, tt.found, found, tt.path)
		assert.Equal(t, tt.plan, plan, tt.path)
	}

	assert.Equal(t, "/dashboard/supplier/public", pr.Prefixes()[0])
}

func TestNewPlanRoutesRejectsUnknownPlan(t *testing.T) {
	_, err := NewPlanRoutes(map[string]string{"/vip": "platinum"}, catalog.Default())
	assert.ErrorIs(t, err, catalog.ErrUnknownPlan)
}

func TestEmptyTableGuardsNothing(t *testing.T) {
	pr, err := NewPlanRoutes(nil, catalog.Default())
	require.NoError(t, err)

	_, found := pr.RequiredPlan("/dashboard/supplier")
	assert.False(t, found)
}
