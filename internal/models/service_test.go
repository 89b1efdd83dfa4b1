package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricing_Validate(t *testing.T) {
	amount := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		pricing Pricing
		field   string
	}{
		{"fixed with amount", Pricing{Type: PricingFixed, Amount: amount(100)}, ""},
		{"hourly with zero amount", Pricing{Type: PricingHourly, Amount: amount(0)}, ""},
		{"negotiable without amount", Pricing{Type: PricingNegotiable}, ""},
		{"fixed without amount", Pricing{Type: PricingFixed}, "pricing.amount"},
		{"hourly without amount", Pricing{Type: PricingHourly}, "pricing.amount"},
		{"negative amount", Pricing{Type: PricingNegotiable, Amount: amount(-1)}, "pricing.amount"},
		{"unknown type", Pricing{Type: "barter", Amount: amount(1)}, "pricing.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pricing.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := err.(*AppError)
			require.True(t, ok)
			assert.Equal(t, CodeValidation, appErr.Code)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestPricing_Normalize(t *testing.T) {
	p := Pricing{Currency: " eur "}
	p.Normalize()
	assert.Equal(t, PricingFixed, p.Type)
	assert.Equal(t, "EUR", p.Currency)

	empty := Pricing{Type: PricingHourly}
	empty.Normalize()
	assert.Equal(t, "USD", empty.Currency)
}

func TestServiceCategory_Valid(t *testing.T) {
	assert.True(t, CategoryWebDevelopment.Valid())
	assert.True(t, ServiceCategory("tutoring").Valid())
	assert.False(t, ServiceCategory("Web Development").Valid())
	assert.False(t, ServiceCategory("").Valid())
}

func TestServiceDetail_JSONShape(t *testing.T) {
	svc := &Service{
		ID:       9,
		ExpertID: 4,
		Expert:   &User{ID: 4, FirstName: "Grace", Email: "grace@example.com"},
		Title:    "Build a landing page",
		Status:   ServiceStatusActive,
	}
	detail := ServiceDetail{ServiceView: svc.View(), PendingApplications: []ApplicationSummary{}}

	raw, err := json.Marshal(detail)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Build a landing page", decoded["title"])
	assert.Equal(t, "Grace", decoded["expert"].(map[string]any)["first_name"])
	assert.Equal(t, []any{}, decoded["pending_applications"])
	assert.NotContains(t, string(raw), "grace@example.com")
	assert.True(t, svc.OwnedBy(4))
	assert.False(t, svc.OwnedBy(5))
}
