package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationStatus_CanTransition(t *testing.T) {
	all := []ApplicationStatus{ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn}

	for _, from := range all {
		for _, to := range all {
			want := from == ApplicationPending && to != ApplicationPending
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestApplicationStatus_IsTerminal(t *testing.T) {
	assert.False(t, ApplicationPending.IsTerminal())
	assert.True(t, ApplicationAccepted.IsTerminal())
	assert.True(t, ApplicationRejected.IsTerminal())
	assert.True(t, ApplicationWithdrawn.IsTerminal())
	assert.False(t, ApplicationStatus("archived").Valid())
}

func TestApplicationStatus_IsExpertResponse(t *testing.T) {
	assert.True(t, ApplicationAccepted.IsExpertResponse())
	assert.True(t, ApplicationRejected.IsExpertResponse())
	assert.False(t, ApplicationWithdrawn.IsExpertResponse())
	assert.False(t, ApplicationPending.IsExpertResponse())
}

func TestApplication_SummaryHidesPrivateFields(t *testing.T) {
	price := 150.0
	app := &Application{
		ID:            7,
		ClientID:      3,
		Client:        &User{ID: 3, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "hash"},
		Message:       "I can deliver this within two weeks.",
		ProposedPrice: &price,
		CreatedAt:     time.Now(),
	}

	raw, err := json.Marshal(app.Summary())
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, `"first_name":"Ada"`)
	assert.NotContains(t, body, "ada@example.com")
	assert.NotContains(t, body, "hash")
}

func TestApplication_ViewCarriesPublicProfiles(t *testing.T) {
	app := &Application{
		ID:     1,
		Client: &User{ID: 2, FirstName: "Cli", Email: "client@example.com"},
		Expert: &User{ID: 4, FirstName: "Exp", Email: "expert@example.com"},
		Status: ApplicationPending,
	}

	raw, err := json.Marshal(app.View())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "pending", decoded["status"])
	assert.Equal(t, "Cli", decoded["client"].(map[string]any)["first_name"])
	assert.Equal(t, "Exp", decoded["expert"].(map[string]any)["first_name"])
	assert.NotContains(t, string(raw), "@example.com")
}
