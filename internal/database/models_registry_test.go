package database

import (
	"testing"

	"gigboard/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_ParentsFirst(t *testing.T) {
	registered := PersistentModels()
	require.Len(t, registered, 3)
	require.IsType(t, &models.User{}, registered[0])
	require.IsType(t, &models.Service{}, registered[1])
	require.IsType(t, &models.Application{}, registered[2])
}
