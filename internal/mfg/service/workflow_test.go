package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionOrder(t *testing.T) {
	assert.True(t, CanTransitionOrder(entity.OrderStatusDraft, entity.OrderStatusConfirmed))
	assert.True(t, CanTransitionOrder(entity.OrderStatusConfirmed, entity.OrderStatusConfirmed))
	assert.True(t, CanTransitionOrder(entity.OrderStatusDispatched, entity.OrderStatusCompleted))
	assert.False(t, CanTransitionOrder(entity.OrderStatusDraft, entity.OrderStatusDispatched))
	assert.False(t, CanTransitionOrder(entity.OrderStatusCompleted, entity.OrderStatusDraft))
	assert.False(t, CanTransitionOrder(entity.OrderStatusCancelled, entity.OrderStatusConfirmed))
}

func TestOrderGate(t *testing.T) {
	lenient := OrderGate{}
	require.NoError(t, lenient.Check(entity.OrderStatusDraft, entity.OrderStatusCompleted))

	err := lenient.Check(entity.OrderStatusDraft, "shipped")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, `"shipped" is not a valid choice.`, err.Error())

	strict := OrderGate{Strict: true}
	require.NoError(t, strict.Check(entity.OrderStatusDraft, entity.OrderStatusConfirmed))
	err = strict.Check(entity.OrderStatusDraft, entity.OrderStatusCompleted)
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Msg, "Cannot change order status")
}

func TestDecideAccess(t *testing.T) {
	tests := []struct {
		role, level, method string
		want                bool
	}{
		{entity.RoleAdmin, "", http.MethodDelete, true},
		{entity.RoleManagement, entity.AccessFull, http.MethodGet, true},
		{entity.RoleManagement, entity.AccessFull, http.MethodPost, false},
		{entity.RoleSales, entity.AccessRead, http.MethodGet, true},
		{entity.RoleSales, entity.AccessRead, http.MethodHead, true},
		{entity.RoleSales, entity.AccessRead, http.MethodPost, false},
		{entity.RoleSales, entity.AccessRead, http.MethodPut, false},
		{entity.RoleProduction, entity.AccessWrite, http.MethodPost, true},
		{entity.RoleQuality, entity.AccessFull, http.MethodDelete, true},
		{entity.RoleQuality, entity.AccessNone, http.MethodGet, false},
		{entity.RoleLogistics, "", http.MethodGet, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.level+"/"+tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideAccess(tt.role, tt.level, tt.method))
		})
	}
}

// sales 对 inspection 模块只读
func TestDefaultMatrix_SalesInspection(t *testing.T) {
	var level string
	for _, p := range entity.DefaultRolePermissions() {
		if p.Role == entity.RoleSales && p.Module == entity.ModuleInspection {
			level = p.AccessLevel
		}
	}
	require.Equal(t, entity.AccessRead, level)
	assert.True(t, DecideAccess(entity.RoleSales, level, http.MethodGet))
	assert.False(t, DecideAccess(entity.RoleSales, level, http.MethodPost))
}

func TestActor(t *testing.T) {
	assert.Nil(t, Actor{}.ID())
	a := Actor{UserID: "u1", Email: "a@b.c", Role: entity.RoleAdmin}
	require.NotNil(t, a.ID())
	assert.Equal(t, "u1", *a.ID())
	assert.Equal(t, "a@b.c", a.DisplayName())
	assert.True(t, a.IsAdmin())
	assert.Equal(t, "Ann", Actor{Name: "Ann", Email: "a@b.c"}.DisplayName())
}
