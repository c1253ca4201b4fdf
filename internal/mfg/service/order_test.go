package service

import (
	"context"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestOrderCreate_InitialHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewOrderService(db, repository.NewRepositories(db).Order, OrderGate{}, nil)
	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")

	qty := 4
	price := dec(250)
	order, err := svc.Create(ctx, &CreateOrderRequest{
		CustomerID:      "cust-001",
		ProjectName:     "Conveyor frame",
		OrderedQuantity: &qty,
		UnitPrice:       &price,
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusDraft, order.Status)
	assert.Regexp(t, `^QT-\d{4}-\d{4}$`, order.QuoteNumber)
	assert.True(t, order.TotalAmount.Equal(dec(1000)), "total = %s", order.TotalAmount)

	history, err := svc.StatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)
	assert.Equal(t, entity.OrderStatusDraft, history[0].NewStatus)

	_, err = svc.Create(ctx, &CreateOrderRequest{CustomerID: "missing", ProjectName: "x"}, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderUpdateStatus_HistoryAndAudit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewOrderService(db, repository.NewRepositories(db).Order, OrderGate{}, nil)
	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusDraft)

	order, err := svc.UpdateStatus(ctx, "order-001", &StatusUpdateRequest{Status: entity.OrderStatusConfirmed}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, order.Status)

	history, err := svc.StatusHistory(ctx, "order-001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].PreviousStatus)
	assert.Equal(t, entity.OrderStatusDraft, *history[0].PreviousStatus)
	assert.Equal(t, entity.OrderStatusConfirmed, history[0].NewStatus)
	assert.Equal(t, "Test Admin", history[0].ChangedByName)

	audits := countRows(t, db, &entity.AuditLog{}, "entity_type = ? AND entity_id = ?", AuditEntityOrder, "order-001")
	assert.Equal(t, int64(1), audits)

	// 同状态再次提交：不写历史、不写审计
	_, err = svc.UpdateStatus(ctx, "order-001", &StatusUpdateRequest{Status: entity.OrderStatusConfirmed}, testActor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, db, &entity.OrderStatusHistory{}, "order_id = ?", "order-001"))
	assert.Equal(t, audits, countRows(t, db, &entity.AuditLog{}, "entity_type = ? AND entity_id = ?", AuditEntityOrder, "order-001"))

	_, err = svc.UpdateStatus(ctx, "order-001", &StatusUpdateRequest{Status: "bogus"}, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, "missing", &StatusUpdateRequest{Status: entity.OrderStatusConfirmed}, testActor)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderUpdateStatus_StrictGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewOrderService(db, repository.NewRepositories(db).Order, OrderGate{Strict: true}, nil)
	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusDraft)

	_, err := svc.UpdateStatus(ctx, "order-001", &StatusUpdateRequest{Status: entity.OrderStatusCompleted}, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int64(0), countRows(t, db, &entity.OrderStatusHistory{}, "order_id = ?", "order-001"))
}
