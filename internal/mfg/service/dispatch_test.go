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

func seedDispatch(t *testing.T, db *gorm.DB, id, orderID, status string) *entity.OrderDispatch {
	t.Helper()
	d := &entity.OrderDispatch{
		ID:             id,
		OrderID:        orderID,
		Status:         status,
		TransportMode:  "road",
		TransportScope: "door_delivery",
		TotalPackages:  2,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func seedPDI(t *testing.T, db *gorm.DB, orderID, result string, approved bool) *entity.OrderInspection {
	t.Helper()
	it := &entity.InspectionType{ID: "it-pdi", Name: "Pre-dispatch", Code: "PDI", Stage: entity.StagePDI, IsActive: true}
	require.NoError(t, db.FirstOrCreate(it, "id = ?", it.ID).Error)
	insp := &entity.OrderInspection{
		ID:                entity.NewID(),
		OrderID:           orderID,
		InspectionTypeID:  it.ID,
		InspectedQuantity: 10,
		PassedQuantity:    10,
		Result:            result,
		InspectionDate:    entity.DatePtr(entity.Today()),
		IsQAApproved:      approved,
	}
	require.NoError(t, db.Create(insp).Error)
	return insp
}

func newDispatchService(db *gorm.DB) *DispatchService {
	return NewDispatchService(db, repository.NewRepositories(db).Dispatch, nil, nil)
}

func TestDispatch_BlockedUntilPDIApproved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := newDispatchService(db)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusQualityCheck)
	seedDispatch(t, db, "disp-001", "order-001", entity.DispatchPacked)
	insp := seedPDI(t, db, "order-001", entity.ResultPass, false)

	_, err := svc.Dispatch(ctx, "disp-001", &DispatchRequest{}, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Cannot dispatch - QA approval pending.", err.Error())

	d, err := svc.Get(ctx, "disp-001")
	require.NoError(t, err)
	assert.Equal(t, entity.DispatchPacked, d.Status)
	assert.False(t, d.CanDispatch)

	require.NoError(t, db.Model(insp).Update("is_qa_approved", true).Error)

	vehicle := "KA-01-1234"
	d, err = svc.Dispatch(ctx, "disp-001", &DispatchRequest{VehicleNumber: &vehicle}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.DispatchDispatched, d.Status)
	assert.Equal(t, vehicle, d.VehicleNumber)
	assert.NotNil(t, d.ActualDispatchDate)

	var order entity.Order
	require.NoError(t, db.First(&order, "id = ?", "order-001").Error)
	assert.Equal(t, entity.OrderStatusDispatched, order.Status)
	assert.Equal(t, int64(1), countRows(t, db, &entity.OrderStatusHistory{}, "order_id = ? AND new_status = ?", "order-001", entity.OrderStatusDispatched))
}

func TestDispatch_FailedPDIBlocks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := newDispatchService(db)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusReadyForDispatch)
	seedDispatch(t, db, "disp-001", "order-001", entity.DispatchReady)
	seedPDI(t, db, "order-001", entity.ResultFail, true)

	_, err := svc.Dispatch(ctx, "disp-001", &DispatchRequest{}, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDispatch_WithoutPDIFollowsOrderStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := newDispatchService(db)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusInProduction)
	testutil.SeedOrder(t, db, "order-002", "cust-001", entity.OrderStatusReadyForDispatch)
	seedDispatch(t, db, "disp-001", "order-001", entity.DispatchPacked)
	seedDispatch(t, db, "disp-002", "order-002", entity.DispatchPacked)

	_, err := svc.Dispatch(ctx, "disp-001", &DispatchRequest{}, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	d, err := svc.Dispatch(ctx, "disp-002", &DispatchRequest{}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.DispatchDispatched, d.Status)
}

func TestDispatch_PackingFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := newDispatchService(db)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusReadyForDispatch)
	seedDispatch(t, db, "disp-001", "order-001", entity.DispatchPending)

	_, err := svc.MarkPacked(ctx, "disp-001", &DispatchRequest{}, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	d, err := svc.StartPacking(ctx, "disp-001", testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.DispatchPacking, d.Status)

	d, err = svc.MarkPacked(ctx, "disp-001", &DispatchRequest{}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.DispatchPacked, d.Status)

	d, err = svc.ReadyForDispatch(ctx, "disp-001", testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.DispatchReady, d.Status)

	_, err = svc.MarkDelivered(ctx, "disp-001", testActor)
	assert.ErrorIs(t, err, ErrValidation)
}
