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

func intPtr(v int) *int {
	return &v
}

func seedProcess(t *testing.T, db *gorm.DB, id, code string) *entity.FabricationProcess {
	t.Helper()
	p := &entity.FabricationProcess{ID: id, Name: "Process " + code, Code: code, Category: "cutting", SequenceOrder: 1, IsActive: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedTreatmentType(t *testing.T, db *gorm.DB, id, code string) *entity.TreatmentType {
	t.Helper()
	tt := &entity.TreatmentType{ID: id, Name: "Treatment " + code, Code: code, IsActive: true}
	require.NoError(t, db.Create(tt).Error)
	return tt
}

func TestFabrication_StartCompleteGates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewFabricationService(db, repository.NewRepositories(db).Fabrication)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusInProduction)
	seedProcess(t, db, "proc-cut", "CUT")

	f, err := svc.Create(ctx, &FabricationRequest{
		OrderID:         strPtr("order-001"),
		ProcessID:       strPtr("proc-cut"),
		PlannedQuantity: intPtr(10),
	}, testActor)
	require.NoError(t, err)
	require.Equal(t, entity.FabricationNotStarted, f.Status)

	_, err = svc.Complete(ctx, f.ID, &CompleteRequest{}, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Process must be In Progress to complete.", err.Error())

	f, err = svc.Start(ctx, f.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.FabricationInProgress, f.Status)
	assert.NotNil(t, f.ActualStartDate)
	assert.NotNil(t, f.StartedAt)

	_, err = svc.Start(ctx, f.ID, testActor)
	require.Error(t, err)
	assert.Equal(t, "Process can only be started from Not Started or Pending status.", err.Error())

	// 完成数量缺省为计划数量
	f, err = svc.Complete(ctx, f.ID, &CompleteRequest{Notes: "all parts cut"}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.FabricationCompleted, f.Status)
	assert.Equal(t, 10, f.CompletedQuantity)
	assert.NotNil(t, f.ActualEndDate)
	assert.NotNil(t, f.CompletedAt)

	// 被拒绝的动作不写工序日志
	var logs []entity.FabricationLog
	require.NoError(t, db.Where("order_fabrication_id = ?", f.ID).Order("created_at").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, entity.FabricationNotStarted, logs[0].PreviousStatus)
	assert.Equal(t, entity.FabricationInProgress, logs[0].NewStatus)
	assert.Equal(t, entity.FabricationCompleted, logs[1].NewStatus)
	assert.Equal(t, 10, logs[1].QuantityCompleted)
}

func TestFabrication_StartFromPendingAndHold(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewFabricationService(db, repository.NewRepositories(db).Fabrication)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusInProduction)
	seedProcess(t, db, "proc-weld", "WELD")

	f, err := svc.Create(ctx, &FabricationRequest{
		OrderID:         strPtr("order-001"),
		ProcessID:       strPtr("proc-weld"),
		Status:          strPtr(entity.FabricationPending),
		PlannedQuantity: intPtr(4),
	}, testActor)
	require.NoError(t, err)

	f, err = svc.Hold(ctx, f.ID, &NotesRequest{Notes: "waiting for filler wire"}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.FabricationOnHold, f.Status)
	assert.Contains(t, f.Remarks, "On Hold: waiting for filler wire")

	// on_hold 不能直接开始
	_, err = svc.Start(ctx, f.ID, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	f, err = svc.Update(ctx, f.ID, &FabricationRequest{Status: strPtr(entity.FabricationPending)}, testActor)
	require.NoError(t, err)
	f, err = svc.Start(ctx, f.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.FabricationInProgress, f.Status)

	f, err = svc.Complete(ctx, f.ID, &CompleteRequest{CompletedQuantity: intPtr(3)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, 3, f.CompletedQuantity)
}

func TestSurfaceTreatment_StartCompleteGates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewSurfaceTreatmentService(db, repository.NewRepositories(db).SurfaceTreatment)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusInProduction)
	testutil.SeedOrder(t, db, "order-002", "cust-001", entity.OrderStatusInProduction)
	seedTreatmentType(t, db, "tt-pc", "PC")

	st, err := svc.Create(ctx, &TreatmentRequest{
		OrderID:         strPtr("order-001"),
		TreatmentTypeID: strPtr("tt-pc"),
		PlannedQuantity: intPtr(20),
	}, testActor)
	require.NoError(t, err)
	require.Equal(t, entity.TreatmentPending, st.Status)

	_, err = svc.Complete(ctx, st.ID, &CompleteRequest{}, testActor)
	require.Error(t, err)
	assert.Equal(t, "Treatment must be In Progress to complete.", err.Error())

	st, err = svc.Start(ctx, st.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.TreatmentInProgress, st.Status)
	assert.NotNil(t, st.StartedAt)

	_, err = svc.Start(ctx, st.ID, testActor)
	require.Error(t, err)
	assert.Equal(t, "Treatment can only be started from Pending status.", err.Error())

	// 完成数量缺省为计划数量，报废单独记录
	st, err = svc.Complete(ctx, st.ID, &CompleteRequest{RejectedQuantity: intPtr(2)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.TreatmentCompleted, st.Status)
	assert.Equal(t, 20, st.CompletedQuantity)
	assert.Equal(t, 2, st.RejectedQuantity)
	assert.NotNil(t, st.CompletedAt)

	_, err = svc.Complete(ctx, st.ID, &CompleteRequest{CompletedQuantity: intPtr(-1)}, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	notRequired, err := svc.Create(ctx, &TreatmentRequest{
		OrderID:         strPtr("order-002"),
		TreatmentTypeID: strPtr("tt-pc"),
		Status:          strPtr(entity.TreatmentNotRequired),
		PlannedQuantity: intPtr(5),
	}, testActor)
	require.NoError(t, err)
	_, err = svc.Start(ctx, notRequired.ID, testActor)
	assert.ErrorIs(t, err, ErrValidation)
}
