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

func boolPtr(v bool) *bool {
	return &v
}

func orderStatus(t *testing.T, db *gorm.DB, id string) string {
	t.Helper()
	var order entity.Order
	require.NoError(t, db.Select("id", "status").First(&order, "id = ?", id).Error)
	return order.Status
}

func TestQAApprove_PDIMovesOrderToReadyForDispatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewInspectionService(db, repository.NewRepositories(db).Inspection, nil)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusQualityCheck)
	insp := seedPDI(t, db, "order-001", entity.ResultPass, false)

	// 驳回不触发订单流转
	got, err := svc.QAApprove(ctx, insp.ID, &QAApprovalRequest{Approved: boolPtr(false), Remarks: "weld spatter"}, testActor)
	require.NoError(t, err)
	assert.False(t, got.IsQAApproved)
	assert.Equal(t, entity.OrderStatusQualityCheck, orderStatus(t, db, "order-001"))

	got, err = svc.QAApprove(ctx, insp.ID, &QAApprovalRequest{Approved: boolPtr(true), Remarks: "reworked"}, testActor)
	require.NoError(t, err)
	assert.True(t, got.IsQAApproved)
	assert.NotNil(t, got.QAApprovedAt)
	assert.Contains(t, got.QARemarks, "QA Approval: reworked")

	assert.Equal(t, entity.OrderStatusReadyForDispatch, orderStatus(t, db, "order-001"))
	var history []entity.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", "order-001").Find(&history).Error)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].PreviousStatus)
	assert.Equal(t, entity.OrderStatusQualityCheck, *history[0].PreviousStatus)
	assert.Equal(t, entity.OrderStatusReadyForDispatch, history[0].NewStatus)
}

func TestQAApprove_NoCascadeOutsideQualityCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewInspectionService(db, repository.NewRepositories(db).Inspection, nil)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusInProduction)
	testutil.SeedOrder(t, db, "order-002", "cust-001", entity.OrderStatusQualityCheck)
	pdi := seedPDI(t, db, "order-001", entity.ResultPass, false)

	_, err := svc.QAApprove(ctx, pdi.ID, &QAApprovalRequest{Approved: boolPtr(true)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusInProduction, orderStatus(t, db, "order-001"))

	// 非 PDI 阶段的审批不改变订单状态
	final := &entity.InspectionType{ID: "it-final", Name: "Final", Code: "FIN", Stage: entity.StageFinal, IsActive: true}
	require.NoError(t, db.Create(final).Error)
	insp, err := svc.Create(ctx, &InspectionRequest{
		OrderID:           strPtr("order-002"),
		InspectionTypeID:  strPtr(final.ID),
		InspectedQuantity: intPtr(10),
		PassedQuantity:    intPtr(10),
		Result:            strPtr(entity.ResultPass),
	}, testActor)
	require.NoError(t, err)
	_, err = svc.QAApprove(ctx, insp.ID, &QAApprovalRequest{Approved: boolPtr(true)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusQualityCheck, orderStatus(t, db, "order-002"))

	assert.Equal(t, int64(0), countRows(t, db, &entity.OrderStatusHistory{}, "order_id IN ?", []string{"order-001", "order-002"}))

	_, err = svc.QAApprove(ctx, insp.ID, &QAApprovalRequest{}, testActor)
	assert.ErrorIs(t, err, ErrValidation)
}
