package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = Actor{UserID: "test-user-001", Email: "admin@test.com", Name: "Test Admin", Role: entity.RoleAdmin}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestIssue_PartialThenInsufficientRequirement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewMaterialService(db, repository.NewRepositories(db).Material)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusConfirmed)
	testutil.SeedMaterial(t, db, "mat-001", "MS-2MM", 500)

	om, err := svc.CreateOrderMaterial(ctx, &OrderMaterialRequest{
		OrderID:          strPtr("order-001"),
		MaterialID:       strPtr("mat-001"),
		RequiredQuantity: decPtr(200),
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderMaterialPlanned, om.Status)

	om, err = svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(150)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderMaterialPartiallyIssued, om.Status)
	assert.True(t, om.IssuedQuantity.Equal(dec(150)))
	assert.True(t, om.PendingQuantity.Equal(dec(50)))

	m, err := svc.Get(ctx, "mat-001")
	require.NoError(t, err)
	assert.True(t, m.StockQuantity.Equal(dec(350)), "stock = %s", m.StockQuantity)

	_, err = svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(60)}, testActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Cannot issue more than required quantity.", err.Error())

	// 失败的发料不改变任何状态
	m, err = svc.Get(ctx, "mat-001")
	require.NoError(t, err)
	assert.True(t, m.StockQuantity.Equal(dec(350)))
	om, err = svc.GetOrderMaterial(ctx, om.ID)
	require.NoError(t, err)
	assert.True(t, om.IssuedQuantity.Equal(dec(150)))

	txs, err := svc.Transactions(ctx, "mat-001")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entity.TransactionIssue, txs[0].TransactionType)
	assert.True(t, txs[0].StockBefore.Equal(dec(500)))
	assert.True(t, txs[0].StockAfter.Equal(dec(350)))

	// 剩余 50 全部发出
	om, err = svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(50)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderMaterialFullyIssued, om.Status)
}

func TestIssue_InsufficientStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewMaterialService(db, repository.NewRepositories(db).Material)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusConfirmed)
	testutil.SeedMaterial(t, db, "mat-001", "SS-304", 40)

	om, err := svc.CreateOrderMaterial(ctx, &OrderMaterialRequest{
		OrderID:          strPtr("order-001"),
		MaterialID:       strPtr("mat-001"),
		RequiredQuantity: decPtr(100),
	}, testActor)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(50)}, testActor)
	require.Error(t, err)
	assert.Equal(t, "Insufficient stock available.", err.Error())

	_, err = svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(0)}, testActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAdjustStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewMaterialService(db, repository.NewRepositories(db).Material)
	testutil.SeedMaterial(t, db, "mat-001", "AL-6061", 100)

	m, err := svc.AdjustStock(ctx, "mat-001", &StockAdjustmentRequest{Quantity: dec(25), TransactionType: entity.TransactionReceipt}, testActor)
	require.NoError(t, err)
	assert.True(t, m.StockQuantity.Equal(dec(125)))

	_, err = svc.AdjustStock(ctx, "mat-001", &StockAdjustmentRequest{Quantity: dec(500), TransactionType: entity.TransactionScrap}, testActor)
	require.Error(t, err)
	assert.Equal(t, "Scrap quantity cannot exceed current stock.", err.Error())

	m, err = svc.AdjustStock(ctx, "mat-001", &StockAdjustmentRequest{Quantity: dec(80), TransactionType: entity.TransactionAdjustment}, testActor)
	require.NoError(t, err)
	assert.True(t, m.StockQuantity.Equal(dec(80)))

	_, err = svc.AdjustStock(ctx, "mat-001", &StockAdjustmentRequest{Quantity: dec(1), TransactionType: entity.TransactionIssue}, testActor)
	require.Error(t, err)

	_, err = svc.AdjustStock(ctx, "missing", &StockAdjustmentRequest{Quantity: dec(1), TransactionType: entity.TransactionReceipt}, testActor)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	// 库存变动记在流水中，物料主数据不进入审计
	txs, err := svc.Transactions(ctx, "mat-001")
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, int64(0), countRows(t, db, &entity.AuditLog{}, "entity_id = ?", "mat-001"))
}

func TestUpdateOrderMaterial_StatusFollowsIssued(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewMaterialService(db, repository.NewRepositories(db).Material)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusConfirmed)
	testutil.SeedMaterial(t, db, "mat-001", "MS-2MM", 500)

	om, err := svc.CreateOrderMaterial(ctx, &OrderMaterialRequest{
		OrderID:          strPtr("order-001"),
		MaterialID:       strPtr("mat-001"),
		RequiredQuantity: decPtr(150),
	}, testActor)
	require.NoError(t, err)

	om, err = svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(150)}, testActor)
	require.NoError(t, err)
	require.Equal(t, entity.OrderMaterialFullyIssued, om.Status)

	// 需求量上调：状态随已发/需求比重新计算
	om, err = svc.UpdateOrderMaterial(ctx, om.ID, &OrderMaterialRequest{RequiredQuantity: decPtr(300)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderMaterialPartiallyIssued, om.Status)
	assert.True(t, om.PendingQuantity.Equal(dec(150)))

	_, err = svc.UpdateOrderMaterial(ctx, om.ID, &OrderMaterialRequest{RequiredQuantity: decPtr(100)}, testActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	om, err = svc.GetOrderMaterial(ctx, om.ID)
	require.NoError(t, err)
	assert.True(t, om.RequiredQuantity.Equal(dec(300)))
	assert.Equal(t, entity.OrderMaterialPartiallyIssued, om.Status)
}

func TestIssue_ConcurrentRequestsSerialize(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewMaterialService(db, repository.NewRepositories(db).Material)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusConfirmed)
	testutil.SeedMaterial(t, db, "mat-001", "MS-2MM", 100)

	om, err := svc.CreateOrderMaterial(ctx, &OrderMaterialRequest{
		OrderID:          strPtr("order-001"),
		MaterialID:       strPtr("mat-001"),
		RequiredQuantity: decPtr(200),
	}, testActor)
	require.NoError(t, err)

	// 10 个并发请求各发 15，库存 100 只够 6 次
	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Issue(ctx, om.ID, &IssueRequest{Quantity: dec(15)}, testActor)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			succeeded++
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	for _, err := range failures {
		assert.Equal(t, "Insufficient stock available.", err.Error())
	}

	m, err := svc.Get(ctx, "mat-001")
	require.NoError(t, err)
	assert.False(t, m.StockQuantity.IsNegative())
	assert.True(t, m.StockQuantity.Equal(dec(10)), "stock = %s", m.StockQuantity)

	om, err = svc.GetOrderMaterial(ctx, om.ID)
	require.NoError(t, err)
	assert.True(t, om.IssuedQuantity.Equal(dec(90)), "issued = %s", om.IssuedQuantity)
	assert.True(t, om.IssuedQuantity.LessThanOrEqual(om.RequiredQuantity))

	txs, err := svc.Transactions(ctx, "mat-001")
	require.NoError(t, err)
	assert.Len(t, txs, 6)
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
