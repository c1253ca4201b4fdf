package service

import (
	"context"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardViews(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repos := repository.NewRepositories(db)
	svc := NewDashboardService(db, repos)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusInProduction)
	testutil.SeedOrder(t, db, "order-002", "cust-001", entity.OrderStatusCompleted)

	// 预计交期已过的在制订单
	past := entity.Today().AddDays(-5)
	require.NoError(t, db.Model(&entity.Order{}).Where("id = ?", "order-001").
		Update("expected_delivery_date", past).Error)

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.Orders.Total)
	assert.Equal(t, int64(1), overview.Orders.Active)
	assert.Equal(t, int64(1), overview.Orders.Delayed)
	assert.Equal(t, int64(1), overview.Customers.Total)
	assert.NotEmpty(t, overview.StatusDistribution)

	delayed, err := svc.DelayedOrders(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, delayed.Count)
	assert.Equal(t, "order-001", delayed.Orders[0].ID)
	assert.Equal(t, "Acme Fabricators", delayed.Orders[0].CompanyName)
	assert.Equal(t, 5, delayed.Orders[0].DaysDelayed)

	active, err := svc.OrderTracking(ctx, "")
	require.NoError(t, err)
	require.IsType(t, &ActiveOrders{}, active)
	assert.Len(t, active.(*ActiveOrders).ActiveOrders, 1)

	tracking, err := svc.OrderTracking(ctx, "order-001")
	require.NoError(t, err)
	require.IsType(t, &OrderTracking{}, tracking)
	assert.Equal(t, "order-001", tracking.(*OrderTracking).Order.ID)
	assert.Nil(t, tracking.(*OrderTracking).Dispatch)

	_, err = svc.OrderTracking(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	weekly, err := svc.WeeklyProduction(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, weekly.Weeks)

	_, err = svc.DepartmentPerformance(ctx)
	require.NoError(t, err)
	_, err = svc.CustomerSummary(ctx)
	require.NoError(t, err)
	_, err = svc.MonthlyTrends(ctx, 3)
	require.NoError(t, err)
	_, err = svc.ProductionAnalytics(ctx, 7)
	require.NoError(t, err)
}

func TestReportExports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repos := repository.NewRepositories(db)
	report := NewReportService(repos.Order, repos.Material, NewDashboardService(db, repos))

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusConfirmed)
	testutil.SeedMaterial(t, db, "mat-001", "MS-2MM", 500)

	f, name, err := report.ExportOrders(ctx, map[string]string{})
	require.NoError(t, err)
	assert.Regexp(t, `^orders_.*\.xlsx$`, name)
	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "QT-order-001", rows[1][0])
	assert.Equal(t, "Acme Fabricators", rows[1][3])

	f, _, err = report.ExportMaterials(ctx, map[string]string{})
	require.NoError(t, err)
	sheets := f.GetSheetList()
	require.NotEmpty(t, sheets)
	rows, err = f.GetRows(sheets[0])
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	f, _, err = report.ExportOverview(ctx)
	require.NoError(t, err)
	assert.Contains(t, f.GetSheetList(), "Status Distribution")
}
