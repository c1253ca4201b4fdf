package service

import (
	"context"
	"errors"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"gorm.io/gorm"
)

// 已结束订单（不计入活跃）
var closedOrderStatuses = []string{entity.OrderStatusCompleted, entity.OrderStatusCancelled}

// DashboardService 看板统计，只读
type DashboardService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewDashboardService(db *gorm.DB, repos *repository.Repositories) *DashboardService {
	return &DashboardService{db: db, repos: repos}
}

// OrderCounts 订单统计
type OrderCounts struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	ThisMonth int64 `json:"this_month"`
	Delayed   int64 `json:"delayed"`
}

// CustomerCounts 客户统计
type CustomerCounts struct {
	Total        int64 `json:"total"`
	NewThisMonth int64 `json:"new_this_month"`
}

// ProductionTotals 产量合计
type ProductionTotals struct {
	TotalProduced  int64   `json:"total_produced"`
	TotalOK        int64   `json:"total_ok"`
	TotalRework    int64   `json:"total_rework"`
	TotalRejection int64   `json:"total_rejection"`
	AvgYield       float64 `json:"avg_yield"`
}

// Overview 总览
type Overview struct {
	Orders             OrderCounts              `json:"orders"`
	Customers          CustomerCounts           `json:"customers"`
	Production         ProductionTotals         `json:"production"`
	StatusDistribution []repository.StatusCount `json:"status_distribution"`
	Revenue30Days      float64                  `json:"revenue_30_days"`
}

func monthStart(today entity.Date) time.Time {
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	today := entity.Today()
	since30 := today.AddDays(-30)
	out := &Overview{}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&out.Orders.Total, db.Model(&entity.Order{})},
		{&out.Orders.Active, db.Model(&entity.Order{}).Where("status NOT IN ?", closedOrderStatuses)},
		{&out.Orders.ThisMonth, db.Model(&entity.Order{}).Where("created_at >= ?", monthStart(today))},
		{&out.Orders.Delayed, db.Model(&entity.Order{}).
			Where("expected_delivery_date < ?", today).
			Where("status NOT IN ?", []string{entity.OrderStatusCompleted, entity.OrderStatusCancelled, entity.OrderStatusDispatched})},
		{&out.Customers.Total, db.Model(&entity.Customer{}).Where("is_active = ?", true)},
		{&out.Customers.NewThisMonth, db.Model(&entity.Customer{}).Where("created_at >= ?", monthStart(today))},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := s.productionTotals(db.Where("production_date >= ?", since30), &out.Production); err != nil {
		return nil, err
	}

	dist, err := s.repos.Order.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out.StatusDistribution = dist

	err = db.Model(&entity.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ? AND actual_delivery_date >= ?", entity.OrderStatusCompleted, since30).
		Scan(&out.Revenue30Days).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) productionTotals(scope *gorm.DB, out *ProductionTotals) error {
	return scope.Model(&entity.ProductionRecord{}).
		Select(`COALESCE(SUM(produced_quantity), 0) AS total_produced,
			COALESCE(SUM(ok_quantity), 0) AS total_ok,
			COALESCE(SUM(rework_quantity), 0) AS total_rework,
			COALESCE(SUM(rejection_quantity), 0) AS total_rejection,
			ROUND(COALESCE(AVG(total_yield_percentage), 0), 2) AS avg_yield`).
		Scan(out).Error
}

// OrderTracking 单个订单的全流程状态
type OrderTracking struct {
	Order             *entity.Order                  `json:"order"`
	Materials         []entity.OrderMaterial         `json:"materials"`
	Fabrications      []entity.OrderFabrication      `json:"fabrications"`
	SurfaceTreatments []entity.OrderSurfaceTreatment `json:"surface_treatments"`
	Inspections       []entity.OrderInspection       `json:"inspections"`
	Dispatch          *entity.OrderDispatch          `json:"dispatch"`
}

// ActiveOrders 未结束订单
type ActiveOrders struct {
	ActiveOrders []entity.Order `json:"active_orders"`
}

// OrderTracking orderID 为空时返回所有未结束订单
func (s *DashboardService) OrderTracking(ctx context.Context, orderID string) (interface{}, error) {
	if orderID == "" {
		var orders []entity.Order
		err := s.db.WithContext(ctx).
			Where("status NOT IN ?", closedOrderStatuses).
			Order("expected_delivery_date ASC NULLS LAST").
			Find(&orders).Error
		if err != nil {
			return nil, err
		}
		return &ActiveOrders{ActiveOrders: orders}, nil
	}

	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := &OrderTracking{Order: order}
	if out.Materials, err = s.repos.Material.OrderMaterialsByOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if out.Fabrications, err = s.repos.Fabrication.ByOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if out.SurfaceTreatments, err = s.repos.SurfaceTreatment.ByOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if out.Inspections, err = s.repos.Inspection.ByOrder(ctx, orderID); err != nil {
		return nil, err
	}
	d, err := s.repos.Dispatch.ByOrder(ctx, orderID)
	switch {
	case err == nil:
		out.Dispatch = d
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return out, nil
}

// DelayedOrder 延期订单
type DelayedOrder struct {
	ID                   string      `json:"id"`
	QuoteNumber          string      `json:"quote_number"`
	ProjectName          string      `json:"project_name"`
	CompanyName          string      `json:"customer_company_name"`
	Status               string      `json:"status"`
	Priority             string      `json:"priority"`
	ExpectedDeliveryDate entity.Date `json:"expected_delivery_date"`
	DaysDelayed          int         `json:"days_delayed"`
}

// DelayedOrders 延期订单列表
type DelayedOrders struct {
	Count  int            `json:"count"`
	Orders []DelayedOrder `json:"orders"`
}

func (s *DashboardService) DelayedOrders(ctx context.Context) (*DelayedOrders, error) {
	orders, err := s.repos.Order.FindDelayed(ctx)
	if err != nil {
		return nil, err
	}
	today := entity.Today()
	out := &DelayedOrders{Orders: make([]DelayedOrder, 0, len(orders))}
	for _, o := range orders {
		row := DelayedOrder{
			ID:          o.ID,
			QuoteNumber: o.QuoteNumber,
			ProjectName: o.ProjectName,
			Status:      o.Status,
			Priority:    o.Priority,
		}
		if o.Customer != nil {
			row.CompanyName = o.Customer.CompanyName
		}
		if o.ExpectedDeliveryDate != nil {
			row.ExpectedDeliveryDate = *o.ExpectedDeliveryDate
			row.DaysDelayed = o.ExpectedDeliveryDate.DaysUntil(today)
		}
		out.Orders = append(out.Orders, row)
	}
	out.Count = len(out.Orders)
	return out, nil
}

// OrderRejection 按订单的报废合计
type OrderRejection struct {
	QuoteNumber    string `json:"quote_number"`
	ProjectName    string `json:"project_name"`
	TotalRejection int64  `json:"total_rejection"`
}

// ProductionAnalytics 生产分析
type ProductionAnalytics struct {
	PeriodDays        int                     `json:"period_days"`
	DailyTrends       []repository.DailyYield `json:"daily_trends"`
	Overall           ProductionOverall       `json:"overall_statistics"`
	TopRejectionOrder []OrderRejection        `json:"top_rejections_by_order"`
}

// ProductionOverall 区间合计
type ProductionOverall struct {
	ProductionTotals
	AvgOKPercentage        float64 `json:"avg_ok_percentage"`
	AvgRejectionPercentage float64 `json:"avg_rejection_percentage"`
}

func (s *DashboardService) ProductionAnalytics(ctx context.Context, days int) (*ProductionAnalytics, error) {
	if days <= 0 {
		days = 30
	}
	start := entity.Today().AddDays(-days)
	out := &ProductionAnalytics{PeriodDays: days}

	trends, err := s.repos.Production.YieldAnalysis(ctx, start.String(), "")
	if err != nil {
		return nil, err
	}
	out.DailyTrends = trends

	db := s.db.WithContext(ctx)
	err = db.Model(&entity.ProductionRecord{}).
		Select(`COALESCE(SUM(produced_quantity), 0) AS total_produced,
			COALESCE(SUM(ok_quantity), 0) AS total_ok,
			COALESCE(SUM(rework_quantity), 0) AS total_rework,
			COALESCE(SUM(rejection_quantity), 0) AS total_rejection,
			ROUND(COALESCE(AVG(total_yield_percentage), 0), 2) AS avg_yield,
			ROUND(COALESCE(AVG(ok_percentage), 0), 2) AS avg_ok_percentage,
			ROUND(COALESCE(AVG(rejection_percentage), 0), 2) AS avg_rejection_percentage`).
		Where("production_date >= ?", start).
		Scan(&out.Overall).Error
	if err != nil {
		return nil, err
	}

	err = db.Table(entity.ProductionRecord{}.TableName()+" pr").
		Select("o.quote_number, o.project_name, SUM(pr.rejection_quantity) AS total_rejection").
		Joins("JOIN crm_orders o ON o.id = pr.order_id").
		Where("pr.production_date >= ? AND pr.rejection_quantity > 0", start).
		Group("o.quote_number, o.project_name").
		Order("total_rejection DESC").
		Limit(10).
		Scan(&out.TopRejectionOrder).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessPerformance 工序表现
type ProcessPerformance struct {
	ProcessName   string  `json:"process_name"`
	TotalOrders   int64   `json:"total_orders"`
	Completed     int64   `json:"completed"`
	InProgress    int64   `json:"in_progress"`
	AvgCompletion float64 `json:"avg_completion"`
}

// InspectionPerformance 检验表现
type InspectionPerformance struct {
	TotalInspections int64   `json:"total_inspections"`
	Passed           int64   `json:"passed"`
	Failed           int64   `json:"failed"`
	PendingApproval  int64   `json:"pending_approval"`
	AvgPassRate      float64 `json:"avg_pass_rate"`
}

// LogisticsPerformance 物流表现
type LogisticsPerformance struct {
	TotalDispatches int64 `json:"total_dispatches"`
	Dispatched      int64 `json:"dispatched"`
	Delivered       int64 `json:"delivered"`
	Pending         int64 `json:"pending"`
	Delayed         int64 `json:"delayed"`
}

// DepartmentPerformance 部门表现（近 30 天）
type DepartmentPerformance struct {
	Fabrication []ProcessPerformance  `json:"fabrication"`
	Inspection  InspectionPerformance `json:"inspection"`
	Logistics   LogisticsPerformance  `json:"logistics"`
}

func (s *DashboardService) DepartmentPerformance(ctx context.Context) (*DepartmentPerformance, error) {
	db := s.db.WithContext(ctx)
	today := entity.Today()
	since := today.AddDays(-30).Time
	out := &DepartmentPerformance{}

	err := db.Table("fabrication_order_processes f").
		Select(`p.name AS process_name,
			COUNT(f.id) AS total_orders,
			COUNT(f.id) FILTER (WHERE f.status = ?) AS completed,
			COUNT(f.id) FILTER (WHERE f.status = ?) AS in_progress,
			ROUND(COALESCE(AVG(f.completed_quantity * 100.0 / f.planned_quantity) FILTER (WHERE f.planned_quantity > 0), 0), 2) AS avg_completion`,
			entity.FabricationCompleted, entity.FabricationInProgress).
		Joins("JOIN fabrication_processes p ON p.id = f.process_id").
		Where("f.created_at >= ?", since).
		Group("p.name").
		Order("p.name").
		Scan(&out.Fabrication).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&entity.OrderInspection{}).
		Select(`COUNT(id) AS total_inspections,
			COUNT(id) FILTER (WHERE result = ?) AS passed,
			COUNT(id) FILTER (WHERE result = ?) AS failed,
			COUNT(id) FILTER (WHERE is_qa_approved = false) AS pending_approval,
			ROUND(COALESCE(AVG(passed_quantity * 100.0 / inspected_quantity) FILTER (WHERE inspected_quantity > 0), 0), 2) AS avg_pass_rate`,
			entity.ResultPass, entity.ResultFail).
		Where("created_at >= ?", since).
		Scan(&out.Inspection).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&entity.OrderDispatch{}).
		Select(`COUNT(id) AS total_dispatches,
			COUNT(id) FILTER (WHERE status = ?) AS dispatched,
			COUNT(id) FILTER (WHERE status = ?) AS delivered,
			COUNT(id) FILTER (WHERE status IN ?) AS pending,
			COUNT(id) FILTER (WHERE planned_dispatch_date < ? AND status NOT IN ?) AS delayed`,
			entity.DispatchDispatched, entity.DispatchDelivered, entity.DispatchAwaitingStatuses,
			today, entity.DispatchShippedStatuses).
		Where("created_at >= ?", since).
		Scan(&out.Logistics).Error
	if err != nil {
		return nil, err
	}
	if out.Fabrication == nil {
		out.Fabrication = []ProcessPerformance{}
	}
	return out, nil
}

// CustomerValue 客户订单金额
type CustomerValue struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TotalOrders  int64   `json:"total_orders"`
	TotalValue   float64 `json:"total_value"`
	ActiveOrders int64   `json:"active_orders"`
}

// TypeCount 客户类型分布
type TypeCount struct {
	CustomerType string `json:"customer_type"`
	Count        int64  `json:"count"`
}

// CustomerSummary 客户汇总
type CustomerSummary struct {
	TopCustomers     []CustomerValue `json:"top_customers"`
	TypeDistribution []TypeCount     `json:"type_distribution"`
}

func (s *DashboardService) CustomerSummary(ctx context.Context) (*CustomerSummary, error) {
	db := s.db.WithContext(ctx)
	out := &CustomerSummary{TopCustomers: []CustomerValue{}, TypeDistribution: []TypeCount{}}

	err := db.Table("crm_customers c").
		Select(`c.id, c.company_name AS name,
			COUNT(o.id) AS total_orders,
			COALESCE(SUM(o.total_amount), 0) AS total_value,
			COUNT(o.id) FILTER (WHERE o.status NOT IN ?) AS active_orders`, closedOrderStatuses).
		Joins("JOIN crm_orders o ON o.customer_id = c.id").
		Group("c.id, c.company_name").
		Order("total_value DESC").
		Limit(10).
		Scan(&out.TopCustomers).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&entity.Customer{}).
		Select("customer_type, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("customer_type").
		Order("customer_type").
		Scan(&out.TypeDistribution).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyOrders 月度订单
type MonthlyOrders struct {
	Month       time.Time `json:"month"`
	TotalOrders int64     `json:"total_orders"`
	TotalValue  float64   `json:"total_value"`
	Completed   int64     `json:"completed"`
	Cancelled   int64     `json:"cancelled"`
}

// MonthlyProduction 月度产量
type MonthlyProduction struct {
	Month          time.Time `json:"month"`
	TotalProduced  int64     `json:"total_produced"`
	TotalOK        int64     `json:"total_ok"`
	TotalRejection int64     `json:"total_rejection"`
	AvgYield       float64   `json:"avg_yield"`
}

// MonthlyDispatch 月度发运
type MonthlyDispatch struct {
	Month           time.Time `json:"month"`
	TotalDispatched int64     `json:"total_dispatched"`
	TotalDelivered  int64     `json:"total_delivered"`
}

// MonthlyTrends 月度趋势
type MonthlyTrends struct {
	Orders     []MonthlyOrders     `json:"orders"`
	Production []MonthlyProduction `json:"production"`
	Dispatch   []MonthlyDispatch   `json:"dispatch"`
}

func (s *DashboardService) MonthlyTrends(ctx context.Context, months int) (*MonthlyTrends, error) {
	if months <= 0 {
		months = 12
	}
	db := s.db.WithContext(ctx)
	start := entity.Today().AddDays(-months * 30)
	out := &MonthlyTrends{}

	err := db.Model(&entity.Order{}).
		Select(`date_trunc('month', created_at) AS month,
			COUNT(id) AS total_orders,
			COALESCE(SUM(total_amount), 0) AS total_value,
			COUNT(id) FILTER (WHERE status = ?) AS completed,
			COUNT(id) FILTER (WHERE status = ?) AS cancelled`,
			entity.OrderStatusCompleted, entity.OrderStatusCancelled).
		Where("created_at >= ?", start.Time).
		Group("month").Order("month").
		Scan(&out.Orders).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&entity.ProductionRecord{}).
		Select(`date_trunc('month', production_date) AS month,
			COALESCE(SUM(produced_quantity), 0) AS total_produced,
			COALESCE(SUM(ok_quantity), 0) AS total_ok,
			COALESCE(SUM(rejection_quantity), 0) AS total_rejection,
			ROUND(COALESCE(AVG(total_yield_percentage), 0), 2) AS avg_yield`).
		Where("production_date >= ?", start).
		Group("month").Order("month").
		Scan(&out.Production).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&entity.OrderDispatch{}).
		Select(`date_trunc('month', created_at) AS month,
			COUNT(id) FILTER (WHERE status = ?) AS total_dispatched,
			COUNT(id) FILTER (WHERE status = ?) AS total_delivered`,
			entity.DispatchDispatched, entity.DispatchDelivered).
		Where("created_at >= ?", start.Time).
		Group("month").Order("month").
		Scan(&out.Dispatch).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WeeklyRow 周产量
type WeeklyRow struct {
	Week time.Time `json:"week"`
	ProductionTotals
	RecordCount int64 `json:"record_count"`
}

// WeeklyProduction 周产量汇总
type WeeklyProduction struct {
	Weeks int         `json:"weeks"`
	Data  []WeeklyRow `json:"data"`
}

func (s *DashboardService) WeeklyProduction(ctx context.Context, weeks int) (*WeeklyProduction, error) {
	if weeks <= 0 {
		weeks = 8
	}
	start := entity.Today().AddDays(-weeks * 7)
	out := &WeeklyProduction{Weeks: weeks, Data: []WeeklyRow{}}
	err := s.db.WithContext(ctx).Model(&entity.ProductionRecord{}).
		Select(`date_trunc('week', production_date) AS week,
			COALESCE(SUM(produced_quantity), 0) AS total_produced,
			COALESCE(SUM(ok_quantity), 0) AS total_ok,
			COALESCE(SUM(rework_quantity), 0) AS total_rework,
			COALESCE(SUM(rejection_quantity), 0) AS total_rejection,
			ROUND(COALESCE(AVG(total_yield_percentage), 0), 2) AS avg_yield,
			COUNT(id) AS record_count`).
		Where("production_date >= ?", start).
		Group("week").Order("week").
		Scan(&out.Data).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
