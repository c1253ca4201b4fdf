package repository

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// InspectionRepository 检验仓库
type InspectionRepository struct {
	db    *gorm.DB
	Types *MasterRepository[entity.InspectionType]
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{
		db:    db,
		Types: NewMasterRepository[entity.InspectionType](db, "name ASC", []string{"name", "code"}, []string{"stage"}),
	}
}

const inspectionDefaultOrder = "inspection_date DESC NULLS LAST, created_at DESC"

// FindAll 查询检验列表
// filters: order_id, inspection_type_id, result, is_qa_approved, stage, start_date, end_date
func (r *InspectionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderInspection, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.OrderInspection{})
	query = eqFilters(query, filters, "order_id", "inspection_type_id", "result", "inspected_by")
	query = boolFilter(query, "is_qa_approved", filters["is_qa_approved"])
	if v := filters["stage"]; v != "" {
		query = query.Where("inspection_type_id IN (?)",
			r.db.Model(&entity.InspectionType{}).Select("id").Where("stage = ?", v))
	}
	if v := filters["start_date"]; v != "" {
		query = query.Where("inspection_date >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("inspection_date <= ?", v)
	}
	query = applySearch(query, filters["search"], "defects_found", "remarks")
	return paginate[entity.OrderInspection](query, page, pageSize,
		ordering(filters["ordering"], []string{"inspection_date", "created_at", "result"}, inspectionDefaultOrder), "InspectionType")
}

func (r *InspectionRepository) FindByID(ctx context.Context, id string) (*entity.OrderInspection, error) {
	return findByID[entity.OrderInspection](ctx, r.db, id, "InspectionType")
}

func (r *InspectionRepository) ByOrder(ctx context.Context, orderID string) ([]entity.OrderInspection, error) {
	var items []entity.OrderInspection
	err := r.db.WithContext(ctx).
		Preload("InspectionType").
		Where("order_id = ?", orderID).
		Order(inspectionDefaultOrder).
		Find(&items).Error
	return items, err
}

// PendingApproval 结果合格/有条件合格但未 QA 审批
func (r *InspectionRepository) PendingApproval(ctx context.Context) ([]entity.OrderInspection, error) {
	return r.byResults(ctx, []string{entity.ResultPass, entity.ResultConditional}, "is_qa_approved = ?", false)
}

// Failed 不合格/返工
func (r *InspectionRepository) Failed(ctx context.Context) ([]entity.OrderInspection, error) {
	return r.byResults(ctx, []string{entity.ResultFail, entity.ResultRework}, "")
}

func (r *InspectionRepository) byResults(ctx context.Context, results []string, extra string, args ...interface{}) ([]entity.OrderInspection, error) {
	var items []entity.OrderInspection
	query := r.db.WithContext(ctx).
		Preload("InspectionType").Preload("Order").
		Where("result IN ?", results)
	if extra != "" {
		query = query.Where(extra, args...)
	}
	err := query.Order(inspectionDefaultOrder).Find(&items).Error
	return items, err
}

// LatestPDI 订单最近一次 PDI 检验，inspection_date 倒序，空值在后
func LatestPDI(ctx context.Context, db *gorm.DB, orderID string) (*entity.OrderInspection, error) {
	var insp entity.OrderInspection
	err := db.WithContext(ctx).
		Joins("JOIN inspection_types it ON it.id = inspection_orders.inspection_type_id").
		Where("inspection_orders.order_id = ? AND it.stage = ?", orderID, entity.StagePDI).
		Order("inspection_orders.inspection_date DESC NULLS LAST, inspection_orders.created_at DESC").
		First(&insp).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &insp, nil
}

// DispatchBlocked 质检中且没有已审批合格 PDI 的订单
func (r *InspectionRepository) DispatchBlocked(ctx context.Context) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("status = ?", entity.OrderStatusQualityCheck).
		Where(`NOT EXISTS (
			SELECT 1 FROM inspection_orders i
			JOIN inspection_types it ON it.id = i.inspection_type_id
			WHERE i.order_id = crm_orders.id AND it.stage = ? AND i.is_qa_approved = ? AND i.result = ?)`,
			entity.StagePDI, true, entity.ResultPass).
		Order("expected_delivery_date ASC NULLS LAST").
		Find(&orders).Error
	return orders, err
}

// QualityMetrics 质量指标
type QualityMetrics struct {
	TotalInspected int64   `json:"total_inspected"`
	TotalPassed    int64   `json:"total_passed"`
	TotalFailed    int64   `json:"total_failed"`
	TotalRework    int64   `json:"total_rework"`
	AvgPassRate    float64 `json:"avg_pass_rate"`
}

// ResultCount 结果分布
type ResultCount struct {
	Result string `json:"result"`
	Count  int64  `json:"count"`
}

func (r *InspectionRepository) QualityMetrics(ctx context.Context, startDate, endDate string) (*QualityMetrics, []ResultCount, error) {
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&entity.OrderInspection{})
		if startDate != "" {
			q = q.Where("inspection_date >= ?", startDate)
		}
		if endDate != "" {
			q = q.Where("inspection_date <= ?", endDate)
		}
		return q
	}

	var m QualityMetrics
	err := scope().Select(`
		COALESCE(SUM(inspected_quantity), 0) AS total_inspected,
		COALESCE(SUM(passed_quantity), 0) AS total_passed,
		COALESCE(SUM(failed_quantity), 0) AS total_failed,
		COALESCE(SUM(rework_quantity), 0) AS total_rework,
		COALESCE(ROUND(SUM(passed_quantity) * 100.0 / NULLIF(SUM(inspected_quantity), 0), 2), 0) AS avg_pass_rate`).
		Scan(&m).Error
	if err != nil {
		return nil, nil, err
	}

	var dist []ResultCount
	err = scope().Select("result, COUNT(*) AS count").Group("result").Order("result").Scan(&dist).Error
	if err != nil {
		return nil, nil, err
	}
	return &m, dist, nil
}

// Checklist 检验清单
func (r *InspectionRepository) Checklist(ctx context.Context, inspectionID string) ([]entity.InspectionChecklistItem, error) {
	var items []entity.InspectionChecklistItem
	err := r.db.WithContext(ctx).
		Where("order_inspection_id = ?", inspectionID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *InspectionRepository) CreateChecklistItems(ctx context.Context, items []entity.InspectionChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
