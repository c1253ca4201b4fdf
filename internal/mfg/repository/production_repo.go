package repository

import (
	"context"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// ProductionRepository 生产记录仓库
type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// FindAll 查询生产记录
// filters: order_id, production_date, shift, recorded_by, start_date, end_date
func (r *ProductionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionRecord{})
	query = eqFilters(query, filters, "order_id", "production_date", "shift", "recorded_by")
	if v := filters["start_date"]; v != "" {
		query = query.Where("production_date >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("production_date <= ?", v)
	}
	query = applySearch(query, filters["search"], "remarks", "rejection_reasons")
	return paginate[entity.ProductionRecord](query, page, pageSize,
		ordering(filters["ordering"], []string{"production_date", "created_at", "total_yield_percentage"}, "production_date DESC, created_at DESC"))
}

func (r *ProductionRepository) FindByID(ctx context.Context, id string) (*entity.ProductionRecord, error) {
	return findByID[entity.ProductionRecord](ctx, r.db, id)
}

func (r *ProductionRepository) ByOrder(ctx context.Context, orderID string) ([]entity.ProductionRecord, error) {
	var items []entity.ProductionRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("production_date DESC, created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *ProductionRepository) ByDate(ctx context.Context, date entity.Date) ([]entity.ProductionRecord, error) {
	var items []entity.ProductionRecord
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("production_date = ?", date).
		Order("shift ASC").
		Find(&items).Error
	return items, err
}

// ProductionTotals 产量合计
type ProductionTotals struct {
	TotalProduced  int64   `json:"total_produced"`
	TotalOK        int64   `json:"total_ok"`
	TotalRework    int64   `json:"total_rework"`
	TotalRejection int64   `json:"total_rejection"`
	AvgYield       float64 `json:"avg_yield"`
}

// DailyYield 按日产量与平均良率
type DailyYield struct {
	ProductionDate time.Time `json:"production_date"`
	ProductionTotals
}

// YieldAnalysis 区间内按日汇总
func (r *ProductionRepository) YieldAnalysis(ctx context.Context, startDate, endDate string) ([]DailyYield, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionRecord{}).
		Select(`production_date,
			COALESCE(SUM(produced_quantity), 0) AS total_produced,
			COALESCE(SUM(ok_quantity), 0) AS total_ok,
			COALESCE(SUM(rework_quantity), 0) AS total_rework,
			COALESCE(SUM(rejection_quantity), 0) AS total_rejection,
			ROUND(COALESCE(AVG(total_yield_percentage), 0), 2) AS avg_yield`)
	if startDate != "" {
		query = query.Where("production_date >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("production_date <= ?", endDate)
	}
	var rows []DailyYield
	err := query.Group("production_date").Order("production_date").Scan(&rows).Error
	return rows, err
}

// FindSummaries 查询生产汇总
func (r *ProductionRepository) FindSummaries(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionSummary, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionSummary{})
	query = eqFilters(query, filters, "order_id")
	return paginate[entity.ProductionSummary](query, page, pageSize,
		ordering(filters["ordering"], []string{"completion_percentage", "overall_yield_percentage", "updated_at"}, "updated_at DESC"), "Order")
}

func (r *ProductionRepository) SummaryByOrder(ctx context.Context, orderID string) (*entity.ProductionSummary, error) {
	var s entity.ProductionSummary
	if err := r.db.WithContext(ctx).Preload("Order").Where("order_id = ?", orderID).First(&s).Error; err != nil {
		return nil, Translate(err)
	}
	return &s, nil
}

// LowYield 良率低于阈值且有产出的汇总
func (r *ProductionRepository) LowYield(ctx context.Context, threshold float64) ([]entity.ProductionSummary, error) {
	var items []entity.ProductionSummary
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("overall_yield_percentage < ? AND total_produced > 0", threshold).
		Order("overall_yield_percentage ASC").
		Find(&items).Error
	return items, err
}
