package repository

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// SurfaceTreatmentRepository 表面处理仓库
type SurfaceTreatmentRepository struct {
	db    *gorm.DB
	Types *MasterRepository[entity.TreatmentType]
}

func NewSurfaceTreatmentRepository(db *gorm.DB) *SurfaceTreatmentRepository {
	return &SurfaceTreatmentRepository{
		db:    db,
		Types: NewMasterRepository[entity.TreatmentType](db, "name ASC", []string{"name", "code"}, nil),
	}
}

// FindAll 查询订单表面处理
// filters: order_id, treatment_type_id, status, is_outsourced
func (r *SurfaceTreatmentRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderSurfaceTreatment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.OrderSurfaceTreatment{})
	query = eqFilters(query, filters, "order_id", "treatment_type_id", "status")
	query = boolFilter(query, "is_outsourced", filters["is_outsourced"])
	query = applySearch(query, filters["search"], "vendor_name", "vendor_batch_number", "color")
	return paginate[entity.OrderSurfaceTreatment](query, page, pageSize,
		ordering(filters["ordering"], []string{"created_at", "status", "started_at"}, "created_at DESC"), "TreatmentType")
}

func (r *SurfaceTreatmentRepository) FindByID(ctx context.Context, id string) (*entity.OrderSurfaceTreatment, error) {
	return findByID[entity.OrderSurfaceTreatment](ctx, r.db, id, "TreatmentType")
}

func (r *SurfaceTreatmentRepository) ByOrder(ctx context.Context, orderID string) ([]entity.OrderSurfaceTreatment, error) {
	var items []entity.OrderSurfaceTreatment
	err := r.db.WithContext(ctx).
		Preload("TreatmentType").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// Pending 待处理
func (r *SurfaceTreatmentRepository) Pending(ctx context.Context) ([]entity.OrderSurfaceTreatment, error) {
	var items []entity.OrderSurfaceTreatment
	err := r.db.WithContext(ctx).
		Preload("TreatmentType").Preload("Order").
		Where("status = ?", entity.TreatmentPending).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
