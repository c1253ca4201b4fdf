package repository

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// DispatchRepository 发运仓库
type DispatchRepository struct {
	db               *gorm.DB
	PackingStandards *MasterRepository[entity.PackingStandard]
}

func NewDispatchRepository(db *gorm.DB) *DispatchRepository {
	return &DispatchRepository{
		db:               db,
		PackingStandards: NewMasterRepository[entity.PackingStandard](db, "name ASC", []string{"name", "code"}, nil),
	}
}

// FindAll 查询发运列表
// filters: order_id, status, transport_mode, transport_scope, start_date, end_date
func (r *DispatchRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderDispatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.OrderDispatch{})
	query = eqFilters(query, filters, "order_id", "status", "transport_mode", "transport_scope")
	if v := filters["start_date"]; v != "" {
		query = query.Where("planned_dispatch_date >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("planned_dispatch_date <= ?", v)
	}
	query = applySearch(query, filters["search"], "tracking_number", "invoice_number", "e_way_bill_number", "transporter_name", "vehicle_number")
	return paginate[entity.OrderDispatch](query, page, pageSize,
		ordering(filters["ordering"], []string{"created_at", "planned_dispatch_date", "status"}, "created_at DESC"), "Order", "PackingStandard")
}

func (r *DispatchRepository) FindByID(ctx context.Context, id string) (*entity.OrderDispatch, error) {
	return findByID[entity.OrderDispatch](ctx, r.db, id, "Order", "PackingStandard")
}

func (r *DispatchRepository) ByOrder(ctx context.Context, orderID string) (*entity.OrderDispatch, error) {
	var d entity.OrderDispatch
	err := r.db.WithContext(ctx).
		Preload("Order").Preload("PackingStandard").
		Where("order_id = ?", orderID).
		First(&d).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &d, nil
}

func (r *DispatchRepository) ByStatuses(ctx context.Context, statuses []string) ([]entity.OrderDispatch, error) {
	var items []entity.OrderDispatch
	err := r.db.WithContext(ctx).
		Preload("Order").Preload("PackingStandard").
		Where("status IN ?", statuses).
		Order("planned_dispatch_date ASC NULLS LAST, created_at ASC").
		Find(&items).Error
	return items, err
}

// Delayed 计划发运日期已过仍未发出
func (r *DispatchRepository) Delayed(ctx context.Context) ([]entity.OrderDispatch, error) {
	var items []entity.OrderDispatch
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("planned_dispatch_date < ?", entity.Today()).
		Where("status NOT IN ?", entity.DispatchShippedStatuses).
		Order("planned_dispatch_date ASC").
		Find(&items).Error
	return items, err
}

func (r *DispatchRepository) Documents(ctx context.Context, dispatchID string) ([]entity.DispatchDocument, error) {
	var items []entity.DispatchDocument
	err := r.db.WithContext(ctx).
		Where("dispatch_id = ?", dispatchID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *DispatchRepository) FindDocument(ctx context.Context, id string) (*entity.DispatchDocument, error) {
	return findByID[entity.DispatchDocument](ctx, r.db, id)
}

func (r *DispatchRepository) CreateDocument(ctx context.Context, doc *entity.DispatchDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}
