package repository

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// FabricationRepository 加工工序仓库
type FabricationRepository struct {
	db        *gorm.DB
	Processes *MasterRepository[entity.FabricationProcess]
}

func NewFabricationRepository(db *gorm.DB) *FabricationRepository {
	return &FabricationRepository{
		db:        db,
		Processes: NewMasterRepository[entity.FabricationProcess](db, "sequence_order ASC, name ASC", []string{"name", "code"}, []string{"category"}),
	}
}

// FindAll 查询订单工序
// filters: order_id, process_id, status, operator_id
func (r *FabricationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderFabrication, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.OrderFabrication{})
	query = eqFilters(query, filters, "order_id", "process_id", "status", "operator_id")
	return paginate[entity.OrderFabrication](query, page, pageSize,
		ordering(filters["ordering"], []string{"created_at", "planned_start_date", "planned_end_date", "status"}, "created_at DESC"), "Process")
}

func (r *FabricationRepository) FindByID(ctx context.Context, id string) (*entity.OrderFabrication, error) {
	return findByID[entity.OrderFabrication](ctx, r.db, id, "Process")
}

// ByOrder 订单工序，按工序顺序
func (r *FabricationRepository) ByOrder(ctx context.Context, orderID string) ([]entity.OrderFabrication, error) {
	var items []entity.OrderFabrication
	err := r.db.WithContext(ctx).
		Preload("Process").
		Joins("JOIN fabrication_processes p ON p.id = fabrication_order_processes.process_id").
		Where("fabrication_order_processes.order_id = ?", orderID).
		Order("p.sequence_order ASC").
		Find(&items).Error
	return items, err
}

func (r *FabricationRepository) ByStatus(ctx context.Context, status string) ([]entity.OrderFabrication, error) {
	var items []entity.OrderFabrication
	err := r.db.WithContext(ctx).
		Preload("Process").Preload("Order").
		Where("status = ?", status).
		Order("started_at ASC").
		Find(&items).Error
	return items, err
}

// Delayed 计划结束日期已过且未完成/跳过
func (r *FabricationRepository) Delayed(ctx context.Context) ([]entity.OrderFabrication, error) {
	var items []entity.OrderFabrication
	err := r.db.WithContext(ctx).
		Preload("Process").Preload("Order").
		Where("planned_end_date < ?", entity.Today()).
		Where("status NOT IN ?", []string{entity.FabricationCompleted, entity.FabricationSkipped}).
		Order("planned_end_date ASC").
		Find(&items).Error
	return items, err
}

// FindLogs 工序日志
func (r *FabricationRepository) FindLogs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.FabricationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.FabricationLog{})
	query = eqFilters(query, filters, "order_fabrication_id", "logged_by", "new_status")
	return paginate[entity.FabricationLog](query, page, pageSize, "created_at DESC")
}
