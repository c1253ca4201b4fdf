package repository

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// MaterialRepository 材料仓库（类别、材料、订单物料、库存流水）
type MaterialRepository struct {
	db    *gorm.DB
	Types *MasterRepository[entity.MaterialType]
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{
		db:    db,
		Types: NewMasterRepository[entity.MaterialType](db, "name ASC", []string{"name", "description"}, nil),
	}
}

var materialOrdering = []string{"code", "name", "stock_quantity", "created_at", "unit_price"}

// FindAll 查询材料列表
// filters: material_type_id, unit, is_active, low_stock, search, ordering
func (r *MaterialRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Material, int64, error) {
	query := r.filtered(ctx, filters)
	return paginate[entity.Material](query, page, pageSize,
		ordering(filters["ordering"], materialOrdering, "code ASC"), "MaterialType")
}

// FindAllUnpaged 导出用
func (r *MaterialRepository) FindAllUnpaged(ctx context.Context, filters map[string]string, limit int) ([]entity.Material, error) {
	var items []entity.Material
	err := r.filtered(ctx, filters).Preload("MaterialType").
		Order(ordering(filters["ordering"], materialOrdering, "code ASC")).
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *MaterialRepository) filtered(ctx context.Context, filters map[string]string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.Material{})
	query = eqFilters(query, filters, "material_type_id", "unit", "grade")
	query = boolFilter(query, "is_active", filters["is_active"])
	if filters["low_stock"] == "true" {
		query = query.Where("stock_quantity <= minimum_stock")
	}
	return applySearch(query, filters["search"], "code", "name", "grade")
}

func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*entity.Material, error) {
	return findByID[entity.Material](ctx, r.db, id, "MaterialType")
}

func (r *MaterialRepository) FindByCode(ctx context.Context, code string) (*entity.Material, error) {
	var m entity.Material
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		return nil, Translate(err)
	}
	return &m, nil
}

// LowStock 低库存的启用材料
func (r *MaterialRepository) LowStock(ctx context.Context) ([]entity.Material, error) {
	var items []entity.Material
	err := r.db.WithContext(ctx).
		Preload("MaterialType").
		Where("is_active = ? AND stock_quantity <= minimum_stock", true).
		Order("code ASC").
		Find(&items).Error
	return items, err
}

// CountOrderUsage 引用该材料的订单物料数（删除保护）
func (r *MaterialRepository) CountOrderUsage(ctx context.Context, materialID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.OrderMaterial{}).Where("material_id = ?", materialID).Count(&n).Error
	return n, err
}

// RecentTransactions 材料最近 limit 条流水
func (r *MaterialRepository) RecentTransactions(ctx context.Context, materialID string, limit int) ([]entity.MaterialTransaction, error) {
	var items []entity.MaterialTransaction
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// FindTransactions 查询库存流水
// filters: material_id, order_id, transaction_type, start_date, end_date
func (r *MaterialRepository) FindTransactions(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.MaterialTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.MaterialTransaction{})
	query = eqFilters(query, filters, "material_id", "order_id", "transaction_type")
	if v := filters["start_date"]; v != "" {
		query = query.Where("created_at >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("created_at < (?::date + 1)", v)
	}
	query = applySearch(query, filters["search"], "reference_number", "notes")
	return paginate[entity.MaterialTransaction](query, page, pageSize, "created_at DESC", "Material")
}

// FindOrderMaterials 查询订单物料
// filters: order_id, material_id, status
func (r *MaterialRepository) FindOrderMaterials(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderMaterial, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.OrderMaterial{})
	query = eqFilters(query, filters, "order_id", "material_id", "status")
	return paginate[entity.OrderMaterial](query, page, pageSize,
		ordering(filters["ordering"], []string{"created_at", "status"}, "created_at DESC"), "Material")
}

func (r *MaterialRepository) FindOrderMaterial(ctx context.Context, id string) (*entity.OrderMaterial, error) {
	return findByID[entity.OrderMaterial](ctx, r.db, id, "Material")
}

// OrderMaterialsByOrder 订单全部物料
func (r *MaterialRepository) OrderMaterialsByOrder(ctx context.Context, orderID string) ([]entity.OrderMaterial, error) {
	var items []entity.OrderMaterial
	err := r.db.WithContext(ctx).
		Preload("Material").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// PendingIssues 待发料的订单物料
func (r *MaterialRepository) PendingIssues(ctx context.Context) ([]entity.OrderMaterial, error) {
	var items []entity.OrderMaterial
	err := r.db.WithContext(ctx).
		Preload("Material").
		Where("status IN ?", entity.PendingIssueStatuses).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *MaterialRepository) FindTransaction(ctx context.Context, id string) (*entity.MaterialTransaction, error) {
	return findByID[entity.MaterialTransaction](ctx, r.db, id, "Material")
}

// TypeByName 按名称查找类别（不区分大小写）
func (r *MaterialRepository) TypeByName(ctx context.Context, name string) (*entity.MaterialType, error) {
	var t entity.MaterialType
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&t).Error; err != nil {
		return nil, Translate(err)
	}
	return &t, nil
}
