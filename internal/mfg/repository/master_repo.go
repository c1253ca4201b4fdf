package repository

import (
	"context"

	"gorm.io/gorm"
)

// MasterRepository 主数据仓库（材料类别、工序、处理类型、检验类型、包装标准）
type MasterRepository[T any] struct {
	db        *gorm.DB
	searchOn  []string
	orderOn   []string
	defaultBy string
	filterOn  []string
}

func NewMasterRepository[T any](db *gorm.DB, defaultOrder string, searchOn, filterOn []string) *MasterRepository[T] {
	return &MasterRepository[T]{
		db:        db,
		searchOn:  searchOn,
		orderOn:   []string{"name", "code", "created_at", "sequence_order"},
		defaultBy: defaultOrder,
		filterOn:  filterOn,
	}
}

// FindAll 查询列表
func (r *MasterRepository[T]) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]T, int64, error) {
	var model T
	query := r.db.WithContext(ctx).Model(&model)
	query = boolFilter(query, "is_active", filters["is_active"])
	query = eqFilters(query, filters, r.filterOn...)
	query = applySearch(query, filters["search"], r.searchOn...)
	return paginate[T](query, page, pageSize, ordering(filters["ordering"], r.orderOn, r.defaultBy))
}

func (r *MasterRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return findByID[T](ctx, r.db, id)
}

func (r *MasterRepository[T]) Create(ctx context.Context, item *T) error {
	return Translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *MasterRepository[T]) Update(ctx context.Context, item *T) error {
	return Translate(r.db.WithContext(ctx).Save(item).Error)
}

func (r *MasterRepository[T]) Delete(ctx context.Context, id string) error {
	var model T
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model)
	if res.Error != nil {
		return Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReferences 统计引用该主数据的行数
func (r *MasterRepository[T]) CountReferences(ctx context.Context, table, column, id string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table(table).Where(column+" = ?", id).Count(&n).Error
	return n, err
}
