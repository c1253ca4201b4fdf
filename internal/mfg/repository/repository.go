package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInUse     = errors.New("record is referenced by other records")
)

// Repositories 仓库集合
type Repositories struct {
	User             *UserRepository
	RolePermission   *RolePermissionRepository
	Customer         *CustomerRepository
	Order            *OrderRepository
	Drawing          *DrawingRepository
	Material         *MaterialRepository
	Production       *ProductionRepository
	Fabrication      *FabricationRepository
	SurfaceTreatment *SurfaceTreatmentRepository
	Inspection       *InspectionRepository
	Dispatch         *DispatchRepository
	Audit            *AuditRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:             NewUserRepository(db),
		RolePermission:   NewRolePermissionRepository(db),
		Customer:         NewCustomerRepository(db),
		Order:            NewOrderRepository(db),
		Drawing:          NewDrawingRepository(db),
		Material:         NewMaterialRepository(db),
		Production:       NewProductionRepository(db),
		Fabrication:      NewFabricationRepository(db),
		SurfaceTreatment: NewSurfaceTreatmentRepository(db),
		Inspection:       NewInspectionRepository(db),
		Dispatch:         NewDispatchRepository(db),
		Audit:            NewAuditRepository(db),
	}
}

// Translate 把 gorm 错误映射为仓库错误
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse
	}
	return err
}

// findByID 按主键查找并预加载关联
func findByID[T any](ctx context.Context, db *gorm.DB, id string, preloads ...string) (*T, error) {
	var item T
	query := db.WithContext(ctx)
	for _, p := range preloads {
		query = query.Preload(p)
	}
	if err := query.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, Translate(err)
	}
	return &item, nil
}

// paginate Count 后按 ordering 分页查询，预加载在 Count 之后挂载
func paginate[T any](query *gorm.DB, page, pageSize int, order string, preloads ...string) ([]T, int64, error) {
	var items []T
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	for _, p := range preloads {
		query = query.Preload(p)
	}
	offset := (page - 1) * pageSize
	err := query.
		Order(order).
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// applySearch 在指定列上做 ILIKE 子串匹配
func applySearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return query
	}
	like := "%" + search + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = col + " ILIKE ?"
		args[i] = like
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// ordering 解析 ?ordering=-created_at，仅允许白名单字段
func ordering(param string, allowed []string, fallback string) string {
	if param == "" {
		return fallback
	}
	var parts []string
	for _, field := range strings.Split(param, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		name := strings.TrimPrefix(field, "-")
		ok := false
		for _, a := range allowed {
			if a == name {
				ok = true
				break
			}
		}
		if !ok {
			continue
		}
		if desc {
			parts = append(parts, name+" DESC")
		} else {
			parts = append(parts, name+" ASC")
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

// boolFilter 解析 "true"/"false"，其它值忽略
func boolFilter(query *gorm.DB, column, value string) *gorm.DB {
	switch strings.ToLower(value) {
	case "true", "1":
		return query.Where(column+" = ?", true)
	case "false", "0":
		return query.Where(column+" = ?", false)
	}
	return query
}

// eqFilters 等值过滤
func eqFilters(query *gorm.DB, filters map[string]string, columns ...string) *gorm.DB {
	for _, col := range columns {
		if v := filters[col]; v != "" {
			query = query.Where(col+" = ?", v)
		}
	}
	return query
}
