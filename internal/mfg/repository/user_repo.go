package repository

import (
	"context"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAll 查询用户列表
func (r *UserRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.User{})
	query = eqFilters(query, filters, "id", "role", "department")
	query = boolFilter(query, "is_active", filters["is_active"])
	query = applySearch(query, filters["search"], "email", "first_name", "last_name", "employee_id")
	return paginate[entity.User](query, page, pageSize,
		ordering(filters["ordering"], []string{"email", "first_name", "last_name", "created_at", "role"}, "created_at DESC"))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return findByID[entity.User](ctx, r.db, id)
}

// FindByEmail 邮箱不区分大小写
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return Translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return Translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.User{})
	if res.Error != nil {
		return Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RolePermissionRepository 角色权限仓库
type RolePermissionRepository struct {
	db *gorm.DB
}

func NewRolePermissionRepository(db *gorm.DB) *RolePermissionRepository {
	return &RolePermissionRepository{db: db}
}

func (r *RolePermissionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RolePermission, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.RolePermission{})
	query = eqFilters(query, filters, "role", "module", "access_level")
	return paginate[entity.RolePermission](query, page, pageSize, "role ASC, module ASC")
}

func (r *RolePermissionRepository) FindByID(ctx context.Context, id string) (*entity.RolePermission, error) {
	return findByID[entity.RolePermission](ctx, r.db, id)
}

func (r *RolePermissionRepository) FindByRole(ctx context.Context, role string) ([]entity.RolePermission, error) {
	var items []entity.RolePermission
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("module ASC").Find(&items).Error
	return items, err
}

// AccessLevel 查询 (role, module) 的访问级别，不存在返回 ErrNotFound
func (r *RolePermissionRepository) AccessLevel(ctx context.Context, role, module string) (string, error) {
	var perm entity.RolePermission
	err := r.db.WithContext(ctx).
		Where("role = ? AND module = ?", role, module).
		First(&perm).Error
	if err != nil {
		return "", Translate(err)
	}
	return perm.AccessLevel, nil
}

func (r *RolePermissionRepository) Create(ctx context.Context, perm *entity.RolePermission) error {
	return Translate(r.db.WithContext(ctx).Create(perm).Error)
}

func (r *RolePermissionRepository) Update(ctx context.Context, perm *entity.RolePermission) error {
	return Translate(r.db.WithContext(ctx).Save(perm).Error)
}

func (r *RolePermissionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.RolePermission{})
	if res.Error != nil {
		return Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert 按 (role, module) 插入或更新访问级别
func (r *RolePermissionRepository) Upsert(ctx context.Context, perms []entity.RolePermission) error {
	if len(perms) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role"}, {Name: "module"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_level", "updated_at"}),
	}).Create(&perms).Error
}

// SeedDefaults 写入默认权限矩阵，已存在的不覆盖
func (r *RolePermissionRepository) SeedDefaults(ctx context.Context) error {
	perms := entity.DefaultRolePermissions()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role"}, {Name: "module"}},
		DoNothing: true,
	}).Create(&perms).Error
}
