package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	permissionCacheTTL   = 30 * time.Second
	permissionVersionKey = "perm:ver"
)

// IsSafeMethod GET/HEAD/OPTIONS
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// DecideAccess 角色 + 访问级别 + HTTP 方法 → 是否允许
// level 为空表示没有配置该 (role, module)
func DecideAccess(role, level, method string) bool {
	switch role {
	case entity.RoleAdmin:
		return true
	case entity.RoleManagement:
		return IsSafeMethod(method)
	}
	switch level {
	case entity.AccessRead:
		return IsSafeMethod(method)
	case entity.AccessWrite, entity.AccessFull:
		return true
	}
	return false
}

// PermissionService 角色模块权限，带 Redis 缓存
type PermissionService struct {
	repo   *repository.RolePermissionRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPermissionService(repo *repository.RolePermissionRepository, rdb *redis.Client, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{repo: repo, rdb: rdb, logger: logger}
}

// 缓存键带版本号，任何权限写入都会递增版本，旧版本键不再被读取
func permissionKey(version int64, role, module string) string {
	return fmt.Sprintf("perm:%d:%s:%s", version, role, module)
}

// CheckAccess 实现 middleware.AccessChecker
func (s *PermissionService) CheckAccess(ctx context.Context, role, module, method string) (bool, error) {
	if role == entity.RoleAdmin || role == entity.RoleManagement {
		return DecideAccess(role, "", method), nil
	}
	level, err := s.AccessLevel(ctx, role, module)
	if err != nil {
		return false, err
	}
	return DecideAccess(role, level, method), nil
}

// AccessLevel 未配置返回空字符串
func (s *PermissionService) AccessLevel(ctx context.Context, role, module string) (string, error) {
	key, cached := "", false
	if version, ok := s.cacheVersion(ctx); ok {
		key, cached = permissionKey(version, role, module), true
		level, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			return level, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("permission cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	level, err := s.repo.AccessLevel(ctx, role, module)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("load permission: %w", err)
	}

	if cached {
		if err := s.rdb.Set(ctx, key, level, permissionCacheTTL).Err(); err != nil {
			s.logger.Warn("permission cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return level, nil
}

// cacheVersion 读不到版本号时绕过缓存直接查库
func (s *PermissionService) cacheVersion(ctx context.Context) (int64, bool) {
	if s.rdb == nil {
		return 0, false
	}
	version, err := s.rdb.Get(ctx, permissionVersionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		s.logger.Warn("permission cache version read failed", zap.Error(err))
		return 0, false
	}
	return version, true
}

// invalidate 在数据库提交之后调用
func (s *PermissionService) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, permissionVersionKey).Err(); err != nil {
		s.logger.Error("permission cache version bump failed", zap.Error(err))
	}
}

// SeedDefaults 写入默认矩阵，不覆盖已有配置
func (s *PermissionService) SeedDefaults(ctx context.Context) error {
	if err := s.repo.SeedDefaults(ctx); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *PermissionService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RolePermission, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *PermissionService) Get(ctx context.Context, id string) (*entity.RolePermission, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PermissionService) ByRole(ctx context.Context, role string) ([]entity.RolePermission, error) {
	if role == "" {
		return nil, invalid("role parameter is required.")
	}
	return s.repo.FindByRole(ctx, role)
}

// PermissionRequest 创建/更新权限请求
type PermissionRequest struct {
	Role        string `json:"role" binding:"required"`
	Module      string `json:"module" binding:"required"`
	AccessLevel string `json:"access_level" binding:"required"`
}

func (r PermissionRequest) validate() error {
	if !entity.IsValidRole(r.Role) {
		return invalid("\"%s\" is not a valid role.", r.Role)
	}
	if !entity.IsValidModule(r.Module) {
		return invalid("\"%s\" is not a valid module.", r.Module)
	}
	if !entity.IsValidAccessLevel(r.AccessLevel) {
		return invalid("\"%s\" is not a valid access level.", r.AccessLevel)
	}
	return nil
}

func (s *PermissionService) Create(ctx context.Context, req *PermissionRequest) (*entity.RolePermission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	perm := &entity.RolePermission{
		ID:          entity.NewID(),
		Role:        req.Role,
		Module:      req.Module,
		AccessLevel: req.AccessLevel,
	}
	if err := s.repo.Create(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("Permission for role %s and module %s already exists.", req.Role, req.Module)
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}
	s.invalidate(ctx)
	return perm, nil
}

func (s *PermissionService) Update(ctx context.Context, id string, req *PermissionRequest) (*entity.RolePermission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	perm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	perm.Role = req.Role
	perm.Module = req.Module
	perm.AccessLevel = req.AccessLevel
	if err := s.repo.Update(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("Permission for role %s and module %s already exists.", req.Role, req.Module)
		}
		return nil, fmt.Errorf("update permission: %w", err)
	}
	s.invalidate(ctx)
	return perm, nil
}

func (s *PermissionService) Delete(ctx context.Context, id string) error {
	_, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// BulkUpdateRequest 为一个角色批量设置模块访问级别
type BulkUpdateRequest struct {
	Role        string `json:"role"`
	Permissions []struct {
		Module      string `json:"module"`
		AccessLevel string `json:"access_level"`
	} `json:"permissions"`
}

// BulkUpdate 按 (role, module) upsert，access_level 缺省为 none
func (s *PermissionService) BulkUpdate(ctx context.Context, req *BulkUpdateRequest) ([]entity.RolePermission, error) {
	if req.Role == "" {
		return nil, invalid("Role is required.")
	}
	perms := make([]entity.RolePermission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		level := p.AccessLevel
		if level == "" {
			level = entity.AccessNone
		}
		pr := PermissionRequest{Role: req.Role, Module: p.Module, AccessLevel: level}
		if err := pr.validate(); err != nil {
			return nil, err
		}
		perms = append(perms, entity.RolePermission{
			ID:          entity.NewID(),
			Role:        pr.Role,
			Module:      pr.Module,
			AccessLevel: pr.AccessLevel,
			UpdatedAt:   time.Now(),
		})
	}
	if err := s.repo.Upsert(ctx, perms); err != nil {
		return nil, fmt.Errorf("bulk update permissions: %w", err)
	}
	s.invalidate(ctx)
	return s.repo.FindByRole(ctx, req.Role)
}
