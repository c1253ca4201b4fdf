package service

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
)

// AuditService 审计日志查询（只读）
type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(repo *repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AuditLog, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *AuditService) Get(ctx context.Context, id string) (*entity.AuditLog, error) {
	return s.repo.FindByID(ctx, id)
}

// ByUser 某用户最近 100 条
func (s *AuditService) ByUser(ctx context.Context, userID string) ([]entity.AuditLog, error) {
	if userID == "" {
		return nil, invalid("user_id parameter is required.")
	}
	return s.repo.Recent(ctx, "user_id", userID, 100)
}

// ByModel 某实体类型最近 100 条
func (s *AuditService) ByModel(ctx context.Context, entityType string) ([]entity.AuditLog, error) {
	if entityType == "" {
		return nil, invalid("model parameter is required.")
	}
	return s.repo.Recent(ctx, "entity_type", entityType, 100)
}

// ByObject 单个对象的全部历史
func (s *AuditService) ByObject(ctx context.Context, entityType, entityID string) ([]entity.AuditLog, error) {
	if entityType == "" || entityID == "" {
		return nil, invalid("model and object_id parameters are required.")
	}
	filters := map[string]string{"entity_type": entityType, "entity_id": entityID}
	items, _, err := s.repo.FindAll(ctx, 1, maxObjectHistory, filters)
	return items, err
}

const maxObjectHistory = 1000

// Statistics days <= 0 按 30 天
func (s *AuditService) Statistics(ctx context.Context, days int) (*repository.AuditStatistics, error) {
	if days <= 0 {
		days = 30
	}
	return s.repo.Statistics(ctx, days)
}

// Activities 管理员可查看全部，其余只能看自己
func (s *AuditService) Activities(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.UserActivity, int64, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	if !actor.IsAdmin() {
		filters["user_id"] = actor.UserID
	}
	return s.repo.FindActivities(ctx, page, pageSize, filters)
}

// MyActivity 当前用户最近 50 条
func (s *AuditService) MyActivity(ctx context.Context, actor Actor) ([]entity.UserActivity, error) {
	return s.repo.RecentActivities(ctx, actor.UserID, 50)
}
