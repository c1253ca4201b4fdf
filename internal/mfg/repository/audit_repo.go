package repository

import (
	"context"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// AuditRepository 审计日志与用户活动仓库
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// FindAll 查询审计日志
// filters: user_id, action, entity_type, entity_id, start_date, end_date, search
func (r *AuditRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.AuditLog{})
	query = eqFilters(query, filters, "user_id", "action", "entity_type", "entity_id")
	if v := filters["start_date"]; v != "" {
		query = query.Where("created_at >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("created_at < (?::date + 1)", v)
	}
	query = applySearch(query, filters["search"], "user_email", "object_repr", "notes")
	return paginate[entity.AuditLog](query, page, pageSize,
		ordering(filters["ordering"], []string{"created_at", "action"}, "created_at DESC"))
}

func (r *AuditRepository) FindByID(ctx context.Context, id string) (*entity.AuditLog, error) {
	return findByID[entity.AuditLog](ctx, r.db, id)
}

// Recent 按单列过滤的最近日志，limit <= 0 表示不限
func (r *AuditRepository) Recent(ctx context.Context, column, value string, limit int) ([]entity.AuditLog, error) {
	var items []entity.AuditLog
	query := r.db.WithContext(ctx).Where(column+" = ?", value).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, err
}

// KeyCount 分组计数
type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// ActiveUser 活跃用户
type ActiveUser struct {
	UserID    *string `json:"user_id"`
	UserEmail string  `json:"user_email"`
	Count     int64   `json:"count"`
}

// AuditStatistics 审计统计
type AuditStatistics struct {
	PeriodDays      int          `json:"period_days"`
	ActionsByType   []KeyCount   `json:"actions_by_type"`
	ActionsByModel  []KeyCount   `json:"actions_by_model"`
	MostActiveUsers []ActiveUser `json:"most_active_users"`
}

func (r *AuditRepository) Statistics(ctx context.Context, days int) (*AuditStatistics, error) {
	since := time.Now().AddDate(0, 0, -days)
	stats := &AuditStatistics{PeriodDays: days}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&entity.AuditLog{}).Where("created_at >= ?", since)
	}

	if err := base().Select("action AS key, COUNT(*) AS count").
		Group("action").Order("count DESC").Scan(&stats.ActionsByType).Error; err != nil {
		return nil, err
	}
	if err := base().Select("entity_type AS key, COUNT(*) AS count").
		Group("entity_type").Order("count DESC").Scan(&stats.ActionsByModel).Error; err != nil {
		return nil, err
	}
	if err := base().Select("user_id, MAX(user_email) AS user_email, COUNT(*) AS count").
		Where("user_id IS NOT NULL").
		Group("user_id").Order("count DESC").Limit(10).Scan(&stats.MostActiveUsers).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// FindActivities 查询用户活动
// filters: user_id, activity_type
func (r *AuditRepository) FindActivities(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.UserActivity, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.UserActivity{})
	query = eqFilters(query, filters, "user_id", "activity_type")
	return paginate[entity.UserActivity](query, page, pageSize, "created_at DESC")
}

func (r *AuditRepository) RecentActivities(ctx context.Context, userID string, limit int) ([]entity.UserActivity, error) {
	var items []entity.UserActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *AuditRepository) CreateActivity(ctx context.Context, a *entity.UserActivity) error {
	if a.ID == "" {
		a.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(a).Error
}
