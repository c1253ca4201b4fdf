package repository

import (
	"context"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// DrawingRepository 图纸仓库
type DrawingRepository struct {
	db *gorm.DB
}

func NewDrawingRepository(db *gorm.DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

// FindAll 查询图纸列表
// filters: order_id, status, drawing_type, latest_only, search, ordering
func (r *DrawingRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Drawing, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Drawing{})
	query = eqFilters(query, filters, "order_id", "status", "drawing_type")
	if filters["latest_only"] == "true" {
		query = query.Where("is_latest = ?", true)
	}
	query = applySearch(query, filters["search"], "drawing_number", "title")
	return paginate[entity.Drawing](query, page, pageSize,
		ordering(filters["ordering"], []string{"created_at", "version", "drawing_number"}, "created_at DESC"))
}

func (r *DrawingRepository) FindByID(ctx context.Context, id string) (*entity.Drawing, error) {
	return findByID[entity.Drawing](ctx, r.db, id)
}

// Versions 同一图号的所有版本，版本号倒序
func (r *DrawingRepository) Versions(ctx context.Context, orderID, drawingNumber string) ([]entity.Drawing, error) {
	var items []entity.Drawing
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND drawing_number = ?", orderID, drawingNumber).
		Order("version DESC").
		Find(&items).Error
	return items, err
}

// LatestByOrder 订单下各图号的最新版本
func (r *DrawingRepository) LatestByOrder(ctx context.Context, orderID string) ([]entity.Drawing, error) {
	var items []entity.Drawing
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND is_latest = ?", orderID, true).
		Order("drawing_number ASC").
		Find(&items).Error
	return items, err
}

// Comments 图纸评论
func (r *DrawingRepository) Comments(ctx context.Context, drawingID string) ([]entity.DrawingComment, error) {
	var items []entity.DrawingComment
	err := r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *DrawingRepository) CreateComment(ctx context.Context, comment *entity.DrawingComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}
