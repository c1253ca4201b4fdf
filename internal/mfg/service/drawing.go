package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/storage"
	"gorm.io/gorm"
)

// FileUpload 上传的文件
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// DrawingService 工程图纸服务
type DrawingService struct {
	db      *gorm.DB
	repo    *repository.DrawingRepository
	store   storage.Store
	maxSize int64
}

func NewDrawingService(db *gorm.DB, repo *repository.DrawingRepository, store storage.Store, maxSize int64) *DrawingService {
	return &DrawingService{db: db, repo: repo, store: store, maxSize: maxSize}
}

// CreateDrawingRequest 新建图纸（版本 1，修订 A）
type CreateDrawingRequest struct {
	OrderID       string `form:"order_id" json:"order_id" binding:"required"`
	DrawingNumber string `form:"drawing_number" json:"drawing_number" binding:"required"`
	Title         string `form:"title" json:"title" binding:"required"`
	Description   string `form:"description" json:"description"`
	DrawingType   string `form:"drawing_type" json:"drawing_type"`
	Notes         string `form:"notes" json:"notes"`
}

// UpdateDrawingRequest 部分更新
type UpdateDrawingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DrawingType *string `json:"drawing_type"`
	Status      *string `json:"status"`
	Notes       *string `json:"notes"`
}

var drawingStatuses = []string{
	entity.DrawingStatusDraft, entity.DrawingStatusPendingReview, entity.DrawingStatusApproved,
	entity.DrawingStatusRejected, entity.DrawingStatusSuperseded,
}

func (s *DrawingService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Drawing, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *DrawingService) Get(ctx context.Context, id string) (*entity.Drawing, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *DrawingService) checkFile(file *FileUpload) error {
	if file == nil {
		return nil
	}
	if !entity.IsAllowedDrawingFile(file.Name) {
		return invalid("Unsupported file type. Allowed: %s", strings.Join(entity.AllowedDrawingExtensions, ", "))
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		return invalid("File size exceeds the maximum of %d bytes.", s.maxSize)
	}
	return nil
}

// putFile 写入存储并填充图纸文件字段，返回的 key 用于失败回滚
func (s *DrawingService) putFile(ctx context.Context, d *entity.Drawing, file *FileUpload) (string, error) {
	if file == nil {
		return "", nil
	}
	key := entity.DrawingFilePath(d.OrderID, d.Version, file.Name)
	if err := s.store.Put(ctx, key, file.Reader, file.Size, file.ContentType); err != nil {
		return "", fmt.Errorf("store drawing file: %w", err)
	}
	d.FilePath = key
	d.FileName = file.Name
	d.FileSize = file.Size
	d.FileType = entity.FileTypeOf(file.Name)
	return key, nil
}

func (s *DrawingService) discard(ctx context.Context, key string) {
	if key != "" {
		_ = s.store.Delete(ctx, key)
	}
}

func (s *DrawingService) Create(ctx context.Context, req *CreateDrawingRequest, file *FileUpload, actor Actor) (*entity.Drawing, error) {
	drawingType := req.DrawingType
	if drawingType == "" {
		drawingType = entity.DrawingTypeProduction
	}
	if !containsString(entity.DrawingTypes, drawingType) {
		return nil, invalid("\"%s\" is not a valid choice.", drawingType)
	}
	if err := s.checkFile(file); err != nil {
		return nil, err
	}

	d := &entity.Drawing{
		ID:            entity.NewID(),
		OrderID:       req.OrderID,
		DrawingNumber: strings.TrimSpace(req.DrawingNumber),
		Title:         req.Title,
		Description:   req.Description,
		DrawingType:   drawingType,
		Version:       1,
		Revision:      "A",
		IsLatest:      true,
		Status:        entity.DrawingStatusDraft,
		CreatedBy:     actor.ID(),
		Notes:         req.Notes,
	}

	var key string
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := ensureExists(tx, &entity.Order{}, d.OrderID, "order_id"); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&entity.Drawing{}).
			Where("order_id = ? AND drawing_number = ?", d.OrderID, d.DrawingNumber).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return invalid("Drawing %s already exists for this order. Upload a new version instead.", d.DrawingNumber)
		}
		var err error
		if key, err = s.putFile(ctx, d, file); err != nil {
			return err
		}
		if err := createEntity(tx, d); err != nil {
			return err
		}
		return auditCreate(tx, actor, AuditEntityDrawing, d.ID, d.String(), d)
	})
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	return d, nil
}

// NewVersion 以同一图号创建新版本：版本号取最大值加一，原最新版本降为 superseded
func (s *DrawingService) NewVersion(ctx context.Context, id string, file *FileUpload, notes string, actor Actor) (*entity.Drawing, error) {
	if file == nil {
		return nil, invalid("file: No file was submitted.")
	}
	if err := s.checkFile(file); err != nil {
		return nil, err
	}

	var created *entity.Drawing
	var key string
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		base, err := lockByID[entity.Drawing](tx, id)
		if err != nil {
			return err
		}
		var siblings []entity.Drawing
		if err := tx.Clauses(lockingUpdate()).
			Where("order_id = ? AND drawing_number = ?", base.OrderID, base.DrawingNumber).
			Order("version DESC").
			Find(&siblings).Error; err != nil {
			return err
		}

		latest := base
		maxVersion := base.Version
		for i := range siblings {
			if siblings[i].Version > maxVersion {
				maxVersion = siblings[i].Version
			}
			if siblings[i].IsLatest {
				latest = &siblings[i]
			}
		}

		created = &entity.Drawing{
			ID:              entity.NewID(),
			OrderID:         base.OrderID,
			DrawingNumber:   base.DrawingNumber,
			Title:           latest.Title,
			Description:     latest.Description,
			DrawingType:     latest.DrawingType,
			Version:         maxVersion + 1,
			Revision:        entity.NextRevision(latest.Revision),
			IsLatest:        true,
			ParentDrawingID: &latest.ID,
			Status:          entity.DrawingStatusDraft,
			CreatedBy:       actor.ID(),
			Notes:           notes,
		}

		for i := range siblings {
			prev := &siblings[i]
			if !prev.IsLatest {
				continue
			}
			before, err := snapshot(tx, prev)
			if err != nil {
				return err
			}
			prev.IsLatest = false
			prev.Status = entity.DrawingStatusSuperseded
			if err := saveEntity(tx, prev); err != nil {
				return err
			}
			if _, err := auditChange(tx, actor, entity.AuditStatusChange, AuditEntityDrawing, prev.ID, prev.String(), before, prev,
				fmt.Sprintf("Superseded by version %d", created.Version)); err != nil {
				return err
			}
		}

		if key, err = s.putFile(ctx, created, file); err != nil {
			return err
		}
		if err := createEntity(tx, created); err != nil {
			return err
		}
		return auditCreate(tx, actor, AuditEntityDrawing, created.ID, created.String(), created)
	})
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	return created, nil
}

func (s *DrawingService) Update(ctx context.Context, id string, req *UpdateDrawingRequest, actor Actor) (*entity.Drawing, error) {
	if req.DrawingType != nil && !containsString(entity.DrawingTypes, *req.DrawingType) {
		return nil, invalid("\"%s\" is not a valid choice.", *req.DrawingType)
	}
	if req.Status != nil && !containsString(drawingStatuses, *req.Status) {
		return nil, invalid("\"%s\" is not a valid choice.", *req.Status)
	}
	return s.mutate(ctx, id, actor, entity.AuditUpdate, "", func(d *entity.Drawing) error {
		if req.Title != nil {
			d.Title = *req.Title
		}
		if req.Description != nil {
			d.Description = *req.Description
		}
		if req.DrawingType != nil {
			d.DrawingType = *req.DrawingType
		}
		if req.Status != nil {
			d.Status = *req.Status
		}
		if req.Notes != nil {
			d.Notes = *req.Notes
		}
		return nil
	})
}

// SubmitForReview draft → pending_review
func (s *DrawingService) SubmitForReview(ctx context.Context, id string, actor Actor) (*entity.Drawing, error) {
	return s.mutate(ctx, id, actor, entity.AuditStatusChange, "Submitted for review", func(d *entity.Drawing) error {
		if d.Status != entity.DrawingStatusDraft {
			return invalid("Only draft drawings can be submitted for review.")
		}
		d.Status = entity.DrawingStatusPendingReview
		return nil
	})
}

// Approve pending_review → approved
func (s *DrawingService) Approve(ctx context.Context, id string, actor Actor) (*entity.Drawing, error) {
	return s.mutate(ctx, id, actor, entity.AuditApprove, "", func(d *entity.Drawing) error {
		if d.Status != entity.DrawingStatusPendingReview {
			return invalid("Drawing must be in pending review status to approve.")
		}
		d.Status = entity.DrawingStatusApproved
		d.ApprovedBy = actor.ID()
		d.ApprovedAt = nowPtr()
		return nil
	})
}

// Reject pending_review → rejected，原因追加到 notes
func (s *DrawingService) Reject(ctx context.Context, id, reason string, actor Actor) (*entity.Drawing, error) {
	return s.mutate(ctx, id, actor, entity.AuditReject, reason, func(d *entity.Drawing) error {
		if d.Status != entity.DrawingStatusPendingReview {
			return invalid("Drawing must be in pending review status to reject.")
		}
		d.Status = entity.DrawingStatusRejected
		d.Notes = strings.TrimSpace(d.Notes + "\n\nRejection reason: " + reason)
		return nil
	})
}

func (s *DrawingService) mutate(ctx context.Context, id string, actor Actor, action, notes string, fn func(*entity.Drawing) error) (*entity.Drawing, error) {
	var d *entity.Drawing
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		d, err = lockByID[entity.Drawing](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, d)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		if err := saveEntity(tx, d); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, action, AuditEntityDrawing, d.ID, d.String(), before, d, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Delete 删除图纸及评论，提交后清理文件
func (s *DrawingService) Delete(ctx context.Context, id string, actor Actor) error {
	var d *entity.Drawing
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		d, err = lockByID[entity.Drawing](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("drawing_id = ?", id).Delete(&entity.DrawingComment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.Drawing{}).Where("parent_drawing_id = ?", id).
			Update("parent_drawing_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(d).Error; err != nil {
			return repository.Translate(err)
		}
		return auditDelete(tx, actor, AuditEntityDrawing, d.ID, d.String(), d)
	})
	if err != nil {
		return err
	}
	s.discard(ctx, d.FilePath)
	return nil
}

// Versions 同图号所有版本
func (s *DrawingService) Versions(ctx context.Context, id string) ([]entity.Drawing, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Versions(ctx, d.OrderID, d.DrawingNumber)
}

// ByOrder 订单下各图号的最新版本
func (s *DrawingService) ByOrder(ctx context.Context, orderID string) ([]entity.Drawing, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.LatestByOrder(ctx, orderID)
}

func (s *DrawingService) Comments(ctx context.Context, id string) ([]entity.DrawingComment, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Comments(ctx, id)
}

// CommentRequest 图纸评论
type CommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

func (s *DrawingService) AddComment(ctx context.Context, id string, req *CommentRequest, actor Actor) (*entity.DrawingComment, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, invalid("comment: This field may not be blank.")
	}
	c := &entity.DrawingComment{
		ID:        entity.NewID(),
		DrawingID: id,
		UserID:    actor.ID(),
		UserName:  actor.DisplayName(),
		Comment:   req.Comment,
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// StoredFile 下载内容
type StoredFile struct {
	Name    string
	Size    int64
	Content io.ReadCloser
}

func (s *DrawingService) Download(ctx context.Context, id string) (*StoredFile, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.FilePath == "" {
		return nil, repository.ErrNotFound
	}
	rc, err := s.store.Open(ctx, d.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &StoredFile{Name: d.FileName, Size: d.FileSize, Content: rc}, nil
}
