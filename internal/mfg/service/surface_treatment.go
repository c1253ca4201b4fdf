package service

import (
	"context"
	"fmt"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SurfaceTreatmentService 表面处理
type SurfaceTreatmentService struct {
	db   *gorm.DB
	repo *repository.SurfaceTreatmentRepository
}

func NewSurfaceTreatmentService(db *gorm.DB, repo *repository.SurfaceTreatmentRepository) *SurfaceTreatmentService {
	return &SurfaceTreatmentService{db: db, repo: repo}
}

func (s *SurfaceTreatmentService) ListTypes(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.TreatmentType, int64, error) {
	return s.repo.Types.FindAll(ctx, page, pageSize, filters)
}

func (s *SurfaceTreatmentService) GetType(ctx context.Context, id string) (*entity.TreatmentType, error) {
	return s.repo.Types.FindByID(ctx, id)
}

func (s *SurfaceTreatmentService) CreateType(ctx context.Context, req *MasterDataRequest) (*entity.TreatmentType, error) {
	t := &entity.TreatmentType{ID: entity.NewID(), IsActive: true}
	if err := applyTreatmentType(t, req); err != nil {
		return nil, err
	}
	if err := s.repo.Types.Create(ctx, t); err != nil {
		return nil, duplicateAs(err, "treatment type with this code already exists.")
	}
	return t, nil
}

func (s *SurfaceTreatmentService) UpdateType(ctx context.Context, id string, req *MasterDataRequest) (*entity.TreatmentType, error) {
	t, err := s.repo.Types.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyTreatmentType(t, req); err != nil {
		return nil, err
	}
	if err := s.repo.Types.Update(ctx, t); err != nil {
		return nil, duplicateAs(err, "treatment type with this code already exists.")
	}
	return t, nil
}

func applyTreatmentType(t *entity.TreatmentType, req *MasterDataRequest) error {
	applyMaster(&t.Name, &t.Code, &t.Description, &t.IsActive, req)
	if t.Name == "" {
		return invalid("name: This field may not be blank.")
	}
	if t.Code == "" {
		return invalid("code: This field may not be blank.")
	}
	return nil
}

func (s *SurfaceTreatmentService) DeleteType(ctx context.Context, id string) error {
	n, err := s.repo.Types.CountReferences(ctx, entity.OrderSurfaceTreatment{}.TableName(), "treatment_type_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("Cannot delete a treatment type that is assigned to orders.")
	}
	return s.repo.Types.Delete(ctx, id)
}

// TreatmentRequest 创建/更新订单表面处理
type TreatmentRequest struct {
	OrderID           *string              `json:"order_id"`
	TreatmentTypeID   *string              `json:"treatment_type_id"`
	Status            *string              `json:"status"`
	PlannedQuantity   *int                 `json:"planned_quantity"`
	CompletedQuantity *int                 `json:"completed_quantity"`
	RejectedQuantity  *int                 `json:"rejected_quantity"`
	Color             *string              `json:"color"`
	ThicknessMicrons  *decimal.NullDecimal `json:"thickness_microns"`
	IsOutsourced      *bool                `json:"is_outsourced"`
	VendorName        *string              `json:"vendor_name"`
	VendorBatchNumber *string              `json:"vendor_batch_number"`
	Remarks           *string              `json:"remarks"`
}

func (r *TreatmentRequest) apply(t *entity.OrderSurfaceTreatment) error {
	if r.OrderID != nil {
		t.OrderID = *r.OrderID
	}
	if r.TreatmentTypeID != nil {
		t.TreatmentTypeID = *r.TreatmentTypeID
	}
	if r.Status != nil {
		if !containsString(entity.TreatmentStatuses, *r.Status) {
			return invalid("\"%s\" is not a valid choice.", *r.Status)
		}
		t.Status = *r.Status
	}
	if r.PlannedQuantity != nil {
		t.PlannedQuantity = *r.PlannedQuantity
	}
	if r.CompletedQuantity != nil {
		t.CompletedQuantity = *r.CompletedQuantity
	}
	if r.RejectedQuantity != nil {
		t.RejectedQuantity = *r.RejectedQuantity
	}
	if r.Color != nil {
		t.Color = *r.Color
	}
	if r.ThicknessMicrons != nil {
		t.ThicknessMicrons = *r.ThicknessMicrons
	}
	if r.IsOutsourced != nil {
		t.IsOutsourced = *r.IsOutsourced
	}
	if r.VendorName != nil {
		t.VendorName = *r.VendorName
	}
	if r.VendorBatchNumber != nil {
		t.VendorBatchNumber = *r.VendorBatchNumber
	}
	if r.Remarks != nil {
		t.Remarks = *r.Remarks
	}
	switch {
	case t.OrderID == "":
		return invalid("order_id: This field is required.")
	case t.TreatmentTypeID == "":
		return invalid("treatment_type_id: This field is required.")
	case t.PlannedQuantity < 0, t.CompletedQuantity < 0, t.RejectedQuantity < 0:
		return invalid("Quantities must not be negative.")
	case t.IsOutsourced && t.VendorName == "":
		return invalid("vendor_name is required for outsourced treatments.")
	}
	return nil
}

func treatmentRepr(t *entity.OrderSurfaceTreatment) string {
	return fmt.Sprintf("%s - %s", t.OrderID, t.TreatmentTypeID)
}

func (s *SurfaceTreatmentService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderSurfaceTreatment, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *SurfaceTreatmentService) Get(ctx context.Context, id string) (*entity.OrderSurfaceTreatment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *SurfaceTreatmentService) Create(ctx context.Context, req *TreatmentRequest, actor Actor) (*entity.OrderSurfaceTreatment, error) {
	t := &entity.OrderSurfaceTreatment{
		ID:        entity.NewID(),
		Status:    entity.TreatmentPending,
		CreatedBy: actor.ID(),
		UpdatedBy: actor.ID(),
	}
	if err := req.apply(t); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := ensureExists(tx, &entity.Order{}, t.OrderID, "order_id"); err != nil {
			return err
		}
		if err := ensureExists(tx, &entity.TreatmentType{}, t.TreatmentTypeID, "treatment_type_id"); err != nil {
			return err
		}
		if err := createEntity(tx, t); err != nil {
			return duplicateAs(err, "The fields order, treatment_type must make a unique set.")
		}
		return auditCreate(tx, actor, AuditEntitySurfaceTreatment, t.ID, treatmentRepr(t), t)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, t.ID)
}

func (s *SurfaceTreatmentService) Update(ctx context.Context, id string, req *TreatmentRequest, actor Actor) (*entity.OrderSurfaceTreatment, error) {
	return s.mutate(ctx, id, actor, entity.AuditUpdate, func(tx *gorm.DB, t *entity.OrderSurfaceTreatment) (string, error) {
		if err := req.apply(t); err != nil {
			return "", err
		}
		if req.TreatmentTypeID != nil {
			if err := ensureExists(tx, &entity.TreatmentType{}, t.TreatmentTypeID, "treatment_type_id"); err != nil {
				return "", err
			}
		}
		return "", nil
	})
}

func (s *SurfaceTreatmentService) Delete(ctx context.Context, id string, actor Actor) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		t, err := lockByID[entity.OrderSurfaceTreatment](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(t).Error; err != nil {
			return repository.Translate(err)
		}
		return auditDelete(tx, actor, AuditEntitySurfaceTreatment, t.ID, treatmentRepr(t), t)
	})
}

// Start 仅 pending 可开始
func (s *SurfaceTreatmentService) Start(ctx context.Context, id string, actor Actor) (*entity.OrderSurfaceTreatment, error) {
	return s.mutate(ctx, id, actor, entity.AuditStatusChange, func(_ *gorm.DB, t *entity.OrderSurfaceTreatment) (string, error) {
		if t.Status != entity.TreatmentPending {
			return "", invalid("Treatment can only be started from Pending status.")
		}
		t.Status = entity.TreatmentInProgress
		t.StartedAt = nowPtr()
		return "Treatment started", nil
	})
}

// Complete 完成数量默认为计划数量，报废默认 0
func (s *SurfaceTreatmentService) Complete(ctx context.Context, id string, req *CompleteRequest, actor Actor) (*entity.OrderSurfaceTreatment, error) {
	return s.mutate(ctx, id, actor, entity.AuditStatusChange, func(_ *gorm.DB, t *entity.OrderSurfaceTreatment) (string, error) {
		if t.Status != entity.TreatmentInProgress {
			return "", invalid("Treatment must be In Progress to complete.")
		}
		completed, rejected := t.PlannedQuantity, 0
		if req.CompletedQuantity != nil {
			completed = *req.CompletedQuantity
		}
		if req.RejectedQuantity != nil {
			rejected = *req.RejectedQuantity
		}
		if completed < 0 || rejected < 0 {
			return "", invalid("Quantities must not be negative.")
		}
		t.Status = entity.TreatmentCompleted
		t.CompletedQuantity = completed
		t.RejectedQuantity = rejected
		t.CompletedAt = nowPtr()
		return req.Notes, nil
	})
}

func (s *SurfaceTreatmentService) mutate(ctx context.Context, id string, actor Actor, action string, fn func(*gorm.DB, *entity.OrderSurfaceTreatment) (string, error)) (*entity.OrderSurfaceTreatment, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		t, err := lockByID[entity.OrderSurfaceTreatment](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, t)
		if err != nil {
			return err
		}
		notes, err := fn(tx, t)
		if err != nil {
			return err
		}
		t.UpdatedBy = actor.ID()
		if err := saveEntity(tx, t); err != nil {
			return duplicateAs(err, "The fields order, treatment_type must make a unique set.")
		}
		_, err = auditChange(tx, actor, action, AuditEntitySurfaceTreatment, t.ID, treatmentRepr(t), before, t, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *SurfaceTreatmentService) ByOrder(ctx context.Context, orderID string) ([]entity.OrderSurfaceTreatment, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.ByOrder(ctx, orderID)
}

func (s *SurfaceTreatmentService) Pending(ctx context.Context) ([]entity.OrderSurfaceTreatment, error) {
	return s.repo.Pending(ctx)
}
