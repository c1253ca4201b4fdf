package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"gorm.io/gorm"
)

// FabricationService 加工工序
type FabricationService struct {
	db   *gorm.DB
	repo *repository.FabricationRepository
}

func NewFabricationService(db *gorm.DB, repo *repository.FabricationRepository) *FabricationService {
	return &FabricationService{db: db, repo: repo}
}

// ==================== 工序主数据 ====================

// ProcessRequest 创建/更新工序
type ProcessRequest struct {
	MasterDataRequest
	Category      *string `json:"category"`
	SequenceOrder *int    `json:"sequence_order"`
}

func (r *ProcessRequest) apply(p *entity.FabricationProcess) error {
	applyMaster(&p.Name, &p.Code, &p.Description, &p.IsActive, &r.MasterDataRequest)
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.SequenceOrder != nil {
		p.SequenceOrder = *r.SequenceOrder
	}
	switch {
	case p.Name == "":
		return invalid("name: This field may not be blank.")
	case p.Code == "":
		return invalid("code: This field may not be blank.")
	case !containsString(entity.ProcessCategories, p.Category):
		return invalid("\"%s\" is not a valid choice.", p.Category)
	case p.SequenceOrder < 0:
		return invalid("sequence_order: Ensure this value is greater than or equal to 0.")
	}
	return nil
}

func (s *FabricationService) ListProcesses(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.FabricationProcess, int64, error) {
	return s.repo.Processes.FindAll(ctx, page, pageSize, filters)
}

func (s *FabricationService) GetProcess(ctx context.Context, id string) (*entity.FabricationProcess, error) {
	return s.repo.Processes.FindByID(ctx, id)
}

func (s *FabricationService) CreateProcess(ctx context.Context, req *ProcessRequest) (*entity.FabricationProcess, error) {
	p := &entity.FabricationProcess{ID: entity.NewID(), IsActive: true}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Processes.Create(ctx, p); err != nil {
		return nil, duplicateAs(err, "fabrication process with this code already exists.")
	}
	return p, nil
}

func (s *FabricationService) UpdateProcess(ctx context.Context, id string, req *ProcessRequest) (*entity.FabricationProcess, error) {
	p, err := s.repo.Processes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Processes.Update(ctx, p); err != nil {
		return nil, duplicateAs(err, "fabrication process with this code already exists.")
	}
	return p, nil
}

func (s *FabricationService) DeleteProcess(ctx context.Context, id string) error {
	n, err := s.repo.Processes.CountReferences(ctx, entity.OrderFabrication{}.TableName(), "process_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("Cannot delete a process that is assigned to orders.")
	}
	return s.repo.Processes.Delete(ctx, id)
}

// ==================== 订单工序 ====================

// FabricationRequest 创建/更新订单工序
type FabricationRequest struct {
	OrderID           *string      `json:"order_id"`
	ProcessID         *string      `json:"process_id"`
	Status            *string      `json:"status"`
	PlannedQuantity   *int         `json:"planned_quantity"`
	CompletedQuantity *int         `json:"completed_quantity"`
	PlannedStartDate  *entity.Date `json:"planned_start_date"`
	PlannedEndDate    *entity.Date `json:"planned_end_date"`
	Machine           *string      `json:"machine"`
	OperatorID        *string      `json:"operator_id"`
	Remarks           *string      `json:"remarks"`
}

func (r *FabricationRequest) apply(f *entity.OrderFabrication) error {
	if r.OrderID != nil {
		f.OrderID = *r.OrderID
	}
	if r.ProcessID != nil {
		f.ProcessID = *r.ProcessID
	}
	if r.Status != nil {
		if !containsString(entity.FabricationStatuses, *r.Status) {
			return invalid("\"%s\" is not a valid choice.", *r.Status)
		}
		f.Status = *r.Status
	}
	if r.PlannedQuantity != nil {
		f.PlannedQuantity = *r.PlannedQuantity
	}
	if r.CompletedQuantity != nil {
		f.CompletedQuantity = *r.CompletedQuantity
	}
	if r.PlannedStartDate != nil {
		f.PlannedStartDate = datePtrOrNil(r.PlannedStartDate)
	}
	if r.PlannedEndDate != nil {
		f.PlannedEndDate = datePtrOrNil(r.PlannedEndDate)
	}
	if r.Machine != nil {
		f.Machine = *r.Machine
	}
	if r.OperatorID != nil {
		f.OperatorID = blankToNil(r.OperatorID)
	}
	if r.Remarks != nil {
		f.Remarks = *r.Remarks
	}
	switch {
	case f.OrderID == "":
		return invalid("order_id: This field is required.")
	case f.ProcessID == "":
		return invalid("process_id: This field is required.")
	case f.PlannedQuantity < 0, f.CompletedQuantity < 0:
		return invalid("Quantities must not be negative.")
	case f.PlannedStartDate != nil && f.PlannedEndDate != nil && f.PlannedEndDate.Before(f.PlannedStartDate.Time):
		return invalid("planned_end_date cannot be before planned_start_date.")
	}
	return nil
}

func fabricationRepr(f *entity.OrderFabrication) string {
	return fmt.Sprintf("%s - %s", f.OrderID, f.ProcessID)
}

func (s *FabricationService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderFabrication, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *FabricationService) Get(ctx context.Context, id string) (*entity.OrderFabrication, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *FabricationService) Create(ctx context.Context, req *FabricationRequest, actor Actor) (*entity.OrderFabrication, error) {
	f := &entity.OrderFabrication{
		ID:        entity.NewID(),
		Status:    entity.FabricationNotStarted,
		CreatedBy: actor.ID(),
		UpdatedBy: actor.ID(),
	}
	if err := req.apply(f); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, f); err != nil {
			return err
		}
		if err := createEntity(tx, f); err != nil {
			return duplicateAs(err, "The fields order, process must make a unique set.")
		}
		return auditCreate(tx, actor, AuditEntityFabrication, f.ID, fabricationRepr(f), f)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, f.ID)
}

func (s *FabricationService) checkRefs(tx *gorm.DB, f *entity.OrderFabrication) error {
	if err := ensureExists(tx, &entity.Order{}, f.OrderID, "order_id"); err != nil {
		return err
	}
	if err := ensureExists(tx, &entity.FabricationProcess{}, f.ProcessID, "process_id"); err != nil {
		return err
	}
	if f.OperatorID != nil {
		return ensureExists(tx, &entity.User{}, *f.OperatorID, "operator_id")
	}
	return nil
}

// Update 状态变化时写工序日志
func (s *FabricationService) Update(ctx context.Context, id string, req *FabricationRequest, actor Actor) (*entity.OrderFabrication, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		f, err := lockByID[entity.OrderFabrication](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, f)
		if err != nil {
			return err
		}
		previous := f.Status
		if err := req.apply(f); err != nil {
			return err
		}
		if err := s.checkRefs(tx, f); err != nil {
			return err
		}
		f.UpdatedBy = actor.ID()
		if err := saveEntity(tx, f); err != nil {
			return duplicateAs(err, "The fields order, process must make a unique set.")
		}
		if previous != f.Status {
			if err := writeFabricationLog(tx, f, previous, "", actor); err != nil {
				return err
			}
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityFabrication, f.ID, fabricationRepr(f), before, f, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *FabricationService) Delete(ctx context.Context, id string, actor Actor) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		f, err := lockByID[entity.OrderFabrication](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("order_fabrication_id = ?", id).Delete(&entity.FabricationLog{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(f).Error; err != nil {
			return repository.Translate(err)
		}
		return auditDelete(tx, actor, AuditEntityFabrication, f.ID, fabricationRepr(f), f)
	})
}

// Start not_started/pending → in_progress
func (s *FabricationService) Start(ctx context.Context, id string, actor Actor) (*entity.OrderFabrication, error) {
	return s.transition(ctx, id, actor, func(f *entity.OrderFabrication) (string, error) {
		if f.Status != entity.FabricationNotStarted && f.Status != entity.FabricationPending {
			return "", invalid("Process can only be started from Not Started or Pending status.")
		}
		f.Status = entity.FabricationInProgress
		f.ActualStartDate = entity.DatePtr(entity.Today())
		f.StartedAt = nowPtr()
		return "Process started", nil
	})
}

// CompleteRequest 完成数量为空时取计划数量
type CompleteRequest struct {
	CompletedQuantity *int   `json:"completed_quantity"`
	RejectedQuantity  *int   `json:"rejected_quantity"`
	Notes             string `json:"notes"`
}

func (s *FabricationService) Complete(ctx context.Context, id string, req *CompleteRequest, actor Actor) (*entity.OrderFabrication, error) {
	return s.transition(ctx, id, actor, func(f *entity.OrderFabrication) (string, error) {
		if f.Status != entity.FabricationInProgress {
			return "", invalid("Process must be In Progress to complete.")
		}
		qty := f.PlannedQuantity
		if req.CompletedQuantity != nil {
			qty = *req.CompletedQuantity
		}
		if qty < 0 {
			return "", invalid("completed_quantity: Ensure this value is greater than or equal to 0.")
		}
		f.Status = entity.FabricationCompleted
		f.CompletedQuantity = qty
		f.ActualEndDate = entity.DatePtr(entity.Today())
		f.CompletedAt = nowPtr()
		return req.Notes, nil
	})
}

// NotesRequest 仅带备注的动作
type NotesRequest struct {
	Notes string `json:"notes"`
}

// Hold 任意状态可挂起，备注追加到 remarks
func (s *FabricationService) Hold(ctx context.Context, id string, req *NotesRequest, actor Actor) (*entity.OrderFabrication, error) {
	return s.transition(ctx, id, actor, func(f *entity.OrderFabrication) (string, error) {
		f.Status = entity.FabricationOnHold
		f.Remarks = strings.TrimSpace(f.Remarks + "\n\nOn Hold: " + req.Notes)
		return "Put on hold: " + req.Notes, nil
	})
}

func (s *FabricationService) transition(ctx context.Context, id string, actor Actor, mutate func(*entity.OrderFabrication) (string, error)) (*entity.OrderFabrication, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		f, err := lockByID[entity.OrderFabrication](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, f)
		if err != nil {
			return err
		}
		previous := f.Status
		notes, err := mutate(f)
		if err != nil {
			return err
		}
		f.UpdatedBy = actor.ID()
		if err := saveEntity(tx, f); err != nil {
			return err
		}
		if err := writeFabricationLog(tx, f, previous, notes, actor); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditStatusChange, AuditEntityFabrication, f.ID, fabricationRepr(f), before, f, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func writeFabricationLog(tx *gorm.DB, f *entity.OrderFabrication, previous, notes string, actor Actor) error {
	log := &entity.FabricationLog{
		ID:                 entity.NewID(),
		OrderFabricationID: f.ID,
		PreviousStatus:     previous,
		NewStatus:          f.Status,
		QuantityCompleted:  f.CompletedQuantity,
		Notes:              notes,
		LoggedBy:           actor.ID(),
	}
	if err := tx.Create(log).Error; err != nil {
		return fmt.Errorf("write fabrication log: %w", err)
	}
	return nil
}

func (s *FabricationService) ByOrder(ctx context.Context, orderID string) ([]entity.OrderFabrication, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.ByOrder(ctx, orderID)
}

// BulkCreateRequest 为订单批量添加工序
type BulkCreateRequest struct {
	OrderID         string   `json:"order_id" binding:"required"`
	ProcessIDs      []string `json:"process_ids" binding:"required,min=1"`
	PlannedQuantity int      `json:"planned_quantity" binding:"min=0"`
}

// BulkCreate 已存在的 (order, process) 与不存在的工序被跳过，只返回新建的行
func (s *FabricationService) BulkCreate(ctx context.Context, req *BulkCreateRequest, actor Actor) ([]entity.OrderFabrication, error) {
	var created []entity.OrderFabrication
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&entity.Order{}).Where("id = ?", req.OrderID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		for _, processID := range req.ProcessIDs {
			var process entity.FabricationProcess
			err := tx.Where("id = ?", processID).First(&process).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var existing int64
			if err := tx.Model(&entity.OrderFabrication{}).
				Where("order_id = ? AND process_id = ?", req.OrderID, processID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			f := entity.OrderFabrication{
				ID:              entity.NewID(),
				OrderID:         req.OrderID,
				ProcessID:       processID,
				Status:          entity.FabricationNotStarted,
				PlannedQuantity: req.PlannedQuantity,
				CreatedBy:       actor.ID(),
				UpdatedBy:       actor.ID(),
			}
			if err := createEntity(tx, &f); err != nil {
				return err
			}
			if err := auditCreate(tx, actor, AuditEntityFabrication, f.ID, fabricationRepr(&f), &f); err != nil {
				return err
			}
			f.Process = &process
			f.Derive(entity.Today())
			created = append(created, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = []entity.OrderFabrication{}
	}
	return created, nil
}

func (s *FabricationService) InProgress(ctx context.Context) ([]entity.OrderFabrication, error) {
	return s.repo.ByStatus(ctx, entity.FabricationInProgress)
}

func (s *FabricationService) Delayed(ctx context.Context) ([]entity.OrderFabrication, error) {
	return s.repo.Delayed(ctx)
}

func (s *FabricationService) Logs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.FabricationLog, int64, error) {
	return s.repo.FindLogs(ctx, page, pageSize, filters)
}
