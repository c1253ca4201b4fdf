package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/notify"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"gorm.io/gorm"
)

// InspectionService 质量检验
type InspectionService struct {
	db     *gorm.DB
	repo   *repository.InspectionRepository
	events *notify.Bus
}

func NewInspectionService(db *gorm.DB, repo *repository.InspectionRepository, events *notify.Bus) *InspectionService {
	return &InspectionService{db: db, repo: repo, events: events}
}

// ==================== 检验类型 ====================

// InspectionTypeRequest 创建/更新检验类型
type InspectionTypeRequest struct {
	MasterDataRequest
	Stage       *string `json:"stage"`
	IsMandatory *bool   `json:"is_mandatory"`
}

func (r *InspectionTypeRequest) apply(t *entity.InspectionType) error {
	applyMaster(&t.Name, &t.Code, &t.Description, &t.IsActive, &r.MasterDataRequest)
	if r.Stage != nil {
		t.Stage = *r.Stage
	}
	if r.IsMandatory != nil {
		t.IsMandatory = *r.IsMandatory
	}
	switch {
	case t.Name == "":
		return invalid("name: This field may not be blank.")
	case t.Code == "":
		return invalid("code: This field may not be blank.")
	case !containsString(entity.InspectionStages, t.Stage):
		return invalid("\"%s\" is not a valid choice.", t.Stage)
	}
	return nil
}

func (s *InspectionService) ListTypes(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InspectionType, int64, error) {
	return s.repo.Types.FindAll(ctx, page, pageSize, filters)
}

func (s *InspectionService) GetType(ctx context.Context, id string) (*entity.InspectionType, error) {
	return s.repo.Types.FindByID(ctx, id)
}

func (s *InspectionService) CreateType(ctx context.Context, req *InspectionTypeRequest) (*entity.InspectionType, error) {
	t := &entity.InspectionType{ID: entity.NewID(), IsActive: true, IsMandatory: true}
	if err := req.apply(t); err != nil {
		return nil, err
	}
	if err := s.repo.Types.Create(ctx, t); err != nil {
		return nil, duplicateAs(err, "inspection type with this code already exists.")
	}
	return t, nil
}

func (s *InspectionService) UpdateType(ctx context.Context, id string, req *InspectionTypeRequest) (*entity.InspectionType, error) {
	t, err := s.repo.Types.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(t); err != nil {
		return nil, err
	}
	if err := s.repo.Types.Update(ctx, t); err != nil {
		return nil, duplicateAs(err, "inspection type with this code already exists.")
	}
	return t, nil
}

func (s *InspectionService) DeleteType(ctx context.Context, id string) error {
	n, err := s.repo.Types.CountReferences(ctx, entity.OrderInspection{}.TableName(), "inspection_type_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("Cannot delete an inspection type that has inspections.")
	}
	return s.repo.Types.Delete(ctx, id)
}

// ==================== 订单检验 ====================

// InspectionRequest 创建/更新检验记录；QA 审批字段只能走 qa_approve
type InspectionRequest struct {
	OrderID           *string      `json:"order_id"`
	InspectionTypeID  *string      `json:"inspection_type_id"`
	InspectedQuantity *int         `json:"inspected_quantity"`
	PassedQuantity    *int         `json:"passed_quantity"`
	FailedQuantity    *int         `json:"failed_quantity"`
	ReworkQuantity    *int         `json:"rework_quantity"`
	Result            *string      `json:"result"`
	InspectionDate    *entity.Date `json:"inspection_date"`
	InspectedBy       *string      `json:"inspected_by"`
	DefectsFound      *string      `json:"defects_found"`
	CorrectiveAction  *string      `json:"corrective_action"`
	Remarks           *string      `json:"remarks"`
}

func (r *InspectionRequest) apply(i *entity.OrderInspection) error {
	if r.OrderID != nil {
		i.OrderID = *r.OrderID
	}
	if r.InspectionTypeID != nil {
		i.InspectionTypeID = *r.InspectionTypeID
	}
	for _, f := range []struct {
		src *int
		dst *int
	}{
		{r.InspectedQuantity, &i.InspectedQuantity},
		{r.PassedQuantity, &i.PassedQuantity},
		{r.FailedQuantity, &i.FailedQuantity},
		{r.ReworkQuantity, &i.ReworkQuantity},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if r.Result != nil {
		if !containsString(entity.InspectionResults, *r.Result) {
			return invalid("\"%s\" is not a valid choice.", *r.Result)
		}
		if *r.Result != i.Result && *r.Result != entity.ResultPending {
			i.InspectedAt = nowPtr()
		}
		i.Result = *r.Result
	}
	if r.InspectionDate != nil {
		i.InspectionDate = datePtrOrNil(r.InspectionDate)
	}
	if r.InspectedBy != nil {
		i.InspectedBy = blankToNil(r.InspectedBy)
	}
	if r.DefectsFound != nil {
		i.DefectsFound = *r.DefectsFound
	}
	if r.CorrectiveAction != nil {
		i.CorrectiveAction = *r.CorrectiveAction
	}
	if r.Remarks != nil {
		i.Remarks = *r.Remarks
	}
	switch {
	case i.OrderID == "":
		return invalid("order_id: This field is required.")
	case i.InspectionTypeID == "":
		return invalid("inspection_type_id: This field is required.")
	case i.InspectedQuantity < 0, i.PassedQuantity < 0, i.FailedQuantity < 0, i.ReworkQuantity < 0:
		return invalid("Quantities must not be negative.")
	case i.PassedQuantity+i.FailedQuantity+i.ReworkQuantity > i.InspectedQuantity:
		return invalid("Passed, failed and rework quantities cannot exceed inspected quantity.")
	}
	return nil
}

func inspectionRepr(i *entity.OrderInspection) string {
	return fmt.Sprintf("%s - %s", i.OrderID, i.InspectionTypeID)
}

func (s *InspectionService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderInspection, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *InspectionService) Get(ctx context.Context, id string) (*entity.OrderInspection, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *InspectionService) Create(ctx context.Context, req *InspectionRequest, actor Actor) (*entity.OrderInspection, error) {
	i := &entity.OrderInspection{
		ID:             entity.NewID(),
		Result:         entity.ResultPending,
		InspectionDate: entity.DatePtr(entity.Today()),
		InspectedBy:    actor.ID(),
		CreatedBy:      actor.ID(),
	}
	if err := req.apply(i); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, i); err != nil {
			return err
		}
		if err := createEntity(tx, i); err != nil {
			return err
		}
		return auditCreate(tx, actor, AuditEntityInspection, i.ID, inspectionRepr(i), i)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, i.ID)
}

func (s *InspectionService) checkRefs(tx *gorm.DB, i *entity.OrderInspection) error {
	if err := ensureExists(tx, &entity.Order{}, i.OrderID, "order_id"); err != nil {
		return err
	}
	return ensureExists(tx, &entity.InspectionType{}, i.InspectionTypeID, "inspection_type_id")
}

func (s *InspectionService) Update(ctx context.Context, id string, req *InspectionRequest, actor Actor) (*entity.OrderInspection, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		i, err := lockByID[entity.OrderInspection](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, i)
		if err != nil {
			return err
		}
		if err := req.apply(i); err != nil {
			return err
		}
		if err := s.checkRefs(tx, i); err != nil {
			return err
		}
		if err := saveEntity(tx, i); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityInspection, i.ID, inspectionRepr(i), before, i, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *InspectionService) Delete(ctx context.Context, id string, actor Actor) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		i, err := lockByID[entity.OrderInspection](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("order_inspection_id = ?", id).Delete(&entity.InspectionChecklistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(i).Error; err != nil {
			return repository.Translate(err)
		}
		return auditDelete(tx, actor, AuditEntityInspection, i.ID, inspectionRepr(i), i)
	})
}

// QAApprovalRequest QA 审批
type QAApprovalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Remarks  string `json:"remarks"`
}

// QAApprove 记录 QA 审批；PDI 审批通过且订单在质检中时订单转为待发运
func (s *InspectionService) QAApprove(ctx context.Context, id string, req *QAApprovalRequest, actor Actor) (*entity.OrderInspection, error) {
	if req.Approved == nil {
		return nil, invalid("approved: This field is required.")
	}
	approved := *req.Approved
	var cascaded *entity.Order

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		i, err := lockByID[entity.OrderInspection](tx, id)
		if err != nil {
			return err
		}
		var itype entity.InspectionType
		if err := tx.Where("id = ?", i.InspectionTypeID).First(&itype).Error; err != nil {
			return repository.Translate(err)
		}
		before, err := snapshot(tx, i)
		if err != nil {
			return err
		}

		i.IsQAApproved = approved
		i.QAApprovedBy = actor.ID()
		i.QAApprovedAt = nowPtr()
		if req.Remarks != "" {
			i.QARemarks = strings.TrimSpace(i.QARemarks + "\n\nQA Approval: " + req.Remarks)
		}
		if err := saveEntity(tx, i); err != nil {
			return err
		}
		action := entity.AuditApprove
		if !approved {
			action = entity.AuditReject
		}
		if _, err := auditChange(tx, actor, action, AuditEntityInspection, i.ID, inspectionRepr(i), before, i, req.Remarks); err != nil {
			return err
		}

		if !approved || itype.Stage != entity.StagePDI {
			return nil
		}
		var order entity.Order
		if err := tx.Select("id", "status").Where("id = ?", i.OrderID).First(&order).Error; err != nil {
			return repository.Translate(err)
		}
		if order.Status != entity.OrderStatusQualityCheck {
			return nil
		}
		updated, changed, err := cascadeOrderStatus(tx, i.OrderID, entity.OrderStatusReadyForDispatch, actor, "PDI approved", nil)
		if err != nil {
			return err
		}
		if changed {
			cascaded = updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cascaded != nil {
		s.events.Publish(ctx, notify.Event{
			Type:       notify.EventOrderUpdate,
			Action:     "status_change",
			EntityType: AuditEntityOrder,
			EntityID:   cascaded.ID,
			OrderID:    cascaded.ID,
			Status:     cascaded.Status,
			ActorID:    actor.UserID,
		})
	}
	return s.repo.FindByID(ctx, id)
}

func (s *InspectionService) ByOrder(ctx context.Context, orderID string) ([]entity.OrderInspection, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.ByOrder(ctx, orderID)
}

func (s *InspectionService) PendingApproval(ctx context.Context) ([]entity.OrderInspection, error) {
	return s.repo.PendingApproval(ctx)
}

func (s *InspectionService) Failed(ctx context.Context) ([]entity.OrderInspection, error) {
	return s.repo.Failed(ctx)
}

func (s *InspectionService) DispatchBlocked(ctx context.Context) ([]entity.Order, error) {
	return s.repo.DispatchBlocked(ctx)
}

// QualityReport 质量指标与结果分布
type QualityReport struct {
	Metrics            *repository.QualityMetrics `json:"metrics"`
	ResultDistribution []repository.ResultCount   `json:"result_distribution"`
}

func (s *InspectionService) QualityMetrics(ctx context.Context, startDate, endDate string) (*QualityReport, error) {
	for _, v := range []string{startDate, endDate} {
		if v == "" {
			continue
		}
		if _, err := entity.ParseDate(v); err != nil {
			return nil, invalid("Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
	}
	m, dist, err := s.repo.QualityMetrics(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		dist = []repository.ResultCount{}
	}
	return &QualityReport{Metrics: m, ResultDistribution: dist}, nil
}

// ChecklistItemRequest 检验清单项
type ChecklistItemRequest struct {
	Parameter     string `json:"parameter" binding:"required"`
	Specification string `json:"specification"`
	ActualValue   string `json:"actual_value"`
	IsPassed      *bool  `json:"is_passed"`
	Remarks       string `json:"remarks"`
}

func (s *InspectionService) Checklist(ctx context.Context, id string) ([]entity.InspectionChecklistItem, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Checklist(ctx, id)
}

// AddChecklistItems 单条或批量添加，全部校验通过才写入
func (s *InspectionService) AddChecklistItems(ctx context.Context, id string, reqs []ChecklistItemRequest) ([]entity.InspectionChecklistItem, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, invalid("At least one checklist item is required.")
	}
	items := make([]entity.InspectionChecklistItem, 0, len(reqs))
	for n, r := range reqs {
		if strings.TrimSpace(r.Parameter) == "" {
			return nil, invalid("item %d: parameter: This field may not be blank.", n+1)
		}
		items = append(items, entity.InspectionChecklistItem{
			ID:                entity.NewID(),
			OrderInspectionID: id,
			Parameter:         strings.TrimSpace(r.Parameter),
			Specification:     r.Specification,
			ActualValue:       r.ActualValue,
			IsPassed:          r.IsPassed,
			Remarks:           r.Remarks,
		})
	}
	if err := s.repo.CreateChecklistItems(ctx, items); err != nil {
		return nil, fmt.Errorf("create checklist items: %w", err)
	}
	return items, nil
}
