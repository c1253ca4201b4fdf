package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/notify"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dispatchDocumentDir = "dispatch_documents"

// DispatchService 包装与发运
type DispatchService struct {
	db     *gorm.DB
	repo   *repository.DispatchRepository
	store  storage.Store
	events *notify.Bus
	mailer *notify.Mailer
	logger *zap.Logger
}

func NewDispatchService(db *gorm.DB, repo *repository.DispatchRepository, store storage.Store, events *notify.Bus) *DispatchService {
	return &DispatchService{db: db, repo: repo, store: store, events: events, logger: zap.NewNop()}
}

// SetMailer 启用发货通知邮件
func (s *DispatchService) SetMailer(m *notify.Mailer, logger *zap.Logger) {
	s.mailer = m
	if logger != nil {
		s.logger = logger
	}
}

// ==================== 包装标准 ====================

func (s *DispatchService) ListPackingStandards(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PackingStandard, int64, error) {
	return s.repo.PackingStandards.FindAll(ctx, page, pageSize, filters)
}

func (s *DispatchService) GetPackingStandard(ctx context.Context, id string) (*entity.PackingStandard, error) {
	return s.repo.PackingStandards.FindByID(ctx, id)
}

func (s *DispatchService) CreatePackingStandard(ctx context.Context, req *MasterDataRequest) (*entity.PackingStandard, error) {
	p := &entity.PackingStandard{ID: entity.NewID(), IsActive: true}
	if err := applyPackingStandard(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.PackingStandards.Create(ctx, p); err != nil {
		return nil, duplicateAs(err, "packing standard with this code already exists.")
	}
	return p, nil
}

func (s *DispatchService) UpdatePackingStandard(ctx context.Context, id string, req *MasterDataRequest) (*entity.PackingStandard, error) {
	p, err := s.repo.PackingStandards.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyPackingStandard(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.PackingStandards.Update(ctx, p); err != nil {
		return nil, duplicateAs(err, "packing standard with this code already exists.")
	}
	return p, nil
}

func applyPackingStandard(p *entity.PackingStandard, req *MasterDataRequest) error {
	applyMaster(&p.Name, &p.Code, &p.Description, &p.IsActive, req)
	if p.Name == "" {
		return invalid("name: This field may not be blank.")
	}
	if p.Code == "" {
		return invalid("code: This field may not be blank.")
	}
	return nil
}

func (s *DispatchService) DeletePackingStandard(ctx context.Context, id string) error {
	n, err := s.repo.PackingStandards.CountReferences(ctx, entity.OrderDispatch{}.TableName(), "packing_standard_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("Cannot delete a packing standard that is used by dispatches.")
	}
	return s.repo.PackingStandards.Delete(ctx, id)
}

// ==================== 发运 ====================

// CanDispatch 有 PDI 检验时取最近一次，须 QA 审批且合格；否则要求订单已待发运
func CanDispatch(ctx context.Context, db *gorm.DB, orderID, orderStatus string) (bool, error) {
	pdi, err := repository.LatestPDI(ctx, db, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return orderStatus == entity.OrderStatusReadyForDispatch, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pdi inspection: %w", err)
	}
	return pdi.DispatchCleared(), nil
}

func (s *DispatchService) fill(ctx context.Context, items ...*entity.OrderDispatch) error {
	for _, d := range items {
		status := ""
		if d.Order != nil {
			status = d.Order.Status
		} else {
			var o entity.Order
			if err := s.db.WithContext(ctx).Select("id", "status").Where("id = ?", d.OrderID).First(&o).Error; err != nil {
				return repository.Translate(err)
			}
			status = o.Status
		}
		ok, err := CanDispatch(ctx, s.db, d.OrderID, status)
		if err != nil {
			return err
		}
		d.CanDispatch = ok
	}
	return nil
}

func (s *DispatchService) fillAll(ctx context.Context, items []entity.OrderDispatch) ([]entity.OrderDispatch, error) {
	for i := range items {
		if err := s.fill(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *DispatchService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderDispatch, int64, error) {
	items, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	items, err = s.fillAll(ctx, items)
	return items, total, err
}

func (s *DispatchService) Get(ctx context.Context, id string) (*entity.OrderDispatch, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return d, s.fill(ctx, d)
}

// DispatchRequest 创建/更新发运
type DispatchRequest struct {
	OrderID              *string              `json:"order_id"`
	PackingStandardID    *string              `json:"packing_standard_id"`
	PackingDetails       *string              `json:"packing_details"`
	TotalPackages        *int                 `json:"total_packages"`
	GrossWeight          *decimal.NullDecimal `json:"gross_weight"`
	NetWeight            *decimal.NullDecimal `json:"net_weight"`
	Dimensions           *string              `json:"dimensions"`
	TransportMode        *string              `json:"transport_mode"`
	TransportScope       *string              `json:"transport_scope"`
	TransporterName      *string              `json:"transporter_name"`
	VehicleNumber        *string              `json:"vehicle_number"`
	DriverName           *string              `json:"driver_name"`
	DriverPhone          *string              `json:"driver_phone"`
	TrackingNumber       *string              `json:"tracking_number"`
	InvoiceNumber        *string              `json:"invoice_number"`
	EWayBillNumber       *string              `json:"e_way_bill_number"`
	LRNumber             *string              `json:"lr_number"`
	PlannedDispatchDate  *entity.Date         `json:"planned_dispatch_date"`
	ExpectedDeliveryDate *entity.Date         `json:"expected_delivery_date"`
	DeliveryAddress      *string              `json:"delivery_address"`
	DeliveryContactName  *string              `json:"delivery_contact_name"`
	DeliveryContactPhone *string              `json:"delivery_contact_phone"`
	Remarks              *string              `json:"remarks"`
	SpecialInstructions  *string              `json:"special_instructions"`
}

func (r *DispatchRequest) apply(d *entity.OrderDispatch) error {
	if r.OrderID != nil {
		d.OrderID = *r.OrderID
	}
	if r.PackingStandardID != nil {
		d.PackingStandardID = blankToNil(r.PackingStandardID)
	}
	r.applyPacking(d)
	if r.TransportMode != nil {
		d.TransportMode = *r.TransportMode
	}
	if r.TransportScope != nil {
		d.TransportScope = *r.TransportScope
	}
	r.applyTransport(d)
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{r.InvoiceNumber, &d.InvoiceNumber},
		{r.EWayBillNumber, &d.EWayBillNumber},
		{r.DeliveryAddress, &d.DeliveryAddress},
		{r.DeliveryContactName, &d.DeliveryContactName},
		{r.DeliveryContactPhone, &d.DeliveryContactPhone},
		{r.Remarks, &d.Remarks},
		{r.SpecialInstructions, &d.SpecialInstructions},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if r.PlannedDispatchDate != nil {
		d.PlannedDispatchDate = datePtrOrNil(r.PlannedDispatchDate)
	}
	if r.ExpectedDeliveryDate != nil {
		d.ExpectedDeliveryDate = datePtrOrNil(r.ExpectedDeliveryDate)
	}
	return validateDispatch(d)
}

func (r *DispatchRequest) applyPacking(d *entity.OrderDispatch) {
	if r.PackingDetails != nil {
		d.PackingDetails = *r.PackingDetails
	}
	if r.TotalPackages != nil {
		d.TotalPackages = *r.TotalPackages
	}
	if r.GrossWeight != nil {
		d.GrossWeight = *r.GrossWeight
	}
	if r.NetWeight != nil {
		d.NetWeight = *r.NetWeight
	}
	if r.Dimensions != nil {
		d.Dimensions = *r.Dimensions
	}
}

func (r *DispatchRequest) applyTransport(d *entity.OrderDispatch) {
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{r.TransporterName, &d.TransporterName},
		{r.VehicleNumber, &d.VehicleNumber},
		{r.DriverName, &d.DriverName},
		{r.DriverPhone, &d.DriverPhone},
		{r.TrackingNumber, &d.TrackingNumber},
		{r.LRNumber, &d.LRNumber},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
}

func validateDispatch(d *entity.OrderDispatch) error {
	switch {
	case d.OrderID == "":
		return invalid("order_id: This field is required.")
	case !containsString(entity.TransportModes, d.TransportMode):
		return invalid("\"%s\" is not a valid choice.", d.TransportMode)
	case !containsString(entity.TransportScopes, d.TransportScope):
		return invalid("\"%s\" is not a valid choice.", d.TransportScope)
	case d.TotalPackages < 0:
		return invalid("total_packages: Ensure this value is greater than or equal to 0.")
	case d.GrossWeight.Valid && d.GrossWeight.Decimal.IsNegative(), d.NetWeight.Valid && d.NetWeight.Decimal.IsNegative():
		return invalid("Weights must not be negative.")
	}
	return nil
}

func dispatchRepr(d *entity.OrderDispatch) string {
	return "Dispatch " + d.OrderID
}

func (s *DispatchService) Create(ctx context.Context, req *DispatchRequest, actor Actor) (*entity.OrderDispatch, error) {
	d := &entity.OrderDispatch{
		ID:             entity.NewID(),
		Status:         entity.DispatchPending,
		TransportMode:  "road",
		TransportScope: "door_delivery",
		TotalPackages:  1,
		CreatedBy:      actor.ID(),
	}
	if err := req.apply(d); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, d); err != nil {
			return err
		}
		if err := createEntity(tx, d); err != nil {
			return duplicateAs(err, "order dispatch with this order already exists.")
		}
		return auditCreate(tx, actor, AuditEntityDispatch, d.ID, dispatchRepr(d), d)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, d, "create", actor)
	return s.Get(ctx, d.ID)
}

func (s *DispatchService) checkRefs(tx *gorm.DB, d *entity.OrderDispatch) error {
	if err := ensureExists(tx, &entity.Order{}, d.OrderID, "order_id"); err != nil {
		return err
	}
	if d.PackingStandardID != nil {
		return ensureExists(tx, &entity.PackingStandard{}, *d.PackingStandardID, "packing_standard_id")
	}
	return nil
}

// Update 通用更新不改变状态，状态只能走动作接口
func (s *DispatchService) Update(ctx context.Context, id string, req *DispatchRequest, actor Actor) (*entity.OrderDispatch, error) {
	return s.act(ctx, id, actor, entity.AuditUpdate, "update", func(tx *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if err := req.apply(d); err != nil {
			return "", err
		}
		return "", s.checkRefs(tx, d)
	})
}

func (s *DispatchService) Delete(ctx context.Context, id string, actor Actor) error {
	var keys []string
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		d, err := lockByID[entity.OrderDispatch](tx, id)
		if err != nil {
			return err
		}
		if containsString(entity.DispatchShippedStatuses, d.Status) {
			return invalid("Cannot delete a dispatch that has already been dispatched.")
		}
		var docs []entity.DispatchDocument
		if err := tx.Where("dispatch_id = ?", id).Find(&docs).Error; err != nil {
			return err
		}
		for _, doc := range docs {
			keys = append(keys, doc.FilePath)
		}
		if err := tx.Where("dispatch_id = ?", id).Delete(&entity.DispatchDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(d).Error; err != nil {
			return repository.Translate(err)
		}
		return auditDelete(tx, actor, AuditEntityDispatch, d.ID, dispatchRepr(d), d)
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.logger.Warn("delete dispatch document failed", zap.String("key", k), zap.Error(err))
		}
	}
	return nil
}

// StartPacking pending → packing
func (s *DispatchService) StartPacking(ctx context.Context, id string, actor Actor) (*entity.OrderDispatch, error) {
	return s.act(ctx, id, actor, entity.AuditStatusChange, "start_packing", func(_ *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if d.Status != entity.DispatchPending {
			return "", invalid("Packing can only be started from Pending status.")
		}
		d.Status = entity.DispatchPacking
		d.PackedBy = actor.ID()
		return "Packing started", nil
	})
}

// MarkPacked packing → packed，可同时更新包装信息
func (s *DispatchService) MarkPacked(ctx context.Context, id string, req *DispatchRequest, actor Actor) (*entity.OrderDispatch, error) {
	return s.act(ctx, id, actor, entity.AuditStatusChange, "mark_packed", func(_ *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if d.Status != entity.DispatchPacking {
			return "", invalid("Order must be in Packing status.")
		}
		req.applyPacking(d)
		if err := validateDispatch(d); err != nil {
			return "", err
		}
		d.Status = entity.DispatchPacked
		return "Packed", nil
	})
}

// ReadyForDispatch packed → ready，须可发运
func (s *DispatchService) ReadyForDispatch(ctx context.Context, id string, actor Actor) (*entity.OrderDispatch, error) {
	return s.act(ctx, id, actor, entity.AuditStatusChange, "ready_for_dispatch", func(tx *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if d.Status != entity.DispatchPacked {
			return "", invalid("Order must be Packed first.")
		}
		if err := s.requireCanDispatch(ctx, tx, d); err != nil {
			return "", err
		}
		d.Status = entity.DispatchReady
		return "Ready for dispatch", nil
	})
}

// Dispatch packed/ready → dispatched，订单随之转为已发运
func (s *DispatchService) Dispatch(ctx context.Context, id string, req *DispatchRequest, actor Actor) (*entity.OrderDispatch, error) {
	var order *entity.Order
	d, err := s.act(ctx, id, actor, entity.AuditStatusChange, "dispatch", func(tx *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if d.Status != entity.DispatchPacked && d.Status != entity.DispatchReady {
			return "", invalid("Order must be Packed or Ready for Dispatch.")
		}
		if err := s.requireCanDispatch(ctx, tx, d); err != nil {
			return "", err
		}
		req.applyTransport(d)
		d.Status = entity.DispatchDispatched
		d.ActualDispatchDate = entity.DatePtr(entity.Today())
		d.DispatchedAt = nowPtr()
		d.DispatchedBy = actor.ID()

		var err error
		order, _, err = cascadeOrderStatus(tx, d.OrderID, entity.OrderStatusDispatched, actor, "Order dispatched", nil)
		return "Dispatched", err
	})
	if err != nil {
		return nil, err
	}
	s.publishOrder(ctx, order, actor)
	s.notifyCustomer(ctx, d)
	return d, nil
}

// MarkInTransit dispatched → in_transit
func (s *DispatchService) MarkInTransit(ctx context.Context, id string, req *DispatchRequest, actor Actor) (*entity.OrderDispatch, error) {
	return s.act(ctx, id, actor, entity.AuditStatusChange, "mark_in_transit", func(_ *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if d.Status != entity.DispatchDispatched {
			return "", invalid("Order must be Dispatched first.")
		}
		if req != nil && req.TrackingNumber != nil {
			d.TrackingNumber = *req.TrackingNumber
		}
		d.Status = entity.DispatchInTransit
		return "In transit", nil
	})
}

// MarkDelivered dispatched/in_transit → delivered，订单完成并记录实际交付日期
func (s *DispatchService) MarkDelivered(ctx context.Context, id string, actor Actor) (*entity.OrderDispatch, error) {
	var order *entity.Order
	d, err := s.act(ctx, id, actor, entity.AuditStatusChange, "mark_delivered", func(tx *gorm.DB, d *entity.OrderDispatch) (string, error) {
		if d.Status != entity.DispatchDispatched && d.Status != entity.DispatchInTransit {
			return "", invalid("Order must be Dispatched or In Transit.")
		}
		today := entity.Today()
		d.Status = entity.DispatchDelivered
		d.ActualDeliveryDate = entity.DatePtr(today)
		d.DeliveredAt = nowPtr()

		var err error
		order, _, err = cascadeOrderStatus(tx, d.OrderID, entity.OrderStatusCompleted, actor, "Order delivered", func(o *entity.Order) {
			o.ActualDeliveryDate = entity.DatePtr(today)
			lead := o.OrderDate.DaysUntil(today)
			o.ActualLeadTime = &lead
		})
		return "Delivered", err
	})
	if err != nil {
		return nil, err
	}
	s.publishOrder(ctx, order, actor)
	return d, nil
}

func (s *DispatchService) requireCanDispatch(ctx context.Context, tx *gorm.DB, d *entity.OrderDispatch) error {
	var o entity.Order
	if err := tx.Select("id", "status").Where("id = ?", d.OrderID).First(&o).Error; err != nil {
		return repository.Translate(err)
	}
	ok, err := CanDispatch(ctx, tx, d.OrderID, o.Status)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("Cannot dispatch - QA approval pending.")
	}
	return nil
}

// act 锁定发运行，执行 fn 后保存并写审计，提交后发布事件
func (s *DispatchService) act(ctx context.Context, id string, actor Actor, auditAction, eventAction string, fn func(*gorm.DB, *entity.OrderDispatch) (string, error)) (*entity.OrderDispatch, error) {
	var d *entity.OrderDispatch
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		d, err = lockByID[entity.OrderDispatch](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, d)
		if err != nil {
			return err
		}
		notes, err := fn(tx, d)
		if err != nil {
			return err
		}
		if err := saveEntity(tx, d); err != nil {
			return duplicateAs(err, "order dispatch with this order already exists.")
		}
		_, err = auditChange(tx, actor, auditAction, AuditEntityDispatch, d.ID, dispatchRepr(d), before, d, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, d, eventAction, actor)
	return s.Get(ctx, id)
}

func (s *DispatchService) publish(ctx context.Context, d *entity.OrderDispatch, action string, actor Actor) {
	s.events.Publish(ctx, notify.Event{
		Type:       notify.EventDispatchUpdate,
		Action:     action,
		EntityType: AuditEntityDispatch,
		EntityID:   d.ID,
		OrderID:    d.OrderID,
		Status:     d.Status,
		ActorID:    actor.UserID,
	})
}

func (s *DispatchService) publishOrder(ctx context.Context, o *entity.Order, actor Actor) {
	if o == nil {
		return
	}
	s.events.Publish(ctx, notify.Event{
		Type:       notify.EventOrderUpdate,
		Action:     "status_change",
		EntityType: AuditEntityOrder,
		EntityID:   o.ID,
		OrderID:    o.ID,
		Status:     o.Status,
		ActorID:    actor.UserID,
	})
}

// notifyCustomer 异步发送发货通知，失败只记日志
func (s *DispatchService) notifyCustomer(ctx context.Context, d *entity.OrderDispatch) {
	if s.mailer == nil {
		return
	}
	var order entity.Order
	if err := s.db.WithContext(ctx).Preload("Customer").Where("id = ?", d.OrderID).First(&order).Error; err != nil {
		s.logger.Warn("load order for dispatch notice failed", zap.String("order_id", d.OrderID), zap.Error(err))
		return
	}
	notice := buildDispatchNotice(&order, d)
	if notice.To == "" {
		return
	}
	go func() {
		if err := s.mailer.SendDispatchNotice(notice); err != nil {
			s.logger.Warn("send dispatch notice failed", zap.String("order_id", d.OrderID), zap.Error(err))
		}
	}()
}

func buildDispatchNotice(order *entity.Order, d *entity.OrderDispatch) notify.DispatchNotice {
	n := notify.DispatchNotice{
		QuoteNumber:     order.QuoteNumber,
		ProjectName:     order.ProjectName,
		TransportMode:   d.TransportMode,
		TransporterName: d.TransporterName,
		VehicleNumber:   d.VehicleNumber,
		TrackingNumber:  d.TrackingNumber,
		LRNumber:        d.LRNumber,
	}
	if d.ActualDispatchDate != nil {
		n.DispatchDate = d.ActualDispatchDate.String()
	}
	if d.ExpectedDeliveryDate != nil {
		n.ExpectedDate = d.ExpectedDeliveryDate.String()
	}
	if c := order.Customer; c != nil {
		n.CustomerName = c.Name
		n.To = c.ContactEmail
		if n.To == "" {
			n.To = c.Email
		}
	}
	return n
}

func (s *DispatchService) ByOrder(ctx context.Context, orderID string) (*entity.OrderDispatch, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	d, err := s.repo.ByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return d, s.fill(ctx, d)
}

func (s *DispatchService) Pending(ctx context.Context) ([]entity.OrderDispatch, error) {
	items, err := s.repo.ByStatuses(ctx, entity.DispatchAwaitingStatuses)
	if err != nil {
		return nil, err
	}
	return s.fillAll(ctx, items)
}

func (s *DispatchService) InTransit(ctx context.Context) ([]entity.OrderDispatch, error) {
	items, err := s.repo.ByStatuses(ctx, []string{entity.DispatchDispatched, entity.DispatchInTransit})
	if err != nil {
		return nil, err
	}
	return s.fillAll(ctx, items)
}

func (s *DispatchService) Delayed(ctx context.Context) ([]entity.OrderDispatch, error) {
	items, err := s.repo.Delayed(ctx)
	if err != nil {
		return nil, err
	}
	return s.fillAll(ctx, items)
}

// DocumentRequest 上传发运单据
type DocumentRequest struct {
	DocumentType   string `form:"document_type" binding:"required"`
	DocumentNumber string `form:"document_number"`
}

func (s *DispatchService) UploadDocument(ctx context.Context, id string, req *DocumentRequest, file *FileUpload, actor Actor) (*entity.DispatchDocument, error) {
	if !containsString(entity.DispatchDocumentTypes, req.DocumentType) {
		return nil, invalid("\"%s\" is not a valid choice.", req.DocumentType)
	}
	if file == nil {
		return nil, invalid("file: No file was submitted.")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	docID := entity.NewID()
	name := path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	key := path.Join(dispatchDocumentDir, id, docID+"_"+name)
	if err := s.store.Put(ctx, key, file.Reader, file.Size, file.ContentType); err != nil {
		return nil, fmt.Errorf("store dispatch document: %w", err)
	}
	doc := &entity.DispatchDocument{
		ID:             docID,
		DispatchID:     id,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		FilePath:       key,
		FileName:       name,
		FileSize:       file.Size,
		UploadedBy:     actor.ID(),
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, fmt.Errorf("create dispatch document: %w", err)
	}
	return doc, nil
}

func (s *DispatchService) Documents(ctx context.Context, id string) ([]entity.DispatchDocument, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Documents(ctx, id)
}

// DownloadDocument 读取单据文件
func (s *DispatchService) DownloadDocument(ctx context.Context, docID string) (*StoredFile, error) {
	doc, err := s.repo.FindDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	rc, err := s.store.Open(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &StoredFile{Name: doc.FileName, Size: doc.FileSize, Content: rc}, nil
}
