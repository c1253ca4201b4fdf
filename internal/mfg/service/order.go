package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/notify"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultLeadTimeDays = 30

// OrderService 订单服务
type OrderService struct {
	db     *gorm.DB
	repo   *repository.OrderRepository
	gate   OrderGate
	events *notify.Bus
}

func NewOrderService(db *gorm.DB, repo *repository.OrderRepository, gate OrderGate, events *notify.Bus) *OrderService {
	return &OrderService{db: db, repo: repo, gate: gate, events: events}
}

// CreateOrderRequest 创建订单请求，quote_number 为空时自动生成
type CreateOrderRequest struct {
	QuoteNumber          string           `json:"quote_number"`
	PONumber             string           `json:"po_number"`
	WorkOrderNumber      string           `json:"work_order_number"`
	CustomerID           string           `json:"customer_id" binding:"required"`
	ProjectName          string           `json:"project_name" binding:"required"`
	Description          string           `json:"description"`
	OrderedQuantity      *int             `json:"ordered_quantity"`
	OrderDate            *entity.Date     `json:"order_date"`
	PlannedLeadTime      *int             `json:"planned_lead_time"`
	ExpectedDeliveryDate *entity.Date     `json:"expected_delivery_date"`
	Priority             string           `json:"priority"`
	UnitPrice            *decimal.Decimal `json:"unit_price"`
	Remarks              string           `json:"remarks"`
	InternalNotes        string           `json:"internal_notes"`
	AssignedTo           *string          `json:"assigned_to"`
}

// UpdateOrderRequest 部分更新订单
type UpdateOrderRequest struct {
	PONumber             *string          `json:"po_number"`
	WorkOrderNumber      *string          `json:"work_order_number"`
	InvoiceNumber        *string          `json:"invoice_number"`
	GRNNumber            *string          `json:"grn_number"`
	ProjectName          *string          `json:"project_name"`
	Description          *string          `json:"description"`
	OrderedQuantity      *int             `json:"ordered_quantity"`
	PlannedLeadTime      *int             `json:"planned_lead_time"`
	ActualLeadTime       *int             `json:"actual_lead_time"`
	ExpectedDeliveryDate *entity.Date     `json:"expected_delivery_date"`
	ActualDeliveryDate   *entity.Date     `json:"actual_delivery_date"`
	Status               *string          `json:"status"`
	StatusPercentage     *int             `json:"status_percentage"`
	Priority             *string          `json:"priority"`
	UnitPrice            *decimal.Decimal `json:"unit_price"`
	Remarks              *string          `json:"remarks"`
	InternalNotes        *string          `json:"internal_notes"`
	AssignedTo           *string          `json:"assigned_to"`
	Notes                string           `json:"notes"`
}

// StatusUpdateRequest 订单状态变更
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func validateOrder(o *entity.Order) error {
	if strings.TrimSpace(o.ProjectName) == "" {
		return invalid("project_name: This field may not be blank.")
	}
	if o.OrderedQuantity < 1 {
		return invalid("ordered_quantity: Ensure this value is greater than or equal to 1.")
	}
	if o.PlannedLeadTime < 0 {
		return invalid("planned_lead_time: Ensure this value is greater than or equal to 0.")
	}
	if o.ActualLeadTime != nil && *o.ActualLeadTime < 0 {
		return invalid("actual_lead_time: Ensure this value is greater than or equal to 0.")
	}
	if o.StatusPercentage < 0 || o.StatusPercentage > 100 {
		return invalid("status_percentage: Ensure this value is between 0 and 100.")
	}
	if !containsString(entity.Priorities, o.Priority) {
		return invalid("\"%s\" is not a valid choice.", o.Priority)
	}
	if o.UnitPrice.IsNegative() {
		return invalid("unit_price: Ensure this value is greater than or equal to 0.")
	}
	return nil
}

func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *OrderService) Get(ctx context.Context, id string) (*entity.Order, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 新订单状态为 draft，同时写入首条状态历史（previous 为空）
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest, actor Actor) (*entity.Order, error) {
	order := &entity.Order{
		ID:              entity.NewID(),
		QuoteNumber:     strings.TrimSpace(req.QuoteNumber),
		PONumber:        req.PONumber,
		WorkOrderNumber: req.WorkOrderNumber,
		CustomerID:      req.CustomerID,
		ProjectName:     req.ProjectName,
		Description:     req.Description,
		OrderedQuantity: 1,
		OrderDate:       entity.Today(),
		PlannedLeadTime: defaultLeadTimeDays,
		Status:          entity.OrderStatusDraft,
		Priority:        entity.PriorityNormal,
		UnitPrice:       decimal.Zero,
		Remarks:         req.Remarks,
		InternalNotes:   req.InternalNotes,
		CreatedBy:       actor.ID(),
		AssignedTo:      blankToNil(req.AssignedTo),
	}
	if req.OrderedQuantity != nil {
		order.OrderedQuantity = *req.OrderedQuantity
	}
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		order.OrderDate = *req.OrderDate
	}
	if req.PlannedLeadTime != nil {
		order.PlannedLeadTime = *req.PlannedLeadTime
	}
	if req.ExpectedDeliveryDate != nil && !req.ExpectedDeliveryDate.IsZero() {
		order.ExpectedDeliveryDate = req.ExpectedDeliveryDate
	}
	if req.Priority != "" {
		order.Priority = req.Priority
	}
	if req.UnitPrice != nil {
		order.UnitPrice = *req.UnitPrice
	}
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := ensureExists(tx, &entity.Customer{}, order.CustomerID, "customer_id"); err != nil {
			return err
		}
		if order.AssignedTo != nil {
			if err := ensureExists(tx, &entity.User{}, *order.AssignedTo, "assigned_to"); err != nil {
				return err
			}
		}
		if order.QuoteNumber == "" {
			qn, err := s.repo.GenerateQuoteNumber(tx.Statement.Context)
			if err != nil {
				return fmt.Errorf("generate quote number: %w", err)
			}
			order.QuoteNumber = qn
		}
		if err := createEntity(tx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("order with this quote number already exists.")
			}
			return err
		}
		if err := writeStatusHistory(tx, order.ID, nil, order.Status, actor, "Order created"); err != nil {
			return err
		}
		return auditCreate(tx, actor, AuditEntityOrder, order.ID, order.String(), order)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order, entity.AuditCreate, actor)
	return s.repo.FindByID(ctx, order.ID)
}

// Update 部分更新；状态变化时经过 OrderGate 并写历史
func (s *OrderService) Update(ctx context.Context, id string, req *UpdateOrderRequest, actor Actor) (*entity.Order, error) {
	var statusChanged bool
	var order *entity.Order
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		order, err = lockByID[entity.Order](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, order)
		if err != nil {
			return err
		}
		previous := order.Status

		if req.Status != nil && *req.Status != previous {
			if err := s.gate.Check(previous, *req.Status); err != nil {
				return err
			}
		}
		applyOrderUpdate(order, req)
		if err := validateOrder(order); err != nil {
			return err
		}
		if req.AssignedTo != nil && order.AssignedTo != nil {
			if err := ensureExists(tx, &entity.User{}, *order.AssignedTo, "assigned_to"); err != nil {
				return err
			}
		}
		if err := saveEntity(tx, order); err != nil {
			return err
		}
		if order.Status != previous {
			statusChanged = true
			if err := writeStatusHistory(tx, order.ID, &previous, order.Status, actor, req.Notes); err != nil {
				return err
			}
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityOrder, order.ID, order.String(), before, order, req.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publish(ctx, order, entity.AuditStatusChange, actor)
	} else {
		s.publish(ctx, order, entity.AuditUpdate, actor)
	}
	return s.repo.FindByID(ctx, id)
}

func applyOrderUpdate(o *entity.Order, req *UpdateOrderRequest) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&o.PONumber, req.PONumber)
	setStr(&o.WorkOrderNumber, req.WorkOrderNumber)
	setStr(&o.InvoiceNumber, req.InvoiceNumber)
	setStr(&o.GRNNumber, req.GRNNumber)
	setStr(&o.ProjectName, req.ProjectName)
	setStr(&o.Description, req.Description)
	setStr(&o.Status, req.Status)
	setStr(&o.Priority, req.Priority)
	setStr(&o.Remarks, req.Remarks)
	setStr(&o.InternalNotes, req.InternalNotes)
	if req.OrderedQuantity != nil {
		o.OrderedQuantity = *req.OrderedQuantity
	}
	if req.PlannedLeadTime != nil {
		o.PlannedLeadTime = *req.PlannedLeadTime
	}
	if req.ActualLeadTime != nil {
		o.ActualLeadTime = req.ActualLeadTime
	}
	if req.ExpectedDeliveryDate != nil {
		o.ExpectedDeliveryDate = datePtrOrNil(req.ExpectedDeliveryDate)
	}
	if req.ActualDeliveryDate != nil {
		o.ActualDeliveryDate = datePtrOrNil(req.ActualDeliveryDate)
	}
	if req.StatusPercentage != nil {
		o.StatusPercentage = *req.StatusPercentage
	}
	if req.UnitPrice != nil {
		o.UnitPrice = *req.UnitPrice
	}
	if req.AssignedTo != nil {
		o.AssignedTo = blankToNil(req.AssignedTo)
	}
}

func datePtrOrNil(d *entity.Date) *entity.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	v := *d
	return &v
}

// UpdateStatus 状态变更动作；状态不变时不写历史也不写审计
func (s *OrderService) UpdateStatus(ctx context.Context, id string, req *StatusUpdateRequest, actor Actor) (*entity.Order, error) {
	var changed bool
	var order *entity.Order
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		current, err := lockByID[entity.Order](tx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Check(current.Status, req.Status); err != nil {
			return err
		}
		if current.Status == req.Status {
			order = current
			return nil
		}
		order, changed, err = cascadeOrderStatus(tx, id, req.Status, actor, req.Notes, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, order, entity.AuditStatusChange, actor)
	}
	return s.repo.FindByID(ctx, id)
}

// Delete 删除订单及其状态历史
func (s *OrderService) Delete(ctx context.Context, id string, actor Actor) error {
	var order *entity.Order
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		order, err = lockByID[entity.Order](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&entity.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		if err := repository.Translate(tx.Delete(order).Error); err != nil {
			if errors.Is(err, repository.ErrInUse) {
				return invalid("Cannot delete an order that has dependent records.")
			}
			return err
		}
		return auditDelete(tx, actor, AuditEntityOrder, order.ID, order.String(), order)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, order, entity.AuditDelete, actor)
	return nil
}

func (s *OrderService) StatusHistory(ctx context.Context, id string) ([]entity.OrderStatusHistory, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.StatusHistory(ctx, id)
}

func (s *OrderService) Delayed(ctx context.Context) ([]entity.Order, error) {
	return s.repo.FindDelayed(ctx)
}

func (s *OrderService) ByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	return s.repo.CountByStatus(ctx)
}

// MyOrders 分配给当前用户的订单
func (s *OrderService) MyOrders(ctx context.Context, page, pageSize int, actor Actor) ([]entity.Order, int64, error) {
	if actor.UserID == "" {
		return nil, 0, nil
	}
	return s.repo.FindAll(ctx, page, pageSize, map[string]string{"assigned_to": actor.UserID})
}

func (s *OrderService) publish(ctx context.Context, order *entity.Order, action string, actor Actor) {
	if order == nil {
		return
	}
	s.events.Publish(ctx, notify.Event{
		Type:       notify.EventOrderUpdate,
		Action:     action,
		EntityType: AuditEntityOrder,
		EntityID:   order.ID,
		OrderID:    order.ID,
		Status:     order.Status,
		ActorID:    actor.UserID,
	})
}
