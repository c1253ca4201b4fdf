package service

import (
	"fmt"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// ValidOrderTransitions 严格模式下允许的订单状态迁移
var ValidOrderTransitions = map[string][]string{
	entity.OrderStatusDraft:            {entity.OrderStatusQuoted, entity.OrderStatusConfirmed, entity.OrderStatusCancelled, entity.OrderStatusOnHold},
	entity.OrderStatusQuoted:           {entity.OrderStatusDraft, entity.OrderStatusConfirmed, entity.OrderStatusCancelled, entity.OrderStatusOnHold},
	entity.OrderStatusConfirmed:        {entity.OrderStatusInProduction, entity.OrderStatusCancelled, entity.OrderStatusOnHold},
	entity.OrderStatusInProduction:     {entity.OrderStatusQualityCheck, entity.OrderStatusCancelled, entity.OrderStatusOnHold},
	entity.OrderStatusQualityCheck:     {entity.OrderStatusReadyForDispatch, entity.OrderStatusInProduction, entity.OrderStatusOnHold},
	entity.OrderStatusReadyForDispatch: {entity.OrderStatusDispatched, entity.OrderStatusQualityCheck, entity.OrderStatusOnHold},
	entity.OrderStatusDispatched:       {entity.OrderStatusCompleted},
	entity.OrderStatusOnHold: {
		entity.OrderStatusDraft, entity.OrderStatusQuoted, entity.OrderStatusConfirmed, entity.OrderStatusInProduction,
		entity.OrderStatusQualityCheck, entity.OrderStatusReadyForDispatch, entity.OrderStatusCancelled,
	},
	entity.OrderStatusCompleted: {},
	entity.OrderStatusCancelled: {},
}

// CanTransitionOrder 同状态视为允许
func CanTransitionOrder(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range ValidOrderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderGate 用户发起的订单状态修改校验
type OrderGate struct {
	Strict bool
}

func (g OrderGate) Check(from, to string) error {
	if !entity.IsValidOrderStatus(to) {
		return invalid("\"%s\" is not a valid choice.", to)
	}
	if g.Strict && !CanTransitionOrder(from, to) {
		return invalid("Cannot change order status from %s to %s.", from, to)
	}
	return nil
}

// writeStatusHistory 追加订单状态历史
func writeStatusHistory(tx *gorm.DB, orderID string, previous *string, status string, actor Actor, notes string) error {
	h := &entity.OrderStatusHistory{
		ID:             entity.NewID(),
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      status,
		ChangedBy:      actor.ID(),
		ChangedByName:  actor.DisplayName(),
		Notes:          notes,
	}
	if err := tx.Create(h).Error; err != nil {
		return fmt.Errorf("write status history: %w", err)
	}
	return nil
}

// cascadeOrderStatus 由下游动作驱动的订单状态变更（PDI 审批、发运、签收）
// 在调用方事务内锁定订单，写历史与审计。状态未变且 mutate 为空时不写任何行。
func cascadeOrderStatus(tx *gorm.DB, orderID, status string, actor Actor, notes string, mutate func(*entity.Order)) (*entity.Order, bool, error) {
	order, err := lockByID[entity.Order](tx, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("lock order: %w", err)
	}
	before, err := snapshot(tx, order)
	if err != nil {
		return nil, false, err
	}

	previous := order.Status
	order.Status = status
	if mutate != nil {
		mutate(order)
	}
	if err := saveEntity(tx, order); err != nil {
		return nil, false, fmt.Errorf("save order: %w", err)
	}

	statusChanged := previous != status
	if statusChanged {
		if err := writeStatusHistory(tx, order.ID, &previous, status, actor, notes); err != nil {
			return nil, false, err
		}
	}
	if _, err := auditChange(tx, actor, entity.AuditStatusChange, AuditEntityOrder, order.ID, order.String(), before, order, notes); err != nil {
		return nil, false, err
	}
	order.Derive(entity.Today())
	return order, statusChanged, nil
}

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
