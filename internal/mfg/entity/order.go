package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 订单状态
const (
	OrderStatusDraft            = "draft"
	OrderStatusQuoted           = "quoted"
	OrderStatusConfirmed        = "confirmed"
	OrderStatusInProduction     = "in_production"
	OrderStatusQualityCheck     = "quality_check"
	OrderStatusReadyForDispatch = "ready_for_dispatch"
	OrderStatusDispatched       = "dispatched"
	OrderStatusCompleted        = "completed"
	OrderStatusCancelled        = "cancelled"
	OrderStatusOnHold           = "on_hold"
)

var OrderStatuses = []string{
	OrderStatusDraft, OrderStatusQuoted, OrderStatusConfirmed, OrderStatusInProduction,
	OrderStatusQualityCheck, OrderStatusReadyForDispatch, OrderStatusDispatched,
	OrderStatusCompleted, OrderStatusCancelled, OrderStatusOnHold,
}

func IsValidOrderStatus(status string) bool {
	return contains(OrderStatuses, status)
}

// 优先级
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var Priorities = []string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// 未结订单（不参与延期判断）
var closedForDelay = []string{OrderStatusCompleted, OrderStatusCancelled, OrderStatusDispatched}

// Order 订单
type Order struct {
	ID              string `json:"id" gorm:"primaryKey;size:32"`
	QuoteNumber     string `json:"quote_number" gorm:"size:50;uniqueIndex;not null"`
	PONumber        string `json:"po_number" gorm:"size:100;index"`
	WorkOrderNumber string `json:"work_order_number" gorm:"size:100;index"`
	InvoiceNumber   string `json:"invoice_number" gorm:"size:100"`
	GRNNumber       string `json:"grn_number" gorm:"size:100"`

	CustomerID string    `json:"customer_id" gorm:"size:32;not null;index"`
	Customer   *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`

	ProjectName     string `json:"project_name" gorm:"size:200;not null"`
	Description     string `json:"description" gorm:"type:text"`
	OrderedQuantity int    `json:"ordered_quantity" gorm:"not null"`

	// 日期
	OrderDate            Date  `json:"order_date" gorm:"type:date;not null"`
	PlannedLeadTime      int   `json:"planned_lead_time" gorm:"not null"`
	ActualLeadTime       *int  `json:"actual_lead_time"`
	ExpectedDeliveryDate *Date `json:"expected_delivery_date" gorm:"type:date;index"`
	ActualDeliveryDate   *Date `json:"actual_delivery_date" gorm:"type:date"`

	Status           string `json:"status" gorm:"size:30;not null;index"`
	StatusPercentage int    `json:"status_percentage" gorm:"not null"`
	Priority         string `json:"priority" gorm:"size:20;not null"`

	// 金额
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2);not null"`

	Remarks       string `json:"remarks" gorm:"type:text"`
	InternalNotes string `json:"internal_notes" gorm:"type:text"`

	CreatedBy  *string   `json:"created_by" gorm:"size:32"`
	AssignedTo *string   `json:"assigned_to" gorm:"size:32;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	IsDelayed     bool `json:"is_delayed" gorm:"-"`
	DaysRemaining *int `json:"days_remaining" gorm:"-"`
}

func (Order) TableName() string {
	return "crm_orders"
}

func (o *Order) String() string {
	return o.QuoteNumber + " - " + o.ProjectName
}

// BeforeSave total_amount = unit_price × ordered_quantity
func (o *Order) BeforeSave(tx *gorm.DB) error {
	o.RecalculateTotal()
	return nil
}

func (o *Order) RecalculateTotal() {
	o.TotalAmount = o.UnitPrice.Mul(decimal.NewFromInt(int64(o.OrderedQuantity))).Round(2)
}

func (o *Order) AfterFind(tx *gorm.DB) error {
	o.Derive(Today())
	return nil
}

// Derive 计算延期标记与剩余天数
func (o *Order) Derive(today Date) {
	o.IsDelayed = false
	o.DaysRemaining = nil
	if o.ExpectedDeliveryDate == nil || o.ExpectedDeliveryDate.IsZero() {
		return
	}
	days := today.DaysUntil(*o.ExpectedDeliveryDate)
	o.DaysRemaining = &days
	o.IsDelayed = days < 0 && !contains(closedForDelay, o.Status)
}

// OrderStatusHistory 订单状态变更历史（只追加）
type OrderStatusHistory struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID        string    `json:"order_id" gorm:"size:32;not null;index"`
	PreviousStatus *string   `json:"previous_status" gorm:"size:30"`
	NewStatus      string    `json:"new_status" gorm:"size:30;not null"`
	ChangedBy      *string   `json:"changed_by" gorm:"size:32"`
	ChangedByName  string    `json:"changed_by_name" gorm:"size:300"`
	Notes          string    `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

func (OrderStatusHistory) TableName() string {
	return "crm_order_status_history"
}
