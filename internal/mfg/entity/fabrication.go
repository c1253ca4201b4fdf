package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 工序类别
var ProcessCategories = []string{"cutting", "forming", "joining", "finishing", "assembly"}

// FabricationProcess 加工工序主数据
type FabricationProcess struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	Name          string    `json:"name" gorm:"size:100;not null"`
	Code          string    `json:"code" gorm:"size:20;uniqueIndex;not null"`
	Category      string    `json:"category" gorm:"size:20;not null"`
	Description   string    `json:"description" gorm:"type:text"`
	SequenceOrder int       `json:"sequence_order" gorm:"not null"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (FabricationProcess) TableName() string {
	return "fabrication_processes"
}

// 工序状态
const (
	FabricationNotStarted = "not_started"
	FabricationPending    = "pending"
	FabricationInProgress = "in_progress"
	FabricationCompleted  = "completed"
	FabricationOnHold     = "on_hold"
	FabricationSkipped    = "skipped"
)

var FabricationStatuses = []string{
	FabricationNotStarted, FabricationPending, FabricationInProgress,
	FabricationCompleted, FabricationOnHold, FabricationSkipped,
}

// OrderFabrication 订单工序进度，(order_id, process_id) 唯一
type OrderFabrication struct {
	ID        string              `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string              `json:"order_id" gorm:"size:32;not null;uniqueIndex:idx_order_process"`
	Order     *Order              `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	ProcessID string              `json:"process_id" gorm:"size:32;not null;uniqueIndex:idx_order_process"`
	Process   *FabricationProcess `json:"process,omitempty" gorm:"foreignKey:ProcessID"`
	Status    string              `json:"status" gorm:"size:20;not null;index"`

	PlannedQuantity   int `json:"planned_quantity" gorm:"not null"`
	CompletedQuantity int `json:"completed_quantity" gorm:"not null"`

	PlannedStartDate *Date      `json:"planned_start_date" gorm:"type:date"`
	PlannedEndDate   *Date      `json:"planned_end_date" gorm:"type:date"`
	ActualStartDate  *Date      `json:"actual_start_date" gorm:"type:date"`
	ActualEndDate    *Date      `json:"actual_end_date" gorm:"type:date"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`

	Machine    string  `json:"machine" gorm:"size:100"`
	OperatorID *string `json:"operator_id" gorm:"size:32"`
	Remarks    string  `json:"remarks" gorm:"type:text"`

	CreatedBy *string   `json:"created_by" gorm:"size:32"`
	UpdatedBy *string   `json:"updated_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompletionPercentage decimal.Decimal `json:"completion_percentage" gorm:"-"`
	IsDelayed            bool            `json:"is_delayed" gorm:"-"`
}

func (OrderFabrication) TableName() string {
	return "fabrication_order_processes"
}

func (f *OrderFabrication) AfterFind(tx *gorm.DB) error {
	f.Derive(Today())
	return nil
}

func (f *OrderFabrication) Derive(today Date) {
	f.CompletionPercentage = Percent(int64(f.CompletedQuantity), int64(f.PlannedQuantity))
	f.IsDelayed = f.PlannedEndDate != nil && !f.PlannedEndDate.IsZero() &&
		f.PlannedEndDate.Before(today.Time) &&
		f.Status != FabricationCompleted && f.Status != FabricationSkipped
}

// FabricationLog 工序状态变更日志
type FabricationLog struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:32"`
	OrderFabricationID string    `json:"order_fabrication_id" gorm:"size:32;not null;index"`
	PreviousStatus     string    `json:"previous_status" gorm:"size:20"`
	NewStatus          string    `json:"new_status" gorm:"size:20;not null"`
	QuantityCompleted  int       `json:"quantity_completed" gorm:"not null"`
	Notes              string    `json:"notes" gorm:"type:text"`
	LoggedBy           *string   `json:"logged_by" gorm:"size:32"`
	CreatedAt          time.Time `json:"created_at" gorm:"index"`
}

func (FabricationLog) TableName() string {
	return "fabrication_logs"
}
