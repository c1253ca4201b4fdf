package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TreatmentType 表面处理类型
type TreatmentType struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Code        string    `json:"code" gorm:"size:20;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (TreatmentType) TableName() string {
	return "surface_treatment_types"
}

// 表面处理状态
const (
	TreatmentNotRequired = "not_required"
	TreatmentPending     = "pending"
	TreatmentInProgress  = "in_progress"
	TreatmentCompleted   = "completed"
	TreatmentFailed      = "failed"
)

var TreatmentStatuses = []string{TreatmentNotRequired, TreatmentPending, TreatmentInProgress, TreatmentCompleted, TreatmentFailed}

// OrderSurfaceTreatment 订单表面处理，(order_id, treatment_type_id) 唯一
type OrderSurfaceTreatment struct {
	ID              string         `json:"id" gorm:"primaryKey;size:32"`
	OrderID         string         `json:"order_id" gorm:"size:32;not null;uniqueIndex:idx_order_treatment"`
	Order           *Order         `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	TreatmentTypeID string         `json:"treatment_type_id" gorm:"size:32;not null;uniqueIndex:idx_order_treatment"`
	TreatmentType   *TreatmentType `json:"treatment_type,omitempty" gorm:"foreignKey:TreatmentTypeID"`
	Status          string         `json:"status" gorm:"size:20;not null;index"`

	PlannedQuantity   int `json:"planned_quantity" gorm:"not null"`
	CompletedQuantity int `json:"completed_quantity" gorm:"not null"`
	RejectedQuantity  int `json:"rejected_quantity" gorm:"not null"`

	Color            string              `json:"color" gorm:"size:50"`
	ThicknessMicrons decimal.NullDecimal `json:"thickness_microns" gorm:"type:decimal(8,2)"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// 外协
	IsOutsourced      bool   `json:"is_outsourced" gorm:"not null"`
	VendorName        string `json:"vendor_name" gorm:"size:200"`
	VendorBatchNumber string `json:"vendor_batch_number" gorm:"size:100"`

	Remarks   string    `json:"remarks" gorm:"type:text"`
	CreatedBy *string   `json:"created_by" gorm:"size:32"`
	UpdatedBy *string   `json:"updated_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PassPercentage decimal.Decimal `json:"pass_percentage" gorm:"-"`
}

func (OrderSurfaceTreatment) TableName() string {
	return "surface_treatment_orders"
}

func (t *OrderSurfaceTreatment) AfterFind(tx *gorm.DB) error {
	t.Derive()
	return nil
}

// Derive pass% = completed / (completed + rejected)
func (t *OrderSurfaceTreatment) Derive() {
	t.PassPercentage = Percent(int64(t.CompletedQuantity), int64(t.CompletedQuantity+t.RejectedQuantity))
}
