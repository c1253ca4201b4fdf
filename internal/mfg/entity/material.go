package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 计量单位
var MaterialUnits = []string{"kg", "gram", "meter", "mm", "piece", "sheet", "liter"}

func IsValidUnit(unit string) bool {
	return contains(MaterialUnits, unit)
}

// MaterialType 材料类别
type MaterialType struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (MaterialType) TableName() string {
	return "materials_material_types"
}

// Material 材料主数据
type Material struct {
	ID             string        `json:"id" gorm:"primaryKey;size:32"`
	MaterialTypeID string        `json:"material_type_id" gorm:"size:32;not null;index"`
	MaterialType   *MaterialType `json:"material_type,omitempty" gorm:"foreignKey:MaterialTypeID"`
	Code           string        `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Name           string        `json:"name" gorm:"size:200;not null"`
	Description    string        `json:"description" gorm:"type:text"`
	Grade          string        `json:"grade" gorm:"size:50"`

	// 规格
	Thickness decimal.NullDecimal `json:"thickness" gorm:"type:decimal(10,3)"`
	Width     decimal.NullDecimal `json:"width" gorm:"type:decimal(10,3)"`
	Length    decimal.NullDecimal `json:"length" gorm:"type:decimal(10,3)"`
	Unit      string              `json:"unit" gorm:"size:10;not null"`

	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	StockQuantity decimal.Decimal `json:"stock_quantity" gorm:"type:decimal(12,3);not null"`
	MinimumStock  decimal.Decimal `json:"minimum_stock" gorm:"type:decimal(12,3);not null"`

	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	IsLowStock bool   `json:"is_low_stock" gorm:"-"`
	Dimensions string `json:"dimensions" gorm:"-"`
}

func (Material) TableName() string {
	return "materials_materials"
}

func (m *Material) String() string {
	return m.Code + " - " + m.Name
}

func (m *Material) AfterFind(tx *gorm.DB) error {
	m.Derive()
	return nil
}

// Derive 库存预警与尺寸描述
func (m *Material) Derive() {
	m.IsLowStock = m.StockQuantity.LessThanOrEqual(m.MinimumStock)

	var parts []string
	if m.Thickness.Valid {
		parts = append(parts, "T:"+m.Thickness.Decimal.String())
	}
	if m.Width.Valid {
		parts = append(parts, "W:"+m.Width.Decimal.String())
	}
	if m.Length.Valid {
		parts = append(parts, "L:"+m.Length.Decimal.String())
	}
	if len(parts) == 0 {
		m.Dimensions = "N/A"
	} else {
		m.Dimensions = strings.Join(parts, " x ")
	}
}

// 订单物料状态
const (
	OrderMaterialPlanned         = "planned"
	OrderMaterialRequested       = "requested"
	OrderMaterialPartiallyIssued = "partially_issued"
	OrderMaterialFullyIssued     = "fully_issued"
	OrderMaterialReturned        = "returned"
)

// PendingIssueStatuses 待发料状态
var PendingIssueStatuses = []string{OrderMaterialPlanned, OrderMaterialRequested, OrderMaterialPartiallyIssued}

// OrderMaterial 订单物料需求
type OrderMaterial struct {
	ID                string          `json:"id" gorm:"primaryKey;size:32"`
	OrderID           string          `json:"order_id" gorm:"size:32;not null;index"`
	MaterialID        string          `json:"material_id" gorm:"size:32;not null;index"`
	Material          *Material       `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
	RequiredQuantity  decimal.Decimal `json:"required_quantity" gorm:"type:decimal(12,3);not null"`
	IssuedQuantity    decimal.Decimal `json:"issued_quantity" gorm:"type:decimal(12,3);not null"`
	ConsumedQuantity  decimal.Decimal `json:"consumed_quantity" gorm:"type:decimal(12,3);not null"`
	ReturnedQuantity  decimal.Decimal `json:"returned_quantity" gorm:"type:decimal(12,3);not null"`
	Status            string          `json:"status" gorm:"size:20;not null;index"`
	Notes             string          `json:"notes" gorm:"type:text"`
	CreatedBy         *string         `json:"created_by" gorm:"size:32"`
	IssuedBy          *string         `json:"issued_by" gorm:"size:32"`
	IssuedAt          *time.Time      `json:"issued_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	PendingQuantity       decimal.Decimal `json:"pending_quantity" gorm:"-"`
	UtilizationPercentage decimal.Decimal `json:"utilization_percentage" gorm:"-"`
}

func (OrderMaterial) TableName() string {
	return "materials_order_materials"
}

func (om *OrderMaterial) AfterFind(tx *gorm.DB) error {
	om.Derive()
	return nil
}

func (om *OrderMaterial) Derive() {
	om.PendingQuantity = om.RequiredQuantity.Sub(om.IssuedQuantity)
	if om.IssuedQuantity.IsPositive() {
		om.UtilizationPercentage = om.ConsumedQuantity.Div(om.IssuedQuantity).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		om.UtilizationPercentage = decimal.Zero
	}
}

// RefreshIssueStatus 根据已发/需求数量更新状态
func (om *OrderMaterial) RefreshIssueStatus() {
	switch {
	case om.IssuedQuantity.GreaterThanOrEqual(om.RequiredQuantity):
		om.Status = OrderMaterialFullyIssued
	case om.IssuedQuantity.IsPositive():
		om.Status = OrderMaterialPartiallyIssued
	default:
		om.Status = OrderMaterialPlanned
	}
}

// 库存事务类型
const (
	TransactionReceipt    = "receipt"
	TransactionIssue      = "issue"
	TransactionReturn     = "return"
	TransactionAdjustment = "adjustment"
	TransactionScrap      = "scrap"
)

// MaterialTransaction 库存流水
type MaterialTransaction struct {
	ID              string          `json:"id" gorm:"primaryKey;size:32"`
	MaterialID      string          `json:"material_id" gorm:"size:32;not null;index"`
	Material        *Material       `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
	OrderID         *string         `json:"order_id" gorm:"size:32;index"`
	TransactionType string          `json:"transaction_type" gorm:"size:20;not null;index"`
	Quantity        decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	StockBefore     decimal.Decimal `json:"stock_before" gorm:"type:decimal(12,3);not null"`
	StockAfter      decimal.Decimal `json:"stock_after" gorm:"type:decimal(12,3);not null"`
	ReferenceNumber string          `json:"reference_number" gorm:"size:100"`
	Notes           string          `json:"notes" gorm:"type:text"`
	CreatedBy       *string         `json:"created_by" gorm:"size:32"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
}

func (MaterialTransaction) TableName() string {
	return "materials_transactions"
}
