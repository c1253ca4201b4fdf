package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 检验阶段
const (
	StageIncoming  = "incoming"
	StageInProcess = "in_process"
	StageFinal     = "final"
	StagePDI       = "pdi"
)

var InspectionStages = []string{StageIncoming, StageInProcess, StageFinal, StagePDI}

// InspectionType 检验类型
type InspectionType struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Code        string    `json:"code" gorm:"size:20;uniqueIndex;not null"`
	Stage       string    `json:"stage" gorm:"size:20;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	IsMandatory bool      `json:"is_mandatory" gorm:"not null"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (InspectionType) TableName() string {
	return "inspection_types"
}

// 检验结果
const (
	ResultPending     = "pending"
	ResultPass        = "pass"
	ResultFail        = "fail"
	ResultConditional = "conditional"
	ResultRework      = "rework"
)

var InspectionResults = []string{ResultPending, ResultPass, ResultFail, ResultConditional, ResultRework}

// OrderInspection 订单检验记录
type OrderInspection struct {
	ID               string          `json:"id" gorm:"primaryKey;size:32"`
	OrderID          string          `json:"order_id" gorm:"size:32;not null;index"`
	Order            *Order          `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	InspectionTypeID string          `json:"inspection_type_id" gorm:"size:32;not null;index"`
	InspectionType   *InspectionType `json:"inspection_type,omitempty" gorm:"foreignKey:InspectionTypeID"`

	InspectedQuantity int `json:"inspected_quantity" gorm:"not null"`
	PassedQuantity    int `json:"passed_quantity" gorm:"not null"`
	FailedQuantity    int `json:"failed_quantity" gorm:"not null"`
	ReworkQuantity    int `json:"rework_quantity" gorm:"not null"`

	Result         string     `json:"result" gorm:"size:20;not null;index"`
	InspectionDate *Date      `json:"inspection_date" gorm:"type:date;index"`
	InspectedAt    *time.Time `json:"inspected_at"`
	InspectedBy    *string    `json:"inspected_by" gorm:"size:32"`

	// QA 审批，与检验结果相互独立
	IsQAApproved bool       `json:"is_qa_approved" gorm:"not null;index"`
	QAApprovedBy *string    `json:"qa_approved_by" gorm:"size:32"`
	QAApprovedAt *time.Time `json:"qa_approved_at"`
	QARemarks    string     `json:"qa_remarks" gorm:"type:text"`

	DefectsFound     string `json:"defects_found" gorm:"type:text"`
	CorrectiveAction string `json:"corrective_action" gorm:"type:text"`
	Remarks          string `json:"remarks" gorm:"type:text"`

	CreatedBy *string   `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PassRate decimal.Decimal `json:"pass_rate" gorm:"-"`
}

func (OrderInspection) TableName() string {
	return "inspection_orders"
}

func (i *OrderInspection) AfterFind(tx *gorm.DB) error {
	i.Derive()
	return nil
}

func (i *OrderInspection) Derive() {
	i.PassRate = Percent(int64(i.PassedQuantity), int64(i.InspectedQuantity))
}

// DispatchCleared 已 QA 审批且结果为合格
func (i *OrderInspection) DispatchCleared() bool {
	return i.IsQAApproved && i.Result == ResultPass
}

// InspectionChecklistItem 检验清单项
type InspectionChecklistItem struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	OrderInspectionID string    `json:"order_inspection_id" gorm:"size:32;not null;index"`
	Parameter         string    `json:"parameter" gorm:"size:200;not null"`
	Specification     string    `json:"specification" gorm:"size:200"`
	ActualValue       string    `json:"actual_value" gorm:"size:200"`
	IsPassed          *bool     `json:"is_passed"`
	Remarks           string    `json:"remarks" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (InspectionChecklistItem) TableName() string {
	return "inspection_checklist_items"
}
