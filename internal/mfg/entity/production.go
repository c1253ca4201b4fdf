package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 班次
const (
	ShiftDay     = "day"
	ShiftNight   = "night"
	ShiftGeneral = "general"
)

var Shifts = []string{ShiftDay, ShiftNight, ShiftGeneral}

var hundred = decimal.NewFromInt(100)

// Percent part/whole × 100，保留两位；whole 为 0 时返回 0
func Percent(part, whole int64) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(2)
}

// ProductionRecord 生产日报，(order_id, production_date, shift) 唯一
type ProductionRecord struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	OrderID        string `json:"order_id" gorm:"size:32;not null;uniqueIndex:idx_production_record"`
	Order          *Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	ProductionDate Date   `json:"production_date" gorm:"type:date;not null;uniqueIndex:idx_production_record;index"`
	Shift          string `json:"shift" gorm:"size:10;not null;uniqueIndex:idx_production_record"`

	PlannedQuantity   int `json:"planned_quantity" gorm:"not null"`
	ProducedQuantity  int `json:"produced_quantity" gorm:"not null"`
	OKQuantity        int `json:"ok_quantity" gorm:"not null"`
	ReworkQuantity    int `json:"rework_quantity" gorm:"not null"`
	RejectionQuantity int `json:"rejection_quantity" gorm:"not null"`

	OKPercentage         decimal.Decimal `json:"ok_percentage" gorm:"type:decimal(5,2);not null"`
	ReworkPercentage     decimal.Decimal `json:"rework_percentage" gorm:"type:decimal(5,2);not null"`
	RejectionPercentage  decimal.Decimal `json:"rejection_percentage" gorm:"type:decimal(5,2);not null"`
	TotalYieldPercentage decimal.Decimal `json:"total_yield_percentage" gorm:"type:decimal(5,2);not null"`

	Remarks          string     `json:"remarks" gorm:"type:text"`
	RejectionReasons string     `json:"rejection_reasons" gorm:"type:text"`
	RecordedBy       *string    `json:"recorded_by" gorm:"size:32"`
	VerifiedBy       *string    `json:"verified_by" gorm:"size:32"`
	VerifiedAt       *time.Time `json:"verified_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (ProductionRecord) TableName() string {
	return "production_records"
}

func (r *ProductionRecord) BeforeSave(tx *gorm.DB) error {
	r.Calculate()
	return nil
}

// Calculate produced = ok + rework + rejection，并计算各百分比
func (r *ProductionRecord) Calculate() {
	r.ProducedQuantity = r.OKQuantity + r.ReworkQuantity + r.RejectionQuantity
	produced := int64(r.ProducedQuantity)
	r.OKPercentage = Percent(int64(r.OKQuantity), produced)
	r.ReworkPercentage = Percent(int64(r.ReworkQuantity), produced)
	r.RejectionPercentage = Percent(int64(r.RejectionQuantity), produced)
	r.TotalYieldPercentage = Percent(int64(r.OKQuantity+r.ReworkQuantity), produced)
}

// ProductionSummary 订单生产汇总（每订单一条）
type ProductionSummary struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	OrderID string `json:"order_id" gorm:"size:32;not null;uniqueIndex"`
	Order   *Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`

	TotalPlanned   int64 `json:"total_planned" gorm:"not null"`
	TotalProduced  int64 `json:"total_produced" gorm:"not null"`
	TotalOK        int64 `json:"total_ok" gorm:"not null"`
	TotalRework    int64 `json:"total_rework" gorm:"not null"`
	TotalRejection int64 `json:"total_rejection" gorm:"not null"`

	OverallOKPercentage        decimal.Decimal `json:"overall_ok_percentage" gorm:"type:decimal(5,2);not null"`
	OverallReworkPercentage    decimal.Decimal `json:"overall_rework_percentage" gorm:"type:decimal(5,2);not null"`
	OverallRejectionPercentage decimal.Decimal `json:"overall_rejection_percentage" gorm:"type:decimal(5,2);not null"`
	OverallYieldPercentage     decimal.Decimal `json:"overall_yield_percentage" gorm:"type:decimal(5,2);not null"`
	CompletionPercentage       decimal.Decimal `json:"completion_percentage" gorm:"type:decimal(5,2);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"last_updated"`
}

func (ProductionSummary) TableName() string {
	return "production_summaries"
}

// Recalculate 根据汇总数量与订单数量计算百分比，完成率封顶 100
func (s *ProductionSummary) Recalculate(orderedQuantity int) {
	s.OverallOKPercentage = Percent(s.TotalOK, s.TotalProduced)
	s.OverallReworkPercentage = Percent(s.TotalRework, s.TotalProduced)
	s.OverallRejectionPercentage = Percent(s.TotalRejection, s.TotalProduced)
	s.OverallYieldPercentage = Percent(s.TotalOK+s.TotalRework, s.TotalProduced)

	s.CompletionPercentage = Percent(s.TotalOK, int64(orderedQuantity))
	if s.CompletionPercentage.GreaterThan(hundred) {
		s.CompletionPercentage = hundred.Round(2)
	}
}
