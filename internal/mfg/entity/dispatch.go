package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PackingStandard 包装标准
type PackingStandard struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Code        string    `json:"code" gorm:"size:20;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PackingStandard) TableName() string {
	return "logistics_packing_standards"
}

// 发运状态
const (
	DispatchPending    = "pending"
	DispatchPacking    = "packing"
	DispatchPacked     = "packed"
	DispatchReady      = "ready"
	DispatchDispatched = "dispatched"
	DispatchInTransit  = "in_transit"
	DispatchDelivered  = "delivered"
	DispatchReturned   = "returned"
)

var DispatchStatuses = []string{
	DispatchPending, DispatchPacking, DispatchPacked, DispatchReady,
	DispatchDispatched, DispatchInTransit, DispatchDelivered, DispatchReturned,
}

// 尚未发出的状态
var DispatchAwaitingStatuses = []string{DispatchPending, DispatchPacking, DispatchPacked, DispatchReady}

// 已发出的状态
var DispatchShippedStatuses = []string{DispatchDispatched, DispatchInTransit, DispatchDelivered}

var TransportModes = []string{"road", "rail", "air", "sea", "courier", "self_pickup"}

var TransportScopes = []string{"ex_works", "fob", "cif", "door_delivery"}

// OrderDispatch 订单发运，与订单一对一
type OrderDispatch struct {
	ID                string           `json:"id" gorm:"primaryKey;size:32"`
	OrderID           string           `json:"order_id" gorm:"size:32;not null;uniqueIndex"`
	Order             *Order           `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	PackingStandardID *string          `json:"packing_standard_id" gorm:"size:32"`
	PackingStandard   *PackingStandard `json:"packing_standard,omitempty" gorm:"foreignKey:PackingStandardID"`

	// 包装
	PackingDetails string              `json:"packing_details" gorm:"type:text"`
	TotalPackages  int                 `json:"total_packages" gorm:"not null"`
	GrossWeight    decimal.NullDecimal `json:"gross_weight" gorm:"type:decimal(10,2)"`
	NetWeight      decimal.NullDecimal `json:"net_weight" gorm:"type:decimal(10,2)"`
	Dimensions     string              `json:"dimensions" gorm:"size:100"`

	Status         string `json:"status" gorm:"size:20;not null;index"`
	TransportMode  string `json:"transport_mode" gorm:"size:20;not null"`
	TransportScope string `json:"transport_scope" gorm:"size:20;not null"`

	// 承运
	TransporterName string `json:"transporter_name" gorm:"size:255"`
	VehicleNumber   string `json:"vehicle_number" gorm:"size:50"`
	DriverName      string `json:"driver_name" gorm:"size:100"`
	DriverPhone     string `json:"driver_phone" gorm:"size:20"`
	TrackingNumber  string `json:"tracking_number" gorm:"size:100"`
	InvoiceNumber   string `json:"invoice_number" gorm:"size:50"`
	EWayBillNumber  string `json:"e_way_bill_number" gorm:"size:50"`
	LRNumber        string `json:"lr_number" gorm:"size:50"`

	// 日期
	PlannedDispatchDate  *Date      `json:"planned_dispatch_date" gorm:"type:date;index"`
	ActualDispatchDate   *Date      `json:"actual_dispatch_date" gorm:"type:date"`
	DispatchedAt         *time.Time `json:"dispatched_at"`
	ExpectedDeliveryDate *Date      `json:"expected_delivery_date" gorm:"type:date"`
	ActualDeliveryDate   *Date      `json:"actual_delivery_date" gorm:"type:date"`
	DeliveredAt          *time.Time `json:"delivered_at"`

	DeliveryAddress      string `json:"delivery_address" gorm:"type:text"`
	DeliveryContactName  string `json:"delivery_contact_name" gorm:"size:100"`
	DeliveryContactPhone string `json:"delivery_contact_phone" gorm:"size:20"`

	Remarks             string `json:"remarks" gorm:"type:text"`
	SpecialInstructions string `json:"special_instructions" gorm:"type:text"`

	PackedBy     *string   `json:"packed_by" gorm:"size:32"`
	DispatchedBy *string   `json:"dispatched_by" gorm:"size:32"`
	CreatedBy    *string   `json:"created_by" gorm:"size:32"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 由服务层根据 PDI 检验填充
	CanDispatch bool `json:"can_dispatch" gorm:"-"`
	IsDelayed   bool `json:"is_delayed" gorm:"-"`
}

func (OrderDispatch) TableName() string {
	return "logistics_dispatches"
}

func (d *OrderDispatch) AfterFind(tx *gorm.DB) error {
	d.Derive(Today())
	return nil
}

func (d *OrderDispatch) Derive(today Date) {
	d.IsDelayed = d.PlannedDispatchDate != nil && !d.PlannedDispatchDate.IsZero() &&
		d.PlannedDispatchDate.Before(today.Time) &&
		!contains(DispatchShippedStatuses, d.Status)
}

// 单据类型
var DispatchDocumentTypes = []string{
	"invoice", "packing_list", "delivery_challan", "e_way_bill",
	"test_certificate", "warranty_card", "other",
}

// DispatchDocument 发运单据
type DispatchDocument struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	DispatchID     string    `json:"dispatch_id" gorm:"size:32;not null;index"`
	DocumentType   string    `json:"document_type" gorm:"size:30;not null"`
	DocumentNumber string    `json:"document_number" gorm:"size:100"`
	FilePath       string    `json:"file_path" gorm:"size:500;not null"`
	FileName       string    `json:"file_name" gorm:"size:255"`
	FileSize       int64     `json:"file_size"`
	UploadedBy     *string   `json:"uploaded_by" gorm:"size:32"`
	CreatedAt      time.Time `json:"created_at"`
}

func (DispatchDocument) TableName() string {
	return "logistics_dispatch_documents"
}
