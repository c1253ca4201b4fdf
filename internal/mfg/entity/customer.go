package entity

import "time"

// 客户类型
const (
	CustomerTypeRegular = "regular"
	CustomerTypePremium = "premium"
	CustomerTypeVIP     = "vip"
)

var CustomerTypes = []string{CustomerTypeRegular, CustomerTypePremium, CustomerTypeVIP}

// Customer 客户
type Customer struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	Name           string `json:"name" gorm:"size:200;not null"`
	CompanyName    string `json:"company_name" gorm:"size:200;not null;index"`
	CustomerType   string `json:"customer_type" gorm:"size:20;not null"`
	Email          string `json:"email" gorm:"size:254"`
	Phone          string `json:"phone" gorm:"size:20"`
	AlternatePhone string `json:"alternate_phone" gorm:"size:20"`

	// 地址
	Address    string `json:"address" gorm:"type:text"`
	City       string `json:"city" gorm:"size:100"`
	State      string `json:"state" gorm:"size:100"`
	Country    string `json:"country" gorm:"size:100"`
	PostalCode string `json:"postal_code" gorm:"size:20"`

	// 税务
	GSTNumber string `json:"gst_number" gorm:"size:20"`
	PANNumber string `json:"pan_number" gorm:"size:20"`

	ContactPerson string `json:"contact_person" gorm:"size:100"`
	ContactEmail  string `json:"contact_email" gorm:"size:254"`
	ContactPhone  string `json:"contact_phone" gorm:"size:20"`

	Notes     string    `json:"notes" gorm:"type:text"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedBy *string   `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 列表统计（只读）
	TotalOrders  int64 `json:"total_orders" gorm:"->;-:migration"`
	ActiveOrders int64 `json:"active_orders" gorm:"->;-:migration"`
}

func (Customer) TableName() string {
	return "crm_customers"
}

func (c *Customer) String() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}
