package entity

import "time"

// 审计动作
const (
	AuditCreate       = "create"
	AuditUpdate       = "update"
	AuditDelete       = "delete"
	AuditView         = "view"
	AuditLogin        = "login"
	AuditLogout       = "logout"
	AuditExport       = "export"
	AuditImport       = "import"
	AuditApprove      = "approve"
	AuditReject       = "reject"
	AuditStatusChange = "status_change"
)

var AuditActions = []string{
	AuditCreate, AuditUpdate, AuditDelete, AuditView, AuditLogin, AuditLogout,
	AuditExport, AuditImport, AuditApprove, AuditReject, AuditStatusChange,
}

// AuditLog 审计日志，目标以 (entity_type, entity_id) 表示
type AuditLog struct {
	ID         string  `json:"id" gorm:"primaryKey;size:32"`
	UserID     *string `json:"user_id" gorm:"size:32;index"`
	UserEmail  string  `json:"user_email" gorm:"size:254"`
	Action     string  `json:"action" gorm:"size:20;not null;index"`
	EntityType string  `json:"entity_type" gorm:"size:50;index:idx_audit_entity"`
	EntityID   string  `json:"entity_id" gorm:"size:32;index:idx_audit_entity"`
	ObjectRepr string  `json:"object_repr" gorm:"size:255"`

	OldValues JSONB `json:"old_values" gorm:"type:jsonb"`
	NewValues JSONB `json:"new_values" gorm:"type:jsonb"`
	Changes   JSONB `json:"changes" gorm:"type:jsonb"` // {field: {old, new}}

	IPAddress string    `json:"ip_address" gorm:"size:45"`
	UserAgent string    `json:"user_agent" gorm:"type:text"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// UserActivity 用户活动
type UserActivity struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	UserID       string    `json:"user_id" gorm:"size:32;not null;index"`
	ActivityType string    `json:"activity_type" gorm:"size:50;not null"`
	Description  string    `json:"description" gorm:"type:text"`
	IPAddress    string    `json:"ip_address" gorm:"size:45"`
	UserAgent    string    `json:"user_agent" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

func (UserActivity) TableName() string {
	return "audit_user_activities"
}

// AllModels 参与迁移的实体
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&RolePermission{},
		&Customer{},
		&Order{},
		&OrderStatusHistory{},
		&Drawing{},
		&DrawingComment{},
		&MaterialType{},
		&Material{},
		&OrderMaterial{},
		&MaterialTransaction{},
		&ProductionRecord{},
		&ProductionSummary{},
		&FabricationProcess{},
		&OrderFabrication{},
		&FabricationLog{},
		&TreatmentType{},
		&OrderSurfaceTreatment{},
		&InspectionType{},
		&OrderInspection{},
		&InspectionChecklistItem{},
		&PackingStandard{},
		&OrderDispatch{},
		&DispatchDocument{},
		&AuditLog{},
		&UserActivity{},
	}
}
