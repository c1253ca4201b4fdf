package entity

import (
	"strings"
	"time"
)

// 角色
const (
	RoleAdmin       = "admin"
	RoleSales       = "sales"
	RoleEngineering = "engineering"
	RoleProduction  = "production"
	RoleQuality     = "quality"
	RoleLogistics   = "logistics"
	RoleManagement  = "management"
)

var Roles = []string{RoleAdmin, RoleSales, RoleEngineering, RoleProduction, RoleQuality, RoleLogistics, RoleManagement}

func IsValidRole(role string) bool {
	return contains(Roles, role)
}

// 模块
const (
	ModuleCRM              = "crm"
	ModuleEngineering      = "engineering"
	ModuleMaterials        = "materials"
	ModuleProduction       = "production"
	ModuleFabrication      = "fabrication"
	ModuleSurfaceTreatment = "surface_treatment"
	ModuleInspection       = "inspection"
	ModuleLogistics        = "logistics"
	ModuleDashboards       = "dashboards"
	ModuleAudit            = "audit"
)

var Modules = []string{
	ModuleCRM, ModuleEngineering, ModuleMaterials, ModuleProduction, ModuleFabrication,
	ModuleSurfaceTreatment, ModuleInspection, ModuleLogistics, ModuleDashboards, ModuleAudit,
}

func IsValidModule(module string) bool {
	return contains(Modules, module)
}

// 访问级别
const (
	AccessNone  = "none"
	AccessRead  = "read"
	AccessWrite = "write"
	AccessFull  = "full"
)

var AccessLevels = []string{AccessNone, AccessRead, AccessWrite, AccessFull}

func IsValidAccessLevel(level string) bool {
	return contains(AccessLevels, level)
}

// User 用户
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Email        string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"size:100;not null"`
	FirstName    string     `json:"first_name" gorm:"size:150"`
	LastName     string     `json:"last_name" gorm:"size:150"`
	Role         string     `json:"role" gorm:"size:20;not null;index"`
	Phone        string     `json:"phone" gorm:"size:20"`
	Department   string     `json:"department" gorm:"size:100"`
	EmployeeID   *string    `json:"employee_id" gorm:"size:50;uniqueIndex"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "accounts_users"
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// RolePermission 角色模块权限，(role, module) 唯一
type RolePermission struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Role        string    `json:"role" gorm:"size:20;not null;uniqueIndex:idx_role_module"`
	Module      string    `json:"module" gorm:"size:30;not null;uniqueIndex:idx_role_module"`
	AccessLevel string    `json:"access_level" gorm:"size:10;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RolePermission) TableName() string {
	return "accounts_role_permissions"
}

// DefaultRolePermissions 初始权限矩阵
func DefaultRolePermissions() []RolePermission {
	owned := map[string][]string{
		RoleSales:       {ModuleCRM},
		RoleEngineering: {ModuleEngineering},
		RoleProduction:  {ModuleProduction, ModuleFabrication, ModuleSurfaceTreatment},
		RoleQuality:     {ModuleInspection},
		RoleLogistics:   {ModuleLogistics},
	}

	var perms []RolePermission
	for _, role := range Roles {
		for _, module := range Modules {
			level := AccessRead
			switch {
			case role == RoleAdmin:
				level = AccessFull
			case role == RoleManagement:
				level = AccessRead
			case contains(owned[role], module):
				level = AccessFull
			case role == RoleProduction && module == ModuleMaterials:
				level = AccessWrite
			case module == ModuleAudit:
				level = AccessNone
			}
			perms = append(perms, RolePermission{
				ID:          NewID(),
				Role:        role,
				Module:      module,
				AccessLevel: level,
			})
		}
	}
	return perms
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
