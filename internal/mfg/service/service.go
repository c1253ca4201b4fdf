package service

import (
	"context"
	"fmt"

	"github.com/AjAjish/manufacturing-erp/internal/config"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/notify"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Services 服务集合
type Services struct {
	Auth             *AuthService
	User             *UserService
	Permission       *PermissionService
	Customer         *CustomerService
	Order            *OrderService
	Drawing          *DrawingService
	Material         *MaterialService
	Production       *ProductionService
	Fabrication      *FabricationService
	SurfaceTreatment *SurfaceTreatmentService
	Inspection       *InspectionService
	Dispatch         *DispatchService
	Dashboard        *DashboardService
	Audit            *AuditService
	Report           *ReportService
}

// Deps 外部依赖，Events/Mailer 可为空
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Store  storage.Store
	Events *notify.Bus
	Mailer *notify.Mailer
	Logger *zap.Logger
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, deps Deps, cfg *config.Config) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gate := OrderGate{Strict: cfg.Workflow.StrictOrderTransitions}

	orderSvc := NewOrderService(deps.DB, repos.Order, gate, deps.Events)
	dashboardSvc := NewDashboardService(deps.DB, repos)

	dispatchSvc := NewDispatchService(deps.DB, repos.Dispatch, deps.Store, deps.Events)
	if deps.Mailer != nil {
		dispatchSvc.SetMailer(deps.Mailer, logger)
	}

	return &Services{
		Auth:             NewAuthService(deps.DB, repos.User, deps.Redis, cfg),
		User:             NewUserService(repos.User),
		Permission:       NewPermissionService(repos.RolePermission, deps.Redis, logger),
		Customer:         NewCustomerService(deps.DB, repos.Customer, repos.Order),
		Order:            orderSvc,
		Drawing:          NewDrawingService(deps.DB, repos.Drawing, deps.Store, cfg.Upload.MaxSize),
		Material:         NewMaterialService(deps.DB, repos.Material),
		Production:       NewProductionService(deps.DB, repos.Production),
		Fabrication:      NewFabricationService(deps.DB, repos.Fabrication),
		SurfaceTreatment: NewSurfaceTreatmentService(deps.DB, repos.SurfaceTreatment),
		Inspection:       NewInspectionService(deps.DB, repos.Inspection, deps.Events),
		Dispatch:         dispatchSvc,
		Dashboard:        dashboardSvc,
		Audit:            NewAuditService(repos.Audit),
		Report:           NewReportService(repos.Order, repos.Material, dashboardSvc),
	}
}

func lockingUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// lockByID SELECT ... FOR UPDATE
func lockByID[T any](tx *gorm.DB, id string) (*T, error) {
	var item T
	err := tx.Clauses(lockingUpdate()).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, repository.Translate(err)
	}
	return &item, nil
}

// saveEntity 只保存本表列，不级联关联
func saveEntity(tx *gorm.DB, model interface{}) error {
	return repository.Translate(tx.Omit(clause.Associations).Save(model).Error)
}

func createEntity(tx *gorm.DB, model interface{}) error {
	return repository.Translate(tx.Omit(clause.Associations).Create(model).Error)
}

// inTx 开启事务
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// ensureExists 校验外键引用
func ensureExists(tx *gorm.DB, model interface{}, id, field string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s: %w", field, err)
	}
	if n == 0 {
		return invalid("Invalid pk \"%s\" - object does not exist. (%s)", id, field)
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
