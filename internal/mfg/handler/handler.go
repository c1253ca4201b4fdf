package handler

import (
	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/sse"
	"github.com/AjAjish/manufacturing-erp/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Permission *PermissionHandler
	// 客户与订单
	Customer *CustomerHandler
	Order    *OrderHandler
	// 工程图纸
	Drawing *DrawingHandler
	// 材料
	Material *MaterialHandler
	// 生产/加工/表面处理
	Production       *ProductionHandler
	Fabrication      *FabricationHandler
	SurfaceTreatment *SurfaceTreatmentHandler
	// 检验与物流
	Inspection *InspectionHandler
	Dispatch   *DispatchHandler
	// 看板与审计
	Dashboard *DashboardHandler
	Audit     *AuditHandler
	SSE       *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Auth:             NewAuthHandler(svc.Auth),
		User:             NewUserHandler(svc.User, svc.Auth),
		Permission:       NewPermissionHandler(svc.Permission),
		Customer:         NewCustomerHandler(svc.Customer),
		Order:            NewOrderHandler(svc.Order, svc.Report, logger),
		Drawing:          NewDrawingHandler(svc.Drawing),
		Material:         NewMaterialHandler(svc.Material, svc.Report, logger),
		Production:       NewProductionHandler(svc.Production),
		Fabrication:      NewFabricationHandler(svc.Fabrication),
		SurfaceTreatment: NewSurfaceTreatmentHandler(svc.SurfaceTreatment),
		Inspection:       NewInspectionHandler(svc.Inspection),
		Dispatch:         NewDispatchHandler(svc.Dispatch),
		Dashboard:        NewDashboardHandler(svc.Dashboard, svc.Report, logger),
		Audit:            NewAuditHandler(svc.Audit),
		SSE:              NewSSEHandler(hub),
	}
}

// RegisterRoutes 注册 /api/v1 下的全部业务路由
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers, svc *service.Services, jwtSecret string) {
	jwtAuth := middleware.JWTAuth(jwtSecret, svc.Auth)
	currentUser := middleware.CurrentUser(svc.User)
	module := func(name string) gin.HandlerFunc {
		return middleware.RequireModuleAccess(svc.Permission, name)
	}

	// 认证 (无需登录)
	auth := v1.Group("/accounts/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// SSE 实时推送（支持 query param token）
	events := v1.Group("/events")
	events.Use(jwtAuth, currentUser)
	{
		events.GET("/stream", h.SSE.Stream)
	}

	authorized := v1.Group("")
	authorized.Use(jwtAuth, currentUser)

	// 账户
	authorized.POST("/accounts/auth/logout", h.Auth.Logout)
	users := authorized.Group("/accounts/users")
	{
		users.GET("/me", h.User.Me)
		users.PUT("/update_profile", h.User.UpdateProfile)
		users.POST("/change_password", h.User.ChangePassword)

		admin := users.Group("")
		admin.Use(middleware.RequireRole(entity.RoleAdmin))
		admin.GET("", h.User.List)
		admin.POST("", h.User.Create)
		admin.GET("/:id", h.User.Get)
		admin.PUT("/:id", h.User.Update)
		admin.DELETE("/:id", h.User.Delete)
		admin.POST("/:id/change_role", h.User.ChangeRole)
		admin.POST("/:id/toggle_active", h.User.ToggleActive)
	}
	perms := authorized.Group("/accounts/permissions")
	perms.Use(middleware.RequireRole(entity.RoleAdmin))
	{
		perms.GET("", h.Permission.List)
		perms.POST("", h.Permission.Create)
		perms.GET("/by_role", h.Permission.ByRole)
		perms.POST("/bulk_update", h.Permission.BulkUpdate)
		perms.GET("/:id", h.Permission.Get)
		perms.PUT("/:id", h.Permission.Update)
		perms.DELETE("/:id", h.Permission.Delete)
	}

	// CRM
	crm := authorized.Group("/crm")
	crm.Use(module(entity.ModuleCRM))
	{
		customers := crm.Group("/customers")
		customers.GET("", h.Customer.List)
		customers.POST("", h.Customer.Create)
		customers.GET("/:id", h.Customer.Get)
		customers.PUT("/:id", h.Customer.Update)
		customers.DELETE("/:id", h.Customer.Delete)
		customers.POST("/:id/toggle_active", h.Customer.ToggleActive)
		customers.GET("/:id/orders", h.Customer.Orders)

		orders := crm.Group("/orders")
		orders.GET("", h.Order.List)
		orders.POST("", h.Order.Create)
		orders.GET("/delayed", h.Order.Delayed)
		orders.GET("/by_status", h.Order.ByStatus)
		orders.GET("/my_orders", h.Order.MyOrders)
		orders.GET("/export", h.Order.Export)
		orders.GET("/:id", h.Order.Get)
		orders.PUT("/:id", h.Order.Update)
		orders.DELETE("/:id", h.Order.Delete)
		orders.POST("/:id/update_status", h.Order.UpdateStatus)
		orders.GET("/:id/status_history", h.Order.StatusHistory)
	}

	// 工程图纸
	drawings := authorized.Group("/engineering/drawings")
	drawings.Use(module(entity.ModuleEngineering))
	{
		drawings.GET("", h.Drawing.List)
		drawings.POST("", h.Drawing.Create)
		drawings.GET("/by_order", h.Drawing.ByOrder)
		drawings.GET("/:id", h.Drawing.Get)
		drawings.PUT("/:id", h.Drawing.Update)
		drawings.DELETE("/:id", h.Drawing.Delete)
		drawings.POST("/:id/new_version", h.Drawing.NewVersion)
		drawings.POST("/:id/submit_for_review", h.Drawing.SubmitForReview)
		drawings.POST("/:id/approve", h.Drawing.Approve)
		drawings.POST("/:id/reject", h.Drawing.Reject)
		drawings.GET("/:id/versions", h.Drawing.Versions)
		drawings.GET("/:id/comments", h.Drawing.Comments)
		drawings.POST("/:id/comments", h.Drawing.AddComment)
		drawings.GET("/:id/download", h.Drawing.Download)
	}

	// 材料
	materials := authorized.Group("/materials")
	materials.Use(module(entity.ModuleMaterials))
	{
		types := materials.Group("/types")
		types.GET("", h.Material.ListTypes)
		types.POST("", h.Material.CreateType)
		types.GET("/:id", h.Material.GetType)
		types.PUT("/:id", h.Material.UpdateType)
		types.DELETE("/:id", h.Material.DeleteType)

		items := materials.Group("/materials")
		items.GET("", h.Material.List)
		items.POST("", h.Material.Create)
		items.GET("/low_stock", h.Material.LowStock)
		items.POST("/import", h.Material.Import)
		items.GET("/import_template", h.Material.ImportTemplate)
		items.GET("/export", h.Material.Export)
		items.GET("/:id", h.Material.Get)
		items.PUT("/:id", h.Material.Update)
		items.DELETE("/:id", h.Material.Delete)
		items.POST("/:id/adjust_stock", h.Material.AdjustStock)
		items.GET("/:id/transactions", h.Material.Transactions)

		oms := materials.Group("/order-materials")
		oms.GET("", h.Material.ListOrderMaterials)
		oms.POST("", h.Material.CreateOrderMaterial)
		oms.GET("/by_order", h.Material.OrderMaterialsByOrder)
		oms.GET("/pending_issues", h.Material.PendingIssues)
		oms.GET("/:id", h.Material.GetOrderMaterial)
		oms.PUT("/:id", h.Material.UpdateOrderMaterial)
		oms.DELETE("/:id", h.Material.DeleteOrderMaterial)
		oms.POST("/:id/issue", h.Material.Issue)

		materials.GET("/transactions", h.Material.ListTransactions)
		materials.GET("/transactions/:id", h.Material.GetTransaction)
	}

	// 生产
	production := authorized.Group("/production")
	production.Use(module(entity.ModuleProduction))
	{
		records := production.Group("/records")
		records.GET("", h.Production.List)
		records.POST("", h.Production.Create)
		records.GET("/by_order", h.Production.ByOrder)
		records.GET("/daily_summary", h.Production.DailySummary)
		records.GET("/yield_analysis", h.Production.YieldAnalysis)
		records.GET("/:id", h.Production.Get)
		records.PUT("/:id", h.Production.Update)
		records.DELETE("/:id", h.Production.Delete)
		records.POST("/:id/verify", h.Production.Verify)

		summaries := production.Group("/summaries")
		summaries.GET("", h.Production.ListSummaries)
		summaries.GET("/by_order", h.Production.SummaryByOrder)
		summaries.GET("/low_yield", h.Production.LowYield)
	}

	// 加工
	fabrication := authorized.Group("/fabrication")
	fabrication.Use(module(entity.ModuleFabrication))
	{
		processes := fabrication.Group("/processes")
		processes.GET("", h.Fabrication.ListProcesses)
		processes.POST("", h.Fabrication.CreateProcess)
		processes.GET("/:id", h.Fabrication.GetProcess)
		processes.PUT("/:id", h.Fabrication.UpdateProcess)
		processes.DELETE("/:id", h.Fabrication.DeleteProcess)

		ops := fabrication.Group("/order-processes")
		ops.GET("", h.Fabrication.List)
		ops.POST("", h.Fabrication.Create)
		ops.GET("/by_order", h.Fabrication.ByOrder)
		ops.POST("/bulk_create", h.Fabrication.BulkCreate)
		ops.GET("/in_progress", h.Fabrication.InProgress)
		ops.GET("/delayed", h.Fabrication.Delayed)
		ops.GET("/:id", h.Fabrication.Get)
		ops.PUT("/:id", h.Fabrication.Update)
		ops.DELETE("/:id", h.Fabrication.Delete)
		ops.POST("/:id/start", h.Fabrication.Start)
		ops.POST("/:id/complete", h.Fabrication.Complete)
		ops.POST("/:id/hold", h.Fabrication.Hold)

		fabrication.GET("/logs", h.Fabrication.Logs)
	}

	// 表面处理
	surface := authorized.Group("/surface-treatment")
	surface.Use(module(entity.ModuleSurfaceTreatment))
	{
		types := surface.Group("/types")
		types.GET("", h.SurfaceTreatment.ListTypes)
		types.POST("", h.SurfaceTreatment.CreateType)
		types.GET("/:id", h.SurfaceTreatment.GetType)
		types.PUT("/:id", h.SurfaceTreatment.UpdateType)
		types.DELETE("/:id", h.SurfaceTreatment.DeleteType)

		treatments := surface.Group("/treatments")
		treatments.GET("", h.SurfaceTreatment.List)
		treatments.POST("", h.SurfaceTreatment.Create)
		treatments.GET("/by_order", h.SurfaceTreatment.ByOrder)
		treatments.GET("/pending", h.SurfaceTreatment.Pending)
		treatments.GET("/:id", h.SurfaceTreatment.Get)
		treatments.PUT("/:id", h.SurfaceTreatment.Update)
		treatments.DELETE("/:id", h.SurfaceTreatment.Delete)
		treatments.POST("/:id/start", h.SurfaceTreatment.Start)
		treatments.POST("/:id/complete", h.SurfaceTreatment.Complete)
	}

	// 检验
	inspection := authorized.Group("/inspection")
	inspection.Use(module(entity.ModuleInspection))
	{
		types := inspection.Group("/types")
		types.GET("", h.Inspection.ListTypes)
		types.POST("", h.Inspection.CreateType)
		types.GET("/:id", h.Inspection.GetType)
		types.PUT("/:id", h.Inspection.UpdateType)
		types.DELETE("/:id", h.Inspection.DeleteType)

		ois := inspection.Group("/order-inspections")
		ois.GET("", h.Inspection.List)
		ois.POST("", h.Inspection.Create)
		ois.GET("/by_order", h.Inspection.ByOrder)
		ois.GET("/pending_approval", h.Inspection.PendingApproval)
		ois.GET("/failed", h.Inspection.Failed)
		ois.GET("/dispatch_blocked", h.Inspection.DispatchBlocked)
		ois.GET("/quality_metrics", h.Inspection.QualityMetrics)
		ois.GET("/:id", h.Inspection.Get)
		ois.PUT("/:id", h.Inspection.Update)
		ois.DELETE("/:id", h.Inspection.Delete)
		ois.POST("/:id/qa_approve", h.Inspection.QAApprove)
		ois.GET("/:id/checklist", h.Inspection.Checklist)
		ois.POST("/:id/checklist", h.Inspection.AddChecklist)
	}

	// 物流
	logistics := authorized.Group("/logistics")
	logistics.Use(module(entity.ModuleLogistics))
	{
		standards := logistics.Group("/packing-standards")
		standards.GET("", h.Dispatch.ListPackingStandards)
		standards.POST("", h.Dispatch.CreatePackingStandard)
		standards.GET("/:id", h.Dispatch.GetPackingStandard)
		standards.PUT("/:id", h.Dispatch.UpdatePackingStandard)
		standards.DELETE("/:id", h.Dispatch.DeletePackingStandard)

		dispatches := logistics.Group("/dispatches")
		dispatches.GET("", h.Dispatch.List)
		dispatches.POST("", h.Dispatch.Create)
		dispatches.GET("/by_order", h.Dispatch.ByOrder)
		dispatches.GET("/pending", h.Dispatch.Pending)
		dispatches.GET("/in_transit", h.Dispatch.InTransit)
		dispatches.GET("/delayed", h.Dispatch.Delayed)
		dispatches.GET("/:id", h.Dispatch.Get)
		dispatches.PUT("/:id", h.Dispatch.Update)
		dispatches.DELETE("/:id", h.Dispatch.Delete)
		dispatches.POST("/:id/start_packing", h.Dispatch.StartPacking)
		dispatches.POST("/:id/mark_packed", h.Dispatch.MarkPacked)
		dispatches.POST("/:id/ready_for_dispatch", h.Dispatch.ReadyForDispatch)
		dispatches.POST("/:id/dispatch", h.Dispatch.Dispatch)
		dispatches.POST("/:id/mark_in_transit", h.Dispatch.MarkInTransit)
		dispatches.POST("/:id/mark_delivered", h.Dispatch.MarkDelivered)
		dispatches.POST("/:id/upload_document", h.Dispatch.UploadDocument)
		dispatches.GET("/:id/documents", h.Dispatch.Documents)

		logistics.GET("/documents/:id/download", h.Dispatch.DownloadDocument)
	}

	// 看板
	dashboards := authorized.Group("/dashboards")
	dashboards.Use(module(entity.ModuleDashboards))
	{
		dashboards.GET("/overview", h.Dashboard.Overview)
		dashboards.GET("/overview/export", h.Dashboard.ExportOverview)
		dashboards.GET("/order_tracking", h.Dashboard.OrderTracking)
		dashboards.GET("/delayed_orders", h.Dashboard.DelayedOrders)
		dashboards.GET("/production_analytics", h.Dashboard.ProductionAnalytics)
		dashboards.GET("/department_performance", h.Dashboard.DepartmentPerformance)
		dashboards.GET("/customer_summary", h.Dashboard.CustomerSummary)
		dashboards.GET("/monthly_trends", h.Dashboard.MonthlyTrends)
		dashboards.GET("/weekly_production", h.Dashboard.WeeklyProduction)
	}

	// 审计：活动记录对所有登录用户开放，日志受模块权限控制
	audit := authorized.Group("/audit")
	{
		audit.GET("/activities", h.Audit.Activities)
		audit.GET("/activities/my_activity", h.Audit.MyActivity)

		logs := audit.Group("/logs")
		logs.Use(module(entity.ModuleAudit))
		logs.GET("", h.Audit.List)
		logs.GET("/by_user", h.Audit.ByUser)
		logs.GET("/by_model", h.Audit.ByModel)
		logs.GET("/by_object", h.Audit.ByObject)
		logs.GET("/statistics", h.Audit.Statistics)
		logs.GET("/:id", h.Audit.Get)
	}
}
