package handler

import (
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DashboardHandler 看板
type DashboardHandler struct {
	svc    *service.DashboardService
	report *service.ReportService
	logger *zap.Logger
}

func NewDashboardHandler(svc *service.DashboardService, report *service.ReportService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, report: report, logger: logger}
}

func (h *DashboardHandler) respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, data)
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	data, err := h.svc.Overview(c.Request.Context())
	h.respond(c, data, err)
}

// OrderTracking ?order_id= 可选
func (h *DashboardHandler) OrderTracking(c *gin.Context) {
	data, err := h.svc.OrderTracking(c.Request.Context(), c.Query("order_id"))
	h.respond(c, data, err)
}

func (h *DashboardHandler) DelayedOrders(c *gin.Context) {
	data, err := h.svc.DelayedOrders(c.Request.Context())
	h.respond(c, data, err)
}

func (h *DashboardHandler) ProductionAnalytics(c *gin.Context) {
	data, err := h.svc.ProductionAnalytics(c.Request.Context(), queryInt(c, "days", 30))
	h.respond(c, data, err)
}

func (h *DashboardHandler) DepartmentPerformance(c *gin.Context) {
	data, err := h.svc.DepartmentPerformance(c.Request.Context())
	h.respond(c, data, err)
}

func (h *DashboardHandler) CustomerSummary(c *gin.Context) {
	data, err := h.svc.CustomerSummary(c.Request.Context())
	h.respond(c, data, err)
}

func (h *DashboardHandler) MonthlyTrends(c *gin.Context) {
	data, err := h.svc.MonthlyTrends(c.Request.Context(), queryInt(c, "months", 12))
	h.respond(c, data, err)
}

func (h *DashboardHandler) WeeklyProduction(c *gin.Context) {
	data, err := h.svc.WeeklyProduction(c.Request.Context(), queryInt(c, "weeks", 8))
	h.respond(c, data, err)
}

// ExportOverview GET /api/v1/dashboards/overview/export
func (h *DashboardHandler) ExportOverview(c *gin.Context) {
	f, filename, err := h.report.ExportOverview(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	writeXLSX(c, f, filename, h.logger)
}

// AuditHandler 审计日志与用户活动
type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *AuditHandler) Get(c *gin.Context) {
	log, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, log)
}

func (h *AuditHandler) ByUser(c *gin.Context) {
	items, err := h.svc.ByUser(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *AuditHandler) ByModel(c *gin.Context) {
	items, err := h.svc.ByModel(c.Request.Context(), c.Query("model"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *AuditHandler) ByObject(c *gin.Context) {
	items, err := h.svc.ByObject(c.Request.Context(), c.Query("model"), c.Query("object_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *AuditHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context(), queryInt(c, "days", 30))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, stats)
}

// Activities 非管理员只返回自己的活动
func (h *AuditHandler) Activities(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.Activities(c.Request.Context(), actorFrom(c), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *AuditHandler) MyActivity(c *gin.Context) {
	items, err := h.svc.MyActivity(c.Request.Context(), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}
