package handler

import (
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CustomerHandler 客户
type CustomerHandler struct {
	svc *service.CustomerService
}

func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

func (h *CustomerHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, customer)
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, customer)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	var req service.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, customer)
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *CustomerHandler) ToggleActive(c *gin.Context) {
	customer, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, customer)
}

// Orders GET /api/v1/crm/customers/:id/orders
func (h *CustomerHandler) Orders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.Orders(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

// OrderHandler 订单
type OrderHandler struct {
	svc    *service.OrderService
	report *service.ReportService
	logger *zap.Logger
}

func NewOrderHandler(svc *service.OrderService, report *service.ReportService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, report: report, logger: logger}
}

func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	var req service.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// UpdateStatus POST /api/v1/crm/orders/:id/update_status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}

func (h *OrderHandler) StatusHistory(c *gin.Context) {
	items, err := h.svc.StatusHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *OrderHandler) Delayed(c *gin.Context) {
	items, err := h.svc.Delayed(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *OrderHandler) ByStatus(c *gin.Context) {
	items, err := h.svc.ByStatus(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *OrderHandler) MyOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.MyOrders(c.Request.Context(), page, pageSize, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

// Export GET /api/v1/crm/orders/export，过滤条件与列表相同
func (h *OrderHandler) Export(c *gin.Context) {
	f, filename, err := h.report.ExportOrders(c.Request.Context(), queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	writeXLSX(c, f, filename, h.logger)
}
