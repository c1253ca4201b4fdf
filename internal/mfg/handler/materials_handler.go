package handler

import (
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaterialHandler 材料类别、材料、订单物料与库存流水
type MaterialHandler struct {
	svc    *service.MaterialService
	report *service.ReportService
	logger *zap.Logger
}

func NewMaterialHandler(svc *service.MaterialService, report *service.ReportService, logger *zap.Logger) *MaterialHandler {
	return &MaterialHandler{svc: svc, report: report, logger: logger}
}

// ---- 类别 ----

func (h *MaterialHandler) ListTypes(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListTypes(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *MaterialHandler) GetType(c *gin.Context) {
	t, err := h.svc.GetType(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *MaterialHandler) CreateType(c *gin.Context) {
	var req service.MasterDataRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.CreateType(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, t)
}

func (h *MaterialHandler) UpdateType(c *gin.Context) {
	var req service.MasterDataRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.UpdateType(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *MaterialHandler) DeleteType(c *gin.Context) {
	if err := h.svc.DeleteType(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// ---- 材料 ----

func (h *MaterialHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *MaterialHandler) Get(c *gin.Context) {
	m, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, m)
}

func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.MaterialRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, m)
}

func (h *MaterialHandler) Update(c *gin.Context) {
	var req service.MaterialRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, m)
}

func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *MaterialHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// AdjustStock POST /api/v1/materials/materials/:id/adjust_stock
func (h *MaterialHandler) AdjustStock(c *gin.Context) {
	var req service.StockAdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.AdjustStock(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, m)
}

// Transactions 单个材料最近 50 条流水
func (h *MaterialHandler) Transactions(c *gin.Context) {
	items, err := h.svc.Transactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// Import POST /api/v1/materials/materials/import (multipart: file, encoding)
func (h *MaterialHandler) Import(c *gin.Context) {
	file, done, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer done()

	result, err := h.svc.ImportMaterials(c.Request.Context(), file, c.DefaultPostForm("encoding", "utf-8"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

func (h *MaterialHandler) ImportTemplate(c *gin.Context) {
	f, filename, err := h.report.ImportTemplate()
	if err != nil {
		RespondError(c, err)
		return
	}
	writeXLSX(c, f, filename, h.logger)
}

func (h *MaterialHandler) Export(c *gin.Context) {
	f, filename, err := h.report.ExportMaterials(c.Request.Context(), queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	writeXLSX(c, f, filename, h.logger)
}

// ---- 流水 ----

func (h *MaterialHandler) ListTransactions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListTransactions(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *MaterialHandler) GetTransaction(c *gin.Context) {
	tx, err := h.svc.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, tx)
}

// ---- 订单物料 ----

func (h *MaterialHandler) ListOrderMaterials(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListOrderMaterials(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *MaterialHandler) GetOrderMaterial(c *gin.Context) {
	om, err := h.svc.GetOrderMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, om)
}

func (h *MaterialHandler) CreateOrderMaterial(c *gin.Context) {
	var req service.OrderMaterialRequest
	if !bindJSON(c, &req) {
		return
	}
	om, err := h.svc.CreateOrderMaterial(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, om)
}

func (h *MaterialHandler) UpdateOrderMaterial(c *gin.Context) {
	var req service.OrderMaterialRequest
	if !bindJSON(c, &req) {
		return
	}
	om, err := h.svc.UpdateOrderMaterial(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, om)
}

func (h *MaterialHandler) DeleteOrderMaterial(c *gin.Context) {
	if err := h.svc.DeleteOrderMaterial(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// Issue POST /api/v1/materials/order-materials/:id/issue
func (h *MaterialHandler) Issue(c *gin.Context) {
	var req service.IssueRequest
	if !bindJSON(c, &req) {
		return
	}
	om, err := h.svc.Issue(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, om)
}

func (h *MaterialHandler) OrderMaterialsByOrder(c *gin.Context) {
	items, err := h.svc.OrderMaterialsByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *MaterialHandler) PendingIssues(c *gin.Context) {
	items, err := h.svc.PendingIssues(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}
