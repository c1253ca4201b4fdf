package handler

import (
	"strconv"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// ProductionHandler 生产记录与汇总
type ProductionHandler struct {
	svc *service.ProductionService
}

func NewProductionHandler(svc *service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

func (h *ProductionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *ProductionHandler) Get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, r)
}

func (h *ProductionHandler) Create(c *gin.Context) {
	var req service.ProductionRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, r)
}

func (h *ProductionHandler) Update(c *gin.Context) {
	var req service.ProductionRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, r)
}

func (h *ProductionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *ProductionHandler) Verify(c *gin.Context) {
	r, err := h.svc.Verify(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, r)
}

func (h *ProductionHandler) ByOrder(c *gin.Context) {
	items, err := h.svc.ByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// DailySummary GET ?date=YYYY-MM-DD，缺省为今天
func (h *ProductionHandler) DailySummary(c *gin.Context) {
	summary, err := h.svc.DailySummary(c.Request.Context(), c.Query("date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, summary)
}

func (h *ProductionHandler) YieldAnalysis(c *gin.Context) {
	items, err := h.svc.YieldAnalysis(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *ProductionHandler) ListSummaries(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListSummaries(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *ProductionHandler) SummaryByOrder(c *gin.Context) {
	summary, err := h.svc.SummaryByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, summary)
}

// LowYield GET ?threshold=90
func (h *ProductionHandler) LowYield(c *gin.Context) {
	var threshold float64
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			BadRequest(c, "threshold must be a number.")
			return
		}
		threshold = parsed
	}
	items, err := h.svc.LowYield(c.Request.Context(), threshold)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// FabricationHandler 加工工序
type FabricationHandler struct {
	svc *service.FabricationService
}

func NewFabricationHandler(svc *service.FabricationService) *FabricationHandler {
	return &FabricationHandler{svc: svc}
}

func (h *FabricationHandler) ListProcesses(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListProcesses(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *FabricationHandler) GetProcess(c *gin.Context) {
	p, err := h.svc.GetProcess(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *FabricationHandler) CreateProcess(c *gin.Context) {
	var req service.ProcessRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.CreateProcess(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

func (h *FabricationHandler) UpdateProcess(c *gin.Context) {
	var req service.ProcessRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.UpdateProcess(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *FabricationHandler) DeleteProcess(c *gin.Context) {
	if err := h.svc.DeleteProcess(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *FabricationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *FabricationHandler) Get(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, f)
}

func (h *FabricationHandler) Create(c *gin.Context) {
	var req service.FabricationRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, f)
}

func (h *FabricationHandler) Update(c *gin.Context) {
	var req service.FabricationRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, f)
}

func (h *FabricationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *FabricationHandler) Start(c *gin.Context) {
	f, err := h.svc.Start(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, f)
}

func (h *FabricationHandler) Complete(c *gin.Context) {
	var req service.CompleteRequest
	_ = c.ShouldBindJSON(&req)
	f, err := h.svc.Complete(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, f)
}

func (h *FabricationHandler) Hold(c *gin.Context) {
	var req service.NotesRequest
	_ = c.ShouldBindJSON(&req)
	f, err := h.svc.Hold(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, f)
}

func (h *FabricationHandler) ByOrder(c *gin.Context) {
	items, err := h.svc.ByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// BulkCreate POST /api/v1/fabrication/order-processes/bulk_create
func (h *FabricationHandler) BulkCreate(c *gin.Context) {
	var req service.BulkCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := h.svc.BulkCreate(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, items)
}

func (h *FabricationHandler) InProgress(c *gin.Context) {
	items, err := h.svc.InProgress(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *FabricationHandler) Delayed(c *gin.Context) {
	items, err := h.svc.Delayed(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *FabricationHandler) Logs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.Logs(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

// SurfaceTreatmentHandler 表面处理
type SurfaceTreatmentHandler struct {
	svc *service.SurfaceTreatmentService
}

func NewSurfaceTreatmentHandler(svc *service.SurfaceTreatmentService) *SurfaceTreatmentHandler {
	return &SurfaceTreatmentHandler{svc: svc}
}

func (h *SurfaceTreatmentHandler) ListTypes(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListTypes(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *SurfaceTreatmentHandler) GetType(c *gin.Context) {
	t, err := h.svc.GetType(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *SurfaceTreatmentHandler) CreateType(c *gin.Context) {
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

func (h *SurfaceTreatmentHandler) UpdateType(c *gin.Context) {
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

func (h *SurfaceTreatmentHandler) DeleteType(c *gin.Context) {
	if err := h.svc.DeleteType(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *SurfaceTreatmentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *SurfaceTreatmentHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *SurfaceTreatmentHandler) Create(c *gin.Context) {
	var req service.TreatmentRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, t)
}

func (h *SurfaceTreatmentHandler) Update(c *gin.Context) {
	var req service.TreatmentRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *SurfaceTreatmentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *SurfaceTreatmentHandler) Start(c *gin.Context) {
	t, err := h.svc.Start(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *SurfaceTreatmentHandler) Complete(c *gin.Context) {
	var req service.CompleteRequest
	_ = c.ShouldBindJSON(&req)
	t, err := h.svc.Complete(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *SurfaceTreatmentHandler) ByOrder(c *gin.Context) {
	items, err := h.svc.ByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *SurfaceTreatmentHandler) Pending(c *gin.Context) {
	items, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}
