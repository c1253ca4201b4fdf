package handler

import (
	"bytes"
	"encoding/json"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// InspectionHandler 检验
type InspectionHandler struct {
	svc *service.InspectionService
}

func NewInspectionHandler(svc *service.InspectionService) *InspectionHandler {
	return &InspectionHandler{svc: svc}
}

func (h *InspectionHandler) ListTypes(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListTypes(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *InspectionHandler) GetType(c *gin.Context) {
	t, err := h.svc.GetType(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, t)
}

func (h *InspectionHandler) CreateType(c *gin.Context) {
	var req service.InspectionTypeRequest
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

func (h *InspectionHandler) UpdateType(c *gin.Context) {
	var req service.InspectionTypeRequest
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

func (h *InspectionHandler) DeleteType(c *gin.Context) {
	if err := h.svc.DeleteType(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *InspectionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *InspectionHandler) Get(c *gin.Context) {
	i, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, i)
}

func (h *InspectionHandler) Create(c *gin.Context) {
	var req service.InspectionRequest
	if !bindJSON(c, &req) {
		return
	}
	i, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, i)
}

func (h *InspectionHandler) Update(c *gin.Context) {
	var req service.InspectionRequest
	if !bindJSON(c, &req) {
		return
	}
	i, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, i)
}

func (h *InspectionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// QAApprove POST /api/v1/inspection/order-inspections/:id/qa_approve
func (h *InspectionHandler) QAApprove(c *gin.Context) {
	var req service.QAApprovalRequest
	if !bindJSON(c, &req) {
		return
	}
	i, err := h.svc.QAApprove(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, i)
}

func (h *InspectionHandler) ByOrder(c *gin.Context) {
	items, err := h.svc.ByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *InspectionHandler) PendingApproval(c *gin.Context) {
	items, err := h.svc.PendingApproval(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *InspectionHandler) Failed(c *gin.Context) {
	items, err := h.svc.Failed(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *InspectionHandler) DispatchBlocked(c *gin.Context) {
	items, err := h.svc.DispatchBlocked(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *InspectionHandler) QualityMetrics(c *gin.Context) {
	report, err := h.svc.QualityMetrics(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, report)
}

func (h *InspectionHandler) Checklist(c *gin.Context) {
	items, err := h.svc.Checklist(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// AddChecklist body 可以是单个对象或数组
func (h *InspectionHandler) AddChecklist(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	var reqs []service.ChecklistItemRequest
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &reqs)
	} else {
		var single service.ChecklistItemRequest
		if err = json.Unmarshal(trimmed, &single); err == nil {
			reqs = append(reqs, single)
		}
	}
	if err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	items, err := h.svc.AddChecklistItems(c.Request.Context(), c.Param("id"), reqs)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, items)
}

// DispatchHandler 包装标准与发运
type DispatchHandler struct {
	svc *service.DispatchService
}

func NewDispatchHandler(svc *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{svc: svc}
}

func (h *DispatchHandler) ListPackingStandards(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListPackingStandards(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *DispatchHandler) GetPackingStandard(c *gin.Context) {
	p, err := h.svc.GetPackingStandard(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *DispatchHandler) CreatePackingStandard(c *gin.Context) {
	var req service.MasterDataRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.CreatePackingStandard(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

func (h *DispatchHandler) UpdatePackingStandard(c *gin.Context) {
	var req service.MasterDataRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.UpdatePackingStandard(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *DispatchHandler) DeletePackingStandard(c *gin.Context) {
	if err := h.svc.DeletePackingStandard(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *DispatchHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *DispatchHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

func (h *DispatchHandler) Create(c *gin.Context) {
	var req service.DispatchRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, d)
}

func (h *DispatchHandler) Update(c *gin.Context) {
	var req service.DispatchRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

func (h *DispatchHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

func (h *DispatchHandler) StartPacking(c *gin.Context) {
	d, err := h.svc.StartPacking(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, d, err)
}

func (h *DispatchHandler) MarkPacked(c *gin.Context) {
	var req service.DispatchRequest
	_ = c.ShouldBindJSON(&req)
	d, err := h.svc.MarkPacked(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	h.respond(c, d, err)
}

func (h *DispatchHandler) ReadyForDispatch(c *gin.Context) {
	d, err := h.svc.ReadyForDispatch(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, d, err)
}

// Dispatch POST /api/v1/logistics/dispatches/:id/dispatch，PDI 未通过时拒绝
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req service.DispatchRequest
	_ = c.ShouldBindJSON(&req)
	d, err := h.svc.Dispatch(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	h.respond(c, d, err)
}

func (h *DispatchHandler) MarkInTransit(c *gin.Context) {
	var req service.DispatchRequest
	_ = c.ShouldBindJSON(&req)
	d, err := h.svc.MarkInTransit(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	h.respond(c, d, err)
}

func (h *DispatchHandler) MarkDelivered(c *gin.Context) {
	d, err := h.svc.MarkDelivered(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, d, err)
}

func (h *DispatchHandler) respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, data)
}

func (h *DispatchHandler) ByOrder(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		BadRequest(c, "order_id parameter is required.")
		return
	}
	d, err := h.svc.ByOrder(c.Request.Context(), orderID)
	h.respond(c, d, err)
}

func (h *DispatchHandler) Pending(c *gin.Context) {
	items, err := h.svc.Pending(c.Request.Context())
	h.respond(c, items, err)
}

func (h *DispatchHandler) InTransit(c *gin.Context) {
	items, err := h.svc.InTransit(c.Request.Context())
	h.respond(c, items, err)
}

func (h *DispatchHandler) Delayed(c *gin.Context) {
	items, err := h.svc.Delayed(c.Request.Context())
	h.respond(c, items, err)
}

// UploadDocument multipart: file, document_type, document_number
func (h *DispatchHandler) UploadDocument(c *gin.Context) {
	var req service.DocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	file, done, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer done()

	doc, err := h.svc.UploadDocument(c.Request.Context(), c.Param("id"), &req, file, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, doc)
}

func (h *DispatchHandler) Documents(c *gin.Context) {
	items, err := h.svc.Documents(c.Request.Context(), c.Param("id"))
	h.respond(c, items, err)
}

// DownloadDocument GET /api/v1/logistics/documents/:id/download
func (h *DispatchHandler) DownloadDocument(c *gin.Context) {
	file, err := h.svc.DownloadDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	sendFile(c, file)
}
