package handler

import (
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// DrawingHandler 工程图纸
type DrawingHandler struct {
	svc *service.DrawingService
}

func NewDrawingHandler(svc *service.DrawingService) *DrawingHandler {
	return &DrawingHandler{svc: svc}
}

// List 支持 latest_only=true
func (h *DrawingHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *DrawingHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

// Create POST /api/v1/engineering/drawings (multipart, file 可选)
func (h *DrawingHandler) Create(c *gin.Context) {
	var req service.CreateDrawingRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	file, done, ok := optionalFormFile(c, "file")
	if !ok {
		return
	}
	defer done()

	d, err := h.svc.Create(c.Request.Context(), &req, file, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, d)
}

func (h *DrawingHandler) Update(c *gin.Context) {
	var req service.UpdateDrawingRequest
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

func (h *DrawingHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// NewVersion POST /api/v1/engineering/drawings/:id/new_version (multipart)
func (h *DrawingHandler) NewVersion(c *gin.Context) {
	file, done, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer done()

	d, err := h.svc.NewVersion(c.Request.Context(), c.Param("id"), file, c.PostForm("notes"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, d)
}

func (h *DrawingHandler) SubmitForReview(c *gin.Context) {
	d, err := h.svc.SubmitForReview(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

func (h *DrawingHandler) Approve(c *gin.Context) {
	d, err := h.svc.Approve(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

func (h *DrawingHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	d, err := h.svc.Reject(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

func (h *DrawingHandler) Versions(c *gin.Context) {
	items, err := h.svc.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// ByOrder 只返回最新版本
func (h *DrawingHandler) ByOrder(c *gin.Context) {
	items, err := h.svc.ByOrder(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *DrawingHandler) Comments(c *gin.Context) {
	items, err := h.svc.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *DrawingHandler) AddComment(c *gin.Context) {
	var req service.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, comment)
}

func (h *DrawingHandler) Download(c *gin.Context) {
	file, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	sendFile(c, file)
}
