package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// NoContent 删除成功
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paged 分页列表
func Paged(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// Error HTTP 状态码 = code / 100
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, Response{Code: code, Message: message, Detail: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 服务层错误 → 响应
func RespondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Msg)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "Not found.")
	case errors.Is(err, repository.ErrDuplicate):
		BadRequest(c, "A record with these values already exists.")
	case errors.Is(err, repository.ErrInUse):
		BadRequest(c, "This record is referenced by other records and cannot be deleted.")
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, "Invalid email or password.")
	case errors.Is(err, service.ErrInactiveUser):
		Unauthorized(c, "User account is disabled.")
	case errors.Is(err, service.ErrInvalidToken):
		Unauthorized(c, "Token is invalid or expired")
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, "You do not have permission to perform this action.")
	default:
		c.Error(err)
		InternalError(c, "服务器内部错误")
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// actorFrom 由 JWT 上下文构造操作人
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:    c.GetString("user_id"),
		Email:     c.GetString("user_email"),
		Name:      c.GetString("user_name"),
		Role:      c.GetString("role"),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// GetPagination 默认 1/20，page_size 上限 100
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// 查询参数别名 → 列名
var filterAliases = map[string]string{
	"customer":         "customer_id",
	"order":            "order_id",
	"material":         "material_id",
	"material_type":    "material_type_id",
	"process":          "process_id",
	"operator":         "operator_id",
	"treatment_type":   "treatment_type_id",
	"inspection_type":  "inspection_type_id",
	"packing_standard": "packing_standard_id",
	"user":             "user_id",
	"model":            "entity_type",
	"object_id":        "entity_id",
}

// queryFilters 收集查询参数，分页参数除外
func queryFilters(c *gin.Context) map[string]string {
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if key == "page" || key == "page_size" || key == "token" || len(values) == 0 {
			continue
		}
		v := strings.TrimSpace(values[0])
		if v == "" {
			continue
		}
		if col, ok := filterAliases[key]; ok {
			if _, set := filters[col]; !set {
				filters[col] = v
			}
			continue
		}
		filters[key] = v
	}
	return filters
}

// queryInt 解析整数参数，缺省或非法时返回 fallback
func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return false
	}
	return true
}

// writeXLSX 以附件形式输出工作簿
func writeXLSX(c *gin.Context, f *excelize.File, filename string, logger *zap.Logger) {
	defer f.Close()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil && logger != nil {
		logger.Warn("write xlsx failed", zap.String("file", filename), zap.Error(err))
	}
}

// formFile 读取 multipart 文件字段，调用方负责 close
func formFile(c *gin.Context, field string) (*service.FileUpload, func(), bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		BadRequest(c, field+": No file was submitted.")
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		BadRequest(c, "无法读取上传文件: "+err.Error())
		return nil, nil, false
	}
	upload := &service.FileUpload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Reader:      f,
	}
	return upload, func() { f.Close() }, true
}

// optionalFormFile 未提交文件时返回 nil
func optionalFormFile(c *gin.Context, field string) (*service.FileUpload, func(), bool) {
	if _, err := c.FormFile(field); errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, true
	}
	return formFile(c, field)
}

// sendFile 下载存储中的文件
func sendFile(c *gin.Context, file *service.StoredFile) {
	defer file.Content.Close()
	c.Header("Content-Disposition", "attachment; filename=\""+file.Name+"\"")
	c.DataFromReader(http.StatusOK, file.Size, "application/octet-stream", file.Content, nil)
}
