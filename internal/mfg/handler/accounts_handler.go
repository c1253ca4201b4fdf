package handler

import (
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/middleware"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler 登录/刷新/登出
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login POST /api/v1/accounts/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, tokens, err := h.svc.Login(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// Refresh POST /api/v1/accounts/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, tokens)
}

// Logout POST /api/v1/accounts/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req service.LogoutRequest
	// body 可选
	_ = c.ShouldBindJSON(&req)

	expiresAt := time.Now().Add(time.Hour)
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*middleware.JWTClaims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	if err := h.svc.Logout(c.Request.Context(), actorFrom(c), c.GetString("token_id"), expiresAt, &req); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"message": "Successfully logged out."})
}

// UserHandler 用户管理与个人资料
type UserHandler struct {
	svc  *service.UserService
	auth *service.AuthService
}

func NewUserHandler(svc *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{svc: svc, auth: auth}
}

func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// Me GET /api/v1/accounts/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.auth.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), actorFrom(c), &req); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"message": "Password changed successfully."})
}

func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.ChangeRole(c.Request.Context(), c.Param("id"), req.Role, actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) ToggleActive(c *gin.Context) {
	user, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

// PermissionHandler 角色模块权限
type PermissionHandler struct {
	svc *service.PermissionService
}

func NewPermissionHandler(svc *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{svc: svc}
}

func (h *PermissionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Paged(c, items, total, page, pageSize)
}

func (h *PermissionHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *PermissionHandler) Create(c *gin.Context) {
	var req service.PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

func (h *PermissionHandler) Update(c *gin.Context) {
	var req service.PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// ByRole GET /api/v1/accounts/permissions/by_role?role=xxx
func (h *PermissionHandler) ByRole(c *gin.Context) {
	items, err := h.svc.ByRole(c.Request.Context(), c.Query("role"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

func (h *PermissionHandler) BulkUpdate(c *gin.Context) {
	var req service.BulkUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := h.svc.BulkUpdate(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}
