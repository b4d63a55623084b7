package handler

import (
	"voicestudio/internal/repository"
	"voicestudio/internal/service"
	"voicestudio/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 认证相关接口
// ============================================================

// Register 注册
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, res)
}

// SendOTP 发送注册验证码
// POST /api/v1/auth/send-otp
func (h *Handler) SendOTP(c *gin.Context) {
	var req service.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.auth.SendOTP(c.Request.Context(), &req); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "验证码已发送", "email": req.Email})
}

// VerifyOTP 校验验证码并完成注册
// POST /api/v1/auth/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req service.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.auth.VerifyOTP(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, res)
}

// Login 登录
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Refresh 刷新令牌
// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, pair)
}

// GetProfile 当前用户资料
// GET /api/v1/auth/profile
func (h *Handler) GetProfile(c *gin.Context) {
	account, err := h.auth.Profile(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, account)
}

// UpdateProfile 修改资料
// PATCH /api/v1/auth/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	account, err := h.auth.UpdateProfile(c.Request.Context(), currentAccount(c).ID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, account)
}

// ChangePassword 修改密码
// POST /api/v1/auth/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), currentAccount(c).ID, &req); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "密码修改成功"})
}

// ============================================================
// 管理员：用户
// ============================================================

// AdminListUsers GET /api/v1/admin/users
func (h *Handler) AdminListUsers(c *gin.Context) {
	p, size := pagination(c)
	filter := repository.AccountFilter{
		Search:   c.Query("search"),
		IsActive: queryBool(c, "is_active"),
		IsAdmin:  queryBool(c, "is_admin"),
	}
	users, total, err := h.auth.ListUsers(c.Request.Context(), filter, p, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, total, users)
}

// AdminGetUser GET /api/v1/admin/users/:id
func (h *Handler) AdminGetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.auth.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}

// AdminUpdateUser PATCH /api/v1/admin/users/:id
func (h *Handler) AdminUpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	user, err := h.auth.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}

// AdminCompensateUser POST /api/v1/admin/users/:id/compensate
func (h *Handler) AdminCompensateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.CompensateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	balance, err := h.accounts.Compensate(c.Request.Context(), currentAccount(c).ID, id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": id, "credits": balance})
}

// AdminUserStats GET /api/v1/admin/users/stats
func (h *Handler) AdminUserStats(c *gin.Context) {
	stats, err := h.auth.UserStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, stats)
}
