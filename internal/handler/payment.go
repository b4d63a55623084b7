package handler

import (
	"errors"
	"net/http"

	"voicestudio/internal/service"
	"voicestudio/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 充值
// ============================================================

// SubmitPayment 提交充值凭证，支持 multipart（带截图）或 JSON
// POST /api/v1/payments/transactions
func (h *Handler) SubmitPayment(c *gin.Context) {
	var req service.SubmitPaymentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	var shot *service.Screenshot
	file, err := c.FormFile("screenshot")
	switch {
	case err == nil:
		body, err := file.Open()
		if err != nil {
			response.ParamError(c, "读取截图失败")
			return
		}
		defer body.Close()
		shot = &service.Screenshot{Filename: file.Filename, Body: body}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		response.ParamError(c, "读取截图失败")
		return
	}

	payment, err := h.payments.Submit(c.Request.Context(), currentAccount(c).ID, &req, shot)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, payment)
}

// ListMyPayments GET /api/v1/payments/transactions
func (h *Handler) ListMyPayments(c *gin.Context) {
	list, err := h.payments.ListMine(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// PaymentSettings GET /api/v1/payments/settings
func (h *Handler) PaymentSettings(c *gin.Context) {
	response.Success(c, h.payments.Settings())
}

// AdminListPayments GET /api/v1/admin/payments/transactions?status=
func (h *Handler) AdminListPayments(c *gin.Context) {
	p, size := pagination(c)
	list, total, err := h.payments.List(c.Request.Context(), c.Query("status"), p, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, total, list)
}

// AdminApprovePayment POST /api/v1/admin/payments/transactions/:id/approve
func (h *Handler) AdminApprovePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Approve(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, payment)
}

// AdminRejectPayment POST /api/v1/admin/payments/transactions/:id/reject
func (h *Handler) AdminRejectPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Reject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, payment)
}
