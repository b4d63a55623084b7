package handler

import (
	"errors"
	"net/http"
	"strconv"

	"voicestudio/internal/model"
	"voicestudio/internal/service"
	"voicestudio/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	auth        *service.AuthService
	accounts    *service.AccountService
	voices      *service.VoiceService
	generation  *service.GenerationService
	history     *service.HistoryService
	translation *service.TranslationService
	payments    *service.PaymentService
	logger      *zap.Logger
}

type Services struct {
	Auth        *service.AuthService
	Accounts    *service.AccountService
	Voices      *service.VoiceService
	Generation  *service.GenerationService
	History     *service.HistoryService
	Translation *service.TranslationService
	Payments    *service.PaymentService
}

// NewHandler 创建处理器实例
func NewHandler(s Services, logger *zap.Logger) *Handler {
	return &Handler{
		auth:        s.Auth,
		accounts:    s.Accounts,
		voices:      s.Voices,
		generation:  s.Generation,
		history:     s.History,
		translation: s.Translation,
		payments:    s.Payments,
		logger:      logger,
	}
}

// writeError 按错误类型返回对应的 HTTP 状态码
//
// 内部错误只记日志，不把细节返回给客户端
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeParamError, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientCredit):
		response.Error(c, http.StatusPaymentRequired, response.CodeInsufficientCredit, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, service.ErrSynthesis):
		logger.Warn("语音合成失败", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeSynthesisFailed, "语音生成失败，请稍后重试")
	default:
		logger.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		response.ServerError(c, "服务器内部错误")
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	writeError(c, h.logger, err)
}

func currentAccount(c *gin.Context) *model.Account {
	return c.MustGet(ctxAccountKey).(*model.Account)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "id 参数错误")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

// queryBool 解析可选布尔查询参数，缺省或非法时返回 nil
func queryBool(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func page(c *gin.Context, total int64, results interface{}) {
	p, size := pagination(c)
	if p < 1 {
		p = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	response.Success(c, response.Page{Count: total, Page: p, PageSize: size, Results: results})
}

// ============================================================
// 积分账户
// ============================================================

// GetBalance 查询当前用户余额
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account := currentAccount(c)
	balance, err := h.accounts.GetBalance(c.Request.Context(), account.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": account.ID, "credits": balance})
}

// ListLedger 积分流水
// GET /api/v1/account/ledger
func (h *Handler) ListLedger(c *gin.Context) {
	p, size := pagination(c)
	list, total, err := h.accounts.ListTransactions(c.Request.Context(), currentAccount(c).ID, p, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, total, list)
}
