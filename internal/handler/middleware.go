package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"voicestudio/internal/model"
	"voicestudio/internal/service"
	"voicestudio/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxAccountKey = "account"

// Authenticator 根据访问令牌解析当前用户
type Authenticator interface {
	Authenticate(ctx context.Context, access string) (*model.Account, error)
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		if query != "" {
			path = path + "?" + query
		}

		logger.Info("[HTTP]",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[PANIC]", zap.Any("error", err), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorBody{
					Code:  response.CodeServerError,
					Error: "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware 校验 Bearer 令牌，并把当前用户放入上下文
func AuthMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		access, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || access == "" {
			response.Unauthorized(c, "未登录")
			c.Abort()
			return
		}

		account, err := auth.Authenticate(c.Request.Context(), access)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				response.Unauthorized(c, "登录已失效")
			} else {
				writeError(c, logger, err)
			}
			c.Abort()
			return
		}

		c.Set(ctxAccountKey, account)
		c.Next()
	}
}

// AdminMiddleware 必须挂在 AuthMiddleware 之后
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentAccount(c).IsAdmin {
			response.Forbidden(c, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}
