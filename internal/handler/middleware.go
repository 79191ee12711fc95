package handler

import (
	"context"
	"log"
	"strings"
	"time"

	"knightboard/internal/model"
	"knightboard/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyRole   = "role"
)

// sessionChecker 会话校验，AuthService 实现
type sessionChecker interface {
	Session(ctx context.Context, token string) (int64, string, error)
}

// SessionMiddleware 会话解析中间件
// 从 Authorization: Bearer {token} 里取令牌，校验通过就把身份放进上下文。
// 这里只解析不拦截，未登录也可以浏览任务列表和商品目录；
// 需要登录/角色的路由再叠加 AuthRequired / RequireKnight
func SessionMiddleware(sessions sessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			userID, role, err := sessions.Session(c.Request.Context(), token)
			if err == nil {
				c.Set(ctxKeyUserID, userID)
				c.Set(ctxKeyRole, role)
			}
		}
		c.Next()
	}
}

// AuthRequired 登录校验
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ctxKeyUserID); !exists {
			response.NotLoggedIn(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireKnight 骑士（管理员）权限校验
// 评审、提交名单、发布任务、清库、发放硬币只对骑士开放
func RequireKnight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ctxKeyUserID); !exists {
			response.NotLoggedIn(c)
			c.Abort()
			return
		}
		if c.GetString(ctxKeyRole) != model.RoleKnight {
			response.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUserID 从上下文取当前用户，未登录返回 0
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxKeyUserID)
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
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
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
