// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"shelf-search-go/internal/service"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
)

// OwnerIDKey 是 Gin 上下文中保存规范化 ownerId 的键。
const OwnerIDKey = "ownerId"

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并把 sub 声明规范化为 ownerId 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "请求未包含授权头")
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abortUnauthorized(c, "无效的授权头格式")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Debugf("[Auth] token 校验失败: %v", err)
			abortUnauthorized(c, "无效或已过期的 token")
			return
		}

		ownerID, err := service.NormalizeOwnerID(claims.Subject)
		if err != nil {
			log.Warnf("[Auth] 无法解析调用者身份, sub: %q, error: %v", claims.Subject, err)
			abortUnauthorized(c, "无法识别调用者身份")
			return
		}

		c.Set(OwnerIDKey, ownerID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
