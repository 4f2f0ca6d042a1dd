// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"mood-diary-go/internal/service"
	"mood-diary-go/pkg/log"
	"mood-diary-go/pkg/token"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将完整的 User 对象存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从 Authorization 请求头中获取 token
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

		claims, err := jwtManager.VerifyToken(tokenString, token.TypeAccess)
		if err != nil {
			abortUnauthorized(c, "无效或已过期的 token")
			return
		}

		// 已登出的 token 在黑名单中
		revoked, err := userService.IsTokenRevoked(c.Request.Context(), tokenString)
		if err != nil {
			log.Errorf("AuthMiddleware: 检查 token 黑名单失败: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "服务器内部错误",
			})
			return
		}
		if revoked {
			abortUnauthorized(c, "token 已失效")
			return
		}

		// 使用 claims 中的用户名从数据库获取完整的用户信息
		user, err := userService.GetProfile(c.Request.Context(), claims.Username)
		if err != nil {
			// 用户可能已被删除
			abortUnauthorized(c, "用户不存在")
			return
		}

		c.Set("user", user)
		c.Set("claims", claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
