// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"mood-diary-go/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

// currentUser 取出 AuthMiddleware 注入的用户。取不到时已写入错误响应。
func currentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "未认证用户或无法获取用户信息",
		})
		return nil, false
	}
	user, ok := value.(*model.User)
	if !ok || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "用户数据类型错误",
		})
		return nil, false
	}
	return user, true
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message})
}
