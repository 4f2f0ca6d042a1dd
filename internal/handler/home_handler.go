package handler

import (
	"github.com/gin-gonic/gin"
)

// HomeHandler 返回欢迎信息。
type HomeHandler struct {
	serviceName  string
	maxQuestions int
}

// NewHomeHandler 创建一个新的 HomeHandler 实例。
func NewHomeHandler(serviceName string, maxQuestions int) *HomeHandler {
	return &HomeHandler{serviceName: serviceName, maxQuestions: maxQuestions}
}

// Home 处理 GET /。
func (h *HomeHandler) Home(c *gin.Context) {
	success(c, gin.H{
		"service":       h.serviceName,
		"maxQuestions":  h.maxQuestions,
		"questionnaire": MoodLogPath,
	})
}
