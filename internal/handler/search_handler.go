package handler

import (
	"errors"
	"mood-diary-go/internal/service"
	"mood-diary-go/pkg/log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 在当前用户的记录中按关键词检索。
func (h *SearchHandler) Search(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	query := c.Query("query")
	topK, err := strconv.Atoi(c.DefaultQuery("topK", "10"))
	if err != nil {
		topK = 0
	}
	log.Infof("[SearchHandler] 收到搜索请求, query: %s, topK: %d", query, topK)

	results, err := h.searchService.SearchEntries(c.Request.Context(), user, query, topK)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			fail(c, http.StatusBadRequest, "无效的查询参数")
			return
		}
		log.Errorf("[SearchHandler] 搜索服务返回错误, error: %v", err)
		fail(c, http.StatusInternalServerError, "搜索失败")
		return
	}

	log.Infof("[SearchHandler] 搜索成功, query: '%s', 返回 %d 条结果", query, len(results))
	success(c, results)
}
