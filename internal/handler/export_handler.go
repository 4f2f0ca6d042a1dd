package handler

import (
	"mood-diary-go/internal/service"
	"mood-diary-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExportHandler 负责历史导出。
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler 创建一个新的 ExportHandler 实例。
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export 把当前用户的历史导出到对象存储，返回下载地址。
func (h *ExportHandler) Export(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.exportService.ExportHistory(c.Request.Context(), user)
	if err != nil {
		log.Errorf("[ExportHandler] 导出失败, user: %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "导出失败")
		return
	}
	success(c, res)
}
