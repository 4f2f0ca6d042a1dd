package handler

import (
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/service"
	"mood-diary-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// MoodLogPath 是问卷的 GET/POST 路径，POST 成功后重定向回这里。
const MoodLogPath = "/api/v1/mood/log"

// MoodHandler 负责问卷流程和历史/统计视图。
type MoodHandler struct {
	questionnaire service.QuestionnaireService
	reports       service.ReportService
}

// NewMoodHandler 创建一个新的 MoodHandler 实例。
func NewMoodHandler(questionnaire service.QuestionnaireService, reports service.ReportService) *MoodHandler {
	return &MoodHandler{questionnaire: questionnaire, reports: reports}
}

// MoodLogRequest 是 JSON 形式的提交体。
type MoodLogRequest struct {
	Response string `json:"response"`
	Stop     bool   `json:"stop"`
}

// MoodEntryView 是历史列表中的一条记录。
type MoodEntryView struct {
	ID         uint            `json:"id"`
	Mood       string          `json:"mood"`
	Score      int             `json:"score"`
	ScoreClass string          `json:"scoreClass"`
	Answers    []string        `json:"answers"`
	Date       model.LocalTime `json:"date"`
}

// GetQuestion 返回当前问题和步数。
func (h *MoodHandler) GetQuestion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.questionnaire.Current(c.Request.Context(), user)
	if err != nil {
		log.Errorf("[MoodHandler] 获取当前问题失败, user: %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "暂时无法生成问题，请稍后重试")
		return
	}
	success(c, view)
}

// SubmitAnswer 处理一次回答或停止信号。
// 表单提交时 stop 字段只要出现即视为停止。
func (h *MoodHandler) SubmitAnswer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var in service.SubmitInput
	if c.ContentType() == binding.MIMEJSON {
		var req MoodLogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warnf("[MoodHandler] 无效的请求负载, error: %v", err)
			fail(c, http.StatusBadRequest, "无效的请求负载")
			return
		}
		in = service.SubmitInput{Answer: req.Response, Stop: req.Stop}
	} else {
		_, stop := c.GetPostForm("stop")
		in = service.SubmitInput{Answer: c.PostForm("response"), Stop: stop}
	}

	outcome, err := h.questionnaire.Submit(c.Request.Context(), user, in)
	if err != nil {
		log.Errorf("[MoodHandler] 处理回答失败, user: %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "暂时无法处理你的回答，请稍后重试")
		return
	}

	switch {
	case outcome.Invalid != nil:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": outcome.Invalid.Error,
			"data":    outcome.Invalid,
		})
	case outcome.Finalized():
		success(c, outcome.Result)
	default:
		// Post/Redirect/Get：刷新页面不会重复提交
		c.Redirect(http.StatusSeeOther, MoodLogPath)
	}
}

// History 按日期倒序返回当前用户的全部记录。
func (h *MoodHandler) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	entries, err := h.reports.History(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("[MoodHandler] 查询历史失败, user: %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "查询历史失败")
		return
	}

	views := make([]MoodEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, MoodEntryView{
			ID:         e.ID,
			Mood:       e.Mood,
			Score:      e.Score,
			ScoreClass: service.ScoreClass(e.Score),
			Answers:    e.Answers(),
			Date:       model.LocalTime(e.Date),
		})
	}
	success(c, views)
}

// Stats 返回平均分和按情绪分组的计数。
func (h *MoodHandler) Stats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := h.reports.Stats(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("[MoodHandler] 查询统计失败, user: %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "查询统计失败")
		return
	}
	success(c, stats)
}
