package controller

import (
	"errors"
	"strconv"

	"videoquiz_backend/internal/service"
	"videoquiz_backend/internal/util"
	"videoquiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// Start godoc
// @Summary 开始或恢复测验
// @Description 已有进行中的作答则恢复，否则消耗一次机会开始新作答
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=service.AttemptContext}
// @Failure 403 {object} util.Response "前序视频未通过"
// @Failure 404 {object} util.Response "视频不存在"
// @Failure 409 {object} util.Response "作答机会已用尽"
// @Router /api/videos/{videoId}/quiz/start [post]
func (c *QuizController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))

	attempt, err := c.QuizService.StartOrResume(ctx.Request.Context(), claims.UserID, videoID)
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// GetQuestion godoc
// @Summary 获取指定序号的题目
// @Description 序号从 1 开始，答案选项不包含正确性标记
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   index path int true "题目序号"
// @Success 200 {object} util.Response{data=service.QuestionView}
// @Router /api/videos/{videoId}/quiz/questions/{index} [get]
func (c *QuizController) GetQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || index < 1 {
		util.BadRequest(ctx, "题目序号无效")
		return
	}

	question, err := c.QuizService.GetQuestion(ctx.Request.Context(), claims.UserID, videoID, index)
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	util.Success(ctx, question)
}

// swagger:model AnswerSubmission
type AnswerSubmission struct {
	QuestionID uint `json:"questionId" binding:"required"`
	AnswerID   uint `json:"answerId" binding:"required"`
}

// Answer godoc
// @Summary 记录单题答案
// @Description 同一题重复提交会覆盖之前的选择
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   body body AnswerSubmission true "题目与所选答案"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "没有进行中的作答"
// @Router /api/videos/{videoId}/quiz/answer [post]
func (c *QuizController) Answer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))

	var req AnswerSubmission
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuizService.RecordAnswer(ctx.Request.Context(), claims.UserID, videoID, req.QuestionID, req.AnswerID); err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recorded": true})
}

// Submit godoc
// @Summary 提交测验
// @Description 所有题目作答完毕后评分，返回结果与正确答案解析
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=service.GradeResult}
// @Failure 400 {object} util.Response "存在未作答题目"
// @Router /api/videos/{videoId}/quiz/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))

	result, err := c.QuizService.Submit(ctx.Request.Context(), claims.UserID, videoID)
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	monitoring.QuizSubmissions.WithLabelValues(string(result.Status)).Inc()
	util.Success(ctx, result)
}

// AutoSubmit godoc
// @Summary 超时自动提交
// @Description 计时归零后由客户端触发，按已作答内容评为超时
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=service.GradeResult}
// @Router /api/videos/{videoId}/quiz/auto-submit [post]
func (c *QuizController) AutoSubmit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))

	result, err := c.QuizService.AutoSubmit(ctx.Request.Context(), claims.UserID, videoID)
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	monitoring.QuizSubmissions.WithLabelValues(string(result.Status)).Inc()
	util.Success(ctx, result)
}

// Retry godoc
// @Summary 重考
// @Description 未通过且还有剩余机会时重置作答状态
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "已通过或机会用尽"
// @Router /api/videos/{videoId}/quiz/retry [post]
func (c *QuizController) Retry(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))

	if err := c.QuizService.Retry(ctx.Request.Context(), claims.UserID, videoID); err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"reset": true})
}

// SyncTimer godoc
// @Summary 同步剩余时间
// @Description 以服务端为准返回剩余秒数，归零时直接判超时
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/videos/{videoId}/quiz/sync-timer [get]
func (c *QuizController) SyncTimer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	videoID := util.MustParseUint(ctx.Param("videoId"))

	remaining, status, err := c.QuizService.SyncTimer(ctx.Request.Context(), claims.UserID, videoID)
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"remainingSeconds": remaining, "status": status})
}

// writeQuizError 把测验业务错误映射到统一响应
func (c *QuizController) writeQuizError(ctx *gin.Context, err error) {
	var incomplete *util.IncompleteAnswersError
	switch {
	case errors.Is(err, util.ErrVideoNotFound),
		errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrVideoLocked):
		util.Error(ctx, 403, "请先通过前一个视频的测验")
	case errors.Is(err, util.ErrAttemptsExhausted):
		util.Conflict(ctx, "作答机会已用尽")
	case errors.Is(err, util.ErrAlreadyPassed):
		util.Conflict(ctx, "该测验已通过")
	case errors.Is(err, util.ErrQuizNotInProgress):
		util.Conflict(ctx, "没有进行中的作答")
	case errors.Is(err, util.ErrQuizTimeExpired):
		util.Conflict(ctx, "作答时间已到，本次已自动提交")
	case errors.Is(err, util.ErrAnswerNotFound):
		util.BadRequest(ctx, "所选答案不属于该题目")
	case errors.As(err, &incomplete):
		util.ErrorWithData(ctx, 400, "请回答所有题目后再提交", gin.H{"unanswered": incomplete.Unanswered})
	default:
		util.LogInternalError(ctx, err)
	}
}
