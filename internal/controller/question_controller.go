package controller

import (
	"errors"
	"path/filepath"
	"strings"

	"videoquiz_backend/internal/service"
	"videoquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuestionController 教师端题库管理与 CSV 批量导入
type QuestionController struct {
	QuestionService *service.QuestionService
	ImportService   *service.ImportService
}

func NewQuestionController(questionService *service.QuestionService, importService *service.ImportService) *QuestionController {
	return &QuestionController{
		QuestionService: questionService,
		ImportService:   importService,
	}
}

// List godoc
// @Summary 视频题目列表
// @Tags 题库管理
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/admin/videos/{videoId}/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	questions, err := c.QuestionService.ListByVideo(videoID)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, questions)
}

// Create godoc
// @Summary 创建题目
// @Description 可同时携带答案选项，未指定题序时追加到末尾
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   body body service.QuestionRequest true "题目信息"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/admin/videos/{videoId}/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.CreateQuestion(videoID, req)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, question)
}

// Update godoc
// @Summary 更新题目
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   questionId path int true "题目ID"
// @Param   body body service.QuestionRequest true "题目信息"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/questions/{questionId} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	questionID := util.MustParseUint(ctx.Param("questionId"))

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.UpdateQuestion(questionID, req)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, question)
}

// Delete godoc
// @Summary 删除题目
// @Tags 题库管理
// @Produce  json
// @Security BearerAuth
// @Param   questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{questionId} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	questionID := util.MustParseUint(ctx.Param("questionId"))

	if err := c.QuestionService.DeleteQuestion(questionID); err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// CreateAnswer godoc
// @Summary 为题目新增答案选项
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   questionId path int true "题目ID"
// @Param   body body service.AnswerRequest true "答案信息"
// @Success 201 {object} util.Response{data=model.Answer}
// @Router /api/admin/questions/{questionId}/answers [post]
func (c *QuestionController) CreateAnswer(ctx *gin.Context) {
	questionID := util.MustParseUint(ctx.Param("questionId"))

	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.QuestionService.CreateAnswer(questionID, req)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, answer)
}

// UpdateAnswer godoc
// @Summary 更新答案选项
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   answerId path int true "答案ID"
// @Param   body body service.AnswerRequest true "答案信息"
// @Success 200 {object} util.Response{data=model.Answer}
// @Router /api/admin/answers/{answerId} [put]
func (c *QuestionController) UpdateAnswer(ctx *gin.Context) {
	answerID := util.MustParseUint(ctx.Param("answerId"))

	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.QuestionService.UpdateAnswer(answerID, req)
	if err != nil {
		if errors.Is(err, util.ErrAnswerNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, answer)
}

// DeleteAnswer godoc
// @Summary 删除答案选项
// @Tags 题库管理
// @Produce  json
// @Security BearerAuth
// @Param   answerId path int true "答案ID"
// @Success 200 {object} util.Response
// @Router /api/admin/answers/{answerId} [delete]
func (c *QuestionController) DeleteAnswer(ctx *gin.Context) {
	answerID := util.MustParseUint(ctx.Param("answerId"))

	if err := c.QuestionService.DeleteAnswer(answerID); err != nil {
		if errors.Is(err, util.ErrAnswerNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// Import godoc
// @Summary CSV 批量导入题目
// @Description 表头固定为 question_text,question_type 加四组 answer_N,answer_N_correct
// @Tags 题库管理
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   file formData file true "CSV 文件"
// @Success 200 {object} util.Response{data=service.ImportResult}
// @Failure 400 {object} util.Response "格式不合法"
// @Router /api/admin/videos/{videoId}/questions/import [post]
func (c *QuestionController) Import(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" {
		util.BadRequest(ctx, "仅支持 CSV 文件")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	result, err := c.ImportService.ImportCSV(videoID, src)
	if err != nil {
		var formatErr *util.ImportFormatError
		switch {
		case errors.Is(err, util.ErrVideoNotFound):
			util.NotFound(ctx)
		case errors.As(err, &formatErr):
			util.BadRequest(ctx, formatErr.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}
