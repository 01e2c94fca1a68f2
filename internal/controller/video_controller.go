package controller

import (
	"errors"

	"videoquiz_backend/internal/service"
	"videoquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// VideoController 教师端视频目录管理
type VideoController struct {
	CatalogService *service.CatalogService
	ProgressStats  *service.StatsService
}

func NewVideoController(catalogService *service.CatalogService, statsService *service.StatsService) *VideoController {
	return &VideoController{
		CatalogService: catalogService,
		ProgressStats:  statsService,
	}
}

// List godoc
// @Summary 视频列表（含草稿）
// @Tags 视频管理
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Video}
// @Router /api/admin/videos [get]
func (c *VideoController) List(ctx *gin.Context) {
	videos, err := c.CatalogService.ListAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, videos)
}

// Create godoc
// @Summary 创建视频
// @Description 未指定顺序时追加到序列末尾
// @Tags 视频管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.VideoRequest true "视频信息"
// @Success 201 {object} util.Response{data=model.Video}
// @Router /api/admin/videos [post]
func (c *VideoController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.VideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.CatalogService.CreateVideo(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, video)
}

// Update godoc
// @Summary 更新视频
// @Tags 视频管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   body body service.VideoRequest true "视频信息"
// @Success 200 {object} util.Response{data=model.Video}
// @Router /api/admin/videos/{videoId} [put]
func (c *VideoController) Update(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	var req service.VideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.CatalogService.UpdateVideo(videoID, req)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, video)
}

// Delete godoc
// @Summary 删除视频
// @Tags 视频管理
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response
// @Router /api/admin/videos/{videoId} [delete]
func (c *VideoController) Delete(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))
	if err := c.CatalogService.DeleteVideo(videoID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// swagger:model PublishRequest
type PublishRequest struct {
	Publish *bool `json:"publish" binding:"required"`
}

// Publish godoc
// @Summary 上架或下架视频
// @Tags 视频管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   body body PublishRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.Video}
// @Router /api/admin/videos/{videoId}/publish [post]
func (c *VideoController) Publish(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.CatalogService.PublishVideo(videoID, *req.Publish)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, video)
}

// Upload godoc
// @Summary 上传视频文件
// @Description 探测时长并生成封面帧后写入存储后端
// @Tags 视频管理
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Param   file formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Video}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/admin/videos/{videoId}/upload [post]
func (c *VideoController) Upload(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	video, err := c.CatalogService.UploadVideoFile(ctx.Request.Context(), videoID, file)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrVideoNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidVideoExt):
			util.BadRequest(ctx, "不支持的视频文件类型")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, video)
}

// Stats godoc
// @Summary 视频作答统计
// @Description 提交量、平均分、通过率、超时次数
// @Tags 视频管理
// @Produce  json
// @Security BearerAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=repository.VideoStats}
// @Router /api/admin/videos/{videoId}/stats [get]
func (c *VideoController) Stats(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))

	stats, err := c.ProgressStats.VideoStats(videoID)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, stats)
}
