package controller

import (
	"errors"

	"videoquiz_backend/internal/service"
	"videoquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// Get godoc
// @Summary 结业证书
// @Description 全部视频测验通过后签发，未达成返回 403
// @Tags 证书
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.Certificate}
// @Failure 403 {object} util.Response "尚未通过全部测验"
// @Router /api/certificate [get]
func (c *CertificateController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	cert, err := c.CertificateService.Get(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrNotEligible) {
			util.Error(ctx, 403, "尚未通过全部视频的测验")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, cert)
}

// Download godoc
// @Summary 下载证书
// @Tags 证书
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object} "证书下载地址"
// @Failure 403 {object} util.Response "尚未通过全部测验"
// @Router /api/certificate/download [get]
func (c *CertificateController) Download(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	url, cert, err := c.CertificateService.DownloadURL(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrNotEligible) {
			util.Error(ctx, 403, "尚未通过全部视频的测验")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"url": url, "serial": cert.Serial})
}
