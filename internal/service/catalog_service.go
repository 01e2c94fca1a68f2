package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"videoquiz_backend/internal/config"
	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"
	"videoquiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService 维护视频目录：后台 CRUD、上架、文件上传
type CatalogService struct {
	VideoRepo *repository.VideoRepository
	Storage   *StorageService
	Cfg       *config.Config
	Redis     *redis.Client
}

func NewCatalogService(videoRepo *repository.VideoRepository, storage *StorageService, cfg *config.Config, rdb *redis.Client) *CatalogService {
	return &CatalogService{
		VideoRepo: videoRepo,
		Storage:   storage,
		Cfg:       cfg,
		Redis:     rdb,
	}
}

const (
	catalogCacheKey = "video_catalog:published"
	catalogCacheTTL = 5 * time.Minute
)

type VideoRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	Order            *int   `json:"order"`
	QuizTimerSeconds int    `json:"quizTimerSeconds"`
	MaxAttempts      int    `json:"maxAttempts"`
	PassingScore     int    `json:"passingScore"`
	IsActive         *bool  `json:"isActive"`
}

func (s *CatalogService) CreateVideo(uploaderID uint, req VideoRequest) (*model.Video, error) {
	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		next, err := s.VideoRepo.NextOrder()
		if err != nil {
			return nil, err
		}
		order = next
	}

	video := &model.Video{
		Title:            req.Title,
		Description:      req.Description,
		Order:            order,
		QuizTimerSeconds: s.withDefault(req.QuizTimerSeconds, s.Cfg.Quiz.DefaultTimerSeconds),
		MaxAttempts:      s.withDefault(req.MaxAttempts, s.Cfg.Quiz.DefaultMaxAttempts),
		PassingScore:     s.withDefault(req.PassingScore, s.Cfg.Quiz.DefaultPassingScore),
		IsActive:         true,
		Status:           model.VideoDraft,
		UploaderID:       uploaderID,
	}
	if req.IsActive != nil {
		video.IsActive = *req.IsActive
	}

	if err := s.VideoRepo.Create(video); err != nil {
		return nil, err
	}
	s.invalidateCatalogCache()
	return video, nil
}

func (s *CatalogService) UpdateVideo(videoID uint, req VideoRequest) (*model.Video, error) {
	video, err := s.VideoRepo.FindByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}

	video.Title = req.Title
	video.Description = req.Description
	if req.Order != nil {
		video.Order = *req.Order
	}
	if req.QuizTimerSeconds > 0 {
		video.QuizTimerSeconds = req.QuizTimerSeconds
	}
	if req.MaxAttempts > 0 {
		video.MaxAttempts = req.MaxAttempts
	}
	if req.PassingScore > 0 {
		video.PassingScore = req.PassingScore
	}
	if req.IsActive != nil {
		video.IsActive = *req.IsActive
	}

	if err := s.VideoRepo.Update(video); err != nil {
		return nil, err
	}
	s.invalidateCatalogCache()
	return video, nil
}

func (s *CatalogService) DeleteVideo(videoID uint) error {
	if err := s.VideoRepo.Delete(videoID); err != nil {
		return err
	}
	s.invalidateCatalogCache()
	return nil
}

// PublishVideo 上架/下架，只有 published 且 active 的视频进入学习序列
func (s *CatalogService) PublishVideo(videoID uint, publish bool) (*model.Video, error) {
	video, err := s.VideoRepo.FindByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}

	if publish {
		video.Status = model.VideoPublished
		now := time.Now()
		video.PublishedAt = &now
	} else {
		video.Status = model.VideoDraft
		video.PublishedAt = nil
	}

	if err := s.VideoRepo.Update(video); err != nil {
		return nil, err
	}
	s.invalidateCatalogCache()
	return video, nil
}

func (s *CatalogService) ListAll() ([]model.Video, error) {
	return s.VideoRepo.ListAll()
}

// ListAvailable 学习者可见目录，带 Redis 缓存
func (s *CatalogService) ListAvailable(ctx context.Context) ([]model.Video, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, catalogCacheKey).Result()
		if err == nil {
			var videos []model.Video
			if json.Unmarshal([]byte(cached), &videos) == nil {
				return videos, nil
			}
		}
	}

	videos, err := s.VideoRepo.ListAvailable()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if b, err := json.Marshal(videos); err == nil {
			if err := s.Redis.Set(ctx, catalogCacheKey, b, catalogCacheTTL).Err(); err != nil {
				logger.Log.Warn("cache video catalog failed", zap.Error(err))
			}
		}
	}
	return videos, nil
}

// UploadVideoFile 接收分片前的整文件上传：校验扩展名与 MIME，
// 先落临时文件探测时长、抓取封面帧，再交给存储后端
func (s *CatalogService) UploadVideoFile(ctx context.Context, videoID uint, file *multipart.FileHeader) (*model.Video, error) {
	video, err := s.VideoRepo.FindByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	isValidType := false
	for _, e := range util.AllowedVideoExtensions {
		if ext == e {
			isValidType = true
			break
		}
	}
	if !isValidType {
		return nil, util.ErrInvalidVideoExt
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if _, err := util.ValidateMimeType(src, []string{util.MimeVideo, util.MimeOctetStream}); err != nil {
		return nil, fmt.Errorf("非法的文件内容: %v", err)
	}
	if _, err := src.Seek(0, 0); err != nil {
		return nil, err
	}

	// 临时保存到本地进行探测
	tempDir := filepath.Join(s.Cfg.Storage.LocalPath, "temp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, err
	}
	tempPath := filepath.Join(tempDir, fmt.Sprintf("temp_video_%d%s", time.Now().UnixNano(), ext))
	defer os.Remove(tempPath)

	out, err := os.Create(tempPath)
	if err != nil {
		return nil, err
	}
	if _, err := out.ReadFrom(src); err != nil {
		out.Close()
		return nil, err
	}
	out.Close()

	if info, err := util.ProbeVideo(tempPath); err == nil {
		video.DurationSeconds = int(info.Duration)
	} else {
		logger.Log.Warn("video probe failed", zap.Error(err))
	}

	filename := "videos/" + time.Now().Format("20060102150405") + "_" + model.GenerateUUID() + ext
	url, err := s.Storage.UploadFile(ctx, filename, tempPath, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	video.URL = url

	// 封面帧失败不阻塞上传
	thumbPath := tempPath + ".jpg"
	if err := util.GenerateThumbnail(tempPath, thumbPath, "00:00:01"); err == nil {
		defer os.Remove(thumbPath)
		thumbName := strings.TrimSuffix(filename, ext) + ".jpg"
		if thumbURL, err := s.Storage.UploadFile(ctx, thumbName, thumbPath, "image/jpeg"); err == nil {
			video.ThumbnailURL = thumbURL
		}
	}

	if err := s.VideoRepo.Update(video); err != nil {
		return nil, err
	}
	s.invalidateCatalogCache()
	return video, nil
}

func (s *CatalogService) withDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	if fallback > 0 {
		return fallback
	}
	return v
}

func (s *CatalogService) invalidateCatalogCache() {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), catalogCacheKey).Err(); err != nil {
		logger.Log.Warn("invalidate video catalog cache failed", zap.Error(err))
	}
}
