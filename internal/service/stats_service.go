package service

import (
	"errors"

	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"

	"gorm.io/gorm"
)

// StatsService 面向教师端的作答汇总
type StatsService struct {
	VideoRepo    *repository.VideoRepository
	ProgressRepo *repository.ProgressRepository
}

func NewStatsService(videoRepo *repository.VideoRepository, progressRepo *repository.ProgressRepository) *StatsService {
	return &StatsService{VideoRepo: videoRepo, ProgressRepo: progressRepo}
}

func (s *StatsService) VideoStats(videoID uint) (*repository.VideoStats, error) {
	if _, err := s.VideoRepo.FindByID(videoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}
	return s.ProgressRepo.StatsByVideo(videoID)
}
