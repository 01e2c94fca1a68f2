package repository

import (
	"errors"

	"videoquiz_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetOrCreate 返回 (user, video) 的进度记录，缺失时创建 not_attempted 记录
func (r *ProgressRepository) GetOrCreate(userID, videoID uint) (*model.VideoProgress, error) {
	var p model.VideoProgress
	err := r.DB.Where("user_id = ? AND video_id = ?", userID, videoID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = model.VideoProgress{
		UserID:  userID,
		VideoID: videoID,
		Status:  model.StatusNotAttempted,
	}
	if err := r.DB.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) FindByUserAndVideo(userID, videoID uint) (*model.VideoProgress, error) {
	var p model.VideoProgress
	if err := r.DB.Where("user_id = ? AND video_id = ?", userID, videoID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) Save(p *model.VideoProgress) error {
	return r.DB.Save(p).Error
}

// MapByUser 返回 videoID -> progress 的映射，供解锁视图一次性读取
func (r *ProgressRepository) MapByUser(userID uint) (map[uint]*model.VideoProgress, error) {
	var list []model.VideoProgress
	if err := r.DB.Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return nil, err
	}
	m := make(map[uint]*model.VideoProgress, len(list))
	for i := range list {
		m[list[i].VideoID] = &list[i]
	}
	return m, nil
}

func (r *ProgressRepository) CountPassedByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.VideoProgress{}).
		Where("user_id = ? AND status = ?", userID, model.StatusPassed).
		Count(&count).Error
	return count, err
}

// VideoStats 单个视频的作答统计
type VideoStats struct {
	TotalAttempts int64   `json:"totalAttempts"`
	Graded        int64   `json:"graded"`
	AvgPercentage float64 `json:"avgPercentage"`
	PassRate      float64 `json:"passRate"`
	Timeouts      int64   `json:"timeouts"`
}

// StatsByVideo 汇总视频的终态作答记录；Passed 标志把超时达线也计入通过率
func (r *ProgressRepository) StatsByVideo(videoID uint) (*VideoStats, error) {
	stats := &VideoStats{}

	terminal := []model.ProgressStatus{model.StatusPassed, model.StatusFailed, model.StatusTimeout}
	base := r.DB.Model(&model.VideoProgress{}).Where("video_id = ? AND status IN ?", videoID, terminal)

	if err := base.Count(&stats.Graded).Error; err != nil {
		return nil, err
	}

	var totalAttempts *int64
	if err := r.DB.Model(&model.VideoProgress{}).Where("video_id = ?", videoID).
		Select("SUM(attempts)").Scan(&totalAttempts).Error; err != nil {
		return nil, err
	}
	if totalAttempts != nil {
		stats.TotalAttempts = *totalAttempts
	}

	if stats.Graded == 0 {
		return stats, nil
	}

	var avg *float64
	if err := r.DB.Model(&model.VideoProgress{}).
		Where("video_id = ? AND status IN ?", videoID, terminal).
		Select("AVG(percentage)").Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AvgPercentage = *avg
	}

	var passedCount int64
	if err := r.DB.Model(&model.VideoProgress{}).
		Where("video_id = ? AND status IN ? AND passed = ?", videoID, terminal, true).
		Count(&passedCount).Error; err != nil {
		return nil, err
	}
	stats.PassRate = float64(passedCount) / float64(stats.Graded)

	if err := r.DB.Model(&model.VideoProgress{}).
		Where("video_id = ? AND status = ?", videoID, model.StatusTimeout).
		Count(&stats.Timeouts).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
