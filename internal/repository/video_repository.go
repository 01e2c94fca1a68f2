package repository

import (
	"videoquiz_backend/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

func (r *VideoRepository) Create(video *model.Video) error {
	return r.DB.Create(video).Error
}

func (r *VideoRepository) Update(video *model.Video) error {
	return r.DB.Save(video).Error
}

func (r *VideoRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Video{}, id).Error
}

func (r *VideoRepository) FindByID(id uint) (*model.Video, error) {
	var v model.Video
	if err := r.DB.First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// FindAvailableByID 仅返回 active 且 published 的视频
func (r *VideoRepository) FindAvailableByID(id uint) (*model.Video, error) {
	var v model.Video
	err := r.DB.Where("id = ? AND is_active = ? AND status = ?", id, true, model.VideoPublished).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListAll 按 order 排序返回全部视频（后台管理用）
func (r *VideoRepository) ListAll() ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.Order("`order` ASC").Find(&videos).Error
	return videos, err
}

// ListAvailable 按 order 排序返回学习者可见的解锁序列
func (r *VideoRepository) ListAvailable() ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.Where("is_active = ? AND status = ?", true, model.VideoPublished).
		Order("`order` ASC").Find(&videos).Error
	return videos, err
}

func (r *VideoRepository) CountAvailable() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Video{}).
		Where("is_active = ? AND status = ?", true, model.VideoPublished).
		Count(&count).Error
	return count, err
}

// NextOrder 返回当前最大 order + 1，新视频缺省追加到序列末尾
func (r *VideoRepository) NextOrder() (int, error) {
	var max *int
	err := r.DB.Model(&model.Video{}).Select("MAX(`order`)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}
