package repository

import (
	"videoquiz_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListActiveByVideo 按题序返回视频下的有效题目，预载答案选项
func (r *QuestionRepository) ListActiveByVideo(videoID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("video_id = ? AND is_active = ?", videoID, true).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` ASC")
		}).
		Order("`order` ASC").Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) CountActiveByVideo(videoID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).
		Where("video_id = ? AND is_active = ?", videoID, true).
		Count(&count).Error
	return count, err
}

// MaxOrder 返回视频下当前最大题序，导入时在其后追加
func (r *QuestionRepository) MaxOrder(videoID uint) (int, error) {
	var max *int
	err := r.DB.Model(&model.Question{}).Where("video_id = ?", videoID).
		Select("MAX(`order`)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *QuestionRepository) FindAnswerByID(id uint) (*model.Answer, error) {
	var a model.Answer
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuestionRepository) CreateAnswer(a *model.Answer) error {
	return r.DB.Create(a).Error
}

func (r *QuestionRepository) UpdateAnswer(a *model.Answer) error {
	return r.DB.Save(a).Error
}

func (r *QuestionRepository) DeleteAnswer(id uint) error {
	return r.DB.Delete(&model.Answer{}, id).Error
}
