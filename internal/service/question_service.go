package service

import (
	"errors"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"

	"gorm.io/gorm"
)

// QuestionService 题库维护，教师端使用
type QuestionService struct {
	VideoRepo    *repository.VideoRepository
	QuestionRepo *repository.QuestionRepository
}

func NewQuestionService(videoRepo *repository.VideoRepository, questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{VideoRepo: videoRepo, QuestionRepo: questionRepo}
}

type AnswerRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Order     *int   `json:"order"`
}

type QuestionRequest struct {
	Text         string          `json:"text" binding:"required"`
	QuestionType string          `json:"questionType"`
	Explanation  string          `json:"explanation"`
	Hint         string          `json:"hint"`
	Points       int             `json:"points"`
	Order        *int            `json:"order"`
	IsActive     *bool           `json:"isActive"`
	Answers      []AnswerRequest `json:"answers"`
}

func (s *QuestionService) ListByVideo(videoID uint) ([]model.Question, error) {
	if _, err := s.VideoRepo.FindByID(videoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}
	return s.QuestionRepo.ListActiveByVideo(videoID)
}

func (s *QuestionService) CreateQuestion(videoID uint, req QuestionRequest) (*model.Question, error) {
	if _, err := s.VideoRepo.FindByID(videoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		max, err := s.QuestionRepo.MaxOrder(videoID)
		if err != nil {
			return nil, err
		}
		order = max + 1
	}

	qType := model.QuestionType(req.QuestionType)
	if qType == "" {
		qType = model.SingleChoice
	}
	points := req.Points
	if points <= 0 {
		points = 1
	}

	question := &model.Question{
		VideoID:      videoID,
		Text:         req.Text,
		QuestionType: qType,
		Explanation:  req.Explanation,
		Hint:         req.Hint,
		Points:       points,
		Order:        order,
		IsActive:     true,
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}
	for i, a := range req.Answers {
		answerOrder := i + 1
		if a.Order != nil {
			answerOrder = *a.Order
		}
		question.Answers = append(question.Answers, model.Answer{
			Text:      a.Text,
			IsCorrect: a.IsCorrect,
			Order:     answerOrder,
		})
	}

	if err := s.QuestionRepo.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) UpdateQuestion(questionID uint, req QuestionRequest) (*model.Question, error) {
	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	question.Text = req.Text
	if req.QuestionType != "" {
		question.QuestionType = model.QuestionType(req.QuestionType)
	}
	question.Explanation = req.Explanation
	question.Hint = req.Hint
	if req.Points > 0 {
		question.Points = req.Points
	}
	if req.Order != nil {
		question.Order = *req.Order
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}

	if err := s.QuestionRepo.Update(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) DeleteQuestion(questionID uint) error {
	if _, err := s.QuestionRepo.FindByID(questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	return s.QuestionRepo.Delete(questionID)
}

func (s *QuestionService) CreateAnswer(questionID uint, req AnswerRequest) (*model.Answer, error) {
	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	order := 1
	if req.Order != nil {
		order = *req.Order
	}
	answer := &model.Answer{
		QuestionID: question.ID,
		Text:       req.Text,
		IsCorrect:  req.IsCorrect,
		Order:      order,
	}
	if err := s.QuestionRepo.CreateAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *QuestionService) UpdateAnswer(answerID uint, req AnswerRequest) (*model.Answer, error) {
	answer, err := s.QuestionRepo.FindAnswerByID(answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAnswerNotFound
		}
		return nil, err
	}

	answer.Text = req.Text
	answer.IsCorrect = req.IsCorrect
	if req.Order != nil {
		answer.Order = *req.Order
	}
	if err := s.QuestionRepo.UpdateAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *QuestionService) DeleteAnswer(answerID uint) error {
	if _, err := s.QuestionRepo.FindAnswerByID(answerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAnswerNotFound
		}
		return err
	}
	return s.QuestionRepo.DeleteAnswer(answerID)
}
