package service

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"

	"gorm.io/gorm"
)

// ImportService 批量导入题库：一行 CSV 对应一道题和最多 4 个选项
type ImportService struct {
	VideoRepo    *repository.VideoRepository
	QuestionRepo *repository.QuestionRepository
	DB           *gorm.DB
}

func NewImportService(videoRepo *repository.VideoRepository, questionRepo *repository.QuestionRepository, db *gorm.DB) *ImportService {
	return &ImportService{
		VideoRepo:    videoRepo,
		QuestionRepo: questionRepo,
		DB:           db,
	}
}

// 表头要求与模板完全一致（顺序严格匹配）
var importHeaders = []string{
	"question_text", "question_type",
	"answer_1", "answer_1_correct",
	"answer_2", "answer_2_correct",
	"answer_3", "answer_3_correct",
	"answer_4", "answer_4_correct",
}

// ImportedQuestion 一行解析出的题目与选项
type ImportedQuestion struct {
	Text         string
	QuestionType model.QuestionType
	Answers      []ImportedAnswer
}

type ImportedAnswer struct {
	Text      string
	IsCorrect bool
}

// ImportResult 导入摘要
type ImportResult struct {
	QuestionsCreated int `json:"questionsCreated"`
	AnswersCreated   int `json:"answersCreated"`
}

// ImportCSV 解析并在单个事务中写入，任何一行出错则整体回滚
func (s *ImportService) ImportCSV(videoID uint, reader io.Reader) (*ImportResult, error) {
	video, err := s.VideoRepo.FindByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}

	parsed, err := ParseQuestionCSV(reader)
	if err != nil {
		return nil, err
	}

	startOrder, err := s.QuestionRepo.MaxOrder(video.ID)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for i, iq := range parsed {
			question := &model.Question{
				VideoID:      video.ID,
				Text:         iq.Text,
				QuestionType: iq.QuestionType,
				Order:        startOrder + i + 1,
				Points:       1,
				IsActive:     true,
			}
			if err := tx.Create(question).Error; err != nil {
				return err
			}
			result.QuestionsCreated++

			for j, ia := range iq.Answers {
				answer := &model.Answer{
					QuestionID: question.ID,
					Text:       ia.Text,
					IsCorrect:  ia.IsCorrect,
					Order:      j + 1,
				}
				if err := tx.Create(answer).Error; err != nil {
					return err
				}
				result.AnswersCreated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ParseQuestionCSV 校验表头并逐行解析，返回待入库的题目
func ParseQuestionCSV(reader io.Reader) ([]ImportedQuestion, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, &util.ImportFormatError{Reason: "missing header row"}
	}
	if len(header) != len(importHeaders) {
		return nil, &util.ImportFormatError{Reason: "header column count mismatch"}
	}
	for i, h := range header {
		if strings.TrimSpace(strings.ToLower(h)) != importHeaders[i] {
			return nil, &util.ImportFormatError{Reason: "expected header: " + strings.Join(importHeaders, ",")}
		}
	}

	var questions []ImportedQuestion
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &util.ImportFormatError{Line: line, Reason: err.Error()}
		}

		iq, err := parseQuestionRow(record, line)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *iq)
	}

	if len(questions) == 0 {
		return nil, &util.ImportFormatError{Reason: "no question rows"}
	}
	return questions, nil
}

func parseQuestionRow(record []string, line int) (*ImportedQuestion, error) {
	text := strings.TrimSpace(record[0])
	if text == "" {
		return nil, &util.ImportFormatError{Line: line, Reason: "question_text is empty"}
	}

	qType := model.QuestionType(strings.TrimSpace(strings.ToLower(record[1])))
	switch qType {
	case model.SingleChoice, model.MultipleChoice, model.TrueFalse:
	default:
		return nil, &util.ImportFormatError{Line: line, Reason: "unknown question_type: " + record[1]}
	}

	iq := &ImportedQuestion{Text: text, QuestionType: qType}
	correctCount := 0
	for i := 0; i < 4; i++ {
		answerText := strings.TrimSpace(record[2+i*2])
		if answerText == "" {
			continue
		}
		isCorrect, err := ParseImportBool(record[3+i*2])
		if err != nil {
			return nil, &util.ImportFormatError{Line: line, Reason: err.Error()}
		}
		if isCorrect {
			correctCount++
		}
		iq.Answers = append(iq.Answers, ImportedAnswer{Text: answerText, IsCorrect: isCorrect})
	}

	if len(iq.Answers) == 0 {
		return nil, &util.ImportFormatError{Line: line, Reason: "question has no answers"}
	}
	if correctCount == 0 {
		return nil, &util.ImportFormatError{Line: line, Reason: "at least one answer must be marked correct"}
	}
	if qType != model.MultipleChoice && correctCount > 1 {
		return nil, &util.ImportFormatError{Line: line, Reason: "only multiple_choice questions may have several correct answers"}
	}
	return iq, nil
}

// ParseImportBool 布尔列接受大小写不敏感的 {true,1,yes} 与 {false,0,no,空}
func ParseImportBool(s string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, errors.New("malformed boolean value: " + s)
	}
}
