package model

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

// swagger:model Question
type Question struct {
	BaseModel

	VideoID      uint         `gorm:"index;uniqueIndex:idx_video_question_order,priority:1" json:"videoId"`
	Text         string       `gorm:"type:text;not null" json:"text"`
	QuestionType QuestionType `gorm:"size:20;default:'single_choice'" json:"questionType"`
	Explanation  string       `gorm:"type:text" json:"explanation,omitempty"`
	Hint         string       `gorm:"type:text" json:"hint,omitempty"`
	Order        int          `gorm:"uniqueIndex:idx_video_question_order,priority:2" json:"order"`
	Points       int          `gorm:"default:1" json:"points"`
	IsActive     bool         `gorm:"default:true" json:"isActive"`

	Answers []Answer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model Answer
type Answer struct {
	BaseModel

	QuestionID uint   `gorm:"index;uniqueIndex:idx_question_answer_order,priority:1" json:"questionId"`
	Text       string `gorm:"size:255;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
	Order      int    `gorm:"uniqueIndex:idx_question_answer_order,priority:2" json:"order"`
}

func (Answer) TableName() string {
	return "answers"
}
