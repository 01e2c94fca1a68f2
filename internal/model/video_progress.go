package model

import (
	"encoding/json"
	"time"
)

type ProgressStatus string

const (
	StatusNotAttempted ProgressStatus = "not_attempted"
	StatusInProgress   ProgressStatus = "in_progress"
	StatusPassed       ProgressStatus = "passed"
	StatusFailed       ProgressStatus = "failed"
	StatusTimeout      ProgressStatus = "timeout"
)

// Terminal 表示本次作答是否已到达终态（提交或超时后不再变化）
func (s ProgressStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusTimeout
}

// VideoProgress 每个 (user, video) 唯一的作答进度记录
// swagger:model VideoProgress
type VideoProgress struct {
	BaseModel

	UserID  uint `gorm:"uniqueIndex:idx_user_video;not null" json:"userId"`
	VideoID uint `gorm:"uniqueIndex:idx_user_video;not null" json:"videoId"`

	Status     ProgressStatus `gorm:"size:20;default:'not_attempted'" json:"status"`
	Attempts   int            `gorm:"default:0" json:"attempts"`
	Score      int            `gorm:"default:0" json:"score"`
	Percentage float64        `gorm:"default:0" json:"percentage"`
	BestScore  float64        `gorm:"default:0" json:"bestScore"`
	// Passed 独立于 Status 记录：超时卷面达线时 Status=timeout 但 Passed=true，供统计使用
	Passed bool `gorm:"default:false" json:"passed"`

	// Answers 为 questionID -> answerID 的 JSON 映射，开始新一次作答时清空
	Answers   string     `gorm:"type:json" json:"-"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func (VideoProgress) TableName() string {
	return "video_progresses"
}

// AnswerMap 解码已存储的答案选择，空串视为无答案
func (p *VideoProgress) AnswerMap() (map[uint]uint, error) {
	m := make(map[uint]uint)
	if p.Answers == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(p.Answers), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *VideoProgress) SetAnswerMap(m map[uint]uint) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	p.Answers = string(b)
	return nil
}
