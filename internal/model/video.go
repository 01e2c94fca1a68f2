package model

import "time"

type VideoStatus string

const (
	VideoDraft     VideoStatus = "draft"
	VideoPublished VideoStatus = "published"
)

// swagger:model Video
type Video struct {
	BaseModel

	Title            string      `gorm:"size:200;not null" json:"title"`
	Description      string      `gorm:"type:text" json:"description"`
	URL              string      `gorm:"size:255" json:"url"`
	ThumbnailURL     string      `gorm:"size:255" json:"thumbnailUrl"`
	DurationSeconds  int         `json:"durationSeconds"`
	Order            int         `gorm:"uniqueIndex;not null" json:"order"`
	QuizTimerSeconds int         `gorm:"default:300" json:"quizTimerSeconds"`
	MaxAttempts      int         `gorm:"default:3" json:"maxAttempts"`
	PassingScore     int         `gorm:"default:60" json:"passingScore"`
	IsActive         bool        `gorm:"default:true" json:"isActive"`
	Status           VideoStatus `gorm:"size:20;default:'draft'" json:"status"`
	PublishedAt      *time.Time  `json:"publishedAt,omitempty"`
	UploaderID       uint        `gorm:"index" json:"uploaderId"`
}

func (Video) TableName() string {
	return "videos"
}

// Available 判断该视频是否参与学习者可见的顺序解锁序列
func (v *Video) Available() bool {
	return v.IsActive && v.Status == VideoPublished
}
