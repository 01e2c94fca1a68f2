package model

import "time"

// Certificate 学完并全部通过后一次性签发，签发后不可变更
// swagger:model Certificate
type Certificate struct {
	BaseModel

	UserID uint `gorm:"uniqueIndex;not null" json:"userId"`
	// Serial 入库后由记录 ID 回填，可空避免回填前的行彼此撞唯一索引
	Serial      *string   `gorm:"size:40;unique" json:"serial"`
	IssueDate   time.Time `json:"issueDate"`
	ArtifactURL string    `gorm:"size:255" json:"artifactUrl,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}
