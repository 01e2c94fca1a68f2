package util

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrEmailRegistered   = errors.New("该邮箱已被注册")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrVideoNotFound     = errors.New("video not found or inactive")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrAnswerNotFound    = errors.New("answer does not belong to question")
	ErrVideoLocked       = errors.New("previous video has not been passed")
	ErrAttemptsExhausted = errors.New("attempt limit reached")
	ErrAlreadyPassed     = errors.New("quiz already passed")
	ErrQuizNotInProgress = errors.New("quiz is not in progress")
	ErrQuizTimeExpired   = errors.New("quiz time expired, attempt auto-submitted")
	ErrInvalidVideoExt   = errors.New("invalid video file extension")
	ErrNotEligible       = errors.New("not all videos passed yet")
)

// IncompleteAnswersError 提交时仍有未作答题目，携带未答题目的序号
type IncompleteAnswersError struct {
	Unanswered []int
}

func (e *IncompleteAnswersError) Error() string {
	parts := make([]string, len(e.Unanswered))
	for i, o := range e.Unanswered {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return "please answer all questions, unanswered: " + strings.Join(parts, ", ")
}

// ImportFormatError CSV 批量导入表头或行格式不合法
type ImportFormatError struct {
	Line   int
	Reason string
}

func (e *ImportFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid import format at line %d: %s", e.Line, e.Reason)
	}
	return "invalid import format: " + e.Reason
}
