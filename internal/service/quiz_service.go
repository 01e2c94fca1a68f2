package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"
	"videoquiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizService 管理单次作答的完整生命周期：
// not_attempted → in_progress → {passed | failed | timeout}，
// failed/timeout 在次数未用尽时可经 Retry 回到 not_attempted，passed 为终态。
type QuizService struct {
	VideoRepo    *repository.VideoRepository
	QuestionRepo *repository.QuestionRepository
	ProgressRepo *repository.ProgressRepository
	Certificates *CertificateService
	Redis        *redis.Client
}

func NewQuizService(
	videoRepo *repository.VideoRepository,
	questionRepo *repository.QuestionRepository,
	progressRepo *repository.ProgressRepository,
	certificates *CertificateService,
	rdb *redis.Client,
) *QuizService {
	return &QuizService{
		VideoRepo:    videoRepo,
		QuestionRepo: questionRepo,
		ProgressRepo: progressRepo,
		Certificates: certificates,
		Redis:        rdb,
	}
}

const quizDeadlineKeyPrefix = "quiz_deadline:"

// AttemptContext 返回给前端的当前作答上下文
type AttemptContext struct {
	VideoID          uint                 `json:"videoId"`
	Status           model.ProgressStatus `json:"status"`
	Attempts         int                  `json:"attempts"`
	MaxAttempts      int                  `json:"maxAttempts"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	TotalQuestions   int                  `json:"totalQuestions"`
	CurrentQuestion  int                  `json:"currentQuestion"` // 第一道未作答题目的序号（1 起）
	AnsweredCount    int                  `json:"answeredCount"`
}

// GradeResult 一次判分的结果
type GradeResult struct {
	Score      int                  `json:"score"`
	Percentage float64              `json:"percentage"`
	Status     model.ProgressStatus `json:"status"`
	Passed     bool                 `json:"passed"`
	BestScore  float64              `json:"bestScore"`
}

// AnswerOption 学习者可见的选项视图，不暴露正确性
type AnswerOption struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Order    int    `json:"order"`
	Selected bool   `json:"selected"`
}

type QuestionView struct {
	ID               uint               `json:"id"`
	Index            int                `json:"index"`
	TotalQuestions   int                `json:"totalQuestions"`
	Text             string             `json:"text"`
	QuestionType     model.QuestionType `json:"questionType"`
	Hint             string             `json:"hint,omitempty"`
	Points           int                `json:"points"`
	Answers          []AnswerOption     `json:"answers"`
	RemainingSeconds int                `json:"remainingSeconds"`
}

// StartOrResume 开始或恢复一次作答
// 已通过或进行中时直接返回上下文；否则占用一次作答机会并清空历史答案
func (s *QuizService) StartOrResume(ctx context.Context, userID, videoID uint) (*AttemptContext, error) {
	video, err := s.findAvailableVideo(videoID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUnlocked(userID, video); err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.GetOrCreate(userID, videoID)
	if err != nil {
		return nil, err
	}

	// 懒惰超时检测：上一次作答到期的话先按 timeout 结。
	if _, err := s.expireIfNeeded(ctx, progress, video); err != nil {
		return nil, err
	}

	if progress.Status == model.StatusInProgress || progress.Status == model.StatusPassed {
		return s.buildContext(progress, video)
	}

	if video.MaxAttempts > 0 && progress.Attempts >= video.MaxAttempts {
		return nil, util.ErrAttemptsExhausted
	}

	now := time.Now()
	progress.Attempts++
	progress.Status = model.StatusInProgress
	progress.StartedAt = &now
	progress.EndedAt = nil
	progress.Score = 0
	progress.Percentage = 0
	progress.Passed = false
	if err := progress.SetAnswerMap(map[uint]uint{}); err != nil {
		return nil, err
	}
	if err := s.ProgressRepo.Save(progress); err != nil {
		return nil, err
	}

	s.cacheDeadline(ctx, userID, video, now)

	return s.buildContext(progress, video)
}

// GetQuestion 返回第 index 道题（1 起）的学习者视图
func (s *QuizService) GetQuestion(ctx context.Context, userID, videoID uint, index int) (*QuestionView, error) {
	video, progress, err := s.activeAttempt(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuestionRepo.ListActiveByVideo(videoID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(questions) {
		return nil, util.ErrQuestionNotFound
	}

	answers, err := progress.AnswerMap()
	if err != nil {
		return nil, err
	}

	q := questions[index-1]
	view := &QuestionView{
		ID:               q.ID,
		Index:            index,
		TotalQuestions:   len(questions),
		Text:             q.Text,
		QuestionType:     q.QuestionType,
		Hint:             q.Hint,
		Points:           q.Points,
		RemainingSeconds: s.remainingSeconds(progress, video),
	}
	selected := answers[q.ID]
	for _, a := range q.Answers {
		view.Answers = append(view.Answers, AnswerOption{
			ID:       a.ID,
			Text:     a.Text,
			Order:    a.Order,
			Selected: a.ID == selected,
		})
	}
	return view, nil
}

// RecordAnswer 保存一次选择；重复选择同一题时覆盖，不做判分
func (s *QuizService) RecordAnswer(ctx context.Context, userID, videoID, questionID, answerID uint) error {
	_, progress, err := s.activeAttempt(ctx, userID, videoID)
	if err != nil {
		return err
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil || question.VideoID != videoID || !question.IsActive {
		return util.ErrQuestionNotFound
	}

	answer, err := s.QuestionRepo.FindAnswerByID(answerID)
	if err != nil || answer.QuestionID != questionID {
		return util.ErrAnswerNotFound
	}

	answers, err := progress.AnswerMap()
	if err != nil {
		return err
	}
	answers[questionID] = answerID
	if err := progress.SetAnswerMap(answers); err != nil {
		return err
	}
	return s.ProgressRepo.Save(progress)
}

// Submit 判分并写入终态；存在未作答题目时拒绝并列出题序
func (s *QuizService) Submit(ctx context.Context, userID, videoID uint) (*GradeResult, error) {
	video, progress, err := s.activeAttempt(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuestionRepo.ListActiveByVideo(videoID)
	if err != nil {
		return nil, err
	}

	answers, err := progress.AnswerMap()
	if err != nil {
		return nil, err
	}

	var unanswered []int
	for _, q := range questions {
		if _, ok := answers[q.ID]; !ok {
			unanswered = append(unanswered, q.Order)
		}
	}
	if len(unanswered) > 0 {
		return nil, &util.IncompleteAnswersError{Unanswered: unanswered}
	}

	score, percentage := gradeAnswers(questions, answers)

	now := time.Now()
	progress.Score = score
	progress.Percentage = percentage
	progress.Passed = percentage >= float64(video.PassingScore)
	if progress.Passed {
		progress.Status = model.StatusPassed
	} else {
		progress.Status = model.StatusFailed
	}
	if percentage > progress.BestScore {
		progress.BestScore = percentage
	}
	progress.EndedAt = &now

	if err := s.ProgressRepo.Save(progress); err != nil {
		return nil, err
	}

	s.dropDeadline(ctx, userID, videoID)

	if progress.Status == model.StatusPassed {
		s.issueCertificateIfEligible(userID)
	}

	return &GradeResult{
		Score:      score,
		Percentage: percentage,
		Status:     progress.Status,
		Passed:     progress.Passed,
		BestScore:  progress.BestScore,
	}, nil
}

// AutoSubmit 超时路径：按已存答案判分，状态恒为 timeout
// 卷面达线时 Passed 仍记为 true 供统计，但不解锁后续视频
func (s *QuizService) AutoSubmit(ctx context.Context, userID, videoID uint) (*GradeResult, error) {
	video, err := s.findAvailableVideo(videoID)
	if err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.FindByUserAndVideo(userID, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotInProgress
		}
		return nil, err
	}
	if progress.Status != model.StatusInProgress {
		return nil, util.ErrQuizNotInProgress
	}

	return s.gradeTimeout(ctx, progress, video)
}

// Retry 将 failed/timeout 的记录重置回 not_attempted
// 次数计数在下一次 StartOrResume 时增加，而不是在这里
func (s *QuizService) Retry(ctx context.Context, userID, videoID uint) error {
	video, err := s.findAvailableVideo(videoID)
	if err != nil {
		return err
	}

	progress, err := s.ProgressRepo.FindByUserAndVideo(userID, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotInProgress
		}
		return err
	}

	if progress.Status == model.StatusPassed {
		return util.ErrAlreadyPassed
	}
	if video.MaxAttempts > 0 && progress.Attempts >= video.MaxAttempts {
		return util.ErrAttemptsExhausted
	}

	progress.Status = model.StatusNotAttempted
	progress.StartedAt = nil
	progress.EndedAt = nil
	progress.Score = 0
	progress.Percentage = 0
	progress.Passed = false
	if err := progress.SetAnswerMap(map[uint]uint{}); err != nil {
		return err
	}
	if err := s.ProgressRepo.Save(progress); err != nil {
		return err
	}

	s.dropDeadline(ctx, userID, videoID)
	return nil
}

// SyncTimer 返回剩余秒数；到期时顺带完成超时判分
func (s *QuizService) SyncTimer(ctx context.Context, userID, videoID uint) (int, model.ProgressStatus, error) {
	video, err := s.findAvailableVideo(videoID)
	if err != nil {
		return 0, "", err
	}

	progress, err := s.ProgressRepo.FindByUserAndVideo(userID, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, "", util.ErrQuizNotInProgress
		}
		return 0, "", err
	}

	if progress.Status != model.StatusInProgress {
		return 0, progress.Status, nil
	}

	if remaining := s.cachedRemaining(ctx, userID, videoID); remaining > 0 {
		return remaining, progress.Status, nil
	}

	remaining := s.remainingSeconds(progress, video)
	if remaining <= 0 {
		if _, err := s.gradeTimeout(ctx, progress, video); err != nil {
			return 0, "", err
		}
		return 0, progress.Status, nil
	}
	return remaining, progress.Status, nil
}

// findAvailableVideo 将记录缺失映射为领域错误
func (s *QuizService) findAvailableVideo(videoID uint) (*model.Video, error) {
	video, err := s.VideoRepo.FindAvailableByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}
	return video, nil
}

// ensureUnlocked 顺序解锁门：序列首位恒可开始，其余要求前一视频已通过
func (s *QuizService) ensureUnlocked(userID uint, video *model.Video) error {
	videos, err := s.VideoRepo.ListAvailable()
	if err != nil {
		return err
	}

	var prev *model.Video
	for i := range videos {
		if videos[i].ID == video.ID {
			break
		}
		prev = &videos[i]
	}
	if prev == nil {
		return nil
	}

	prevProgress, err := s.ProgressRepo.FindByUserAndVideo(userID, prev.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrVideoLocked
		}
		return err
	}
	if prevProgress.Status != model.StatusPassed {
		return util.ErrVideoLocked
	}
	return nil
}

// activeAttempt 加载进行中的作答并先行处理超时
func (s *QuizService) activeAttempt(ctx context.Context, userID, videoID uint) (*model.Video, *model.VideoProgress, error) {
	video, err := s.findAvailableVideo(videoID)
	if err != nil {
		return nil, nil, err
	}

	progress, err := s.ProgressRepo.FindByUserAndVideo(userID, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrQuizNotInProgress
		}
		return nil, nil, err
	}

	expired, err := s.expireIfNeeded(ctx, progress, video)
	if err != nil {
		return nil, nil, err
	}
	if expired {
		return nil, nil, util.ErrQuizTimeExpired
	}

	if progress.Status == model.StatusPassed {
		return nil, nil, util.ErrAlreadyPassed
	}
	if progress.Status != model.StatusInProgress {
		return nil, nil, util.ErrQuizNotInProgress
	}
	return video, progress, nil
}

func (s *QuizService) remainingSeconds(progress *model.VideoProgress, video *model.Video) int {
	if progress.Status != model.StatusInProgress || progress.StartedAt == nil {
		return 0
	}
	elapsed := int(time.Since(*progress.StartedAt).Seconds())
	remaining := video.QuizTimerSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// expireIfNeeded 在任何请求进入时做一次到期检查，到期即按 timeout 结算
func (s *QuizService) expireIfNeeded(ctx context.Context, progress *model.VideoProgress, video *model.Video) (bool, error) {
	if progress.Status != model.StatusInProgress {
		return false, nil
	}
	if s.remainingSeconds(progress, video) > 0 {
		return false, nil
	}
	if _, err := s.gradeTimeout(ctx, progress, video); err != nil {
		return false, err
	}
	return true, nil
}

func (s *QuizService) gradeTimeout(ctx context.Context, progress *model.VideoProgress, video *model.Video) (*GradeResult, error) {
	questions, err := s.QuestionRepo.ListActiveByVideo(video.ID)
	if err != nil {
		return nil, err
	}
	answers, err := progress.AnswerMap()
	if err != nil {
		return nil, err
	}

	score, percentage := gradeAnswers(questions, answers)

	now := time.Now()
	progress.Score = score
	progress.Percentage = percentage
	progress.Status = model.StatusTimeout
	progress.Passed = percentage >= float64(video.PassingScore)
	if percentage > progress.BestScore {
		progress.BestScore = percentage
	}
	progress.EndedAt = &now

	if err := s.ProgressRepo.Save(progress); err != nil {
		return nil, err
	}

	s.dropDeadline(ctx, progress.UserID, video.ID)

	return &GradeResult{
		Score:      score,
		Percentage: percentage,
		Status:     progress.Status,
		Passed:     progress.Passed,
		BestScore:  progress.BestScore,
	}, nil
}

// gradeAnswers 按答对题数的比例计算百分比（不按题目分值加权，见 DESIGN.md）
func gradeAnswers(questions []model.Question, answers map[uint]uint) (int, float64) {
	if len(questions) == 0 {
		return 0, 0
	}
	correct := 0
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		for _, a := range q.Answers {
			if a.ID == selected && a.IsCorrect {
				correct++
				break
			}
		}
	}
	return correct, float64(correct) / float64(len(questions)) * 100
}

func (s *QuizService) buildContext(progress *model.VideoProgress, video *model.Video) (*AttemptContext, error) {
	questions, err := s.QuestionRepo.ListActiveByVideo(video.ID)
	if err != nil {
		return nil, err
	}
	answers, err := progress.AnswerMap()
	if err != nil {
		return nil, err
	}

	current := len(questions)
	for i, q := range questions {
		if _, ok := answers[q.ID]; !ok {
			current = i + 1
			break
		}
	}
	if len(questions) == 0 {
		current = 0
	}

	return &AttemptContext{
		VideoID:          video.ID,
		Status:           progress.Status,
		Attempts:         progress.Attempts,
		MaxAttempts:      video.MaxAttempts,
		RemainingSeconds: s.remainingSeconds(progress, video),
		TotalQuestions:   len(questions),
		CurrentQuestion:  current,
		AnsweredCount:    len(answers),
	}, nil
}

func (s *QuizService) issueCertificateIfEligible(userID uint) {
	if s.Certificates == nil {
		return
	}
	if _, err := s.Certificates.IssueIfEligible(userID); err != nil && !errors.Is(err, util.ErrNotEligible) {
		logger.Log.Error("certificate issue failed", zap.Uint("userID", userID), zap.Error(err))
	}
}

func (s *QuizService) deadlineKey(userID, videoID uint) string {
	return fmt.Sprintf("%s%d:%d", quizDeadlineKeyPrefix, userID, videoID)
}

// cacheDeadline 把截止时间写入 Redis，sync-timer 轮询时无需回表
func (s *QuizService) cacheDeadline(ctx context.Context, userID uint, video *model.Video, startedAt time.Time) {
	if s.Redis == nil {
		return
	}
	deadline := startedAt.Add(time.Duration(video.QuizTimerSeconds) * time.Second)
	ttl := time.Until(deadline)
	if ttl <= 0 {
		return
	}
	if err := s.Redis.Set(ctx, s.deadlineKey(userID, video.ID), deadline.Unix(), ttl).Err(); err != nil {
		logger.Log.Warn("cache quiz deadline failed", zap.Error(err))
	}
}

func (s *QuizService) cachedRemaining(ctx context.Context, userID, videoID uint) int {
	if s.Redis == nil {
		return 0
	}
	unix, err := s.Redis.Get(ctx, s.deadlineKey(userID, videoID)).Int64()
	if err != nil {
		return 0
	}
	remaining := int(time.Until(time.Unix(unix, 0)).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *QuizService) dropDeadline(ctx context.Context, userID, videoID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, s.deadlineKey(userID, videoID)).Err(); err != nil {
		logger.Log.Warn("drop quiz deadline failed", zap.Error(err))
	}
}
