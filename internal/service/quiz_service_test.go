package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/util"
)

func answerAll(t *testing.T, env *quizEnv, userID, videoID uint, correct bool, pairs [][3]uint) {
	t.Helper()
	for _, p := range pairs {
		answerID := p[1]
		if !correct {
			answerID = p[2]
		}
		if err := env.quiz.RecordAnswer(context.Background(), userID, videoID, p[0], answerID); err != nil {
			t.Fatalf("record answer: %v", err)
		}
	}
}

// setupSequence 创建 n 个各带一道题的已发布视频
func setupSequence(t *testing.T, env *quizEnv, n int) ([]*model.Video, map[uint][][3]uint) {
	t.Helper()
	videos := make([]*model.Video, 0, n)
	questionsByVideo := make(map[uint][][3]uint)
	for i := 0; i < n; i++ {
		v := createVideo(t, env, i+1, defaultVideoOpts())
		q, correctID, wrongID := addQuestion(t, env, v.ID, 1)
		videos = append(videos, v)
		questionsByVideo[v.ID] = [][3]uint{{q.ID, correctID, wrongID}}
	}
	return videos, questionsByVideo
}

func TestPassUnlocksNextVideo(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 2)
	ctx := context.Background()

	// 第二个视频在第一个通过前是锁着的
	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[1].ID); !errors.Is(err, util.ErrVideoLocked) {
		t.Fatalf("expected ErrVideoLocked, got %v", err)
	}

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start first video: %v", err)
	}
	answerAll(t, env, user.ID, videos[0].ID, true, qs[videos[0].ID])

	result, err := env.quiz.Submit(ctx, user.ID, videos[0].ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != model.StatusPassed || !result.Passed {
		t.Fatalf("expected passed, got %+v", result)
	}
	if result.Percentage != 100 {
		t.Fatalf("expected 100%%, got %v", result.Percentage)
	}

	// 通过后第二个视频解锁
	attempt, err := env.quiz.StartOrResume(ctx, user.ID, videos[1].ID)
	if err != nil {
		t.Fatalf("start second video after pass: %v", err)
	}
	if attempt.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", attempt.Status)
	}
}

func TestFailThenRetryResetsState(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 1)
	ctx := context.Background()
	videoID := videos[0].ID

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videoID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videoID, false, qs[videoID])

	result, err := env.quiz.Submit(ctx, user.ID, videoID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != model.StatusFailed || result.Passed {
		t.Fatalf("expected failed, got %+v", result)
	}

	if err := env.quiz.Retry(ctx, user.ID, videoID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	progress, err := env.progress.FindByUserAndVideo(user.ID, videoID)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.Status != model.StatusNotAttempted {
		t.Fatalf("expected not_attempted after retry, got %s", progress.Status)
	}
	if progress.Score != 0 || progress.Percentage != 0 {
		t.Fatalf("expected score reset, got %+v", progress)
	}

	// 重考后的新作答占用第二次机会，历史答案已清空
	attempt, err := env.quiz.StartOrResume(ctx, user.ID, videoID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if attempt.Attempts != 2 {
		t.Fatalf("expected attempts=2, got %d", attempt.Attempts)
	}
	if attempt.AnsweredCount != 0 {
		t.Fatalf("expected no carried-over answers, got %d", attempt.AnsweredCount)
	}
}

func TestAttemptsExhausted(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	opts := defaultVideoOpts()
	opts.maxAttempts = 1
	video := createVideo(t, env, 1, opts)
	q, correctID, wrongID := addQuestion(t, env, video.ID, 1)
	_ = correctID
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, wrongID); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := env.quiz.Submit(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := env.quiz.Retry(ctx, user.ID, video.ID); !errors.Is(err, util.ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted from retry, got %v", err)
	}
	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); !errors.Is(err, util.ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted from start, got %v", err)
	}
}

func TestUnlimitedAttemptsWhenMaxIsZero(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	opts := defaultVideoOpts()
	opts.maxAttempts = 0
	video := createVideo(t, env, 1, opts)
	q, _, wrongID := addQuestion(t, env, video.ID, 1)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
			t.Fatalf("start round %d: %v", i, err)
		}
		if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, wrongID); err != nil {
			t.Fatalf("answer round %d: %v", i, err)
		}
		if _, err := env.quiz.Submit(ctx, user.ID, video.ID); err != nil {
			t.Fatalf("submit round %d: %v", i, err)
		}
		if err := env.quiz.Retry(ctx, user.ID, video.ID); err != nil {
			t.Fatalf("retry round %d: %v", i, err)
		}
	}
}

func TestStartOrResumeIsIdempotent(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, _ := setupSequence(t, env, 1)
	ctx := context.Background()

	first, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if first.Attempts != 1 || second.Attempts != 1 {
		t.Fatalf("resume must not consume an attempt: %d then %d", first.Attempts, second.Attempts)
	}
	if second.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", second.Status)
	}
}

func TestSubmitRejectsIncompleteAnswers(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q1, correct1, _ := addQuestion(t, env, video.ID, 1)
	addQuestion(t, env, video.ID, 2)
	_, _, _ = addQuestion(t, env, video.ID, 3)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q1.ID, correct1); err != nil {
		t.Fatalf("answer: %v", err)
	}

	_, err := env.quiz.Submit(ctx, user.ID, video.ID)
	var incomplete *util.IncompleteAnswersError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteAnswersError, got %v", err)
	}
	if len(incomplete.Unanswered) != 2 {
		t.Fatalf("expected 2 unanswered orders, got %v", incomplete.Unanswered)
	}
	// 部分作答不得写入终态
	progress, _ := env.progress.FindByUserAndVideo(user.ID, video.ID)
	if progress.Status != model.StatusInProgress {
		t.Fatalf("incomplete submit must keep in_progress, got %s", progress.Status)
	}
}

func TestRecordAnswerOverwrites(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q, correctID, wrongID := addQuestion(t, env, video.ID, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, wrongID); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, correctID); err != nil {
		t.Fatalf("overwrite answer: %v", err)
	}

	result, err := env.quiz.Submit(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Passed {
		t.Fatalf("grading must use the last recorded answer, got %+v", result)
	}
}

func TestRecordAnswerValidatesOwnership(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q1, _, _ := addQuestion(t, env, video.ID, 1)
	q2, correct2, _ := addQuestion(t, env, video.ID, 2)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 选项必须属于对应题目
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q1.ID, correct2); !errors.Is(err, util.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, 9999, correct2); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	_ = q2
}

func TestTimeoutGradesWithStoredAnswers(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q, correctID, _ := addQuestion(t, env, video.ID, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, correctID); err != nil {
		t.Fatalf("answer: %v", err)
	}
	backdateStart(t, env, user.ID, video.ID, time.Hour)

	result, err := env.quiz.AutoSubmit(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Status != model.StatusTimeout {
		t.Fatalf("expected timeout status, got %s", result.Status)
	}
	// 超时卷面达线：Passed 记 true 供统计，但不算通过序列
	if !result.Passed {
		t.Fatalf("timeout with a perfect sheet should keep Passed=true, got %+v", result)
	}

	second := createVideo(t, env, 2, defaultVideoOpts())
	addQuestion(t, env, second.ID, 1)
	if _, err := env.quiz.StartOrResume(ctx, user.ID, second.ID); !errors.Is(err, util.ErrVideoLocked) {
		t.Fatalf("timeout must not unlock the next video, got %v", err)
	}
}

func TestExpiredAttemptRejectsLateActions(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q, correctID, _ := addQuestion(t, env, video.ID, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	backdateStart(t, env, user.ID, video.ID, time.Hour)

	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, correctID); !errors.Is(err, util.ErrQuizTimeExpired) {
		t.Fatalf("expected ErrQuizTimeExpired, got %v", err)
	}

	// 懒惰检查已经把记录结成 timeout
	progress, _ := env.progress.FindByUserAndVideo(user.ID, video.ID)
	if progress.Status != model.StatusTimeout {
		t.Fatalf("expected timeout after lazy expiry, got %s", progress.Status)
	}
}

func TestSubmitAfterPassReturnsAlreadyPassed(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 1)
	ctx := context.Background()
	videoID := videos[0].ID

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videoID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videoID, true, qs[videoID])
	if _, err := env.quiz.Submit(ctx, user.ID, videoID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := env.quiz.Submit(ctx, user.ID, videoID); !errors.Is(err, util.ErrAlreadyPassed) {
		t.Fatalf("expected ErrAlreadyPassed, got %v", err)
	}
	if err := env.quiz.Retry(ctx, user.ID, videoID); !errors.Is(err, util.ErrAlreadyPassed) {
		t.Fatalf("retry after pass must fail, got %v", err)
	}

	// passed 是终态，重复 start 只返回上下文
	attempt, err := env.quiz.StartOrResume(ctx, user.ID, videoID)
	if err != nil {
		t.Fatalf("start after pass: %v", err)
	}
	if attempt.Status != model.StatusPassed || attempt.Attempts != 1 {
		t.Fatalf("pass must stay terminal, got %+v", attempt)
	}
}

func TestBestScoreIsMonotonic(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q1, correct1, wrong1 := addQuestion(t, env, video.ID, 1)
	q2, correct2, wrong2 := addQuestion(t, env, video.ID, 2)
	ctx := context.Background()

	// 第一轮：一半正确
	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	env.quiz.RecordAnswer(ctx, user.ID, video.ID, q1.ID, correct1)
	env.quiz.RecordAnswer(ctx, user.ID, video.ID, q2.ID, wrong2)
	first, err := env.quiz.Submit(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.BestScore != 50 {
		t.Fatalf("expected best 50, got %v", first.BestScore)
	}

	// 第二轮：全错，best 不回退
	if err := env.quiz.Retry(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	env.quiz.RecordAnswer(ctx, user.ID, video.ID, q1.ID, wrong1)
	env.quiz.RecordAnswer(ctx, user.ID, video.ID, q2.ID, wrong2)
	second, err := env.quiz.Submit(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.Percentage != 0 || second.BestScore != 50 {
		t.Fatalf("best score must not regress, got %+v", second)
	}

	// 第三轮：全对，best 提升
	if err := env.quiz.Retry(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	env.quiz.RecordAnswer(ctx, user.ID, video.ID, q1.ID, correct1)
	env.quiz.RecordAnswer(ctx, user.ID, video.ID, q2.ID, correct2)
	third, err := env.quiz.Submit(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	if third.BestScore != 100 {
		t.Fatalf("expected best 100, got %v", third.BestScore)
	}
}

func TestSyncTimerCountsDownAndExpires(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	addQuestion(t, env, video.ID, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	remaining, status, err := env.quiz.SyncTimer(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", status)
	}
	if remaining <= 0 || remaining > video.QuizTimerSeconds {
		t.Fatalf("remaining out of range: %d", remaining)
	}

	backdateStart(t, env, user.ID, video.ID, time.Hour)
	remaining, status, err = env.quiz.SyncTimer(ctx, user.ID, video.ID)
	if err != nil {
		t.Fatalf("sync after expiry: %v", err)
	}
	if remaining != 0 || status != model.StatusTimeout {
		t.Fatalf("expected 0/timeout, got %d/%s", remaining, status)
	}
}

func TestGetQuestionHidesCorrectness(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	video := createVideo(t, env, 1, defaultVideoOpts())
	q, correctID, _ := addQuestion(t, env, video.ID, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, video.ID, q.ID, correctID); err != nil {
		t.Fatalf("answer: %v", err)
	}

	view, err := env.quiz.GetQuestion(ctx, user.ID, video.ID, 1)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if view.Index != 1 || view.TotalQuestions != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	var selected int
	for _, a := range view.Answers {
		if a.Selected {
			selected++
			if a.ID != correctID {
				t.Fatalf("wrong selected answer %d", a.ID)
			}
		}
	}
	if selected != 1 {
		t.Fatalf("expected exactly one selected option, got %d", selected)
	}

	if _, err := env.quiz.GetQuestion(ctx, user.ID, video.ID, 2); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound for out-of-range index, got %v", err)
	}
}

func TestGradeAnswers(t *testing.T) {
	questions := []model.Question{
		{BaseModel: model.BaseModel{ID: 1}, Answers: []model.Answer{
			{BaseModel: model.BaseModel{ID: 11}, IsCorrect: true},
			{BaseModel: model.BaseModel{ID: 12}},
		}},
		{BaseModel: model.BaseModel{ID: 2}, Answers: []model.Answer{
			{BaseModel: model.BaseModel{ID: 21}, IsCorrect: true},
			{BaseModel: model.BaseModel{ID: 22}},
		}},
		{BaseModel: model.BaseModel{ID: 3}, Answers: []model.Answer{
			{BaseModel: model.BaseModel{ID: 31}, IsCorrect: true},
			{BaseModel: model.BaseModel{ID: 32}},
		}},
	}

	tests := []struct {
		name    string
		answers map[uint]uint
		score   int
		pct     float64
	}{
		{"all correct", map[uint]uint{1: 11, 2: 21, 3: 31}, 3, 100},
		{"one of three", map[uint]uint{1: 11, 2: 22, 3: 32}, 1, 100.0 / 3},
		{"none answered", map[uint]uint{}, 0, 0},
		{"wrong ids ignored", map[uint]uint{1: 99, 2: 21}, 1, 100.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, pct := gradeAnswers(questions, tt.answers)
			if score != tt.score {
				t.Errorf("score = %d, want %d", score, tt.score)
			}
			if pct != tt.pct {
				t.Errorf("pct = %v, want %v", pct, tt.pct)
			}
		})
	}

	if score, pct := gradeAnswers(nil, map[uint]uint{}); score != 0 || pct != 0 {
		t.Errorf("empty quiz must grade to zero, got %d/%v", score, pct)
	}
}
