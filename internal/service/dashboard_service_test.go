package service

import (
	"context"
	"testing"

	"videoquiz_backend/internal/model"
)

func TestDeriveState(t *testing.T) {
	video := &model.Video{MaxAttempts: 3}
	progress := func(status model.ProgressStatus, attempts int) *model.VideoProgress {
		return &model.VideoProgress{Status: status, Attempts: attempts}
	}

	tests := []struct {
		name     string
		progress *model.VideoProgress
		unlocked bool
		want     VideoState
	}{
		{"no record locked", nil, false, StateLocked},
		{"no record unlocked", nil, true, StateNotAttempted},
		{"not attempted locked", progress(model.StatusNotAttempted, 0), false, StateLocked},
		{"in progress", progress(model.StatusInProgress, 1), true, StateInProgress},
		{"passed", progress(model.StatusPassed, 2), true, StatePassed},
		{"failed with attempts left", progress(model.StatusFailed, 1), true, StateFailed},
		{"timeout shows as failed", progress(model.StatusTimeout, 1), true, StateFailed},
		{"failed at attempt cap", progress(model.StatusFailed, 3), true, StateMaxAttempts},
		{"timeout at attempt cap", progress(model.StatusTimeout, 3), true, StateMaxAttempts},
		{"passed ignores attempt cap", progress(model.StatusPassed, 3), true, StatePassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveState(tt.progress, video, tt.unlocked); got != tt.want {
				t.Errorf("deriveState() = %s, want %s", got, tt.want)
			}
		})
	}

	// 无上限视频永远不会报 max_attempts
	unlimited := &model.Video{MaxAttempts: 0}
	if got := deriveState(progress(model.StatusFailed, 10), unlimited, true); got != StateFailed {
		t.Errorf("unlimited attempts: got %s, want %s", got, StateFailed)
	}
}

func TestBuildDashboardSequence(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 3)
	ctx := context.Background()

	// 通过第一个，第二个答错一次
	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videos[0].ID, true, qs[videos[0].ID])
	if _, err := env.quiz.Submit(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[1].ID); err != nil {
		t.Fatalf("start second: %v", err)
	}
	answerAll(t, env, user.ID, videos[1].ID, false, qs[videos[1].ID])
	if _, err := env.quiz.Submit(ctx, user.ID, videos[1].ID); err != nil {
		t.Fatalf("submit second: %v", err)
	}

	dashboard, err := env.dashboard.BuildDashboard(user.ID)
	if err != nil {
		t.Fatalf("build dashboard: %v", err)
	}
	if len(dashboard.Videos) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(dashboard.Videos))
	}

	states := []VideoState{dashboard.Videos[0].State, dashboard.Videos[1].State, dashboard.Videos[2].State}
	want := []VideoState{StatePassed, StateFailed, StateLocked}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("video %d state = %s, want %s", i+1, states[i], want[i])
		}
	}

	if dashboard.Videos[0].CanStart {
		t.Error("passed video must not be startable")
	}
	if !dashboard.Videos[1].CanStart {
		t.Error("failed video with attempts left must be startable")
	}
	if dashboard.Videos[2].CanStart {
		t.Error("locked video must not be startable")
	}

	if dashboard.Videos[0].Percentage == nil || *dashboard.Videos[0].Percentage != 100 {
		t.Errorf("expected 100%% on passed entry, got %v", dashboard.Videos[0].Percentage)
	}
	if dashboard.Videos[2].Score != nil {
		t.Error("locked video must not expose scores")
	}

	stats := dashboard.Stats
	if stats.Total != 3 || stats.Passed != 1 || stats.Failed != 1 ||
		stats.InProgress != 0 || stats.NotAttempted != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// 进行中的作答单独计入统计，不混进 not_attempted
func TestBuildDashboardCountsInProgress(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, _ := setupSequence(t, env, 2)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	dashboard, err := env.dashboard.BuildDashboard(user.ID)
	if err != nil {
		t.Fatalf("build dashboard: %v", err)
	}
	stats := dashboard.Stats
	if stats.Total != 2 || stats.InProgress != 1 || stats.NotAttempted != 1 ||
		stats.Passed != 0 || stats.Failed != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// 草稿与停用视频不进入学习序列，也不挡住后续解锁
func TestBuildDashboardSkipsUnavailableVideos(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	ctx := context.Background()

	first := createVideo(t, env, 1, defaultVideoOpts())
	q1, c1, _ := addQuestion(t, env, first.ID, 1)

	draftOpts := defaultVideoOpts()
	draftOpts.published = false
	createVideo(t, env, 2, draftOpts)

	third := createVideo(t, env, 3, defaultVideoOpts())
	addQuestion(t, env, third.ID, 1)

	if _, err := env.quiz.StartOrResume(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.quiz.RecordAnswer(ctx, user.ID, first.ID, q1.ID, c1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := env.quiz.Submit(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	dashboard, err := env.dashboard.BuildDashboard(user.ID)
	if err != nil {
		t.Fatalf("build dashboard: %v", err)
	}
	if len(dashboard.Videos) != 2 {
		t.Fatalf("draft video must be hidden, got %d entries", len(dashboard.Videos))
	}
	if dashboard.Videos[1].State != StateNotAttempted {
		t.Errorf("video after a hidden draft should unlock, got %s", dashboard.Videos[1].State)
	}

	// 序列语义与看板一致：第三个视频可以直接开始
	if _, err := env.quiz.StartOrResume(ctx, user.ID, third.ID); err != nil {
		t.Fatalf("start third across hidden draft: %v", err)
	}
}
