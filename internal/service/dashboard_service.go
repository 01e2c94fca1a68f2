package service

import (
	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
)

// DashboardService 从进度记录推导每个视频的解锁状态，纯读取，无副作用
type DashboardService struct {
	VideoRepo    *repository.VideoRepository
	ProgressRepo *repository.ProgressRepository
}

func NewDashboardService(videoRepo *repository.VideoRepository, progressRepo *repository.ProgressRepository) *DashboardService {
	return &DashboardService{
		VideoRepo:    videoRepo,
		ProgressRepo: progressRepo,
	}
}

// VideoState 看板上单个视频的展示状态
type VideoState string

const (
	StateLocked       VideoState = "locked"
	StateNotAttempted VideoState = "not_attempted"
	StateInProgress   VideoState = "in_progress"
	StatePassed       VideoState = "passed"
	StateFailed       VideoState = "failed"
	// StateMaxAttempts 次数用尽且未通过，与单纯 failed 区分展示
	StateMaxAttempts VideoState = "max_attempts"
)

type DashboardVideo struct {
	Video      model.Video `json:"video"`
	State      VideoState  `json:"state"`
	CanStart   bool        `json:"canStart"`
	Attempts   int         `json:"attempts"`
	Score      *int        `json:"score,omitempty"`
	Percentage *float64    `json:"percentage,omitempty"`
	BestScore  *float64    `json:"bestScore,omitempty"`
}

type DashboardStats struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	InProgress int `json:"inProgress"`
	// NotAttempted 含未解锁的视频
	NotAttempted int `json:"notAttempted"`
}

type Dashboard struct {
	Videos []DashboardVideo `json:"videos"`
	Stats  DashboardStats   `json:"stats"`
}

// BuildDashboard 按目录顺序推导解锁视图：
// 首位视频恒可解锁，其后每个视频要求前一个状态为 passed
func (s *DashboardService) BuildDashboard(userID uint) (*Dashboard, error) {
	videos, err := s.VideoRepo.ListAvailable()
	if err != nil {
		return nil, err
	}

	progressMap, err := s.ProgressRepo.MapByUser(userID)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{Stats: DashboardStats{Total: len(videos)}}
	unlocked := true
	for _, video := range videos {
		entry := DashboardVideo{Video: video}
		progress := progressMap[video.ID]

		entry.State = deriveState(progress, &video, unlocked)
		entry.CanStart = unlocked && entry.State != StatePassed && entry.State != StateMaxAttempts &&
			entry.State != StateLocked

		if progress != nil {
			entry.Attempts = progress.Attempts
			if progress.Status.Terminal() {
				score := progress.Score
				pct := progress.Percentage
				best := progress.BestScore
				entry.Score = &score
				entry.Percentage = &pct
				entry.BestScore = &best
			}
			switch progress.Status {
			case model.StatusPassed:
				dashboard.Stats.Passed++
			case model.StatusFailed, model.StatusTimeout:
				dashboard.Stats.Failed++
			case model.StatusInProgress:
				dashboard.Stats.InProgress++
			}
		}

		dashboard.Videos = append(dashboard.Videos, entry)

		// 只有已通过的视频才放行后面的序列
		if progress == nil || progress.Status != model.StatusPassed {
			unlocked = false
		}
	}

	dashboard.Stats.NotAttempted = dashboard.Stats.Total - dashboard.Stats.Passed -
		dashboard.Stats.Failed - dashboard.Stats.InProgress
	return dashboard, nil
}

// deriveState 推导单个视频的展示状态
// 次数用尽且未通过的记录报告为 max_attempts 而非 failed
func deriveState(progress *model.VideoProgress, video *model.Video, unlocked bool) VideoState {
	if progress == nil || progress.Status == model.StatusNotAttempted {
		if unlocked {
			return StateNotAttempted
		}
		return StateLocked
	}

	if progress.Status != model.StatusPassed &&
		video.MaxAttempts > 0 && progress.Attempts >= video.MaxAttempts {
		return StateMaxAttempts
	}

	switch progress.Status {
	case model.StatusInProgress:
		return StateInProgress
	case model.StatusPassed:
		return StatePassed
	case model.StatusFailed, model.StatusTimeout:
		return StateFailed
	default:
		return StateNotAttempted
	}
}
