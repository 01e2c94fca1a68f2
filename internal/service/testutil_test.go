package service

import (
	"testing"
	"time"

	"videoquiz_backend/internal/config"
	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/pkg/database"
	"videoquiz_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// 内存库按连接隔离，串行化避免表丢失
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// quizEnv 组装一套完整的服务依赖，Redis 留空走数据库回退路径
type quizEnv struct {
	db        *gorm.DB
	videos    *repository.VideoRepository
	questions *repository.QuestionRepository
	progress  *repository.ProgressRepository
	certs     *repository.CertificateRepository

	quiz        *QuizService
	dashboard   *DashboardService
	certificate *CertificateService
	importer    *ImportService
}

func newQuizEnv(t *testing.T) *quizEnv {
	t.Helper()
	db := newTestDB(t)

	env := &quizEnv{
		db:        db,
		videos:    repository.NewVideoRepository(db),
		questions: repository.NewQuestionRepository(db),
		progress:  repository.NewProgressRepository(db),
		certs:     repository.NewCertificateRepository(db),
	}

	storage := NewStorageService(&config.Config{
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
	})
	env.certificate = NewCertificateService(env.certs, env.progress, env.videos, storage)
	env.quiz = NewQuizService(env.videos, env.questions, env.progress, env.certificate, nil)
	env.dashboard = NewDashboardService(env.videos, env.progress)
	env.importer = NewImportService(env.videos, env.questions, db)
	return env
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     "测试用户",
		Email:    email,
		Password: "hashed",
		Role:     model.Student,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

type videoOpts struct {
	timerSeconds int
	maxAttempts  int
	passingScore int
	published    bool
}

func defaultVideoOpts() videoOpts {
	return videoOpts{timerSeconds: 300, maxAttempts: 3, passingScore: 60, published: true}
}

func createVideo(t *testing.T, env *quizEnv, order int, opts videoOpts) *model.Video {
	t.Helper()
	video := &model.Video{
		Title:            "视频",
		Order:            order,
		QuizTimerSeconds: opts.timerSeconds,
		MaxAttempts:      opts.maxAttempts,
		PassingScore:     opts.passingScore,
		IsActive:         true,
		Status:           model.VideoDraft,
	}
	if opts.published {
		now := time.Now()
		video.Status = model.VideoPublished
		video.PublishedAt = &now
	}
	if err := env.videos.Create(video); err != nil {
		t.Fatalf("create video: %v", err)
	}
	return video
}

// addQuestion 创建一道两选项的单选题，返回正确与错误选项的 ID
func addQuestion(t *testing.T, env *quizEnv, videoID uint, order int) (q *model.Question, correctID, wrongID uint) {
	t.Helper()
	question := &model.Question{
		VideoID:      videoID,
		Text:         "题目",
		QuestionType: model.SingleChoice,
		Order:        order,
		Points:       1,
		IsActive:     true,
		Answers: []model.Answer{
			{Text: "正确", IsCorrect: true, Order: 1},
			{Text: "错误", IsCorrect: false, Order: 2},
		},
	}
	if err := env.questions.Create(question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return question, question.Answers[0].ID, question.Answers[1].ID
}

// backdateStart 把进行中的作答开始时间回拨，用于模拟超时
func backdateStart(t *testing.T, env *quizEnv, userID, videoID uint, d time.Duration) {
	t.Helper()
	progress, err := env.progress.FindByUserAndVideo(userID, videoID)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	past := time.Now().Add(-d)
	progress.StartedAt = &past
	if err := env.progress.Save(progress); err != nil {
		t.Fatalf("backdate progress: %v", err)
	}
}
