// 初始化示例课程目录脚本
//
// 首次部署后运行，创建一个教师账号和带测验题的示例视频序列，
// 便于前端联调。已存在同邮箱账号时跳过。
//
// 用法: go run scripts/seed_catalog.go

package main

import (
	"log"
	"os"

	"videoquiz_backend/internal/config"
	"videoquiz_backend/internal/model"
	"videoquiz_backend/pkg/database"
	"videoquiz_backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}
	// 下划线风格的键不走 yaml 反射，缺省值兜底
	if cfg.Quiz.DefaultTimerSeconds <= 0 {
		cfg.Quiz.DefaultTimerSeconds = 300
	}
	if cfg.Quiz.DefaultMaxAttempts <= 0 {
		cfg.Quiz.DefaultMaxAttempts = 3
	}
	if cfg.Quiz.DefaultPassingScore <= 0 {
		cfg.Quiz.DefaultPassingScore = 60
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	var existing model.User
	if err := db.Where("email = ?", "teacher@example.com").First(&existing).Error; err == nil {
		log.Println("示例数据已存在，跳过")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("teacher123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("密码哈希失败: %v", err)
	}
	teacher := model.User{
		Name:     "示例教师",
		Email:    "teacher@example.com",
		Password: string(hash),
		Role:     model.Teacher,
	}
	if err := db.Create(&teacher).Error; err != nil {
		log.Fatalf("创建教师账号失败: %v", err)
	}

	videos := []struct {
		title string
		desc  string
	}{
		{"入门：平台使用指南", "了解学习流程与测验规则"},
		{"第一课：基础概念", "核心概念讲解"},
		{"第二课：进阶实践", "动手实践环节"},
	}

	for i, v := range videos {
		video := model.Video{
			Title:            v.title,
			Description:      v.desc,
			Order:            i + 1,
			QuizTimerSeconds: cfg.Quiz.DefaultTimerSeconds,
			MaxAttempts:      cfg.Quiz.DefaultMaxAttempts,
			PassingScore:     cfg.Quiz.DefaultPassingScore,
			IsActive:         true,
			Status:           model.VideoDraft,
			UploaderID:       teacher.ID,
		}
		if err := db.Create(&video).Error; err != nil {
			log.Fatalf("创建视频失败: %v", err)
		}

		question := model.Question{
			VideoID:      video.ID,
			Text:         "本节视频的主题是什么？",
			QuestionType: model.SingleChoice,
			Points:       1,
			Order:        1,
			IsActive:     true,
			Answers: []model.Answer{
				{Text: v.title, IsCorrect: true, Order: 1},
				{Text: "以上都不是", IsCorrect: false, Order: 2},
			},
		}
		if err := db.Create(&question).Error; err != nil {
			log.Fatalf("创建题目失败: %v", err)
		}
	}

	log.Println("示例数据创建完成（视频默认为草稿，请在后台上架）")
}
