package app

import (
	"videoquiz_backend/docs"
	"videoquiz_backend/internal/config"
	"videoquiz_backend/internal/middleware"
	"videoquiz_backend/internal/model"
	"videoquiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 学员学习接口
		a.registerLearnerRoutes(authGroup, c)

		// 教师管理接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.Profile)
	rg.GET("/dashboard", c.dashboard.Dashboard)

	// 测验：开始、逐题作答、提交、重考
	quiz := rg.Group("/videos/:videoId/quiz")
	{
		quiz.POST("/start", c.quiz.Start)
		quiz.GET("/questions/:index", c.quiz.GetQuestion)
		quiz.POST("/answer", c.quiz.Answer)
		quiz.POST("/submit", c.quiz.Submit)
		quiz.POST("/auto-submit", c.quiz.AutoSubmit)
		quiz.POST("/retry", c.quiz.Retry)
		quiz.GET("/sync-timer", c.quiz.SyncTimer)
	}

	// 结业证书
	rg.GET("/certificate", c.certificate.Get)
	rg.GET("/certificate/download", c.certificate.Download)
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		// 视频目录
		admin.GET("/videos", c.video.List)
		admin.POST("/videos", c.video.Create)
		admin.PUT("/videos/:videoId", c.video.Update)
		admin.DELETE("/videos/:videoId", c.video.Delete)
		admin.POST("/videos/:videoId/publish", c.video.Publish)
		admin.POST("/videos/:videoId/upload", c.video.Upload)
		admin.GET("/videos/:videoId/stats", c.video.Stats)

		// 题库
		admin.GET("/videos/:videoId/questions", c.question.List)
		admin.POST("/videos/:videoId/questions", c.question.Create)
		admin.POST("/videos/:videoId/questions/import", c.question.Import)
		admin.PUT("/questions/:questionId", c.question.Update)
		admin.DELETE("/questions/:questionId", c.question.Delete)
		admin.POST("/questions/:questionId/answers", c.question.CreateAnswer)
		admin.PUT("/answers/:answerId", c.question.UpdateAnswer)
		admin.DELETE("/answers/:answerId", c.question.DeleteAnswer)
	}
}
