package app

import (
	"lingo_edu_backend/docs"
	"lingo_edu_backend/internal/config"
	"lingo_edu_backend/internal/middleware"
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/util"

	"lingo_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	// 未注册方法返回405而不是404
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(ctx *gin.Context) {
		util.MethodNotAllowed(ctx)
	})
	router.NoRoute(func(ctx *gin.Context) {
		util.NotFound(ctx)
	})

	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	// 评估流水线
	assessments := rg.Group("/assessments")
	{
		assessments.GET("/questions", c.assessment.GetQuestions)
		assessments.GET("/progress", c.assessment.GetProgress)
		assessments.GET("/history", c.assessment.GetHistory)
		assessments.POST("/writing", c.assessment.SubmitWriting)
		assessments.POST("/speaking", c.assessment.SubmitSpeaking)
		assessments.POST("/placement", c.assessment.SubmitPlacement)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		// 题库管理
		teacher.POST("/questions", c.question.CreateQuestion)
		teacher.GET("/questions", c.question.ListQuestions)
		teacher.GET("/questions/:id", c.question.GetQuestion)
		teacher.PUT("/questions/:id", c.question.UpdateQuestion)
		teacher.DELETE("/questions/:id", c.question.DeleteQuestion)
	}
}
