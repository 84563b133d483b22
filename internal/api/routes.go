package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jobtrack/internal/api/middleware"
	"jobtrack/internal/auth"
	"jobtrack/internal/config"
	"jobtrack/internal/status"
	"jobtrack/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	cfg *config.Config,
) {
	statusSvc := status.NewService(db)

	authHandler := NewAuthHandler(
		db,
		authService,
		redisClient,
		logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL(),
		cfg.API.CookieDomain,
	)
	applicationHandler := NewApplicationHandler(db, statusSvc, logger)
	companyHandler := NewCompanyHandler(db, logger)
	jobBoardHandler := NewJobBoardHandler(db, logger)
	tagValueHandler := NewTagValueHandler(db, logger)
	coverLetterHandler := NewCoverLetterHandler(db, storageClient, logger, cfg.Clamd.Addr, 0)
	profileHandler := NewProfileHandler(db, logger)

	authMiddleware := middleware.AuthMiddleware(authService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			// 改密接口不过 passwordGate，否则强制改密的账号无法自救。
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		protected := v1.Group("")
		protected.Use(authMiddleware, passwordGate)
		{
			applicationGroup := protected.Group("/applications")
			{
				applicationGroup.GET("", applicationHandler.ListApplications)
				applicationGroup.POST("", applicationHandler.CreateApplication)
				applicationGroup.PATCH("/:id/status", applicationHandler.UpdateStatus)
				applicationGroup.GET("/:id/history", applicationHandler.GetHistory)
				applicationGroup.DELETE("/:id", applicationHandler.DeleteApplication)
			}

			companyGroup := protected.Group("/companies")
			{
				companyGroup.GET("", companyHandler.ListCompanies)
				companyGroup.POST("", companyHandler.CreateCompany)
				companyGroup.PUT("/:id", companyHandler.UpdateCompany)
				companyGroup.DELETE("/:id", companyHandler.DeleteCompany)
			}

			jobBoardGroup := protected.Group("/job-boards")
			{
				jobBoardGroup.GET("", jobBoardHandler.ListJobBoards)
				jobBoardGroup.POST("", jobBoardHandler.CreateJobBoard)
				jobBoardGroup.PUT("/:id", jobBoardHandler.UpdateJobBoard)
				jobBoardGroup.DELETE("/:id", jobBoardHandler.DeleteJobBoard)
			}

			tagValueGroup := protected.Group("/tag-values")
			{
				tagValueGroup.GET("", tagValueHandler.ListTagValues)
				tagValueGroup.POST("", tagValueHandler.CreateTagValue)
				tagValueGroup.PATCH("/:id", tagValueHandler.UpdateTagValue)
				tagValueGroup.DELETE("/:id", tagValueHandler.DeleteTagValue)
			}

			coverLetterGroup := protected.Group("/cover-letters")
			{
				coverLetterGroup.GET("", coverLetterHandler.ListCoverLetters)
				coverLetterGroup.POST("", coverLetterHandler.UploadCoverLetter)
				coverLetterGroup.GET("/:id/download-link", coverLetterHandler.GetDownloadLink)
				coverLetterGroup.DELETE("/:id", coverLetterHandler.DeleteCoverLetter)
			}

			profileGroup := protected.Group("/profile")
			{
				profileGroup.GET("", profileHandler.GetProfile)
				profileGroup.PUT("/preferences", profileHandler.UpdatePreferences)
			}
		}
	}
}
