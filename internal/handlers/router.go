package handlers

import (
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
)

type HandlerManager struct {
	passageHandler      *PassageHandler
	questionHandler     *QuestionHandler
	testHandler         *TestHandler
	attemptHandler      *AttemptHandler
	importExportHandler *ImportExportHandler
	userService         services.UserService
	casdoorClient       *casdoorsdk.Client
	logger              utils.Logger
}

func NewHandlerManager(
	passageService services.PassageService,
	questionService services.QuestionService,
	testService services.TestService,
	attemptService services.AttemptService,
	importExportService services.ImportExportService,
	userService services.UserService,
	casdoorClient *casdoorsdk.Client,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		passageHandler:      NewPassageHandler(passageService, logger),
		questionHandler:     NewQuestionHandler(questionService, logger),
		testHandler:         NewTestHandler(testService, logger),
		attemptHandler:      NewAttemptHandler(attemptService, logger),
		importExportHandler: NewImportExportHandler(importExportService, logger),
		userService:         userService,
		casdoorClient:       casdoorClient,
		logger:              logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "reading-service",
		})
	})

	v1 := router.Group("/api/v1")

	// Guest grading needs no authentication and creates no records
	v1.POST("/attempts/guest-submit", hm.attemptHandler.SubmitGuestAttempt)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(hm.casdoorClient, hm.userService, hm.logger))
	{
		authed.GET("/me", GetMe(hm.userService))

		passages := authed.Group("/passages")
		{
			passages.POST("", hm.passageHandler.CreatePassage)
			passages.GET("", hm.passageHandler.ListPassages)
			passages.GET("/:id", hm.passageHandler.GetPassage)
			passages.GET("/:id/questions", hm.passageHandler.GetPassageWithQuestions)
			passages.PUT("/:id", hm.passageHandler.UpdatePassage)
			passages.DELETE("/:id", hm.passageHandler.DeletePassage)
		}

		questions := authed.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
			questions.GET("/stats", hm.questionHandler.GetKindCounts)
			questions.GET("/passage/:passage_id", hm.questionHandler.GetQuestionsByPassage)

			questions.POST("/import", hm.importExportHandler.ImportQuestions)
			questions.GET("/export", hm.importExportHandler.ExportQuestions)
		}

		tests := authed.Group("/tests")
		{
			tests.POST("", hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/questions", hm.testHandler.GetTestWithQuestions)
			tests.PUT("/:id", hm.testHandler.UpdateTest)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)
			tests.PUT("/:id/active", hm.testHandler.SetTestActive)
			tests.GET("/:id/stats", hm.testHandler.GetTestStats)
			tests.GET("/:id/results/export", hm.importExportHandler.ExportTestResults)
		}

		pools := authed.Group("/test-pools")
		{
			pools.POST("", hm.testHandler.CreateTestPool)
			pools.GET("", hm.testHandler.ListTestPools)
			pools.GET("/:id", hm.testHandler.GetTestPool)
			pools.DELETE("/:id", hm.testHandler.DeleteTestPool)
			pools.GET("/:id/pick", hm.testHandler.PickFromTestPool)
		}

		attempts := authed.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/history", hm.attemptHandler.GetAttemptHistory)
			attempts.GET("/stats", hm.attemptHandler.GetUserStats)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/abandon", hm.attemptHandler.AbandonAttempt)
		}

		admin := authed.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.POST("/recalculate-scores", hm.attemptHandler.RecalculateScores)
		}
	}
}
