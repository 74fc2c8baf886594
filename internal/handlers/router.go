package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/config"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

const serviceName = "test-platform"

type HandlerManager struct {
	testHandler         *TestHandler
	questionHandler     *QuestionHandler
	inviteHandler       *InviteHandler
	attemptHandler      *AttemptHandler
	analyticsHandler    *AnalyticsHandler
	subscriptionHandler *SubscriptionHandler
	authMiddleware      *CasdoorAuthMiddleware
	health              func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
	billingWebhookToken string,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo, logger)
	return newHandlerManager(serviceManager, logger, authMiddleware, billingWebhookToken)
}

func newHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	billingWebhookToken string,
) *HandlerManager {
	return &HandlerManager{
		testHandler:         NewTestHandler(serviceManager.Test(), logger),
		questionHandler:     NewQuestionHandler(serviceManager.Question(), logger),
		inviteHandler:       NewInviteHandler(serviceManager.Invite(), logger),
		attemptHandler:      NewAttemptHandler(serviceManager.Attempt(), logger),
		analyticsHandler:    NewAnalyticsHandler(serviceManager.Analytics(), logger),
		subscriptionHandler: NewSubscriptionHandler(serviceManager.Subscription(), billingWebhookToken, logger),
		authMiddleware:      authMiddleware,
		health:              serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")

	// Public test taking; the invite token is the credential
	take := v1.Group("/take")
	{
		take.POST("/redeem", hm.attemptHandler.Redeem)
		take.GET("/attempts/:id", hm.attemptHandler.GetSession)
		take.POST("/attempts/:id/submit", hm.attemptHandler.Submit)
	}

	v1.POST("/billing/webhook", hm.subscriptionHandler.RequireWebhookToken(), hm.subscriptionHandler.BillingWebhook)

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		authed.GET("/subscription/me", hm.subscriptionHandler.GetMySubscription)

		// Authoring - Teachers and Admins only
		teacher := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

		tests := authed.Group("/tests", teacher)
		{
			tests.POST("", hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.PUT("/:id", hm.testHandler.UpdateTest)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)

			tests.POST("/:id/publish", hm.testHandler.PublishTest())
			tests.POST("/:id/close", hm.testHandler.CloseTest())
			tests.POST("/:id/lock", hm.testHandler.LockTest())
			tests.POST("/:id/unlock", hm.testHandler.UnlockTest())
			tests.POST("/:id/archive", hm.testHandler.ArchiveTest())
			tests.POST("/:id/unarchive", hm.testHandler.UnarchiveTest())
			tests.PUT("/:id/schedule", hm.testHandler.ScheduleTest)
			tests.DELETE("/:id/schedule", hm.testHandler.UnscheduleTest())

			tests.GET("/:id/questions", hm.questionHandler.ListQuestions)
			tests.POST("/:id/questions", hm.questionHandler.AddQuestion)
			tests.POST("/:id/questions/reorder", hm.questionHandler.ReorderQuestions)
			tests.PUT("/:id/questions/:question_id", hm.questionHandler.UpdateQuestion)
			tests.DELETE("/:id/questions/:question_id", hm.questionHandler.DeleteQuestion)

			tests.GET("/:id/invites", hm.inviteHandler.ListInvites)
			tests.POST("/:id/invites", hm.inviteHandler.IssueInvite)
			tests.POST("/:id/invites/batch", hm.inviteHandler.IssueInvites)

			tests.GET("/:id/attempts", hm.attemptHandler.ListAttempts)
			tests.GET("/:id/analytics", hm.analyticsHandler.GetTestAnalytics)
		}

		authed.GET("/attempts/:id", teacher, hm.attemptHandler.GetAttempt)

		admin := authed.Group("/admin", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.PUT("/subscriptions/:user_id/tier", hm.subscriptionHandler.SetTier)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
