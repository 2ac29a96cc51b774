package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/lecturehub/lecturehub-api/api/swagger"
	"github.com/lecturehub/lecturehub-api/internal/middleware"
	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	"github.com/lecturehub/lecturehub-api/internal/service"
	"github.com/lecturehub/lecturehub-api/pkg/config"
	"github.com/lecturehub/lecturehub-api/pkg/logger"
	corsmiddleware "github.com/lecturehub/lecturehub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lecturehub/lecturehub-api/pkg/middleware/requestid"
)

// RouterDeps bundles everything the route table needs.
type RouterDeps struct {
	Config *config.Config
	Logger *zap.Logger

	AuthService *service.AuthService
	Users       *repository.UserRepository
	Metrics     *service.MetricsService

	Auth          *AuthHandler
	User          *UserHandler
	Video         *VideoHandler
	Notice        *NoticeHandler
	Playlist      *PlaylistHandler
	Engagement    *EngagementHandler
	Comment       *CommentHandler
	Report        *ReportHandler
	Notification  *NotificationHandler
	Media         *MediaHandler
	MetricsRoutes *MetricsHandler
}

// NewRouter builds the gin engine with all middleware and routes attached.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.MetricsRoutes.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", deps.MetricsRoutes.Prometheus)

	// The token itself authorizes media access.
	r.GET("/media/:token", deps.Media.Serve)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.AuthService, deps.Users))

	authedAuth := authed.Group("/auth")
	{
		authedAuth.POST("/logout", deps.Auth.Logout)
		authedAuth.POST("/change-password", deps.Auth.ChangePassword)
		authedAuth.GET("/me", deps.Auth.Me)
	}

	users := authed.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), deps.User.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), deps.User.Get)
		users.POST("/approve", middleware.RequireRoles(models.RoleAdmin), deps.User.ApproveMany)
		users.POST("/reject", middleware.RequireRoles(models.RoleAdmin), deps.User.RejectMany)
		users.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin), deps.User.Approve)
		users.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin), deps.User.Reject)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), deps.User.Delete)
	}

	videos := authed.Group("/videos")
	{
		videos.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.Upload)
		videos.GET("", deps.Video.List)
		videos.GET("/:id", deps.Video.Get)
		videos.PATCH("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.Update)
		videos.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.Delete)
		videos.POST("/:id/publish", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.Publish)
		videos.POST("/:id/unpublish", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.Unpublish)
		videos.POST("/:id/access", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.GrantAccess)
		videos.DELETE("/:id/access/:userID", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Video.RevokeAccess)
		videos.GET("/:id/stream", deps.Video.Stream)
		videos.POST("/:id/views", deps.Engagement.RecordView)
		videos.GET("/:id/views/me", deps.Engagement.WatchProgress)
		videos.GET("/:id/views", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Engagement.ListViews)
	}

	notices := authed.Group("/notices")
	{
		notices.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Notice.Create)
		notices.GET("", deps.Notice.List)
		notices.GET("/:id", deps.Notice.Get)
		notices.PATCH("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Notice.Update)
		notices.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Notice.Delete)
		notices.POST("/:id/publish", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Notice.Publish)
		notices.POST("/:id/access", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Notice.GrantAccess)
		notices.DELETE("/:id/access/:userID", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Notice.RevokeAccess)
	}

	playlists := authed.Group("/playlists")
	{
		playlists.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Playlist.Create)
		playlists.GET("", deps.Playlist.List)
		playlists.GET("/:id", deps.Playlist.Get)
		playlists.PATCH("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Playlist.Update)
		playlists.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Playlist.Delete)
		playlists.POST("/:id/access", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Playlist.GrantAccess)
		playlists.DELETE("/:id/access/:userID", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Playlist.RevokeAccess)
	}

	content := authed.Group("/content/:type/:id")
	{
		content.POST("/like", deps.Engagement.ToggleLike)
		content.GET("/comments", deps.Comment.List)
		content.POST("/comments", deps.Comment.Add)
	}

	comments := authed.Group("/comments")
	{
		comments.DELETE("/:id", deps.Comment.Delete)
		comments.POST("/:id/like", deps.Comment.ToggleLike)
		comments.POST("/:id/report", deps.Report.Create)
	}

	reports := authed.Group("/reports")
	{
		reports.GET("", deps.Report.List)
		reports.GET("/:id", deps.Report.Get)
		reports.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin), deps.Report.Review)
		reports.POST("/:id/ignore", middleware.RequireRoles(models.RoleAdmin), deps.Report.Ignore)
		reports.DELETE("/:id", deps.Report.Cancel)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", deps.Notification.List)
		notifications.GET("/unread-count", deps.Notification.UnreadCount)
		notifications.POST("/read-all", deps.Notification.MarkAllRead)
		notifications.POST("/:id/read", deps.Notification.MarkRead)
		notifications.DELETE("/:id", deps.Notification.Delete)
		notifications.DELETE("", deps.Notification.DeleteAll)
	}

	return r
}
