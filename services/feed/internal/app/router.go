package app

import (
	"time"

	"blogfeed/pkg/config"
	"blogfeed/pkg/jwt"
	"blogfeed/pkg/logger"
	"blogfeed/pkg/middleware"
	feedHTTP "blogfeed/services/feed/internal/controller/http"
	"blogfeed/services/feed/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "blogfeed/services/feed/docs" // Swagger docs
)

func NewRouter(
	cfg *config.Config,
	log *logger.Logger,
	uc *UseCases,
	files usecase.FileStore,
	jwtService *jwt.Service,
	redisClient *redis.Client,
) *gin.Engine {
	feedHandler := feedHTTP.NewFeedHandler(uc.Feed, cfg.DefaultPageSize, log)
	postHandler := feedHTTP.NewPostHandler(uc.Posts, log)
	commentHandler := feedHTTP.NewCommentHandler(uc.Comments, log)
	imageHandler := feedHTTP.NewImageHandler(files, log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	rateLimit := middleware.RateLimitMiddleware(redisClient, cfg.RateLimitPerMinute, time.Minute, log)

	api := r.Group("/api/v1")

	// Reads are open to anonymous callers; a valid token adds like status.
	public := api.Group("")
	public.Use(middleware.OptionalAuthMiddleware(jwtService), rateLimit)
	{
		public.GET("/posts", feedHandler.GetGlobalFeed)
		public.GET("/posts/:id", feedHandler.GetPost)
		public.GET("/posts/:id/comments", feedHandler.ListComments)
		public.GET("/users/:username/posts", feedHandler.GetAuthorFeed)
		public.GET("/images/*ref", imageHandler.GetImage)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService), rateLimit)
	{
		protected.POST("/posts", postHandler.CreatePost)
		protected.GET("/posts/:id/edit", feedHandler.GetPostForEdit)
		protected.PUT("/posts/:id", postHandler.UpdatePost)
		protected.DELETE("/posts/:id", postHandler.DeletePost)
		protected.POST("/posts/:id/like", postHandler.ToggleLike)
		protected.POST("/posts/:id/comments", commentHandler.AddComment)
		protected.DELETE("/comments/:id", commentHandler.DeleteComment)
		protected.GET("/me/liked", feedHandler.GetLikedFeed)
	}

	return r
}
