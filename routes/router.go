package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/controllers"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store utils.CacheStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file when GinPath is set
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin logger init failed, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Identity())

	r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)

	r.GET("/", func(ctx *gin.Context) {
		ctx.Redirect(http.StatusFound, "/posts/")
	})
	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	repos := repositories.New(db)
	media := utils.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	renderer := utils.JSONRenderer{}

	postController := controllers.NewPostController(repos, media, renderer)
	followController := controllers.NewFollowController(repos, media, renderer)
	authController := controllers.NewAuthController(repos.Users, renderer)
	adminController := controllers.NewAdminController(repos, media, store, cfg.IndexCacheKeyPrefix)

	writeLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware()
	login := middleware.LoginRequired()

	posts := r.Group("/posts")
	posts.GET("/", middleware.CachePage(store, time.Duration(cfg.IndexCacheSeconds)*time.Second, cfg.IndexCacheKeyPrefix), postController.Index)
	posts.GET("/group/:slug/", postController.GroupPosts)
	posts.GET("/profile/:username/", postController.Profile)
	posts.GET("/:post_id/", postController.PostDetail)

	posts.GET("/follow/", login, followController.FollowIndex)
	posts.GET("/profile/:username/follow/", login, followController.ProfileFollow)
	posts.GET("/profile/:username/unfollow/", login, followController.ProfileUnfollow)

	posts.GET("/create/", login, postController.PostCreateForm)
	posts.POST("/create/", login, writeLimiter, postController.PostCreate)
	posts.GET("/:post_id/edit/", login, postController.PostEditForm)
	posts.POST("/:post_id/edit/", login, writeLimiter, postController.PostEdit)
	posts.POST("/:post_id/comment/", login, writeLimiter, postController.AddComment)

	auth := r.Group("/auth")
	auth.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())
	auth.POST("/signup/", authController.Signup)
	auth.GET("/login/", authController.LoginForm)
	auth.POST("/login/", authController.Login)
	auth.POST("/logout/", login, authController.Logout)
	auth.GET("/oauth/:provider/login/", authController.OAuthRedirect)
	auth.GET("/oauth/:provider/callback/", authController.OAuthCallback)

	admin := r.Group("/admin", middleware.AdminRequired(repos.Users))
	admin.POST("/groups/", adminController.CreateGroup)
	admin.POST("/posts/:post_id/delete/", adminController.DeletePost)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
