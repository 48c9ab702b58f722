package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/agencysite/config"
	"github.com/cppla/agencysite/controllers"
	"github.com/cppla/agencysite/middleware"
	"github.com/cppla/agencysite/uploads"
	"github.com/cppla/agencysite/utils"
)

// Deps carries everything the router wires into controllers.
type Deps struct {
	Config    config.AppConfig
	DB        *gorm.DB
	Cache     *utils.Cache
	Issuer    *utils.TokenIssuer
	Blacklist *utils.TokenBlacklist
	// LoginGuard may be nil to disable lockouts.
	LoginGuard *utils.LoginGuard
	Uploads    *uploads.Service
	// UploadsRoot is the local directory mounted at /uploads. Empty streams files through Uploads instead.
	UploadsRoot string
	// AccessLog receives one line per request; nil falls back to utils.Logger.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = d.Uploads.MaxSize() + 1<<20
	accessLog := d.AccessLog
	if accessLog == nil {
		accessLog = utils.Logger
	}
	r.Use(middleware.RequestID())
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	uploadController := controllers.NewUploadController(d.Uploads)
	files := r.Group("/"+uploads.PathPrefix, controllers.RequireServableUpload)
	if d.UploadsRoot != "" {
		files.Static("/", d.UploadsRoot)
	} else {
		files.GET("/*filepath", uploadController.ServeFile)
		files.HEAD("/*filepath", uploadController.ServeFile)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.DB, d.Issuer, d.Blacklist, d.LoginGuard)
	blogController := controllers.NewBlogController(d.DB, d.Cache)
	contactController := controllers.NewContactController(d.DB)
	languageController := controllers.NewLanguageController(d.DB, d.Cache)
	translationController := controllers.NewTranslationController(d.DB, d.Cache)
	statsController := controllers.NewStatsController(d.DB, d.Uploads)
	configController := controllers.NewConfigController(d.Uploads.MaxSize())

	requireAuth := middleware.AuthRequired(d.Issuer, d.Blacklist)
	optionalAuth := middleware.OptionalAuth(d.Issuer, d.Blacklist)
	contactLimit := middleware.RateLimitMiddleware(cfg.ContactRateLimitPerMinute)
	loginLimit := middleware.RateLimitMiddleware(cfg.LoginRateLimitPerMinute)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	uploadGroup := api.Group("/upload")
	uploadGroup.POST("", uploadController.Upload)
	uploadGroup.GET("/files", uploadController.ListFiles)
	uploadGroup.PUT("/files/:filename/rename", uploadController.RenameFile)
	uploadGroup.DELETE("/files/:filename", uploadController.DeleteFile)

	api.GET("/config/uploads", configController.GetUploadConfig)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", loginLimit, authController.Login)
	authGroup.POST("/logout", requireAuth, authController.Logout)
	authGroup.GET("/me", requireAuth, authController.Me)

	blog := api.Group("/blog")
	blog.GET("", optionalAuth, blogController.ListPosts)
	blog.GET("/:slug", optionalAuth, blogController.GetPost)
	blog.POST("", requireAuth, blogController.CreatePost)
	blog.PUT("/:id", requireAuth, blogController.UpdatePost)
	blog.DELETE("/:id", requireAuth, blogController.DeletePost)

	contacts := api.Group("/contacts")
	contacts.POST("", contactLimit, contactController.Submit)
	contacts.GET("", requireAuth, contactController.ListContacts)
	contacts.GET("/:id", requireAuth, contactController.GetContact)
	contacts.PATCH("/:id/status", requireAuth, contactController.UpdateStatus)
	contacts.DELETE("/:id", requireAuth, contactController.DeleteContact)

	languages := api.Group("/languages")
	languages.GET("", languageController.ListLanguages)
	languages.POST("", requireAuth, languageController.CreateLanguage)
	languages.PUT("/:id", requireAuth, languageController.UpdateLanguage)
	languages.DELETE("/:id", requireAuth, languageController.DeleteLanguage)

	translations := api.Group("/translations")
	translations.GET("", requireAuth, translationController.ListTranslations)
	translations.GET("/:lang", translationController.Dictionary)
	translations.POST("", requireAuth, translationController.CreateTranslation)
	translations.PUT("/:id", requireAuth, translationController.UpdateTranslation)
	translations.DELETE("/:id", requireAuth, translationController.DeleteTranslation)

	api.GET("/stats", requireAuth, statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/"+uploads.PathPrefix+"/") {
			utils.Error(ctx, http.StatusNotFound, "Not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, "Route not found")
	})

	return r
}
