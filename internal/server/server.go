package server

import (
	"context"
	"net/http"
	"strings"

	"taskshare/internal/cache"
	"taskshare/internal/config"
	"taskshare/internal/handlers"
	"taskshare/internal/middleware"
	"taskshare/internal/monitoring"
	"taskshare/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the router is built from. Cache is optional;
// without it stats are not cached and logout cannot deny-list tokens.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  cache.Cache
}

type Server struct {
	Engine   *gin.Engine
	Sessions *services.SessionManager
	Tasks    services.TaskService
}

func New(deps Deps) *Server {
	cfg := deps.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions := services.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, deps.Cache)

	var taskService services.TaskService = services.NewTaskService(deps.DB)
	var cached *services.CachedTaskService
	var onAccountDeleted func(ctx context.Context, userID uint)
	if deps.Cache != nil {
		cached = services.NewCachedTaskService(taskService, deps.Cache, cfg.Redis.StatsTTL)
		taskService = cached
		onAccountDeleted = cached.InvalidateUser
	}

	authService := services.NewAuthService(deps.DB, cfg.Auth.BCryptCost)
	categoryService := services.NewCategoryService(deps.DB)
	tagService := services.NewTagService(deps.DB)
	sharingService := services.NewSharingService(deps.DB)

	authHandler := handlers.NewAuthHandler(authService, sessions, handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	}).OnAccountDeleted(onAccountDeleted)
	taskHandler := handlers.NewTaskHandler(taskService, categoryService)
	labelHandler := handlers.NewLabelHandler(categoryService, tagService)
	sharingHandler := handlers.NewSharingHandler(sharingService)

	registerHealthChecks(deps)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryWithLog())
	r.Use(monitoring.MetricsMiddleware())
	r.Use(apiCORS(cfg.CORS))
	r.Use(middleware.SessionAuth(sessions, authService, cfg.Auth.CookieName))

	r.GET("/health", monitoring.HealthHandler())
	r.GET("/health/ready", monitoring.ReadinessHandler())
	r.GET("/health/live", monitoring.LivenessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())
	if cached != nil {
		r.GET("/metrics/cache", func(c *gin.Context) {
			c.JSON(http.StatusOK, cached.GetCacheStats())
		})
	}

	r.GET("/", authHandler.Index)
	r.GET("/register", authHandler.RegisterPage)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.LoginPage)
	r.POST("/login", authHandler.Login)

	protected := r.Group("/")
	protected.Use(middleware.AuthRequired())
	{
		protected.GET("/logout", authHandler.Logout)
		protected.GET("/account", authHandler.Account)
		protected.POST("/account/delete", authHandler.DeleteAccount)

		protected.GET("/dashboard", taskHandler.Dashboard)
		protected.GET("/calendar", taskHandler.Calendar)
		protected.GET("/shared-with-me", taskHandler.SharedWithMe)

		protected.GET("/task/add", taskHandler.AddPage)
		protected.POST("/task/add", taskHandler.Add)
		protected.GET("/task/:id", taskHandler.View)
		protected.GET("/task/edit/:id", taskHandler.EditPage)
		protected.POST("/task/edit/:id", taskHandler.Edit)
		protected.GET("/task/delete/:id", taskHandler.Delete)
		protected.GET("/task/toggle/:id", taskHandler.Toggle)

		protected.GET("/task/:id/share", sharingHandler.SharePage)
		protected.POST("/task/:id/share", sharingHandler.Share)
		protected.POST("/task/:id/share/:userId", sharingHandler.UpdatePermission)
		protected.GET("/task/:id/revoke/:userId", sharingHandler.Revoke)

		protected.GET("/categories", labelHandler.Categories)
		protected.GET("/category/add", labelHandler.CategoryForm)
		protected.POST("/category/add", labelHandler.AddCategory)
		protected.GET("/category/edit/:id", labelHandler.CategoryForm)
		protected.POST("/category/edit/:id", labelHandler.EditCategory)
		protected.GET("/category/delete/:id", labelHandler.DeleteCategory)

		protected.GET("/tags", labelHandler.Tags)
		protected.GET("/tag/add", labelHandler.TagForm)
		protected.POST("/tag/add", labelHandler.AddTag)
		protected.GET("/tag/edit/:id", labelHandler.TagForm)
		protected.POST("/tag/edit/:id", labelHandler.EditTag)
		protected.GET("/tag/delete/:id", labelHandler.DeleteTag)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		api.POST("/tasks/quick-add", taskHandler.QuickAdd)
		api.GET("/tasks/search", taskHandler.Search)
	}

	return &Server{Engine: r, Sessions: sessions, Tasks: taskService}
}

// apiCORS applies the CORS policy to /api only. It sits on the engine rather
// than the group so preflight requests, which match no route, still get it.
func apiCORS(cfg config.CORSConfig) gin.HandlerFunc {
	handler := cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			handler(c)
		}
	}
}

func registerHealthChecks(deps Deps) {
	monitoring.RegisterHealthCheck("database", true, func(ctx context.Context) error {
		sqlDB, err := deps.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	if deps.Cache != nil {
		monitoring.RegisterHealthCheck("redis", false, deps.Cache.Health)
	} else {
		monitoring.UnregisterHealthCheck("redis")
	}
}

func (s *Server) HTTPServer(cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      s.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
