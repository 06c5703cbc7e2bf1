package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"scrape-portal/internal/app"
	"scrape-portal/internal/auth"
	"scrape-portal/internal/config"
	"scrape-portal/internal/database"
	"scrape-portal/internal/handlers"
	"scrape-portal/internal/logger"
	"scrape-portal/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %+v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid server configuration: %+v", err)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.JSON); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(cfg.DB)
	if err != nil {
		logger.Logger.Fatalw("Failed to connect to database", "error", err)
	}

	if err := database.MigrateDB(db); err != nil {
		logger.Logger.Fatalw("Failed to migrate database", "error", err)
	}
	submissions := database.NewSubmissionStore(db)

	jwt, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Logger.Fatalw("Failed to initialize auth", "error", err)
	}

	a, err := app.New(context.Background(), cfg, submissions)
	if err != nil {
		logger.Logger.Fatalw("Failed to initialize backends", "error", err)
	}
	defer a.Close()

	cookie := handlers.Cookie{Domain: cfg.Auth.CookieDomain, Secure: cfg.Auth.CookieSecure}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.SubmitPerMinute, cfg.RateLimit.Burst)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigin))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	public := r.Group("/api")
	{
		public.POST("/register", handlers.Register(db, jwt, cookie))
		public.POST("/login", handlers.Login(db, jwt, cookie))
		public.POST("/logout", handlers.Logout(cookie))
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwt))
	{
		protected.GET("/profile", handlers.GetProfile(db))
		protected.POST("/jobs", limiter.Middleware(), handlers.SubmitJob(a.Submitter))
		protected.GET("/jobs", handlers.ListJobs(a.Lister))
		protected.GET("/jobs/history", handlers.GetHistory(submissions))
		protected.GET("/results", handlers.ListResults(a.Catalog))
		protected.GET("/results/*name", handlers.ViewResult(a.Catalog))
		protected.GET("/download/*name", handlers.DownloadResult(a.Catalog))
	}

	logger.Logger.Infow("Server starting", "port", cfg.Port,
		"batch", cfg.Batch.Backend, "storage", cfg.Storage.Backend)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Logger.Fatalw("Failed to start server", "error", err)
	}
}
