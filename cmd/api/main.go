package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/config"
	"github.com/sitewand/sitewand-backend/internal/handler"
	"github.com/sitewand/sitewand-backend/internal/middleware"
	"github.com/sitewand/sitewand-backend/internal/migration"
	"github.com/sitewand/sitewand-backend/internal/repository"
	"github.com/sitewand/sitewand-backend/internal/routes"
	"github.com/sitewand/sitewand-backend/internal/service"
	pkgcache "github.com/sitewand/sitewand-backend/pkg/cache"
	"github.com/sitewand/sitewand-backend/pkg/jwt"
	pkglogger "github.com/sitewand/sitewand-backend/pkg/logger"
	pkgredis "github.com/sitewand/sitewand-backend/pkg/redis"
)

// @title           Sitewand Backend API
// @version         1.0
// @description     Natural-language website editing backend
//
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.Init(env)
	pkglogger.Get().Info().
		Str("env", env).
		Strs("env_files", dotenvFiles).
		Msg("starting")

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Get().Warn().Err(err).Msg("redis unavailable, continuing without cache and rate limiting")
		redisClient = nil
	}
	cacheService := pkgcache.NewService(redisClient)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories
	siteRepo := repository.NewSiteRepository(db)
	pageRepo := repository.NewPageRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	linkRepo := repository.NewMagicLinkRepository(db)
	recordRepo := repository.NewEditRecordRepository(db)

	// Services
	linkService := service.NewMagicLinkService(linkRepo, siteRepo)
	gateService := service.NewGateService(recordRepo)
	interpreter := service.NewInterpreter(
		cfg.Interpreter.BaseURL,
		cfg.Interpreter.APIKey,
		cfg.Interpreter.Model,
	)
	editService := service.NewEditService(
		siteRepo, pageRepo, recordRepo,
		linkService, gateService, interpreter, cacheService,
	)

	// Handlers
	auditLogger := middleware.NewAuditLogger(db)
	editHandler := handler.NewEditHandler(editService, auditLogger)
	linkHandler := handler.NewMagicLinkHandler(linkService, siteRepo, auditLogger)
	pageHandler := handler.NewPageHandler(pageRepo, revisionRepo, cacheService)

	if env != "development" && env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	allowOrigins := os.Getenv("CORS_ALLOW_ORIGINS")
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.MagicTokenHeader, "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           86400,
	}))

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	if redisClient != nil {
		router.Use(middleware.RateLimit(redisClient, middleware.DefaultRateLimitConfig()))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "sitewand-backend",
			"time":    time.Now().Unix(),
		})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Setup(router, editHandler, linkHandler, pageHandler, jwtManager, linkService, siteRepo, redisClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pkglogger.Get().Info().Str("addr", addr).Msg("server listening")
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
