package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mas-api/api/swagger"
	"github.com/noah-isme/mas-api/internal/handler"
	"github.com/noah-isme/mas-api/internal/middleware"
	"github.com/noah-isme/mas-api/internal/models"
	"github.com/noah-isme/mas-api/internal/repository"
	"github.com/noah-isme/mas-api/internal/service"
	"github.com/noah-isme/mas-api/pkg/cache"
	"github.com/noah-isme/mas-api/pkg/config"
	"github.com/noah-isme/mas-api/pkg/database"
	"github.com/noah-isme/mas-api/pkg/jobs"
	"github.com/noah-isme/mas-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mas-api/pkg/middleware/requestid"
	"github.com/noah-isme/mas-api/pkg/storage"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logr := a.cfg, a.log

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		m, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			return err
		}
		logr.Info("database migrated")
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	blobs, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		return err
	}

	router := buildRouter(ctx, cfg, logr, db, redisClient, blobs)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildRouter(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, blobs *storage.LocalStorage) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Cache.HistoryTTL, logr, redisClient != nil)

	masRepo := repository.NewMASRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	auth := service.NewAuthService(repository.NewUserRepository(db), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	removals := jobs.New("attachment-removal", func(ctx context.Context, ref string) error {
		return blobs.Delete(ref)
	}, jobs.Config{Workers: 2, Backoff: 2 * time.Second, Logger: logr})
	removals.Start(ctx)
	go func() {
		<-ctx.Done()
		removals.Stop()
	}()

	attachments := service.NewAttachmentService(
		blobs,
		storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL),
		service.AttachmentConfig{
			APIPrefix:    cfg.APIPrefix,
			MaxBytes:     cfg.Attachments.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Attachments.AllowedMIMEs,
		},
		logr,
		service.WithRemovalQueue(removals),
		service.WithAttachmentMetrics(metrics),
	)
	masSvc := service.NewMASService(
		masRepo,
		catalogRepo,
		assignmentRepo,
		database.NewTransactor(db),
		service.NewActivityService(repository.NewActivityLogRepository(db), logr),
		attachments,
		logr,
		service.WithMASCache(cacheSvc, cfg.Cache.HistoryTTL),
		service.WithMASMetrics(metrics),
	)
	optionSvc := service.NewOptionService(catalogRepo, assignmentRepo, masRepo, cacheSvc, cfg.Cache.OptionsTTL, logr)

	masHandler := handler.NewMASHandler(masSvc, service.NewExportService(masSvc, logr))
	optionHandler := handler.NewOptionHandler(optionSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachments)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"redis": func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		},
	}, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/attachments/:token", attachmentHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	vendorOnly := middleware.RequireUserTypes(models.UserTypeVendor)
	mas := secured.Group("/mas")
	{
		mas.GET("", masHandler.List)
		mas.POST("", vendorOnly, masHandler.Create)
		mas.GET("/:id", masHandler.Get)
		mas.PUT("/:id", vendorOnly, masHandler.Edit)
		mas.POST("/:id/review", middleware.RequireUserTypes(models.UserTypeTeam, models.UserTypeAdmin), masHandler.Review)
		mas.POST("/:id/approval", middleware.RequireUserTypes(models.UserTypeTeam, models.UserTypeAdmin), masHandler.Approve)
		mas.POST("/:id/revisions", vendorOnly, masHandler.Revise)
		mas.GET("/:id/history", masHandler.History)
		mas.GET("/:id/history/export", masHandler.ExportHistory)
		mas.GET("/:id/attachment", masHandler.AttachmentLink)
	}

	options := secured.Group("/options", vendorOnly)
	{
		options.GET("/buildings", optionHandler.Buildings)
		options.GET("/services", optionHandler.Services)
		options.GET("/items", optionHandler.Items)
		options.GET("/makes", optionHandler.Makes)
	}

	return r
}
