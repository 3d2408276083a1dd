// Package main runs the CrowdStack HTTP API with the live door feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crowdstack/backend/config"
	"github.com/crowdstack/backend/internal/access"
	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/closeout"
	"github.com/crowdstack/backend/internal/emaillogs"
	"github.com/crowdstack/backend/internal/events"
	"github.com/crowdstack/backend/internal/health"
	"github.com/crowdstack/backend/internal/members"
	"github.com/crowdstack/backend/internal/middleware"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/internal/organizers"
	"github.com/crowdstack/backend/internal/promoters"
	"github.com/crowdstack/backend/internal/realtime"
	"github.com/crowdstack/backend/internal/registrations"
	"github.com/crowdstack/backend/internal/venues"
	"github.com/crowdstack/backend/internal/worker"
	"github.com/crowdstack/backend/pkg/database"
	"github.com/crowdstack/backend/pkg/email"
	"github.com/crowdstack/backend/pkg/queue"
	"github.com/crowdstack/backend/pkg/redis"
	"github.com/crowdstack/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Pool(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisOptions(), logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Flyer uploads are disabled without a region; everything else still works.
	var flyers events.ObjectStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Endpoint:             cfg.AWS.Endpoint,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			flyers = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	passService := registrations.NewPassService(cfg.Pass.Secret, cfg.Pass.GraceDays)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	resolver := access.NewResolver(access.NewPgStore(pool), logger)
	session := middleware.SessionConfig{JWT: jwtService, CookieName: cfg.JWT.CookieName, Roles: resolver}

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, auth.CookieConfig{Name: cfg.JWT.CookieName, Secure: cfg.Server.CookieSecure}, logger)

	// Tenants
	organizerHandler := organizers.NewHandler(organizers.NewRepository(pool), logger)
	venueHandler := venues.NewHandler(venues.NewRepository(pool), logger)
	organizerMembers := members.NewHandler(members.NewRepository(pool, members.OrganizerUsers), logger)
	venueMembers := members.NewHandler(members.NewRepository(pool, members.VenueUsers), logger)

	// Events and door
	eventHandler := events.NewHandler(events.NewRepository(pool), resolver, flyers, logger)
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, resolver, passService, jobQueue, hub, logger)

	// Money
	promoterHandler := promoters.NewHandler(promoters.NewRepository(pool), logger)
	closeoutHandler := closeout.NewHandler(closeout.NewRepository(pool), resolver, hub, logger)

	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, registrationRepo, jobQueue, logger)

	authorizeFeed := func(ctx context.Context, token string, eventID uuid.UUID) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, realtime.ErrUnauthenticated
		}
		if !resolver.ResolveUser(ctx, claims.UserID, access.Event(eventID), models.CapManageDoor).Granted {
			return uuid.Nil, realtime.ErrForbidden
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	healthHandler := health.NewHandler(map[string]health.Probe{
		"postgres": pool.Ping,
		"redis":    rdb.Check,
	}, 2*time.Second, logger)
	router.GET("/health", healthHandler.Check)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", middleware.Session(session), authHandler.Me)
	}

	// Public: event discovery and registration
	public := router.Group("")
	public.Use(middleware.OptionalSession(session))
	{
		public.GET("/events", eventHandler.ListPublic)
		public.GET("/events/:id", eventHandler.Get)
		public.POST("/events/:id/register", registrationHandler.Register)
	}

	// Protected API (session required)
	api := router.Group("")
	api.Use(middleware.Session(session))
	{
		admin := api.Group("/admin", middleware.RequireRole(models.RoleSuperadmin))
		admin.GET("/users", authHandler.List)
		admin.POST("/users/:id/roles", authHandler.GrantRole)
		admin.DELETE("/users/:id/roles/:role", authHandler.RevokeRole)

		// Organizers
		api.POST("/organizers", organizerHandler.Create)
		api.GET("/organizers", organizerHandler.ListMine)
		api.GET("/organizers/:id", organizerHandler.Get)
		api.PUT("/organizers/:id", resolver.Require(access.KindOrganizer, "id", models.CapEditEvents), organizerHandler.Update)
		api.GET("/organizers/:id/events", resolver.Require(access.KindOrganizer, "id", models.CapEditEvents), eventHandler.ListByOrganizer)
		api.GET("/organizers/:id/members", resolver.RequireAny(access.KindOrganizer, "id", models.CapViewReports, models.CapManageUsers), organizerMembers.List)
		api.POST("/organizers/:id/members", resolver.Require(access.KindOrganizer, "id", models.CapManageUsers), organizerMembers.Add)
		api.PUT("/organizers/:id/members/:user_id", resolver.Require(access.KindOrganizer, "id", models.CapManageUsers), organizerMembers.Update)
		api.DELETE("/organizers/:id/members/:user_id", resolver.Require(access.KindOrganizer, "id", models.CapManageUsers), organizerMembers.Remove)

		// Venues
		api.POST("/venues", venueHandler.Create)
		api.GET("/venues", venueHandler.ListMine)
		api.GET("/venues/:id", venueHandler.Get)
		api.PUT("/venues/:id", resolver.Require(access.KindVenue, "id", models.CapEditVenue), venueHandler.Update)
		api.GET("/venues/:id/pending-events", resolver.Require(access.KindVenue, "id", models.CapApproveEvents), venueHandler.PendingEvents)
		api.GET("/venues/:id/members", resolver.RequireAny(access.KindVenue, "id", models.CapViewReports, models.CapManageUsers), venueMembers.List)
		api.POST("/venues/:id/members", resolver.Require(access.KindVenue, "id", models.CapManageUsers), venueMembers.Add)
		api.PUT("/venues/:id/members/:user_id", resolver.Require(access.KindVenue, "id", models.CapManageUsers), venueMembers.Update)
		api.DELETE("/venues/:id/members/:user_id", resolver.Require(access.KindVenue, "id", models.CapManageUsers), venueMembers.Remove)

		// Events
		api.POST("/events", eventHandler.Create)
		api.PATCH("/events/:id", resolver.Require(access.KindEvent, "id", models.CapEditEvents), eventHandler.Update)
		api.POST("/events/:id/venue-approval", eventHandler.VenueApproval)
		api.POST("/events/:id/transfer", resolver.Require(access.KindEvent, "id", models.CapFullAdmin), eventHandler.Transfer)
		api.POST("/events/:id/flyer", resolver.Require(access.KindEvent, "id", models.CapEditEvents), eventHandler.UploadFlyer)
		api.GET("/events/:id/flyer/download", resolver.Require(access.KindEvent, "id", models.CapEditEvents), eventHandler.FlyerDownload)

		// Registrations and door
		api.GET("/events/:id/registrations", resolver.Require(access.KindEvent, "id", models.CapViewReports), registrationHandler.List)
		api.POST("/events/:id/checkins", resolver.Require(access.KindEvent, "id", models.CapManageDoor), registrationHandler.CheckIn)
		api.GET("/events/:id/checkins/stats", resolver.Require(access.KindEvent, "id", models.CapManageDoor), registrationHandler.Stats)
		api.POST("/checkins/:id/undo", registrationHandler.Undo)

		// Email log
		api.GET("/events/:id/emails", resolver.Require(access.KindEvent, "id", models.CapViewReports), emailLogsHandler.ListByEvent)
		api.POST("/events/:id/emails/resend", resolver.Require(access.KindEvent, "id", models.CapEditEvents), emailLogsHandler.Resend)

		// Promoters
		api.POST("/promoters", promoterHandler.Signup)
		api.GET("/promoters/me", promoterHandler.Me)
		api.GET("/promoters/me/payouts", promoterHandler.MyPayouts)
		api.POST("/events/:id/promoters", resolver.Require(access.KindEvent, "id", models.CapManagePromoters), promoterHandler.Assign)
		api.GET("/events/:id/promoters", resolver.Require(access.KindEvent, "id", models.CapManagePromoters), promoterHandler.ListForEvent)
		api.GET("/events/:id/commissions", resolver.Require(access.KindEvent, "id", models.CapViewReports), promoterHandler.Commissions)

		// Closeout and payouts
		api.POST("/events/:id/closeout", resolver.Require(access.KindEvent, "id", models.CapCloseoutEvents), closeoutHandler.Close)
		api.GET("/events/:id/closeout", resolver.Require(access.KindEvent, "id", models.CapViewReports), closeoutHandler.Summary)
		api.POST("/payouts/:id/mark-paid", closeoutHandler.MarkPaid)
	}

	// Live door feed (token in query or session cookie)
	router.GET("/ws", realtime.ServeWs(hub, logger, cfg.JWT.CookieName, authorizeFeed))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Optional in-process email worker for single-node deployments
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Email.InlineWorker {
		sender, err := email.New(ctx, cfg.Mail(), logger)
		if err != nil {
			logger.Fatal("email sender", zap.Error(err))
		}
		go worker.NewEmailProcessor(sender, emailLogsRepo, jobQueue, logger).RunPool(workerCtx, cfg.Email.Concurrency)
		logger.Info("email worker started", zap.String("provider", cfg.Email.Provider))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
