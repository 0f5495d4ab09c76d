package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhsdevclub/ticktock-api/internal/auth"
	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/handler"
	"github.com/dhsdevclub/ticktock-api/internal/middleware"
	"github.com/dhsdevclub/ticktock-api/internal/repository"
	"github.com/dhsdevclub/ticktock-api/internal/service"
	"github.com/dhsdevclub/ticktock-api/pkg/cache"
	"github.com/dhsdevclub/ticktock-api/pkg/config"
	"github.com/dhsdevclub/ticktock-api/pkg/database"
	"github.com/dhsdevclub/ticktock-api/pkg/logger"
	corsmiddleware "github.com/dhsdevclub/ticktock-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dhsdevclub/ticktock-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connect failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connect failed", "error", err)
	}
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	overlayRepo := repository.NewOverlayRepository(db)
	cacheRepo := repository.NewCacheRepository(db)

	sessions := auth.NewSessionTokenStore(redisClient, logr)
	tokenInfo := auth.NewTokenInfoClient(nil, redisClient, cfg.Google.TokenInfoEndpoint, cfg.Google.TokenInfoCacheTTL, logr)
	verifier := auth.NewVerifier(tokenInfo, cfg.Google.AllowedClientIDs, sessions)

	calendarClients := &gcal.ServiceFactory{Endpoint: cfg.Google.CalendarEndpoint}

	metricsSvc := service.NewMetricsService()
	calendarSvc := service.NewCalendarService(overlayRepo, calendarClients, logr)
	eventSvc := service.NewEventService(overlayRepo, cacheRepo, calendarClients, cfg.Events.PageSize, metricsSvc, logr)
	gcSvc := service.NewGCService(userRepo, overlayRepo, calendarClients, sessions, metricsSvc, logr)

	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	gcHandler := handler.NewGCHandler(gcSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	authed := api.Group("")
	authed.Use(middleware.Auth(verifier, userRepo))
	{
		authed.GET("/calendars", calendarHandler.List)
		authed.GET("/calendars/:calendarId", calendarHandler.Get)
		authed.PATCH("/calendars/:calendarId", calendarHandler.Patch)
		authed.PUT("/calendars/:calendarId", calendarHandler.Put)
		authed.DELETE("/calendars/:calendarId", calendarHandler.Delete)

		authed.GET("/calendars/:calendarId/events", eventHandler.List)
		authed.PATCH("/calendars/:calendarId/events/:eventId", eventHandler.Patch)
		authed.DELETE("/calendars/:calendarId/events/:eventId", eventHandler.Reset)
	}

	if cfg.Google.ServiceAccountToken != "" {
		publicSvc := service.NewPublicService(calendarClients, cfg.Google.ServiceAccountToken, cfg.Events.PageSize)
		publicHandler := handler.NewPublicHandler(publicSvc)
		public := api.Group("/public")
		public.GET("/calendars", publicHandler.ListCalendars)
		public.GET("/calendars/:calendarId/events", publicHandler.ListEvents)
	}

	if cfg.GC.Enabled {
		r.POST("/internal/gc", gcHandler.Run)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
