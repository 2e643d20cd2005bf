package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"stagelink/internal/app"
	"stagelink/internal/config"
	"stagelink/internal/database"
	apphttp "stagelink/internal/http"
	"stagelink/internal/http/handlers"
	httpmw "stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
	"stagelink/internal/lifecycle"
	"stagelink/internal/notify"
	"stagelink/internal/observability"
	"stagelink/internal/repository/postgres"
	"stagelink/internal/scheduler"
	"stagelink/internal/scope"
	"stagelink/internal/security"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger()
	db := database.NewPostgres(database.PostgresConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	}, logger)
	defer db.Close()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	resourceStore := postgres.NewResourceStore(db)
	userRepo := postgres.NewUserRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	shareRepo := postgres.NewShareRepository(db)

	engine := lifecycle.NewEngine(resourceStore)
	scoper := scope.NewScoper(resourceStore, engine.Guard())

	notifier := notify.NewInboxNotifier(notificationRepo, logger)
	dispatcher := notify.NewDispatcher(resourceStore, userRepo, notifier, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	companyService := app.NewCompanyService(resourceStore, engine, scoper, dispatcher)
	listingService := app.NewListingService(resourceStore, engine, scoper, dispatcher)
	timesheetService := app.NewTimesheetService(resourceStore, engine, scoper, dispatcher)
	employmentService := app.NewEmploymentService(resourceStore, engine, scoper, dispatcher)
	shareService := app.NewShareService(shareRepo, resourceStore, userRepo, engine.Guard(), dispatcher, cfg.PublicBaseURL)
	notificationService := app.NewNotificationService(notificationRepo)

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)
	authMiddleware := httpmw.NewAuthMiddleware(jwtProvider)

	var limiter httpmw.Limiter = httpmw.NewRateLimiter()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = httpmw.NewRedisLimiter(redisClient, logger)
		defer redisClient.Close()
	}

	metrics := observability.NewMetrics()
	response.SetErrorCounter(errorCounter{metrics})

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		CompanyHandler:      handlers.NewCompanyHandler(companyService),
		ListingHandler:      handlers.NewListingHandler(listingService),
		TimesheetHandler:    handlers.NewTimesheetHandler(timesheetService),
		EmploymentHandler:   handlers.NewEmploymentHandler(employmentService),
		ShareHandler:        handlers.NewShareHandler(shareService, limiter),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
		AuthMiddleware:      authMiddleware,
		Metrics:             metrics,
		Logger:              logger,
		RequestTimeout:      cfg.RequestTimeout,
	})

	if cfg.SchedulerEnabled {
		sched := scheduler.New(resourceStore, engine, dispatcher, logger)
		if err := sched.Start(); err != nil {
			log.Fatalf("scheduler start failed: %v", err)
		}
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

type errorCounter struct {
	metrics *observability.Metrics
}

func (c errorCounter) CountError(code string) {
	c.metrics.ErrorsTotal.WithLabelValues(code).Inc()
}
