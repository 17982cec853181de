package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-master/internal/analytics"
	"quiz-master/internal/auth"
	"quiz-master/internal/exports"
	"quiz-master/internal/jobs"
	"quiz-master/internal/middleware"
	"quiz-master/internal/quiz"
	"quiz-master/internal/scheduler"
	"quiz-master/internal/server"
	"quiz-master/pkg/cache"
	"quiz-master/pkg/database"
	"quiz-master/pkg/logger"
	"quiz-master/pkg/websocket"
)

const (
	queueDrainTimeout    = 30 * time.Second
	rateLimitIdleTimeout = 10 * time.Minute
)

func serveCmd(envFile *string) *cobra.Command {
	var migrate bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, job workers and mail scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.close()

			if migrate {
				if err := database.Migrate(a.db); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	c.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return c
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	dir, err := a.artifactDir()
	if err != nil {
		return err
	}
	reportService := a.reportService(dir)

	// Nothing is running yet, so a bad cron expression needs no cleanup.
	sched, err := scheduler.New(reportService, scheduler.Config{
		ReminderSpec:      cfg.ReminderCron,
		MonthlyReportSpec: cfg.MonthlyReportCron,
	}, logger.Component(a.log, "scheduler"))
	if err != nil {
		return err
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisDB)
	defer redisCache.Close()

	quizService := quiz.NewService(quiz.NewRepository(a.db), redisCache, cfg.CatalogCacheTTL, logger.Component(a.log, "quiz"))
	analyticsService := analytics.NewService(analytics.NewRepository(a.db), logger.Component(a.log, "analytics"))
	exportService := a.exportService(dir)

	hub := websocket.NewHub(func(token string) (uint, error) {
		identity, err := auth.ParseToken(cfg.JWTSecret, token)
		return identity.UserID, err
	}, nil, logger.Component(a.log, "websocket"))

	queue := jobs.NewQueue(
		jobs.NewRedisStore(redisCache, cfg.JobResultTTL),
		hub,
		jobs.Options{Workers: cfg.JobWorkers, Size: cfg.JobQueueSize},
		logger.Component(a.log, "jobs"),
	)
	registerJobHandlers(queue, exportService, reportService)
	queue.Start()
	sched.Start()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger.Component(a.log, "ratelimit"))
	httpLog := logger.Component(a.log, "http")

	router := server.NewRouter(server.Deps{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins(),
		Quiz:           quiz.NewHandler(quizService, httpLog),
		Analytics:      analytics.NewHandler(analyticsService, httpLog),
		Jobs:           jobs.NewHandler(queue, httpLog),
		Exports:        exports.NewHandler(exportService, httpLog),
		Hub:            hub,
		RateLimiter:    limiter,
		Health: map[string]server.HealthCheck{
			"database": a.ping,
			"redis":    redisCache.Ping,
		},
		Log: httpLog,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		limiter.RunCleanup(gctx, rateLimitIdleTimeout)
		return nil
	})
	g.Go(func() error {
		return server.Serve(gctx, cfg.HTTPAddr, router, httpLog)
	})

	serveErr := g.Wait()

	sched.Stop()
	drainCtx, cancel := context.WithTimeout(context.Background(), queueDrainTimeout)
	defer cancel()
	if err := queue.Shutdown(drainCtx); err != nil {
		a.log.WithError(err).Warn("Job queue did not drain")
	}
	return serveErr
}
