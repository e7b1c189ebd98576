package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/priceping/priceping/internal/config/api"
	"github.com/priceping/priceping/internal/monitoring/fetch"
	"github.com/priceping/priceping/internal/obs"
	pg "github.com/priceping/priceping/internal/repository/postgres"
	"github.com/priceping/priceping/internal/services/api"
	checkworker "github.com/priceping/priceping/internal/services/check-worker"
	workerrepo "github.com/priceping/priceping/internal/services/check-worker/repo"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func buildServer(cfg *config.Config, db *pg.DB, l *zap.Logger) *http.Server {
	monitors := pg.NewMonitorRepo(db)
	events := pg.NewEventRepo(db)
	fetcher := fetch.New(fetch.Config{
		Timeout:            cfg.Fetch.Timeout,
		UserAgent:          cfg.Fetch.UserAgent,
		MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
		FollowRedirects:    cfg.Fetch.FollowRedirects,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
	})

	// The synchronous cron path reuses the worker's check handler; outbox
	// rows it writes are drained by the check-worker's outbox runner.
	checker := &checkworker.Handler{
		Monitors:   workerrepo.Monitors{R: monitors},
		Events:     workerrepo.Events{R: events},
		Outbox:     pg.NewOutboxRepo(db),
		Transactor: pg.NewTransactor(db, l),
		Fetcher:    fetcher,
		Clock:      systemClock{},
		Log:        l,
	}

	srv := &api.Server{
		Log:      l,
		Monitors: api.NewMonitorUsecase(monitors, events, nil),
		Cron: &api.CronUsecase{
			Monitors:    monitors,
			Checker:     checker,
			Log:         l,
			Concurrency: cfg.Cron.Concurrency,
			Budget:      cfg.Cron.Budget,
		},
		Pages:     fetcher,
		CronToken: cfg.Cron.Token,
	}

	root := http.NewServeMux()
	root.Handle("/", srv.Routes())
	root.Handle("/metrics", obs.MetricsHandler())
	root.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := db.Pool.Ping(hctx); err != nil {
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		// The cron endpoint can legitimately run for minutes; per-request
		// budgets are enforced inside the handler instead.
		WriteTimeout: 0,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(*cfg.Log.AsLoggerConfig(&cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	if cfg.Cron.Token == "" {
		l.Warn("cron.token is empty; /v1/cron/check will reject every request")
	}

	httpSrv := buildServer(cfg, db, l)

	errCh := make(chan error, 1)
	go func() {
		l.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		errCh <- httpSrv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			l.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	l.Info("bye")
}
