package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/priceping/priceping/internal/config/check-worker"
	"github.com/priceping/priceping/internal/monitoring/fetch"
	"github.com/priceping/priceping/internal/obs"
	"github.com/priceping/priceping/internal/obs/retry"
	"github.com/priceping/priceping/internal/outbox"
	"github.com/priceping/priceping/internal/repository/kafka"
	pg "github.com/priceping/priceping/internal/repository/postgres"
	checkworker "github.com/priceping/priceping/internal/services/check-worker"
	workerrepo "github.com/priceping/priceping/internal/services/check-worker/repo"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func wire(cfg *config.Config, db *pg.DB, events *kafka.MonitorEventsKafka, cons *kafka.Consumer, l *zap.Logger) (*outbox.Runner, *checkworker.Controller) {
	outboxRepo := pg.NewOutboxRepo(db)
	transactor := pg.NewTransactor(db, l)

	dispatch := outbox.MakeGlobalOutboxHandler(events, retry.DefaultKafkaPolicy(l))
	outboxRunner := outbox.NewRunner(
		l,
		outboxRepo,
		dispatch,
		cfg.Outbox.Workers,
		cfg.Outbox.BatchSize,
		cfg.Outbox.WaitTime,
		cfg.Outbox.InProgressTTL,
	)

	fetcher := fetch.New(fetch.Config{
		Timeout:            cfg.Fetch.Timeout,
		UserAgent:          cfg.Fetch.UserAgent,
		MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
		FollowRedirects:    cfg.Fetch.FollowRedirects,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
	})

	uc := &checkworker.Handler{
		Monitors:   workerrepo.Monitors{R: pg.NewMonitorRepo(db)},
		Events:     workerrepo.Events{R: pg.NewEventRepo(db)},
		Outbox:     outboxRepo,
		Transactor: transactor,
		Fetcher:    fetcher,
		Clock:      systemClock{},
		Log:        l,
	}

	return outboxRunner, &checkworker.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "priceping/check-worker"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	otelCloser, err := obs.SetupOTel(root, &cfg.OTEL)
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(root, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	cons := kafka.BootstrapConsumer(root, cfg.In.AsConsumerConfig(), l).WithLogger(l)
	defer func() { _ = cons.Close() }()

	prod := kafka.NewProducer(cfg.Out.Brokers, cfg.Out.Topic).WithLogger(l)
	defer func() { _ = prod.Close() }()

	// The worker never emits check requests itself, only value changes.
	events := kafka.NewMonitorEventsKafka(nil, prod)

	outboxRunner, ctrl := wire(cfg, db, events, cons, l)

	outboxRunner.Start(root)
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(root) }()

	l.Info("check-worker started",
		zap.Any("kafka_in", cfg.In),
		zap.Any("kafka_out", cfg.Out),
	)

	select {
	case <-root.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("controller error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
