package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/lodgeforms/internal/config"
	"github.com/parisxmas/lodgeforms/internal/db"
	"github.com/parisxmas/lodgeforms/internal/handler"
	"github.com/parisxmas/lodgeforms/internal/logging"
	"github.com/parisxmas/lodgeforms/internal/metrics"
	"github.com/parisxmas/lodgeforms/internal/notify"
	"github.com/parisxmas/lodgeforms/internal/repository"
	"github.com/parisxmas/lodgeforms/internal/router"
	"github.com/parisxmas/lodgeforms/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lodgeforms: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		GelfAddr: cfg.GelfAddr,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, checks, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Notification
	var sender notify.Sender
	if cfg.MailEnabled() {
		policy, err := notify.ParseTLSPolicy(cfg.SMTPTLS)
		if err != nil {
			return err
		}
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword.Value(),
			Timeout:   cfg.NotifyTimeout,
			TLSPolicy: policy,
		})
	} else {
		logger.Warn("SMTP_USERNAME not set; notifications will only be logged")
	}
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyTimeout, logger.Named("notify"), notify.WithObserver(m))

	// Services
	subSvc := service.NewSubmissionService(store, dispatcher, cfg.NotifyRecipient,
		service.WithCustomerConfirmation(cfg.ConfirmCustomer),
		service.WithMetrics(m),
		service.WithLogger(logger.Named("submissions")),
	)
	adminPassword := cfg.AdminPasswordHash.Value()
	if adminPassword == "" {
		adminPassword = cfg.AdminPassword.Value()
	}
	authSvc := service.NewAuthService(cfg.AdminUsername, adminPassword, cfg.JWTSecret.Value())

	// Router
	collectionFiles := []string{repository.BookingsCollection + ".json", repository.ContactsCollection + ".json"}
	deps := router.Deps{
		Submissions: handler.NewSubmissionHandler(subSvc, logger.Named("http")),
		Collections: handler.NewCollectionHandler(store, logger.Named("http")),
		Static:      handler.NewStaticHandler(cfg.StaticDir, collectionFiles...),
		Auth:        handler.NewAuthHandler(authSvc),
		Health:      handler.NewHealthHandler(checks),
		Metrics:     m,
		Logger:      logger.Named("http"),
	}
	if authSvc.Enabled() {
		deps.JWTSecret = authSvc.Secret()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Long enough for a slow SMTP round trip after the append.
		WriteTimeout: cfg.NotifyTimeout*2 + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
		ErrorLog:     zap.NewStdLog(logger.Named("http.server")),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("url", "http://"+cfg.Addr()),
			zap.String("store", cfg.Store),
			zap.Bool("mail", cfg.MailEnabled()),
			zap.Bool("admin", authSvc.Enabled()),
			zap.Strings("endpoints", []string{
				"POST " + service.BookingPath,
				"POST " + service.ContactPath,
				"GET /" + repository.BookingsCollection + ".json",
				"GET /" + repository.ContactsCollection + ".json",
			}),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore builds the configured record store, its health checks and a
// cleanup func.
func openStore(cfg *config.Config, logger *zap.Logger) (repository.RecordStore, map[string]handler.Check, func(), error) {
	if cfg.Store == config.StoreFile {
		s, err := repository.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("file store: %w", err)
		}
		logger.Info("using file store", zap.String("dir", cfg.DataDir))
		checks := map[string]handler.Check{
			"data_dir": func(context.Context) error {
				_, err := os.Stat(cfg.DataDir)
				return err
			},
		}
		return s, checks, func() {}, nil
	}

	addr := net.JoinHostPort(cfg.OxiDBHost, strconv.Itoa(cfg.OxiDBPort))
	pool, err := db.NewPool(addr, cfg.PoolSize, logger.Named("oxidb"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to OxiDB: %w", err)
	}
	logger.Info("connected to OxiDB", zap.String("addr", addr), zap.Int("pool_size", pool.Size()))
	store := repository.NewOxiStore(pool)

	// Index creation runs on its own connection so it never holds up the
	// request pool.
	go func() {
		initPool, err := db.NewPool(addr, 1, logger.Named("oxidb.init"))
		if err != nil {
			logger.Warn("init pool connect failed, using main pool", zap.Error(err))
			initPool = pool
		} else {
			defer initPool.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		start := time.Now()
		err = repository.NewOxiStore(initPool).EnsureIndexes(ctx, repository.BookingsCollection, repository.ContactsCollection)
		if err != nil {
			logger.Warn("index creation failed", zap.Error(err))
			return
		}
		logger.Info("indexes ready", zap.Duration("took", time.Since(start).Round(time.Millisecond)))
	}()

	checks := map[string]handler.Check{
		"oxidb": func(ctx context.Context) error {
			_, err := pool.Get().Ping(ctx)
			return err
		},
	}
	return store, checks, pool.Close, nil
}
