// Package server initializes and runs the wallet server: it selects a
// storage backend, wires the ledger, compliance gate, guard and backup
// subsystems together, starts the background jobs and serves the HTTP API
// until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/m-usd/phonechain/internal/backup"
	"github.com/m-usd/phonechain/internal/compliance"
	"github.com/m-usd/phonechain/internal/guard"
	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/security"
	"github.com/m-usd/phonechain/internal/server/config"
	"github.com/m-usd/phonechain/internal/server/httpapi"
	"github.com/m-usd/phonechain/internal/storage/localstore"
	"github.com/m-usd/phonechain/internal/storage/pgstore"
	"github.com/m-usd/phonechain/internal/wallet"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	api     *httpapi.Server
	guard   *guard.Guard
	ledger  *ledger.Ledger
	backups *backup.Manager
	closeFn func() error
}

// NewApp wires the full dependency graph. The compliance gate and backup
// hook are installed at construction time; nothing re-wires the ledger
// after this point.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop{}
	}

	store, closeFn, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	led, err := ledger.New(ctx, ledger.Config{
		Hasher: security.HasherForScheme(c.PasswordScheme),
	}, store, logger)
	if err != nil {
		return nil, fmt.Errorf("ledger init error: %w", err)
	}

	comp := compliance.NewEngine(compliance.Config{
		Enabled:        c.ComplianceEnabled,
		SanctionsCheck: c.SanctionsCheck,
		FailOpen:       c.ComplianceFailOpen,
	}, logger)
	led.SetGate(comp)

	var uploader backup.Uploader
	if c.S3Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		uploader = up
	}

	backups := backup.NewManager(led, backup.Config{
		Retention: c.BackupRetention,
		Path:      c.BackupFile,
	}, logger, uploader)
	led.SetAfterWrite(func(ctx context.Context, doc *ledger.Document) {
		if _, err := backups.CreateFromDocument(ctx, doc); err != nil {
			logger.Error(ctx, "write snapshot failed", "error", err)
		}
	})

	g := guard.New(guard.DefaultConfig(), logger)
	svc := wallet.NewService(led, g, c.SessionTimeout, logger)

	api := httpapi.NewServer(svc, comp, backups,
		[]byte(c.SecretKey), c.AdminPassword, c.AdminTokenValidityDuration, logger)

	return &App{
		config:  c,
		logger:  logger,
		api:     api,
		guard:   g,
		ledger:  led,
		backups: backups,
		closeFn: closeFn,
	}, nil
}

// openStore picks PostgreSQL when a DSN is configured, the JSON file
// store otherwise.
func openStore(ctx context.Context, c *config.Config) (ledger.Store, func() error, error) {
	if c.DatabaseDSN != "" {
		pg, err := pgstore.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("db migration error: %w", err)
		}
		return pg, pg.Close, nil
	}
	return localstore.New(c.LedgerFile), nil, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.api.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.backups.Run(ctx, app.config.BackupInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.guard.RunScans(ctx, app.config.ScanInterval, app.ledger)
	}()

	wg.Wait()

	if app.closeFn != nil {
		if err := app.closeFn(); err != nil {
			app.logger.Error(ctx, "closing store", "error", err)
		}
	}
}
