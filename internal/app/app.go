// Package app wires the configuration, database, backup service, and HTTP
// API into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"sproutbook/internal/api"
	"sproutbook/internal/auth"
	"sproutbook/internal/backup"
	"sproutbook/internal/config"
	"sproutbook/internal/database"
	"sproutbook/internal/database/migrations"
	"sproutbook/internal/encryption"
	"sproutbook/internal/offsite"
)

// App holds the wired application. The caller must call Close when done.
type App struct {
	cfg      *config.Config
	db       *database.DB
	backups  *backup.Service
	sessions *auth.SessionManager
	router   *api.Router
	logger   backup.Logger
	logFile  *os.File
}

// New creates a fully wired App from the given config.
func New(cfg *config.Config) (*App, error) {
	slogger, logFile, err := newLogger(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	db, err := database.NewDatabaseFromConfig(cfg)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := migrations.Up(db.SQL()); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	encryptor, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	uploader, err := offsite.NewUploaderFromConfig(cfg.Offsite)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating offsite uploader: %w", err)
	}

	backups, err := backup.NewService(backup.ServiceOptions{
		State:              db,
		Settings:           db,
		Log:                db,
		MediaRoot:          cfg.MediaDir,
		DefaultStoragePath: cfg.BackupDir,
		Encryptor:          encryptor,
		Uploader:           uploader,
		Logger:             logger,
	})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating backup service: %w", err)
	}

	sessions := auth.NewSessionManager(auth.DefaultSessionTTL, nil)

	router := api.NewRouter(api.RouterOptions{
		State:     db,
		Creds:     db,
		Sessions:  sessions,
		Backups:   backups,
		MediaRoot: cfg.MediaDir,
		Logger:    logger,
	})

	return &App{
		cfg:      cfg,
		db:       db,
		backups:  backups,
		sessions: sessions,
		router:   router,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// Backups exposes the backup service for one-shot CLI operations.
func (a *App) Backups() *backup.Service { return a.backups }

// DB exposes the database for administrative CLI operations.
func (a *App) DB() *database.DB { return a.db }

// Logger exposes the application logger.
func (a *App) Logger() backup.Logger { return a.logger }

// Serve starts the scheduler and the HTTP server, and blocks until ctx is
// cancelled. Shutdown drains in-flight requests for up to 10 seconds.
func (a *App) Serve(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.MediaDir, 0755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}

	configured, err := auth.Configured(a.db)
	if err != nil {
		return fmt.Errorf("checking credentials: %w", err)
	}
	if !configured {
		a.logger.Warn("no credentials configured, web login will fail (run admin set-password)")
	}

	if err := a.backups.Start(); err != nil {
		return fmt.Errorf("starting backup scheduler: %w", err)
	}
	defer a.backups.Stop()

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", a.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the database and log file.
func (a *App) Close() error {
	a.backups.Stop()
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = err
	}
	if err := a.logFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
