package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/api"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/config"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/db"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/images"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/jobs"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/notifications"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		hclog.Default().Error("load config", "error", err)
		os.Exit(1)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "moviehub",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.LogJSON,
	})
	ver := version.Load("version.json", logger)
	logger.Info("NKmoviehub starting", "version", ver.Version)

	if err := run(cfg, logger, ver); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger hclog.Logger, ver version.Info) error {
	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := db.Migrate(ctx, database.DB)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "versions", applied)
	}

	a, err := auth.NewAuth(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Config:   cfg,
		Logger:   logger,
		Auth:     a,
		Users:    repository.NewUserRepository(database.DB),
		Movies:   repository.NewMovieRepository(database.DB),
		Shows:    repository.NewTVRepository(database.DB),
		Ratings:  repository.NewRatingRepository(database.DB),
		Contacts: repository.NewContactRepository(database.DB),
		Version:  ver,
	}

	if cfg.SMTP.Enabled() {
		var sender notifications.Sender = notifications.NewSMTPSender(notifications.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		deps.Mailer = sender
		if cfg.QueueEnabled() {
			queue := jobs.NewQueue(cfg.RedisAddr, logger)
			jobs.RegisterHandlers(queue, sender, logger)
			if err := queue.Start(); err != nil {
				return err
			}
			defer queue.Stop()
			deps.Mailer = jobs.NewMailer(queue)
		}
	} else {
		logger.Warn("smtp not configured, contact emails are disabled")
	}

	if cfg.Cloudinary.Enabled() {
		uploader, err := images.NewCloudinary(images.CloudinaryConfig{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
			BaseURL:   cfg.Cloudinary.BaseURL,
		})
		if err != nil {
			return err
		}
		deps.Uploader = uploader
	}

	srv, err := api.NewServer(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Downloads stream for as long as the upstream file takes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
