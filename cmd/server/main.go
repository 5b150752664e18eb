package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/KeithOmondi/kian-optics/internal/config"
	"github.com/KeithOmondi/kian-optics/internal/events"
	"github.com/KeithOmondi/kian-optics/internal/handlers"
	"github.com/KeithOmondi/kian-optics/internal/imghost"
	"github.com/KeithOmondi/kian-optics/internal/logging"
	"github.com/KeithOmondi/kian-optics/internal/mailer"
	authmw "github.com/KeithOmondi/kian-optics/internal/middleware/auth"
	"github.com/KeithOmondi/kian-optics/internal/middleware/requestlog"
	"github.com/KeithOmondi/kian-optics/internal/mpesa"
	"github.com/KeithOmondi/kian-optics/internal/search"
	httpserver "github.com/KeithOmondi/kian-optics/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	producer := events.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := search.NewClient(configuration)
	if err != nil {
		log.Fatalf("elasticsearch init failed: %v", err)
	}
	index := search.NewIndex(esClient)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	smtpMailer := mailer.NewSMTPMailer(configuration)
	gateway := mpesa.NewClient(configuration)
	uploader := imghost.NewClient(configuration)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), requestlog.RequestLogger(logger))
	e.Validator = httpserver.NewValidator()
	e.HTTPErrorHandler = httpserver.ErrorHandler

	deps := httpserver.Deps{
		DB:   db,
		Auth: &authmw.Middleware{JWTSecret: jwtSecret},
		AuthHandler: &handlers.AuthHandler{
			DB:            db,
			JWTSecret:     jwtSecret,
			RefreshSecret: refreshSecret,
		},
		OrderHandler: &handlers.OrderHandler{
			DB:       db,
			Mailer:   smtpMailer,
			Producer: producer,
		},
		ProductHandler: &handlers.ProductHandler{
			DB:       db,
			Uploader: uploader,
			Index:    index,
			Producer: producer,
		},
		PaymentHandler: &handlers.PaymentHandler{
			Gateway:  gateway,
			Producer: producer,
		},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "addr", configuration.HTTP_ADDR)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
