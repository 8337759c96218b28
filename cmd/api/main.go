package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"companyinfo/cmd/internal/app"
	"companyinfo/cmd/internal/config"
	"companyinfo/cmd/internal/http/handler"
	apimiddleware "companyinfo/cmd/internal/http/middleware"
	"companyinfo/cmd/internal/routes"
	"companyinfo/cmd/internal/utils/uid"
	"companyinfo/cmd/internal/utils/validators"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validators.New()

	// Loads env vars depending on environment
	if err := config.LoadEnv(ctx); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if err = cfg.Validate(validate); err != nil {
		log.Fatal(err)
	}
	log.SetLevel(cfg.Level())

	if err = uid.Init(cfg.MachineID); err != nil {
		log.Fatal(err)
	}

	a, err := app.New(ctx, cfg, validate)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.Level())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Errorf("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			log.Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORS())
	e.Use(apimiddleware.NewErrorMiddleware(&apimiddleware.ErrorMiddlewareConfig{MaxUploadSize: cfg.UploadLimit()}))
	e.Use(middleware.BodyLimit(cfg.MaxUploadSize))

	routes.Register(e,
		handler.NewCompanyDefault(a.CompanyService),
		handler.NewUploadDefault(a.UploadService),
		handler.NewUtilRoute(a.Companies),
	)

	go a.HistoryCleaner().Start(ctx)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down cleanly: %v", err)
	}
}
