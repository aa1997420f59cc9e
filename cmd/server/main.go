package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/config"
	"github.com/iliyamo/carwash-dashboard/internal/database"
	"github.com/iliyamo/carwash-dashboard/internal/handler"
	"github.com/iliyamo/carwash-dashboard/internal/logging"
	"github.com/iliyamo/carwash-dashboard/internal/middleware"
	"github.com/iliyamo/carwash-dashboard/internal/queue"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/router"
	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
	"github.com/iliyamo/carwash-dashboard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("production")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()

	rdb := config.NewRedisClient(cfg.Redis)
	var store session.Store
	if rdb != nil {
		defer rdb.Close()
		store = session.NewRedisStore(rdb, "sess:")
	} else {
		log.Warn().Str("addr", cfg.Redis.Address()).Msg("redis unavailable: sessions kept in memory, cache and rate limit disabled")
		store = session.NewMemoryStore()
	}

	objects, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("init object store")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("ensure bucket failed")
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	bookings := repository.NewBookingRepo(db)
	carwashes := repository.NewCarwashRepo(db)
	profiles := repository.NewBusinessRepo(db)
	diag := repository.NewDiagRepo(db)

	// Services
	authSvc := service.NewAuthService(users, tokens, service.AuthOptions{
		BcryptCost:     cfg.BcryptCost,
		LegacyDeadline: cfg.Auth.LegacyDeadline,
		RememberTTL:    cfg.Session.RememberTTL,
	}, log)
	uploads := service.NewUploadService(objects, cfg.Storage.MaxUploadBytes, log)
	events := queue.NewPublisher(cfg.AMQPURL, log)
	vehicleSvc := service.NewVehicleService(vehicles, uploads, log)
	bookingSvc := service.NewBookingService(bookings, carwashes, vehicles, events, log)
	businessSvc := service.NewBusinessService(profiles, uploads, log)
	profileSvc := service.NewProfileService(users, uploads, log)

	remember := middleware.RememberOptions{CookieName: cfg.Session.RememberCookie, Secure: cfg.Session.Secure}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.ErrorHandler(cfg.IsDev(), log)
	e.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		session.NewManager(store, session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		}, log).Middleware(),
		middleware.RememberMe(authSvc, remember, log),
	)

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc, remember, log),
		Vehicles:  handler.NewVehicleHandler(vehicleSvc),
		Bookings:  handler.NewBookingHandler(bookingSvc),
		Business:  handler.NewBusinessHandler(businessSvc),
		Profile:   handler.NewProfileHandler(profileSvc),
		Carwashes: handler.NewCarwashHandler(carwashes),
		Diag:      handler.NewDiagHandler(diag),
		DB:        db,

		Gate: middleware.NewGate(middleware.GateOptions{
			LoginPath:     cfg.Auth.LoginPath,
			ForbiddenPage: cfg.Auth.ForbiddenPage,
			StaticDir:     cfg.StaticDir,
			MaxRedirects:  cfg.Auth.MaxRedirects,
		}, log),
		Guard:     response.Guard(response.GuardOptions{Dev: cfg.IsDev(), Log: log}),
		CSRF:      middleware.CSRF(middleware.CSRFOptions{AllowUnseeded: cfg.Auth.CSRFAllowUnseeded, Log: log}),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),

		OpsSecret:     cfg.JWTSecret,
		StaticDir:     cfg.StaticDir,
		ForbiddenPage: cfg.Auth.ForbiddenPage,
		Log:           log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server exited cleanly")
}
