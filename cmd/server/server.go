package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeauth/api/handler"
	apiMiddleware "codeauth/api/middleware"
	"codeauth/api/routes"
	"codeauth/config"
	"codeauth/internal/cache"
	"codeauth/internal/job"
	"codeauth/internal/messaging"
	"codeauth/internal/metrics"
	"codeauth/internal/repository"
	"codeauth/internal/repository/memory"
	"codeauth/internal/service"
	"codeauth/internal/storage"
	"codeauth/internal/utils"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

type stores struct {
	users        repository.UserRepository
	sessions     repository.SessionRepository
	codes        repository.VerificationCodeRepository
	securityLogs repository.SecurityLogRepository
}

func openStores(cfg config.Config, logger logrus.FieldLogger) (stores, error) {
	if cfg.StorageDriver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		return stores{
			users:        memory.NewUserRepo(),
			sessions:     memory.NewSessionRepo(),
			codes:        memory.NewVerificationCodeRepo(),
			securityLogs: memory.NewSecurityLogRepo(),
		}, nil
	}
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return stores{}, err
	}
	if err := config.Migrate(db); err != nil {
		return stores{}, fmt.Errorf("migrate: %w", err)
	}
	return stores{
		users:        repository.NewUserRepository(db),
		sessions:     repository.NewSessionRepository(db),
		codes:        repository.NewVerificationCodeRepository(db),
		securityLogs: repository.NewSecurityLogRepository(db),
	}, nil
}

func newCodeSender(cfg config.Config, logger logrus.FieldLogger) (service.CodeSender, func(), error) {
	switch cfg.EmailDriver {
	case "resend":
		return service.NewResendCodeSender(cfg.ResendAPIKey, cfg.EmailFrom), func() {}, nil
	case "amqp":
		publisher, err := messaging.NewCodePublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { _ = publisher.Close() }, nil
	default:
		return service.LogCodeSender{Logger: logger}, func() {}, nil
	}
}

func runServer(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}

	sender, closeSender, err := newCodeSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	var sessionCache service.SessionCache
	if cfg.RedisAddr != "" {
		rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		sc := cache.NewSessionCache(rdb)
		if err := sc.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unreachable, session cache will fall back to the database")
		}
		sessionCache = sc
	}

	var avatars service.AvatarStore
	if cfg.S3Bucket != "" {
		store, err := storage.NewS3AvatarStore(ctx, storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return err
		}
		avatars = store
	}

	accessManager := utils.JWTManager{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	authService := service.NewAuthService(
		st.users,
		st.sessions,
		st.codes,
		st.securityLogs,
		sender,
		service.RandomCodeGenerator{},
		service.BcryptPasswordHasher{},
		service.JWTAccessIssuer{Manager: &accessManager},
		sessionCache,
		avatars,
		service.RealClock{},
		logger,
		service.AuthConfig{
			AccessTokenTTL:  cfg.AccessTokenTTL,
			CodeTTL:         cfg.CodeTTL,
			CodeCooldown:    cfg.CodeCooldown,
			StoreTimeout:    cfg.StoreTimeout,
			DeliveryTimeout: cfg.DeliveryTimeout,
		},
	)

	scheduler := job.NewScheduler(logger)
	cleanup := &job.SessionCleanupJob{
		Sessions:  st.sessions,
		Retention: cfg.SessionCleanupRetention,
		Logger:    logger,
	}
	if err := scheduler.AddJob(cleanup, cfg.SessionCleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	app := newEcho(cfg, logger)
	validate := handler.NewValidator()
	router := routes.NewRouter(
		app,
		handler.NewAuthHandler(authService, validate, logger),
		handler.NewUserHandler(authService, validate, logger),
		apiMiddleware.AuthMiddleware{Auth: authService},
		metrics.Handler(),
	)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server started")
		errCh <- app.StartServer(server)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

func newEcho(cfg config.Config, logger logrus.FieldLogger) *echo.Echo {
	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":  v.Status,
				"method":  v.Method,
				"uri":     v.URI,
				"ip":      v.RemoteIP,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	return app
}
