package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/easytransact-backend/internal/chain"
	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/db"
	"github.com/ignatzorin/easytransact-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/easytransact-backend/internal/http/handlers"
	"github.com/ignatzorin/easytransact-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/easytransact-backend/internal/http/router"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/payment"
	"github.com/ignatzorin/easytransact-backend/internal/realtime"
	"github.com/ignatzorin/easytransact-backend/internal/repository"
	"github.com/ignatzorin/easytransact-backend/internal/service"
	"github.com/ignatzorin/easytransact-backend/internal/tryon"
	"github.com/ignatzorin/easytransact-backend/internal/ws"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket hub and change listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Готовим контекст для graceful shutdown.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(ctx, cfg)
	},
}

// redisPinger приводит redis.Client к интерфейсу health check.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			log.WithField("error", err.Error()).Warn("main: ошибка закрытия базы")
		}
	}()

	if _, err := db.RunMigrations(ctx, dbConn, db.MigrationsFS(cfg.MigrationsPath)); err != nil {
		return err
	}

	checks := map[string]httpHandlers.Pinger{"database": dbConn}

	// Redis необязателен: без него лимиты и дедупликация платежей живут в памяти процесса.
	var redisClient *redis.Client
	var dedup payment.Deduper = payment.NewMemoryDeduper()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithFields(logrus.Fields{"addr": cfg.RedisAddr, "error": err.Error()}).Warn("main: Redis недоступен, используем память процесса")
			redisClient = nil
		} else {
			dedup = payment.NewRedisDeduper(redisClient)
			checks["redis"] = redisPinger{client: redisClient}
		}
	}

	sessions, err := service.NewSessionVerifier(cfg.SessionSecret, cfg.SessionPublicKey)
	if err != nil {
		return err
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	invitationRepo := repository.NewInvitationRepository(dbConn)
	offerRepo := repository.NewOfferRepository(dbConn)
	messageRepo := repository.NewMessageRepository(dbConn)
	txManager := repository.NewTxManager(dbConn)

	// Внешние платёжные системы подключаются, только если заданы ключи.
	var paypal service.PaymentProvider
	if cfg.PayPal.ClientID != "" {
		paypal = payment.NewPayPalClient(cfg.PayPal)
	} else {
		log.Warn("main: PayPal не настроен, оплата предложений и выплаты недоступны")
	}

	// Сервисы.
	userService := service.NewUserService(userRepo, cfg.NewUserCredits)
	projectService := service.NewProjectService(projectRepo, invitationRepo, messageRepo, offerRepo)
	offerService := service.NewOfferService(offerRepo, projectRepo, invitationRepo, txManager, paypal, dedup)

	// Вебсокеты и поток изменений из базы.
	hub := ws.NewHub()
	goroutine.GoWithContext(ctx, "ws-hub", hub.Run)

	listener := realtime.NewListener(cfg.DatabaseURL, messageRepo, offerRepo, hub)
	goroutine.GoWithContext(ctx, "realtime-listener", func(ctx context.Context) {
		if err := listener.Run(ctx); err != nil {
			log.WithField("error", err.Error()).Error("main: слушатель изменений остановлен")
		}
	})

	handlers := httpRouter.Handlers{
		Health:   httpHandlers.NewHealthHandler(checks),
		Users:    httpHandlers.NewUserHandler(userService),
		Projects: httpHandlers.NewProjectHandler(projectService),
		Offers:   httpHandlers.NewOfferHandler(offerService),
		WS:       httpHandlers.NewWSHandler(hub, sessions, projectService, cfg.AllowedOrigins),
		TryOn:    httpHandlers.NewTryOnHandler(tryon.NewClient(cfg.TryOn), cfg.MaxUploadSizeMB),
	}

	if cfg.Stripe.SecretKey != "" {
		checkout := service.NewCheckoutService(payment.NewStripeGateway(cfg.Stripe), userService, dedup, cfg.Stripe.CreditsPerPurchase)
		handlers.Checkout = httpHandlers.NewCheckoutHandler(checkout)
	}

	if cfg.Chain.RPCURL != "" {
		escrow, err := chain.Dial(ctx, cfg.Chain)
		if err != nil {
			return err
		}
		defer escrow.Close()
		handlers.Chain = httpHandlers.NewChainHandler(escrow)
		handlers.ChainOperators = cfg.Chain.Operators
		log.WithField("account", escrow.Account()).Info("main: escrow контракт подключён")
	}

	engine := httpRouter.SetupRouter(cfg, handlers, sessions, middleware.NewLimiterStore(redisClient))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.Go("http-shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithField("error", err.Error()).Warn("main: ошибка остановки http сервера")
		}
	})

	log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
