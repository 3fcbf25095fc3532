// Craftshop — бэкенд магазина изделий ручной работы.
// Монолит с HTTP API, outbox конвейером событий в Kafka
// и воркером побочных эффектов (остатки, уведомления).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"example.com/craftshop/internal/gateway"
	"example.com/craftshop/internal/handler"
	"example.com/craftshop/internal/middleware"
	"example.com/craftshop/internal/notification"
	"example.com/craftshop/internal/repository"
	"example.com/craftshop/internal/service"
	"example.com/craftshop/internal/worker"
	"example.com/craftshop/pkg/config"
	"example.com/craftshop/pkg/db"
	"example.com/craftshop/pkg/healthcheck"
	"example.com/craftshop/pkg/jwt"
	"example.com/craftshop/pkg/kafka"
	"example.com/craftshop/pkg/logger"
	"example.com/craftshop/pkg/metrics"
	"example.com/craftshop/pkg/outbox"
	"example.com/craftshop/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	log := logger.With().Str("service", cfg.App.Name).Logger()

	log.Info().
		Str("env", cfg.App.Env).
		Int("port", cfg.HTTP.Port).
		Msg("Запуск Craftshop")

	// Контекст приложения: отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// OpenTelemetry tracing
	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка инициализации tracing")
	}

	// Подключаемся к MySQL
	gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к MySQL")
	}
	log.Info().Msg("Подключение к MySQL установлено")

	// Подключаемся к Redis (rate limit, refund lock, JWT blacklist)
	redisClient := db.ConnectRedis(cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis недоступен при старте, зависимые функции деградируют")
	}

	// Kafka: producer для outbox, consumer для воркера эффектов
	kafkaCfg := kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}

	producer, err := kafka.NewProducer(kafkaCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания Kafka producer")
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, kafka.TopicOrderEvents, cfg.Kafka.ConsumerGroup)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания Kafka consumer")
	}
	consumer.SetDLQProducer(producer)

	// Слои приложения
	outboxRepo := outbox.NewOutboxRepository(gormDB, outbox.AggregateOrder)
	orderRepo := repository.NewOrderRepository(gormDB, outboxRepo)
	productRepo := repository.NewProductRepository(gormDB)

	paymentGateway := gateway.NewClient(gateway.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
		Timeout:   cfg.Razorpay.Timeout,
	})

	orderService := service.NewOrderService(orderRepo, productRepo, paymentGateway, redisClient, cfg.Shop)

	// Уведомления: SMTP в production, лог без настроенного SMTP
	var mailer notification.Mailer = notification.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Password: cfg.SMTP.Password,
		})
	}
	notifier := notification.NewDispatcher(mailer)

	// JWT для администраторов
	jwtManager, err := jwt.NewManager(jwt.Config{
		PrivateKeyPath:  cfg.JWT.PrivateKeyPath,
		PublicKeyPath:   cfg.JWT.PublicKeyPath,
		Issuer:          cfg.JWT.Issuer,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.AccessTokenTTL * 2,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка инициализации JWT")
	}
	jwtManager.SetBlacklist(jwt.NewBlacklist(redisClient))

	// Фоновые воркеры: outbox → Kafka, Kafka → эффекты
	outboxWorker := outbox.NewOutboxWorker(outboxRepo, producer, outbox.DefaultWorkerConfig(), "craftshop-outbox")
	effectsWorker := worker.NewEffectsWorker(consumer, productRepo, notifier)

	go outboxWorker.Run(ctx)
	go func() {
		if err := effectsWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Воркер побочных эффектов завершился с ошибкой")
		}
	}()

	// Проверка готовности для /readyz
	readiness := healthcheck.Composite(
		func(ctx context.Context) error { return healthcheck.CheckMySQL(ctx, gormDB) },
		func(ctx context.Context) error { return healthcheck.CheckRedis(ctx, redisClient) },
		func(ctx context.Context) error { return healthcheck.CheckKafka(ctx, cfg.Kafka.Brokers) },
	)

	// HTTP роутер
	router := handler.NewRouter(handler.RouterConfig{
		Orders:         handler.NewOrderHandler(orderService),
		Admin:          handler.NewAdminHandler(orderService),
		Auth:           handler.NewAuthHandler(jwtManager, cfg.Shop),
		AdminAuth:      middleware.NewAdminAuth(jwtManager),
		RateLimit:      middleware.NewRateLimit(redisClient, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow),
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		ReadinessCheck: readiness,
		Debug:          cfg.IsDevelopment(),
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP сервер запущен")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// Отдельный сервер метрик Prometheus
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name,
			metrics.WithReadinessCheck(metrics.ReadinessChecker(readiness)))
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr()).Msg("Metrics сервер запущен")
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Ошибка metrics сервера")
			}
		}()
	}

	// Ожидаем сигнал завершения
	<-ctx.Done()
	log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки HTTP сервера")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки metrics сервера")
		}
	}

	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Kafka consumer")
	}
	if err := producer.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Kafka producer")
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки tracing")
	}

	if sqlDB, err := gormDB.DB(); err == nil && sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия MySQL")
		}
	}

	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Redis")
	}

	log.Info().Msg("Craftshop остановлен")
}
