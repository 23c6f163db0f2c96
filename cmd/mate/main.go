package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldfresh/mate/internal/matching/application"
	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/internal/matching/infrastructure/persistence/mysql"
	"github.com/fieldfresh/mate/internal/matching/infrastructure/publisher"
	"github.com/fieldfresh/mate/internal/matching/interfaces/consumer"
	matchinghttp "github.com/fieldfresh/mate/internal/matching/interfaces/http"
	"github.com/fieldfresh/mate/pkg/config"
	"github.com/fieldfresh/mate/pkg/db"
	"github.com/fieldfresh/mate/pkg/logger"
	"github.com/fieldfresh/mate/pkg/metrics"
	"github.com/fieldfresh/mate/pkg/middleware"
	"github.com/fieldfresh/mate/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/mate/config.toml", "path to config file")
	flag.Parse()

	// 1. 配置
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx, "Starting mate clearing service",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"unit_transaction_cost", cfg.Matching.UnitTransactionCost,
	)

	// 3. 数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to connect database", "error", err)
	}
	defer database.Close()

	if err := mysql.AutoMigrate(database.DB); err != nil {
		logger.Fatal(ctx, "Failed to migrate database", "error", err)
	}

	// 4. 指标
	m := metrics.New("matching")
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "Failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics server", "error", err)
		}
	}

	// 5. Kafka
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()

	orderConsumer, err := mq.NewConsumer(kafkaCfg, cfg.Kafka.OrderTopic)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka consumer", "error", err)
	}
	defer orderConsumer.Close()

	var dlq *mq.DeadLetterQueue
	if cfg.Kafka.DeadLetterTopic != "" {
		dlq = mq.NewDeadLetterQueue(producer, cfg.Kafka.DeadLetterTopic)
	}

	// 6. 领域引擎与应用层
	engine := domain.NewMIPEngine(cfg.Matching.UnitTransactionCost, cfg.Matching.SolveMaxNodes)
	matchPublisher := publisher.NewKafkaMatchPublisher(producer, cfg.Kafka.MatchTopic, cfg.Kafka.ReadyTopic)
	repo := mysql.NewMatchRepository(database.DB)
	manager := application.NewRoundManager(engine, matchPublisher, repo, m, cfg.Matching.MatchBatchSize)

	manager.StartReadyAnnouncer(ctx, time.Duration(cfg.Matching.ReadyIntervalSeconds)*time.Second)

	// 7. 订单事件消费
	handler := consumer.NewOrderCreatedHandler(manager, dlq)
	go func() {
		if err := consumer.Run(ctx, orderConsumer, handler); err != nil {
			logger.Error(ctx, "Consumer loop exited", "error", err)
		}
	}()

	// 8. HTTP 查询接口
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
	)
	matchinghttp.NewHandler(manager).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 9. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
	logger.Info(context.Background(), "Server exiting")
}
