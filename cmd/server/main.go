package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"voicestudio/internal/config"
	"voicestudio/internal/handler"
	"voicestudio/internal/infrastructure/cache"
	"voicestudio/internal/infrastructure/database"
	"voicestudio/internal/infrastructure/logger"
	"voicestudio/internal/infrastructure/metrics"
	"voicestudio/internal/infrastructure/mq"
	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/job"
	"voicestudio/internal/ledger"
	"voicestudio/internal/repository"
	"voicestudio/internal/service"
	"voicestudio/internal/synthesis"
	"voicestudio/internal/translation"
	"voicestudio/internal/voice"
	"voicestudio/pkg/idgen"
	"voicestudio/pkg/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("服务异常退出", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	// 初始化 ID 生成器
	ids, err := idgen.New(cfg.Server.WorkerID)
	if err != nil {
		return err
	}

	// 初始化 MySQL
	db, err := database.NewMySQL(&cfg.MySQL)
	if err != nil {
		return err
	}

	// 初始化 Redis
	redisClient, err := cache.NewRedis(&cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// 初始化 Kafka
	producer, err := mq.NewProducer(&cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()

	files, err := storage.New(cfg.Storage, zl)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	translator, err := translation.NewTencentTranslator(cfg.Translation.SecretID, cfg.Translation.SecretKey, cfg.Translation.Region, zl)
	if err != nil {
		return err
	}

	// 仓储
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewCreditTransactionRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	profileRepo := repository.NewVoiceProfileRepository(db)
	cloneRepo := repository.NewVoiceCloneRepository(db)
	speechRepo := repository.NewSpeechRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	l := ledger.New(ledger.NewGormStore(db), ids, m, zl.Named("ledger"))
	gateway := synthesis.NewGateway(synthesis.NewEdgeProvider(zl), files, cfg.Synthesis, cfg.Storage.Timeout, m, zl.Named("synthesis"))
	tokens := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	otp := cache.NewOTPStore(redisClient, time.Duration(cfg.Business.OTPTTLMinutes)*time.Minute)

	authService := service.NewAuthService(accountRepo, l, otp, outboxRepo, tokens, cfg.Business, cfg.Kafka.Topic.MailOTP, zl.Named("auth"))
	h := handler.NewHandler(handler.Services{
		Auth:     authService,
		Accounts: service.NewAccountService(l, transactionRepo),
		Voices:   service.NewVoiceService(profileRepo, cloneRepo, speechRepo, accountRepo, files, zl.Named("voice")),
		Generation: service.NewGenerationService(service.GenerationDeps{
			Ledger:   l,
			Profiles: profileRepo,
			Clones:   cloneRepo,
			Speeches: speechRepo,
			Outbox:   outboxRepo,
			Resolver: voice.NewResolver(),
			Synth:    gateway,
			Topic:    cfg.Kafka.Topic.SpeechGenerated,
			Metrics:  m,
			Logger:   zl.Named("generation"),
		}, cfg.Business),
		History:     service.NewHistoryService(speechRepo, files, zl.Named("history")),
		Translation: service.NewTranslationService(translator, translation.NewPinyinTransliterator(), zl.Named("translation")),
		Payments:    service.NewPaymentService(paymentRepo, l, outboxRepo, files, redisClient, cfg, zl.Named("payment")),
	}, zl)

	var mediaRoot string
	if local, ok := files.(*storage.LocalStore); ok {
		mediaRoot = local.Root()
	}
	router := handler.SetupRouter(h, handler.RouterOptions{
		Auth:      authService,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		MediaRoot: mediaRoot,
		Logger:    zl,
	})

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	var wg sync.WaitGroup
	starters := []func(context.Context){
		job.NewOutboxSender(outboxRepo, producer, cfg.Business.MaxRetryCount, zl).Start,
		job.NewReservationReconcileJob(reservationRepo, l, cfg.Business.ReservationStale(), zl).Start,
		job.NewCloneProcessJob(cloneRepo, files, zl).Start,
	}
	for _, start := range starters {
		wg.Add(1)
		go func(start func(context.Context)) {
			defer wg.Done()
			start(ctx)
		}(start)
	}

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("服务启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("服务启动失败: %w", err)
	}

	zl.Info("正在关闭服务...")

	// 关闭 HTTP 服务（等待最多5秒），进行中的生成请求不受取消影响
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("服务关闭异常", zap.Error(err))
	}

	// 停止后台任务
	cancel()
	wg.Wait()

	zl.Info("服务已关闭")
	return nil
}
