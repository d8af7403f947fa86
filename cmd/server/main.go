// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/internal/handler"
	"voice-tutor-go/internal/middleware"
	"voice-tutor-go/internal/pipeline"
	"voice-tutor-go/internal/repository"
	"voice-tutor-go/internal/service"
	"voice-tutor-go/pkg/database"
	"voice-tutor-go/pkg/es"
	"voice-tutor-go/pkg/kafka"
	"voice-tutor-go/pkg/llm"
	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/speech"
	"voice-tutor-go/pkg/storage"
	"voice-tutor-go/pkg/token"
	"voice-tutor-go/pkg/tts"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 初始化数据库和 Redis；未配置时分别退化为不持久化和内存存储
	database.InitDB(cfg.Database.Driver, cfg.Database.DSN)
	if database.DB != nil {
		if err := repository.AutoMigrate(database.DB); err != nil {
			log.Fatal("数据库迁移失败", err)
		}
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	roadmapRepo := repository.NewRoadmapRepository(database.DB)
	var (
		sessionRepo      repository.SessionRepository
		audioSessionRepo repository.AudioSessionRepository
	)
	if database.RDB != nil {
		sessionRepo = repository.NewRedisSessionRepository(database.RDB, cfg.Session.TTL)
		audioSessionRepo = repository.NewRedisAudioSessionRepository(database.RDB, cfg.Session.TTL)
	} else {
		sessionRepo = repository.NewMemorySessionRepository()
		audioSessionRepo = repository.NewMemoryAudioSessionRepository()
	}

	audioStore, err := newAudioStore(ctx, cfg)
	if err != nil {
		log.Fatal("音频存储初始化失败", err)
	}

	// 5. 初始化外部服务客户端
	llmClient := llm.NewClient(cfg.LLM)
	transcriber := speech.NewTranscriber(ctx, cfg.Google)
	synthesizer := tts.NewSynthesizer(ctx, cfg.Google)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.GuestTokenHours)

	// 6. 检索与事件管道：ES 可选；有 Kafka 时异步索引，否则同步索引
	var (
		searcher  service.RoadmapSearcher
		publisher service.EventPublisher
		producer  *kafka.Producer
	)
	index, err := es.NewRoadmapIndex(cfg.Elasticsearch)
	switch {
	case errors.Is(err, es.ErrNotConfigured):
		log.Info("未配置 Elasticsearch，路线检索已关闭")
	case err != nil:
		log.Errorf("Elasticsearch 初始化失败，路线检索已关闭: %v", err)
	default:
		searcher = index
		processor := pipeline.NewProcessor(index)
		if cfg.Kafka.Brokers != "" {
			producer = kafka.NewProducer(cfg.Kafka)
			publisher = producer
			go kafka.StartConsumer(ctx, cfg.Kafka, processor, database.RDB)
		} else {
			publisher = pipeline.NewDirectPublisher(processor)
		}
	}

	// 7. 初始化 Service (依赖注入)
	audioService := service.NewAudioService(synthesizer, audioStore, audioSessionRepo)
	roadmapService := service.NewRoadmapService(llmClient, audioService, roadmapRepo, publisher, searcher)
	welcomeService := service.NewWelcomeService(sessionRepo, llmClient, audioService, roadmapService, jwtManager)

	captureHandler := handler.NewCaptureHandler(transcriber, cfg.Server.MaxUploadMB<<20)
	audioHandler := handler.NewAudioHandler(audioService)
	roadmapHandler := handler.NewRoadmapHandler(roadmapService)
	welcomeHandler := handler.NewWelcomeHandler(welcomeService, roadmapService)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.CustomRecovery(handler.Recovery), middleware.CORS(cfg.Server.AllowedOrigins))

	// 9. 注册路由
	r.GET("/healthz", handler.Healthz)
	r.POST("/capture", captureHandler.Capture)

	r.POST("/create-session", audioHandler.CreateSession)
	r.POST("/text-to-speech", audioHandler.TextToSpeech)
	r.POST("/cleanup-session", audioHandler.CleanupSession)
	r.GET("/audio/:filename", audioHandler.ServeAudio)

	r.POST("/create-roadmap", roadmapHandler.CreateRoadmap)
	r.GET("/get-lesson/:roadmap_id/:day", roadmapHandler.GetLesson)
	r.GET("/roadmaps", roadmapHandler.ListRoadmaps)
	r.GET("/roadmaps/search", roadmapHandler.Search)
	r.GET("/roadmap/:id", roadmapHandler.GetRoadmap)
	r.GET("/roadmap-summary-audio/:id", roadmapHandler.SummaryAudio)

	welcome := r.Group("/welcome")
	{
		welcome.POST("/start", welcomeHandler.Start)

		// 配置了 jwt.secret 时需要 /welcome/start 签发的访客 token
		guarded := welcome.Group("")
		guarded.Use(middleware.GuestAuth(jwtManager))
		{
			guarded.POST("/chat", welcomeHandler.Chat)
			guarded.POST("/generate-roadmap", welcomeHandler.GenerateRoadmap)
			guarded.GET("/ws/:guest_id", welcomeHandler.Stream)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止 Kafka 消费者并关闭生产者
	cancel()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}

// newAudioStore 根据 audio.backend 选择本地目录或 MinIO。
func newAudioStore(ctx context.Context, cfg config.Config) (storage.AudioStore, error) {
	switch cfg.Audio.Backend {
	case "", "local":
		log.Infof("音频保存到本地目录: %s", cfg.Audio.Dir)
		return storage.NewLocalStore(cfg.Audio.Dir)
	case "minio":
		return storage.NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Audio.Backend)
	}
}
