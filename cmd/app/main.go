package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	v1 "github.com/Jan-H2M/vidsum/internal/controller/http/v1"
	"github.com/Jan-H2M/vidsum/internal/domain/usecase"
	"github.com/Jan-H2M/vidsum/internal/metrics"
	"github.com/Jan-H2M/vidsum/internal/provider/llm"
	"github.com/Jan-H2M/vidsum/internal/provider/media"
	"github.com/Jan-H2M/vidsum/internal/provider/stt"
	"github.com/Jan-H2M/vidsum/internal/provider/vision"
	"github.com/Jan-H2M/vidsum/internal/repository/artifact"
	"github.com/Jan-H2M/vidsum/internal/repository/dispatch"
	openaiClient "github.com/Jan-H2M/vidsum/pkg/client/openai"
	redisClientGo "github.com/Jan-H2M/vidsum/pkg/client/redis"
	s3ClientGo "github.com/Jan-H2M/vidsum/pkg/client/s3"
	"github.com/Jan-H2M/vidsum/pkg/middleware"
)

type Config struct {
	Port    string
	DataDir string

	S3Host      string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Secure    bool

	OpenAIKey     string
	OpenAIBaseURL string
	WhisperModel  string
	VisionModel   string
	SummaryModel  string

	FFmpegPath string
	YtDlpPath  string

	QueueDriver string // local | http | amqp
	WorkerURL   string
	WorkerToken string
	RabbitMQURL string

	RedisAddr string
	RedisDB   int

	StepTimeout       time.Duration
	VisionConcurrency int64
}

func main() {
	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := selectStore(ctx, cfg)
	log.Printf("artifact store backend: %s", store.BackendName())

	collector := metrics.NewCollector()

	oa := openaiClient.NewClient(openaiClient.Config{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})

	pipeline := usecase.NewPipelineUseCase(
		store,
		nil, // dispatcher bound below
		stt.NewCaptionFetcher(),
		stt.NewWhisper(oa, cfg.WhisperModel),
		media.NewExtractor(cfg.FFmpegPath, cfg.YtDlpPath),
		vision.NewModel(oa, cfg.VisionModel),
		llm.NewSummarizer(oa, cfg.SummaryModel),
		collector,
	)
	pipeline.StepTimeout = cfg.StepTimeout
	pipeline.VisionConcurrency = cfg.VisionConcurrency

	dispatcher := buildDispatcher(ctx, cfg, pipeline)
	pipeline.Queue = dispatcher

	jobs := usecase.NewJobUseCase(store, dispatcher, collector)
	handler := v1.NewJobHandler(jobs, pipeline)

	r := gin.Default()

	public := r.Group("/")
	if cfg.RedisAddr != "" {
		redisClient, err := redisClientGo.NewRedisClient(ctx, redisClientGo.Config{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		public.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RedisClient: redisClient,
			Limit:       10,
			Window:      time.Second,
			KeyPrefix:   "rl:",
		}))
	}
	{
		public.POST("/ingest", handler.Ingest)
		public.GET("/status", handler.Status)
		public.GET("/summary", handler.Summary)
		public.DELETE("/jobs/:job_id", handler.Delete)
	}

	r.POST("/worker", middleware.WorkerToken(cfg.WorkerToken), handler.Work)
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("vidsum listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// selectStore applies the backend policy: remote object store when
// configured and reachable, else the local filesystem when writable, else
// process memory.
func selectStore(ctx context.Context, cfg Config) *artifact.Store {
	if cfg.S3Host != "" && cfg.S3AccessKey != "" {
		s3Client, err := s3ClientGo.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Secure)
		if err == nil {
			backend, err := artifact.NewS3Backend(ctx, s3Client)
			if err == nil {
				return artifact.NewStore(backend)
			}
			log.Printf("s3 backend unavailable, trying local storage: %v", err)
		} else {
			log.Printf("s3 client init failed, trying local storage: %v", err)
		}
	}

	backend, err := artifact.NewFileBackend(cfg.DataDir)
	if err == nil {
		return artifact.NewStore(backend)
	}
	log.Printf("local storage unavailable, using memory: %v", err)
	return artifact.NewStore(artifact.NewMemoryBackend())
}

func buildDispatcher(ctx context.Context, cfg Config, pipeline *usecase.PipelineUseCase) usecase.Dispatcher {
	switch cfg.QueueDriver {
	case "http":
		return dispatch.NewHTTP(cfg.WorkerURL, cfg.WorkerToken, nil)
	case "amqp":
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		publisher, err := dispatch.NewAMQPPublisher(conn, "vidsum.steps", "steps.dispatch")
		if err != nil {
			log.Fatalf("failed to init publisher: %v", err)
		}
		consumer, err := dispatch.NewAMQPConsumer(conn, "vidsum.steps", "steps.dispatch", "steps.dispatch.q", pipeline)
		if err != nil {
			log.Fatalf("failed to init consumer: %v", err)
		}
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Fatalf("consumer stopped with error: %v", err)
			}
		}()
		return publisher
	default:
		local := dispatch.NewLocal()
		local.Bind(pipeline)
		return local
	}
}

func loadConfig() Config {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	mustGetEnv := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Fatalf("Environment variable %s is not set", key)
		}
		return val
	}
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid REDIS_DB value: %v", err)
		}
		redisDB = parsed
	}

	stepTimeout := 10 * time.Minute
	if v := os.Getenv("STEP_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid STEP_TIMEOUT value: %v", err)
		}
		stepTimeout = parsed
	}

	visionConcurrency := int64(4)
	if v := os.Getenv("VISION_CONCURRENCY"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid VISION_CONCURRENCY value: %v", err)
		}
		visionConcurrency = parsed
	}

	rabbitMQURL := ""
	queueDriver := getEnv("QUEUE_DRIVER", "local")
	if queueDriver == "amqp" {
		rmqUser := mustGetEnv("RABBITMQ_USER")
		rmqPassword := mustGetEnv("RABBITMQ_PASSWORD")
		rmqHost := mustGetEnv("RABBITMQ_HOST")
		rmqPort := mustGetEnv("RABBITMQ_PORT")
		rabbitMQURL = "amqp://" + rmqUser + ":" + rmqPassword + "@" + rmqHost + ":" + rmqPort + "/"
	}

	workerURL := ""
	if queueDriver == "http" {
		workerURL = mustGetEnv("WORKER_URL")
	}

	redisAddr := ""
	if host := os.Getenv("REDIS_HOST"); host != "" {
		redisAddr = host + ":" + getEnv("REDIS_PORT", "6379")
	}

	s3Host := ""
	if host := os.Getenv("S3_HOST"); host != "" {
		s3Host = host + ":" + getEnv("S3_PORT", "9000")
	}

	return Config{
		Port:    getEnv("PORT", "8080"),
		DataDir: getEnv("DATA_DIR", "./.vidsum-storage"),

		S3Host:      s3Host,
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Secure:    os.Getenv("S3_SECURE") == "true",

		OpenAIKey:     mustGetEnv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		WhisperModel:  getEnv("WHISPER_MODEL", "whisper-1"),
		VisionModel:   getEnv("VISION_MODEL", "gpt-4o"),
		SummaryModel:  getEnv("SUMMARY_MODEL", "gpt-4-turbo"),

		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		YtDlpPath:  getEnv("YTDLP_PATH", "yt-dlp"),

		QueueDriver: queueDriver,
		WorkerURL:   workerURL,
		WorkerToken: os.Getenv("WORKER_TOKEN"),
		RabbitMQURL: rabbitMQURL,

		RedisAddr: redisAddr,
		RedisDB:   redisDB,

		StepTimeout:       stepTimeout,
		VisionConcurrency: visionConcurrency,
	}
}
