package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"ai-tutoring-be/internal/config"
	"ai-tutoring-be/internal/controller"
	"ai-tutoring-be/internal/pkg/logger"
	"ai-tutoring-be/internal/repository/corpus"
	"ai-tutoring-be/internal/repository/implementation"
	"ai-tutoring-be/internal/repository/memory"
	"ai-tutoring-be/internal/repository/unitofwork"
	"ai-tutoring-be/internal/service"
	"ai-tutoring-be/pkg/embedding"
	"ai-tutoring-be/pkg/embedding/jina"
	"ai-tutoring-be/pkg/llm/factory"
	"ai-tutoring-be/pkg/tutor/dialogue"
	"ai-tutoring-be/pkg/tutor/engine"
	"ai-tutoring-be/pkg/tutor/evaluate"
	"ai-tutoring-be/pkg/tutor/retrieval"

	pktNats "ai-tutoring-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	TutorController    controller.ITutorController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	ActivityService service.IActivityService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(os.Getenv("JINA_API_KEY"))
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	// Live session store: in-process cache by default, Redis when several
	// instances must share session state.
	var sessionStore engine.SessionStore
	if cfg.App.SessionStore == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessionStore = memory.NewRedisSessionRepository(rdb, cfg.App.SessionTTL, sysLogger)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		sessionStore = memory.NewSessionRepository(cfg.App.SessionTTL)
		log.Printf("[INFO] Using Session Store: MEMORY (TTL %s)", cfg.App.SessionTTL)
	}

	// 5. Dialogue Engine
	engineConfig := engine.Config{
		Retrieval: retrieval.Config{
			FetchK:        cfg.Tutor.RetrievalTopK * 4,
			TopK:          cfg.Tutor.RetrievalTopK,
			MinSimilarity: cfg.Tutor.MinRelevance,
			RRFK:          cfg.Tutor.FusionK,
		},
		Rubric: evaluate.Rubric{
			Weights: evaluate.Weights{
				Accuracy:    cfg.Tutor.WeightAccuracy,
				Coherence:   cfg.Tutor.WeightCoherence,
				Evidence:    cfg.Tutor.WeightEvidence,
				Integration: cfg.Tutor.WeightIntegration,
			},
			Thresholds: evaluate.Thresholds{
				Strong:   cfg.Tutor.TierStrong,
				Adequate: cfg.Tutor.TierAdequate,
				Partial:  cfg.Tutor.TierPartial,
			},
		},
		Dialogue:        dialogue.DefaultConfig(),
		MaxTurns:        cfg.Tutor.MaxTurns,
		UpstreamTimeout: cfg.Tutor.UpstreamTimeout,
		RetryBackoff:    cfg.Tutor.RetryBackoff,
	}

	engineLogger := initEngineLogger()
	corpusIndex := corpus.NewIndex(
		implementation.NewDocumentChunkRepository(db),
		implementation.NewDocumentRepository(db),
	)
	renderer := dialogue.NewPolishingRenderer(dialogue.NewTemplateRenderer(), llmProvider, engineLogger)

	tutorEngine := engine.New(
		llmProvider,
		embeddingProvider,
		corpusIndex,
		sessionStore,
		service.NewTranscriptRecorder(uowFactory),
		renderer,
		engineConfig,
		engineLogger,
	)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.App.EmbedTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.EmbedTopic,
		uowFactory,
		embeddingProvider,
		natsPub,
	)

	documentService := service.NewDocumentService(uowFactory, publisherService, natsPub, sysLogger)
	tutorService := service.NewTutorService(uowFactory, tutorEngine, natsPub, sysLogger)

	var activityService service.IActivityService
	if natsSub != nil {
		activityService = service.NewActivityService(
			implementation.NewActivityLogRepository(db),
			natsSub,
			sysLogger,
		)
	}

	// 7. Controllers
	return &Container{
		DocumentController: controller.NewDocumentController(documentService),
		TutorController:    controller.NewTutorController(tutorService),

		ConsumerService: consumerService,
		ActivityService: activityService,
	}
}

// initEngineLogger writes the engine's stage trace to its own file so the
// dialogue pipeline can be replayed without digging through request logs.
func initEngineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "tutor_engine.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[TUTOR] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
