package handler

import (
	"github.com/ParloAI/parlo-call-service/internal/ai"
	"github.com/ParloAI/parlo-call-service/internal/config"
	"github.com/ParloAI/parlo-call-service/internal/repository"
	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/ParloAI/parlo-call-service/internal/telephony"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/ParloAI/parlo-call-service/pkg/redis"
	"github.com/gorilla/mux"
)

// HandlerManager wires every service and handler together and owns route
// registration.
type HandlerManager struct {
	config   *config.CallServiceConfig
	repos    repository.RepositoryManager
	sessions *session.Manager

	webhookHandler *telephony.WebhookHandler
	sessionHandler *SessionHandler
	healthHandler  *HealthHandler
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.CallServiceConfig) (*HandlerManager, error) {
	redisService, err := redis.NewRedisService(&redis.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.NewStore(redisService))
	aiClient := ai.NewClient(cfg.AIServiceBaseURL, cfg.AIServiceSecret)
	pipeline := telephony.NewCompletionPipeline(sessions, aiClient, repoManager)

	return &HandlerManager{
		config:   cfg,
		repos:    repoManager,
		sessions: sessions,
		webhookHandler: telephony.NewWebhookHandler(
			sessions, aiClient, repoManager, pipeline,
			cfg.TwilioAuthToken, cfg.PublicBaseURL),
		sessionHandler: NewSessionHandler(sessions),
		healthHandler:  NewHealthHandler(repoManager),
	}, nil
}

// Repos exposes the repository manager for shutdown.
func (hm *HandlerManager) Repos() repository.RepositoryManager {
	return hm.repos
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(LoggingMiddleware)

	// Public telephony webhooks sit behind a per-IP rate limit.
	telephonyRouter := router.PathPrefix("/telephony").Subrouter()
	telephonyRouter.Use(RateLimitMiddleware(hm.config.RateLimitPerSecond, hm.config.RateLimitBurst))
	hm.webhookHandler.SetupTelephonyRoutes(telephonyRouter)

	// Internal session API is only for the AI service.
	internalRouter := router.PathPrefix("/internal").Subrouter()
	internalRouter.Use(JWTAuthMiddleware(hm.config.InternalAPISecret))
	hm.sessionHandler.SetupSessionRoutes(internalRouter)

	hm.healthHandler.SetupHealthRoutes(router)

	logger.Base().Info("all application routes registered")
}
