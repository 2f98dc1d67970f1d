package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/config"
	"github.com/ParloAI/parlo-call-service/internal/handler"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server is the HTTP server for the call service
type Server struct {
	config         *config.CallServiceConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new call service server
func NewServer(cfg *config.CallServiceConfig) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the call service server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// Load .env file for local development if it exists. This does not
	// override environment variables set by the deployment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.LoadConfigFromEnv()

	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	defer logger.Sync()

	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port))

	if err := server.Start(); err != nil {
		logger.Base().Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
}
