package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datahalo/internal/config"
	"datahalo/internal/database"
	"datahalo/internal/handlers"
	"datahalo/internal/middleware"
	"datahalo/internal/repository"
	"datahalo/internal/router"
	"datahalo/internal/services"
	"datahalo/internal/websocket"
	"datahalo/internal/worker"
)

func main() {
	log.Println("🚀 Starting DataHalo Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	assignmentRepo := repository.NewAssignmentRepo(pool)
	submissionRepo := repository.NewSubmissionRepo(pool)
	journalistRepo := repository.NewJournalistRepo(pool)

	// ──── Step 5: Initialize Gemini Services ────
	tutorService, err := services.NewTutorService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini tutor initialization failed: %v", err)
	}
	defer tutorService.Close()

	analyzerService, err := services.NewAnalyzerService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini analyzer initialization failed: %v", err)
	}
	defer analyzerService.Close()
	log.Println("✓ Gemini Flash clients initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, cfg.GoogleClientID)
	readabilityService := services.NewReadabilityService()
	fileExtractService := services.NewFileExtractService()

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	tutorHandler := handlers.NewTutorHandler(chatRepo, tutorService)
	analyzerHandler := handlers.NewAnalyzerHandler(analyzerService, readabilityService, fileExtractService)
	lmsHandler := handlers.NewLMSHandler(courseRepo, assignmentRepo, submissionRepo, journalistRepo, redisClients.Queue)

	// ──── Step 6: Start Grading Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, analyzerService, submissionRepo, cfg.GradingWorkers)
	workerPool.Start()

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		tutorHandler,
		analyzerHandler,
		lmsHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // analyze requests wait on the LLM
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ DataHalo Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  WS: ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
