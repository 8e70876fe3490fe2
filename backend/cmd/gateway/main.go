package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/stedman/grade-fetch/backend/internal/gateway"
	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/observability"
	"github.com/stedman/grade-fetch/backend/internal/period"
	"github.com/stedman/grade-fetch/backend/internal/shared"
	"github.com/stedman/grade-fetch/backend/internal/store"
)

func main() {
	log.Println("INFO: Starting Gateway Service...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("INFO: Continuing with process environment")
	}

	// 1. Load Configuration
	config, err := shared.LoadGatewayConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if err := shared.ValidateGatewayConfig(config); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	if shared.IsDevelopment(&config.ServiceConfig) {
		shared.PrintGatewayConfig(config)
	}

	loc, err := config.Grading.LoadLocation()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	calendar, err := period.LoadCalendar(config.Grading.CalendarFile, loc)
	if err != nil {
		log.Fatalf("FATAL: Failed to load grading calendar: %v", err)
	}
	log.Printf("INFO: Loaded grading calendar for school years %v", calendar.SchoolYears())

	// 2. Connect Storage and load the course catalog once
	mongoClient, db, err := shared.ConnectMongoDB(&config.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := shared.DisconnectMongoDB(mongoClient); err != nil {
			log.Printf("WARN: Error disconnecting from MongoDB: %v", err)
		}
	}()

	mongoStore := store.NewMongoStore(db)
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoStore.EnsureIndexes(startupCtx); err != nil {
		log.Printf("WARN: Failed to ensure indexes: %v", err)
	}
	catalog, err := mongoStore.LoadCatalog(startupCtx)
	cancel()
	if err != nil {
		log.Fatalf("FATAL: Failed to load course catalog: %v", err)
	}
	log.Printf("INFO: Loaded course catalog (%d courses)", catalog.Len())

	// 3. Build Service and Routes
	gradeService := grade.NewGradeService(mongoStore, catalog, calendar, grade.Options{
		LowScoreThreshold: &config.Grading.LowScoreThreshold,
		Location:          calendar.Location(),
		Timeout:           config.RequestTimeout,
	})

	router := gateway.SetupRoutes(gateway.Dependencies{
		Grades:         gradeService,
		Metrics:        observability.NewMetrics(),
		CORS:           config.CORS,
		RequestTimeout: config.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + config.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Start gRPC Health Server
	grpcServer, healthServer := gateway.NewHealthServer()
	listener, err := net.Listen("tcp", ":"+config.HealthPort)
	if err != nil {
		log.Fatalf("FATAL: Failed to listen on port %s: %v", config.HealthPort, err)
	}
	go func() {
		log.Printf("INFO: Health server listening on port %s", config.HealthPort)
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatalf("FATAL: gRPC health server error: %v", err)
		}
	}()

	// 5. Start HTTP Server
	go func() {
		log.Printf("INFO: Gateway listening on port %s", config.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()
	gateway.SetServing(healthServer, true)

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down Gateway...")

	gateway.SetServing(healthServer, false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: HTTP shutdown error: %v", err)
	}
	grpcServer.GracefulStop()

	log.Println("INFO: Gateway stopped.")
}
