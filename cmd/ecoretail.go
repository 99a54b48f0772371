package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v9"

	"ecoretail/internal/client"
	"ecoretail/internal/configuration"
	"ecoretail/internal/database"
	"ecoretail/internal/dealfile"
	"ecoretail/internal/logger"
	"ecoretail/internal/server"
)

func runApp() error {
	appContext := context.Background()
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(logger.LevelError, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("ecoretail_backend.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogLevel, logOutput)

	appLogger.Info("Connecting to DB at", config.DatabaseURI)
	dbConn, err := database.ConnectDB(appContext, config.DatabaseURI)
	if err != nil {
		appLogger.Error("Error connecting to DB:", err)
		return err
	}
	defer func() {
		if err := dbConn.Disconnect(appContext); err != nil {
			appLogger.Error("Error disconnecting from DB:", err)
		}
	}()
	db := database.Database{Database: dbConn.Database(database.Name)}

	var redisClient *redis.Client
	if config.RedisAddress != "" {
		appLogger.Info("Using Redis cache at", config.RedisAddress)
		redisClient = redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		defer func() {
			if err := redisClient.Close(); err != nil {
				appLogger.Error("Error closing Redis client:", err)
			}
		}()
	}

	deals := server.DealStore(db)
	if config.DealsFile != "" {
		appLogger.Info("Using flat-file deal store at", config.DealsFile)
		deals = dealfile.NewStore(config.DealsFile)
	}

	srv := server.Server{
		DB:      db,
		Deals:   deals,
		Rewards: db,
		Client: client.Client{
			Client:       &http.Client{Timeout: 15 * time.Second},
			Redis:        redisClient,
			GeminiAPIKey: config.GeminiAPIKey,
			MapsAPIKey:   config.MapsAPIKey,
			Logger:       appLogger,
		},
		Logger:        appLogger,
		AuthSecretKey: config.AuthSecretKey,
	}

	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	appLogger.Info("Serving on", httpSrv.Addr)
	return httpSrv.ListenAndServe()
}
