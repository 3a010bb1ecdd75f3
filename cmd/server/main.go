package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"book-production-tracker/internal/auth"
	"book-production-tracker/internal/config"
	"book-production-tracker/internal/database"
	"book-production-tracker/internal/logger"
	"book-production-tracker/internal/routes"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	if err := logger.Init(cfg.Logging.Development); err != nil {
		log.Fatal("Failed to init logger: ", err)
	}
	defer logger.Sync()

	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	if err := database.InitDB(cfg.Database.Path); err != nil {
		logger.Error("failed to init database", err)
		return
	}

	ginRoutes := routes.SetupRoutes()

	addr := cfg.ServerAddr()
	logger.Info("server starting", zap.String("addr", addr))
	if err := ginRoutes.Run(addr); err != nil {
		logger.Error("server stopped", err)
	}
}
