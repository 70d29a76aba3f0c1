package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/app/api"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting crypto monitor API server",
		zap.String("config", *configPath),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	server := api.NewServer(cfg, logger)
	if err := server.Run(); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}
