package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"release-portal/internal/portal/api"
	"release-portal/pkg/config"
	"release-portal/pkg/response"
	"release-portal/pkg/utils"
)

func main() {
	// 命令行参数
	cfgFile := pflag.StringP("config", "c", "", "Config file")

	pflag.String("port", ":8080", "Listening address (e.g. :8080)")
	viper.BindPFlag("server.port", pflag.Lookup("port"))

	pflag.String("db_path", "portal.db", "Path to SQLite database file")
	viper.BindPFlag("server.db_path", pflag.Lookup("db_path"))

	pflag.String("storage", "local", "Storage type: local | minio")
	viper.BindPFlag("storage.type", pflag.Lookup("storage"))

	pflag.String("upload_dir", "uploads", "Directory to store uploaded installers (local storage)")
	viper.BindPFlag("storage.upload_dir", pflag.Lookup("upload_dir"))

	pflag.String("log_level", "info", "Log level: debug | info | warn | error")
	viper.BindPFlag("log.level", pflag.Lookup("log_level"))

	pflag.Parse()

	// 加载配置
	cfg, err := config.LoadPortalConfig(*cfgFile)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Init logger failed: %v", err)
	}
	defer logger.Sync()
	response.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.StartServer(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
