// PaiGong 周派工引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paigong/paigong/internal/config"
	"github.com/paigong/paigong/internal/database"
	"github.com/paigong/paigong/internal/handler"
	"github.com/paigong/paigong/internal/repository"
	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/scheduler"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logFormat := "console"
	if cfg.IsProduction() {
		logFormat = "json"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: logFormat,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("PaiGong 周派工引擎启动")

	// 数据库可选：连不上时以无留存模式继续运行
	var db *database.DB
	var runs repository.PlanRunRepositoryInterface
	if db, err = database.New(&cfg.Database); err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，排班记录留存已禁用")
		db = nil
	} else {
		defer db.Close()
		runs = repository.NewPlanRunRepository(db)
	}

	engine := scheduler.NewEngine()
	plans := handler.NewPlanHandler(engine, runs)

	var health handler.HealthChecker
	if db != nil {
		health = db
	}
	router := handler.NewRouter(plans, health, cfg.Metrics.Path)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}
