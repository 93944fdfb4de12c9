// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paigong/paigong/internal/metrics"
	"github.com/paigong/paigong/pkg/logger"
)

// HealthChecker 健康检查依赖
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter 组装HTTP路由
// db 可为 nil：健康检查只报告服务自身状态
func NewRouter(plans *PlanHandler, db HealthChecker, metricsPath string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok", "service": "paigong"}
		code := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				status["database"] = "ok"
			}
		}
		writeJSON(w, code, status)
	})

	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Method(http.MethodGet, metricsPath, metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plans/generate", plans.Generate)
		r.Get("/plans", plans.List)
		r.Get("/plans/{id}", plans.Get)
	})

	return r
}

// requestLogger 请求日志与指标中间件
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequest(r.Method, r.URL.Path, ww.Status(), duration)
	})
}
