// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paigong/paigong/internal/metrics"
	"github.com/paigong/paigong/internal/repository"
	"github.com/paigong/paigong/pkg/errors"
	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/scheduler"
)

// PlanHandler 排班处理器
type PlanHandler struct {
	engine *scheduler.Engine
	runs   repository.PlanRunRepositoryInterface
}

// NewPlanHandler 创建排班处理器
// runs 可为 nil：无数据库部署下引擎照常工作，只是不留存记录
func NewPlanHandler(engine *scheduler.Engine, runs repository.PlanRunRepositoryInterface) *PlanHandler {
	return &PlanHandler{engine: engine, runs: runs}
}

// Generate 处理排班生成请求
// POST /api/v1/plans/generate
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req scheduler.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体不是合法的JSON"))
		return
	}

	resp, err := h.engine.Generate(r.Context(), &req)
	metrics.RecordPlanGeneration(string(req.Algorithm), err == nil, time.Since(start))
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordPlanQuality(string(req.Algorithm),
		resp.Result.Statistics.FillRate, resp.Objectives.Fairness)

	runID := h.persist(r.Context(), &req, resp, time.Since(start))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"plan":   resp,
	})
}

// persist 留存本次生成记录，失败只记日志不影响响应
func (h *PlanHandler) persist(ctx context.Context, req *scheduler.Request,
	resp *scheduler.Response, duration time.Duration) string {

	if h.runs == nil {
		return ""
	}

	reqJSON, _ := json.Marshal(req)
	respJSON, _ := json.Marshal(resp)

	run := &repository.PlanRun{
		Algorithm:   string(req.Algorithm),
		Seed:        req.Config.Seed,
		Days:        len(req.Days),
		Workers:     len(req.Workers),
		TotalSlots:  resp.Result.Statistics.TotalSlots,
		FilledSlots: resp.Result.Statistics.FilledSlots,
		FillRate:    resp.Result.Statistics.FillRate,
		Partial:     resp.Result.Partial,
		Request:     reqJSON,
		Response:    respJSON,
		Duration:    duration,
	}
	if err := h.runs.Create(ctx, run); err != nil {
		logger.WithError(err).Msg("留存排班记录失败")
		return ""
	}
	return run.ID.String()
}

// List 列出历史排班记录
// GET /api/v1/plans?algorithm=greedy&limit=20&offset=0
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, errors.New(errors.CodeNotFound, "未启用排班记录留存"))
		return
	}

	filter := repository.ListFilter{
		Algorithm: r.URL.Query().Get("algorithm"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	runs, total, err := h.runs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	// 列表响应不携带请求/响应全文
	for _, run := range runs {
		run.Request = nil
		run.Response = nil
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"runs":  runs,
	})
}

// Get 获取单条排班记录（含请求/响应全文）
// GET /api/v1/plans/{id}
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, errors.New(errors.CodeNotFound, "未启用排班记录留存"))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput("id", "不是合法的UUID"))
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError 按应用错误码输出错误响应
func writeError(w http.ResponseWriter, err error) {
	status := errors.GetHTTPStatus(err)

	var body interface{}
	if appErr, ok := err.(*errors.AppError); ok {
		body = appErr
	} else {
		body = map[string]string{
			"code":    string(errors.GetCode(err)),
			"message": err.Error(),
		}
	}

	if status >= http.StatusInternalServerError {
		logger.WithError(err).Msg("请求处理失败")
	}
	writeJSON(w, status, body)
}
