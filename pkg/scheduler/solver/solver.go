// Package solver 提供排班求解器
package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/stats"
)

// Solver 求解器接口
// 每个实现独立产出一份初始排班；通过显式配置选择，不做运行时类型判断
type Solver interface {
	// Solve 在上下文的周网格上生成排班
	Solve(ctx context.Context, pctx *plan.Context) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Assignments []*model.Cell   `json:"assignments"`
	Warnings    []model.Warning `json:"warnings"`
	Statistics  *Statistics     `json:"statistics"`
	Duration    time.Duration   `json:"duration"`

	// 预算耗尽时为 true：结果是当前最优而非最终解
	Partial bool   `json:"partial,omitempty"`
	Message string `json:"message,omitempty"`
}

// Statistics 排班统计
type Statistics struct {
	TotalSlots    int                    `json:"total_slots"`
	FilledSlots   int                    `json:"filled_slots"`
	FillRate      float64                `json:"fill_rate"`
	AssignedCells int                    `json:"assigned_cells"`
	IdleCells     int                    `json:"idle_cells"`
	Iterations    int                    `json:"iterations"`
	Fairness      *stats.FairnessMetrics `json:"fairness,omitempty"`
}

// BuildResult 从上下文网格构造求解结果（审计 + 统计）
func BuildResult(pctx *plan.Context, iterations int, start time.Time) *Result {
	cells := pctx.Week.Assignments()
	out := make([]*model.Cell, len(cells))
	for i, c := range cells {
		out[i] = c.Clone()
	}

	return &Result{
		Assignments: out,
		Warnings:    Audit(pctx),
		Statistics:  BuildStatistics(pctx, iterations),
		Duration:    time.Since(start),
	}
}

// BuildStatistics 构造排班统计
func BuildStatistics(pctx *plan.Context, iterations int) *Statistics {
	s := &Statistics{
		TotalSlots:  pctx.TotalSlots(),
		FilledSlots: pctx.FilledSlots(),
		Iterations:  iterations,
	}
	if s.TotalSlots > 0 {
		s.FillRate = float64(s.FilledSlots) / float64(s.TotalSlots) * 100
	} else {
		s.FillRate = 100
	}

	loads := make([]stats.WorkerLoad, 0, len(pctx.Workers))
	for _, w := range pctx.Workers {
		assigned := pctx.Week.AssignedCount(w.ID)
		s.AssignedCells += assigned
		loads = append(loads, stats.WorkerLoad{
			ID:       w.ID.String(),
			Name:     w.Name,
			Assigned: assigned,
		})
	}
	s.IdleCells = len(pctx.Workers)*pctx.Week.Days() - s.AssignedCells
	s.Fairness = stats.Analyze(loads)

	return s
}

// scored 带得分的候选工人
type scored struct {
	worker *model.Worker
	score  float64
}

// pickBest 选出得分最高的候选；得分相同者用种子随机数裁决，
// 保证同一种子下结果可复现，不同种子下有变化
func pickBest(candidates []scored, rng *rand.Rand) *model.Worker {
	if len(candidates) == 0 {
		return nil
	}

	const epsilon = 1e-9

	best := candidates[0]
	ties := []scored{best}
	for _, c := range candidates[1:] {
		switch {
		case c.score > best.score+epsilon:
			best = c
			ties = ties[:0]
			ties = append(ties, c)
		case c.score > best.score-epsilon:
			ties = append(ties, c)
		}
	}

	if len(ties) == 1 {
		return ties[0].worker
	}
	return ties[rng.Intn(len(ties))].worker
}
