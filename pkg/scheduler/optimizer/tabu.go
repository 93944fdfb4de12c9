// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/scheduler/scoring"
	"github.com/paigong/paigong/pkg/scheduler/solver"
)

// TabuConfig 禁忌搜索配置
type TabuConfig struct {
	MaxIterations    int           `json:"max_iterations"`
	MaxTime          time.Duration `json:"max_time"`
	TabuSize         int           `json:"tabu_size"`
	NeighborhoodSize int           `json:"neighborhood_size"`
}

// DefaultTabuConfig 默认禁忌搜索配置
func DefaultTabuConfig() TabuConfig {
	return TabuConfig{
		MaxIterations:    500,
		MaxTime:          5 * time.Second,
		TabuSize:         50,
		NeighborhoodSize: 20,
	}
}

// TabuStats 禁忌搜索运行统计
type TabuStats struct {
	InitialScore  float64 `json:"initial_score"`
	FinalScore    float64 `json:"final_score"`
	IterationsRun int     `json:"iterations_run"`
}

// moveKind 邻域移动类型
type moveKind byte

const (
	moveSwap     moveKind = 's' // 同一天交换两名工人的任务
	moveReassign moveKind = 'r' // 把一名工人改派到另一合格任务
)

// move 邻域移动
type move struct {
	kind     moveKind
	day      int
	workerA  uuid.UUID
	workerB  uuid.UUID // 仅交换移动使用
	fromTask *uuid.UUID
	toTask   *uuid.UUID
}

// reverse 返回撤销本移动的反向移动
func (m move) reverse() move {
	switch m.kind {
	case moveSwap:
		return move{kind: moveSwap, day: m.day, workerA: m.workerB, workerB: m.workerA,
			fromTask: m.toTask, toTask: m.fromTask}
	default:
		return move{kind: moveReassign, day: m.day, workerA: m.workerA,
			fromTask: m.toTask, toTask: m.fromTask}
	}
}

// key 计算移动的 FNV-1a 哈希键
func (m move) key() uint64 {
	h := fnv.New64a()
	h.Write([]byte{byte(m.kind), byte(m.day)})
	h.Write(m.workerA[:])
	h.Write(m.workerB[:])
	if m.fromTask != nil {
		h.Write(m.fromTask[:])
	}
	if m.toTask != nil {
		h.Write(m.toTask[:])
	}
	return h.Sum64()
}

// TabuList 禁忌表：固定容量，先进先出淘汰
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	_, exists := t.items[key]
	return exists
}

// Len 返回禁忌表当前长度
func (t *TabuList) Len() int {
	return len(t.order)
}

// TabuRefiner 禁忌搜索精炼器
//
// 对任意可行排班做局部搜索后处理：交换/改派邻域，短期禁忌表防止
// 循环，破禁准则允许刷新历史最优的移动。所有邻域移动只在硬约束合格
// 的分配之间生成，精炼过程从不破坏硬约束；到达迭代或时间预算即停，
// 返回历史最优，保证不劣于初始解。
type TabuRefiner struct {
	cfg TabuConfig
	log *logger.EngineLogger
}

// NewTabuRefiner 创建禁忌搜索精炼器
func NewTabuRefiner(cfg TabuConfig) *TabuRefiner {
	if cfg.MaxIterations <= 0 {
		cfg = DefaultTabuConfig()
	}
	return &TabuRefiner{cfg: cfg, log: logger.NewEngineLogger()}
}

// Refine 精炼排班，返回历史最优结果与运行统计
func (r *TabuRefiner) Refine(ctx context.Context, pctx *plan.Context) (*solver.Result, *TabuStats, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(pctx.Config.Seed))
	tabu := NewTabuList(r.cfg.TabuSize)

	current := pctx.Fork()
	best := pctx.Fork()
	currentScore := scoring.Evaluate(current).Weighted(current.Config.Weights)
	bestScore := currentScore

	stats := &TabuStats{InitialScore: currentScore}

	maxTime := r.cfg.MaxTime
	if pctx.Config.Timeout > 0 && pctx.Config.Timeout < maxTime {
		maxTime = pctx.Config.Timeout
	}
	deadline := start.Add(maxTime)

	for i := 0; i < r.cfg.MaxIterations; i++ {
		// 协作式取消：只在迭代边界检查
		if err := ctx.Err(); err != nil {
			break
		}
		if time.Now().After(deadline) {
			r.log.BudgetExhausted("tabu", i)
			break
		}
		stats.IterationsRun = i + 1

		moves := r.generateMoves(current, rng)
		if len(moves) == 0 {
			break
		}

		// 选出最优的非禁忌邻居（破禁准则：刷新历史最优的移动除外）
		var chosen *move
		var chosenCtx *plan.Context
		chosenScore := 0.0
		for mi := range moves {
			m := moves[mi]
			neighbor := current.Fork()
			applyMove(neighbor, m)
			score := scoring.Evaluate(neighbor).Weighted(neighbor.Config.Weights)

			inTabu := tabu.Contains(m.reverse().key())
			if inTabu && score <= bestScore {
				continue
			}
			if chosen == nil || score > chosenScore {
				chosen = &moves[mi]
				chosenCtx = neighbor
				chosenScore = score
			}
		}
		if chosen == nil {
			continue
		}

		current = chosenCtx
		currentScore = chosenScore
		tabu.Add(chosen.reverse().key())

		if currentScore > bestScore {
			best = current.Fork()
			bestScore = currentScore
		}
	}

	stats.FinalScore = bestScore

	// 把历史最优写回调用方上下文，后续阶段（补缺、审计）在其上继续
	pctx.Week = best.Week

	result := solver.BuildResult(best, stats.IterationsRun, start)
	result.Message = fmt.Sprintf("禁忌搜索完成: %.2f -> %.2f", stats.InitialScore, stats.FinalScore)
	return result, stats, nil
}

// generateMoves 生成一批硬约束合格的邻域移动
func (r *TabuRefiner) generateMoves(pctx *plan.Context, rng *rand.Rand) []move {
	moves := make([]move, 0, r.cfg.NeighborhoodSize)
	attempts := r.cfg.NeighborhoodSize * 4

	for len(moves) < r.cfg.NeighborhoodSize && attempts > 0 {
		attempts--
		if rng.Intn(2) == 0 {
			if m, ok := r.swapMove(pctx, rng); ok {
				moves = append(moves, m)
			}
		} else {
			if m, ok := r.reassignMove(pctx, rng); ok {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

// swapMove 随机生成一个合格的同天任务交换
// 限定同操作员类型的两名工人互换，各任务的类型人数保持不变
func (r *TabuRefiner) swapMove(pctx *plan.Context, rng *rand.Rand) (move, bool) {
	if len(pctx.Workers) < 2 || pctx.Week.Days() == 0 {
		return move{}, false
	}

	day := rng.Intn(pctx.Week.Days())
	a := pctx.Workers[rng.Intn(len(pctx.Workers))]
	b := pctx.Workers[rng.Intn(len(pctx.Workers))]
	if a.ID == b.ID || a.Type != b.Type {
		return move{}, false
	}

	cellA := pctx.Week.Cell(a.ID, day)
	cellB := pctx.Week.Cell(b.ID, day)
	if cellA == nil || cellB == nil || cellA.Locked || cellA.Pinned || cellB.Locked || cellB.Pinned {
		return move{}, false
	}
	if cellA.IsIdle() || cellB.IsIdle() {
		return move{}, false
	}
	if *cellA.TaskID == *cellB.TaskID {
		return move{}, false
	}

	taskA := pctx.Task(*cellA.TaskID)
	taskB := pctx.Task(*cellB.TaskID)
	if taskA == nil || taskB == nil {
		return move{}, false
	}

	if !eligibility.CanReplaceUncapped(pctx, a, taskB, day).OK {
		return move{}, false
	}
	if !eligibility.CanReplaceUncapped(pctx, b, taskA, day).OK {
		return move{}, false
	}

	return move{
		kind: moveSwap, day: day,
		workerA: a.ID, workerB: b.ID,
		fromTask: cellA.TaskID, toTask: cellB.TaskID,
	}, true
}

// reassignMove 随机生成一个合格的改派移动
func (r *TabuRefiner) reassignMove(pctx *plan.Context, rng *rand.Rand) (move, bool) {
	if len(pctx.Workers) == 0 || pctx.Week.Days() == 0 {
		return move{}, false
	}

	day := rng.Intn(pctx.Week.Days())
	w := pctx.Workers[rng.Intn(len(pctx.Workers))]
	cell := pctx.Week.Cell(w.ID, day)
	if cell == nil || cell.Locked || cell.Pinned || cell.IsIdle() {
		return move{}, false
	}

	// 替换模式：工人已有分配，普通的分配检查会一律拒绝
	tasks := eligibility.EligibleReplacements(pctx, w, day)
	var options []*uuid.UUID
	for _, t := range tasks {
		if *cell.TaskID == t.ID {
			continue
		}
		id := t.ID
		options = append(options, &id)
	}
	if len(options) == 0 {
		return move{}, false
	}

	to := options[rng.Intn(len(options))]
	return move{kind: moveReassign, day: day, workerA: w.ID, fromTask: cell.TaskID, toTask: to}, true
}

// applyMove 在上下文网格上执行移动
func applyMove(pctx *plan.Context, m move) {
	switch m.kind {
	case moveSwap:
		if m.toTask != nil {
			pctx.Week.Assign(m.workerA, m.day, *m.toTask)
		}
		if m.fromTask != nil {
			pctx.Week.Assign(m.workerB, m.day, *m.fromTask)
		}
	case moveReassign:
		if m.toTask == nil {
			pctx.Week.SetIdle(m.workerA, m.day)
		} else {
			pctx.Week.Assign(m.workerA, m.day, *m.toTask)
		}
	}
}
