// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/scheduler/scoring"
)

// Greedy 贪心求解器
//
// 逐天、按需求声明顺序处理缺员槽位，每个槽位选出评分最高的合格
// 工人。主阶段结束后可选执行利用率填充：把仍空闲的工人-天格子分配
// 给任一合格任务（不看剩余名额）。协调员专属任务不在本求解器范围内。
type Greedy struct {
	log *logger.EngineLogger

	// FillIdle 开启第二阶段利用率填充
	FillIdle bool
}

// NewGreedy 创建贪心求解器
func NewGreedy() *Greedy {
	return &Greedy{log: logger.NewEngineLogger(), FillIdle: true}
}

// Name 返回求解器名称
func (s *Greedy) Name() string {
	return "greedy"
}

// Solve 使用贪心算法生成排班
func (s *Greedy) Solve(ctx context.Context, pctx *plan.Context) (*Result, error) {
	start := time.Now()
	scorer := scoring.NewScorer(pctx.Config)
	rng := rand.New(rand.NewSource(pctx.Config.Seed))

	iterations := 0

	// 主阶段：逐天、按声明顺序补足缺员槽位
	for day := 0; day < pctx.Week.Days(); day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, req := range pctx.GeneralRequirements() {
			task := pctx.Task(req.TaskID)
			if task == nil {
				continue
			}

			for _, opType := range req.TypesFor(day) {
				for pctx.RemainingNeed(day, task.ID, opType) > 0 {
					iterations++

					workers := eligibility.EligibleWorkers(pctx, task, day, opType)
					if len(workers) == 0 {
						// 无人可派：留给审计阶段上报缺员警告
						s.log.SolverRejection(s.Name(), fmt.Sprintf(
							"任务 %s 在 %s 无合格 %s", task.Name, pctx.DayLabel(day), opType))
						break
					}

					candidates := make([]scored, 0, len(workers))
					for _, w := range workers {
						candidates = append(candidates, scored{
							worker: w,
							score:  scorer.Score(pctx, w, task, day),
						})
					}

					best := pickBest(candidates, rng)
					pctx.Week.Assign(best.ID, day, task.ID)
				}
			}
		}
	}

	// 第二阶段：利用率填充
	if s.FillIdle {
		s.fillIdleCells(pctx, scorer, rng)
	}

	result := BuildResult(pctx, iterations, start)
	result.Message = fmt.Sprintf("贪心排班完成，满足率 %.1f%%", result.Statistics.FillRate)
	return result, nil
}

// fillIdleCells 把仍空闲的工人-天格子分配给任一合格任务
func (s *Greedy) fillIdleCells(pctx *plan.Context, scorer *scoring.Scorer, rng *rand.Rand) {
	for day := 0; day < pctx.Week.Days(); day++ {
		for _, w := range pctx.Workers {
			cell := pctx.Week.Cell(w.ID, day)
			if cell == nil || !cell.IsIdle() || cell.Locked || cell.Pinned {
				continue
			}
			if !w.IsActive() || !w.AvailableOn(day) || w.IsCoordinator() {
				continue
			}

			tasks := eligibility.EligibleTasks(pctx, w, day, true)
			if len(tasks) == 0 {
				continue
			}

			const epsilon = 1e-9
			bestScore := scorer.Score(pctx, w, tasks[0], day)
			ties := []*model.Task{tasks[0]}
			for _, t := range tasks[1:] {
				sc := scorer.Score(pctx, w, t, day)
				switch {
				case sc > bestScore+epsilon:
					bestScore = sc
					ties = ties[:0]
					ties = append(ties, t)
				case sc > bestScore-epsilon:
					ties = append(ties, t)
				}
			}
			chosen := ties[0]
			if len(ties) > 1 {
				chosen = ties[rng.Intn(len(ties))]
			}
			pctx.Week.Assign(w.ID, day, chosen.ID)
		}
	}
}
