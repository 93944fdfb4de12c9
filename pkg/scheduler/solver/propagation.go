// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/scheduler/scoring"
)

// propSlot 一个需求槽位单元：(天, 任务, 操作员类型) 的一个名额
type propSlot struct {
	day    int
	taskID uuid.UUID
	opType model.OperatorType
}

// choicePoint 回溯选择点
//
// 用显式栈而非语言级递归：每帧保存槽位下标、已尝试候选集和分配前的
// 网格快照，内存可控，且每帧边界都能做确定性的超时检查。
type choicePoint struct {
	slot  int
	tried map[uuid.UUID]bool
	week  *model.Week
	done  []bool
}

// Propagation 约束传播求解器
//
// 三个阶段：(1) 先做无歧义的强制分配；(2) 其余槽位按合格工人数升序
// 处理（最少剩余值启发式），逐个分配评分最高的合格工人；(3) 遇到零
// 候选槽位时回溯，撤销最近的自由选择并尝试次优候选，受迭代/时间预算
// 约束。目的：贪心的从左到右扫描会让多技能工人先被常见任务占用，
// 本求解器按稀缺度重排，把稀缺技能工人留给稀缺技能槽位。
type Propagation struct {
	log *logger.EngineLogger
}

// NewPropagation 创建约束传播求解器
func NewPropagation() *Propagation {
	return &Propagation{log: logger.NewEngineLogger()}
}

// Name 返回求解器名称
func (s *Propagation) Name() string {
	return "propagation"
}

// Solve 使用约束传播和回溯生成排班
func (s *Propagation) Solve(ctx context.Context, pctx *plan.Context) (*Result, error) {
	start := time.Now()
	deadline := start.Add(pctx.Config.Timeout)
	scorer := scoring.NewScorer(pctx.Config)

	slots := expandSlots(pctx)
	done := make([]bool, len(slots))
	var stack []choicePoint

	// 超时返回当前最优部分解
	best := pctx.Week.Clone()
	bestFilled := pctx.FilledSlots()
	partial := false
	iterations := 0

	snapshotBest := func() {
		if filled := pctx.FilledSlots(); filled > bestFilled {
			bestFilled = filled
			best = pctx.Week.Clone()
		}
	}

	for {
		iterations++
		if iterations > pctx.Config.MaxIterations || time.Now().After(deadline) {
			partial = true
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := pendingSlots(done)
		if len(remaining) == 0 {
			break
		}

		// 计算剩余槽位的合格工人集
		elig := make(map[int][]*model.Worker, len(remaining))
		zeroIdx := -1
		for _, i := range remaining {
			task := pctx.Task(slots[i].taskID)
			workers := eligibility.EligibleWorkers(pctx, task, slots[i].day, slots[i].opType)
			elig[i] = workers
			if len(workers) == 0 && zeroIdx < 0 {
				zeroIdx = i
			}
		}

		// 阶段3：死端回溯
		if zeroIdx >= 0 {
			if !s.backtrack(pctx, scorer, slots, done, &stack) {
				// 栈空：该槽位确实无解，放弃并由审计上报缺员
				done[zeroIdx] = true
			}
			snapshotBest()
			continue
		}

		// 阶段1：强制分配（唯一候选，或技能组候选数恰好等于槽位数）
		if idx, worker := s.forcedAssignment(pctx, slots, remaining, elig); idx >= 0 {
			pctx.Week.Assign(worker.ID, slots[idx].day, slots[idx].taskID)
			done[idx] = true
			snapshotBest()
			continue
		}

		// 阶段2：最少剩余值启发式，选候选最少的槽位做自由选择
		pick := remaining[0]
		for _, i := range remaining[1:] {
			if len(elig[i]) < len(elig[pick]) {
				pick = i
			}
		}

		candidates := s.rankCandidates(pctx, scorer, slots[pick], elig[pick])
		choice := candidates[0]

		cp := choicePoint{
			slot:  pick,
			tried: map[uuid.UUID]bool{choice.ID: true},
			week:  pctx.Week.Clone(),
			done:  append([]bool(nil), done...),
		}
		stack = append(stack, cp)

		pctx.Week.Assign(choice.ID, slots[pick].day, slots[pick].taskID)
		done[pick] = true
		snapshotBest()
	}

	if partial {
		pctx.Week = best
		s.log.BudgetExhausted(s.Name(), iterations)
	}

	result := BuildResult(pctx, iterations, start)
	result.Partial = partial
	if partial {
		result.Message = "求解预算耗尽，返回当前最优部分解"
	} else {
		result.Message = fmt.Sprintf("约束传播完成，满足率 %.1f%%", result.Statistics.FillRate)
	}
	return result, nil
}

// backtrack 撤销最近的自由选择并尝试次优候选
// 返回是否成功恢复到一个新的可行分支
func (s *Propagation) backtrack(pctx *plan.Context, scorer *scoring.Scorer,
	slots []propSlot, done []bool, stack *[]choicePoint) bool {

	for len(*stack) > 0 {
		cp := &(*stack)[len(*stack)-1]

		// 恢复到选择点之前的状态
		pctx.Week = cp.week.Clone()
		copy(done, cp.done)

		task := pctx.Task(slots[cp.slot].taskID)
		workers := eligibility.EligibleWorkers(pctx, task, slots[cp.slot].day, slots[cp.slot].opType)

		var untried []*model.Worker
		for _, w := range workers {
			if !cp.tried[w.ID] {
				untried = append(untried, w)
			}
		}

		if len(untried) > 0 {
			next := s.rankCandidates(pctx, scorer, slots[cp.slot], untried)[0]
			cp.tried[next.ID] = true
			pctx.Week.Assign(next.ID, slots[cp.slot].day, slots[cp.slot].taskID)
			done[cp.slot] = true
			return true
		}

		// 该选择点候选耗尽，继续向上回退
		*stack = (*stack)[:len(*stack)-1]
	}
	return false
}

// forcedAssignment 寻找无歧义的强制分配
//
// 两种情形：槽位只剩唯一候选；或某技能的候选工人并集大小恰好等于
// 需要该技能的剩余槽位数（每个人都必须用上，不容贪心挪用）。
func (s *Propagation) forcedAssignment(pctx *plan.Context, slots []propSlot,
	remaining []int, elig map[int][]*model.Worker) (int, *model.Worker) {

	for _, i := range remaining {
		if len(elig[i]) == 1 {
			return i, elig[i][0]
		}
	}

	// 按技能分组
	groups := make(map[string][]int)
	var order []string
	for _, i := range remaining {
		task := pctx.Task(slots[i].taskID)
		if task == nil || task.RequiredSkill == "" {
			continue
		}
		if _, seen := groups[task.RequiredSkill]; !seen {
			order = append(order, task.RequiredSkill)
		}
		groups[task.RequiredSkill] = append(groups[task.RequiredSkill], i)
	}

	for _, skill := range order {
		group := groups[skill]
		union := make(map[uuid.UUID]bool)
		for _, i := range group {
			for _, w := range elig[i] {
				union[w.ID] = true
			}
		}
		if len(union) == len(group) {
			// 候选刚好够用：该组第一个槽位可立即强制分配
			i := group[0]
			return i, elig[i][0]
		}
	}

	return -1, nil
}

// rankCandidates 按评分降序排序候选（稳定排序保证确定性）
func (s *Propagation) rankCandidates(pctx *plan.Context, scorer *scoring.Scorer,
	slot propSlot, workers []*model.Worker) []*model.Worker {

	task := pctx.Task(slot.taskID)
	ranked := append([]*model.Worker(nil), workers...)
	scores := make(map[uuid.UUID]float64, len(ranked))
	for _, w := range ranked {
		scores[w.ID] = scorer.Score(pctx, w, task, slot.day)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a].ID] > scores[ranked[b].ID]
	})
	return ranked
}

// expandSlots 把普通需求展开为槽位单元（天序、声明序、类型序）
func expandSlots(pctx *plan.Context) []propSlot {
	var slots []propSlot
	for day := 0; day < pctx.Week.Days(); day++ {
		for _, req := range pctx.GeneralRequirements() {
			for _, opType := range req.TypesFor(day) {
				remaining := pctx.RemainingNeed(day, req.TaskID, opType)
				for i := 0; i < remaining; i++ {
					slots = append(slots, propSlot{day: day, taskID: req.TaskID, opType: opType})
				}
			}
		}
	}
	return slots
}

// pendingSlots 返回未完成槽位的下标
func pendingSlots(done []bool) []int {
	var out []int
	for i, d := range done {
		if !d {
			out = append(out, i)
		}
	}
	return out
}
