// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

const (
	// 协调员人数不超过该值时穷举全排列，否则随机采样
	permExhaustiveLimit = 7
	permSampleCount     = 5000
)

// Rotation 协调员轮换求解器
//
// 把协调员专属任务与协调员工人建模为排列搜索：逐天枚举（或采样）
// 协调员到任务的映射，以整周轮换公平性和多样性评分，选出最优排列。
// 只要名额允许，保证每个协调员在可用的每一天都有任务。
type Rotation struct{}

// NewRotation 创建协调员轮换求解器
func NewRotation() *Rotation {
	return &Rotation{}
}

// Name 返回求解器名称
func (s *Rotation) Name() string {
	return "rotation"
}

// Solve 为协调员专属任务生成轮换排班
func (s *Rotation) Solve(ctx context.Context, pctx *plan.Context) (*Result, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(pctx.Config.Seed))

	coordinators := pctx.Coordinators()
	requirements := pctx.CoordinatorRequirements()
	if len(coordinators) == 0 || len(requirements) == 0 {
		return BuildResult(pctx, 0, start), nil
	}

	// (协调员, 任务) 的周内承担次数，含已有锁定分配
	tally := make(map[uuid.UUID]map[uuid.UUID]int)
	for _, c := range coordinators {
		tally[c.ID] = make(map[uuid.UUID]int)
		for d := 0; d < pctx.Week.Days(); d++ {
			if taskID := pctx.Week.TaskOn(c.ID, d); taskID != nil {
				tally[c.ID][*taskID]++
			}
		}
	}

	iterations := 0

	for day := 0; day < pctx.Week.Days(); day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slots := s.daySlots(pctx, requirements, day)
		if len(slots) == 0 {
			continue
		}

		available := s.availableCoordinators(pctx, coordinators, slots, day)
		if len(available) == 0 {
			continue
		}

		bestPerm := s.searchBestPermutation(pctx, available, slots, day, tally, rng, &iterations)

		pairs := len(bestPerm)
		if len(slots) < pairs {
			pairs = len(slots)
		}
		for i := 0; i < pairs; i++ {
			worker := available[bestPerm[i]]
			taskID := slots[i]
			// 最优排列仍可能含不可行配对（重罚但未淘汰）：
			// 跳过并把缺口留给审计上报，绝不写入硬约束违例
			task := pctx.Task(taskID)
			if task == nil || !eligibility.CanAssignUncapped(pctx, worker, task, day).OK {
				continue
			}
			pctx.Week.Assign(worker.ID, day, taskID)
			tally[worker.ID][taskID]++
		}
	}

	result := BuildResult(pctx, iterations, start)
	result.Message = fmt.Sprintf("协调员轮换完成，%d 名协调员", len(coordinators))
	return result, nil
}

// daySlots 展开第 day 天的协调员槽位（按需求声明顺序，含剩余缺口）
func (s *Rotation) daySlots(pctx *plan.Context, requirements []*model.Requirement, day int) []uuid.UUID {
	var slots []uuid.UUID
	for _, req := range requirements {
		remaining := pctx.RemainingNeed(day, req.TaskID, model.TypeCoordinator)
		for i := 0; i < remaining; i++ {
			slots = append(slots, req.TaskID)
		}
	}
	return slots
}

// availableCoordinators 返回第 day 天可参与轮换的协调员
func (s *Rotation) availableCoordinators(pctx *plan.Context, coordinators []*model.Worker,
	slots []uuid.UUID, day int) []*model.Worker {

	var out []*model.Worker
	for _, c := range coordinators {
		// 至少能承担一个当天的槽位任务才参与排列
		eligible := false
		for _, taskID := range slots {
			task := pctx.Task(taskID)
			if task != nil && eligibility.CanAssignUncapped(pctx, c, task, day).OK {
				eligible = true
				break
			}
		}
		if eligible {
			out = append(out, c)
		}
	}
	return out
}

// searchBestPermutation 搜索当天最优的协调员排列
func (s *Rotation) searchBestPermutation(pctx *plan.Context, available []*model.Worker,
	slots []uuid.UUID, day int, tally map[uuid.UUID]map[uuid.UUID]int,
	rng *rand.Rand, iterations *int) []int {

	n := len(available)
	base := make([]int, n)
	for i := range base {
		base[i] = i
	}

	bestPerm := append([]int(nil), base...)
	bestPenalty := s.permutationPenalty(pctx, available, slots, day, tally, base)

	consider := func(perm []int) {
		*iterations++
		penalty := s.permutationPenalty(pctx, available, slots, day, tally, perm)
		if penalty < bestPenalty {
			bestPenalty = penalty
			bestPerm = append(bestPerm[:0], perm...)
		}
	}

	if n <= permExhaustiveLimit {
		permute(base, 0, consider)
	} else {
		perm := append([]int(nil), base...)
		for i := 0; i < permSampleCount; i++ {
			rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			consider(perm)
		}
	}

	return bestPerm
}

// permutationPenalty 计算一个排列的惩罚值（越低越好）
//
// 轮换公平性：同一 (协调员, 任务) 的周内重复次数平方惩罚；
// 多样性：与前一天相同任务的额外惩罚；
// 无法承担槽位任务的配对记重罚，排列搜索自然避开。
func (s *Rotation) permutationPenalty(pctx *plan.Context, available []*model.Worker,
	slots []uuid.UUID, day int, tally map[uuid.UUID]map[uuid.UUID]int, perm []int) float64 {

	const infeasiblePenalty = 1000.0

	pairs := len(perm)
	if len(slots) < pairs {
		pairs = len(slots)
	}

	penalty := 0.0
	for i := 0; i < pairs; i++ {
		worker := available[perm[i]]
		taskID := slots[i]
		task := pctx.Task(taskID)

		if task == nil || !eligibility.CanAssignUncapped(pctx, worker, task, day).OK {
			penalty += infeasiblePenalty
			continue
		}

		repeats := float64(tally[worker.ID][taskID])
		penalty += repeats * repeats

		if prev := pctx.Week.TaskOn(worker.ID, day-1); prev != nil && *prev == taskID {
			penalty += 2
		}
	}

	// 名额不足时有人空闲，轻微惩罚以倾向覆盖更多人
	if len(perm) > len(slots) {
		penalty += float64(len(perm)-len(slots)) * 0.5
	}

	return penalty
}

// permute 用递归交换枚举全排列
func permute(arr []int, k int, visit func([]int)) {
	if k == len(arr) {
		visit(arr)
		return
	}
	for i := k; i < len(arr); i++ {
		arr[k], arr[i] = arr[i], arr[k]
		permute(arr, k+1, visit)
		arr[k], arr[i] = arr[i], arr[k]
	}
}
