// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

// Matching 最大匹配求解器
//
// 逐天构造二分图：左侧为工人，右侧为需求槽位单元，边表示资格
// （技能/类型/可用性）。用增广路径算法求最大匹配，保证在给定资格图
// 下当天填充的槽位数可证明最大——公平性和多样性不是本求解器的目标，
// 它回答的是"100% 满足是否可能，不可能时上限是多少"。
// 给定相同资格图结果确定，与评分权重无关。
type Matching struct{}

// NewMatching 创建最大匹配求解器
func NewMatching() *Matching {
	return &Matching{}
}

// Name 返回求解器名称
func (s *Matching) Name() string {
	return "matching"
}

// Solve 使用逐天二分图最大匹配生成排班
func (s *Matching) Solve(ctx context.Context, pctx *plan.Context) (*Result, error) {
	start := time.Now()
	iterations := 0

	for day := 0; day < pctx.Week.Days(); day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations += s.matchDay(pctx, day)
	}

	result := BuildResult(pctx, iterations, start)
	result.Message = fmt.Sprintf("最大匹配完成，满足率 %.1f%%", result.Statistics.FillRate)
	return result, nil
}

// matchDay 对第 day 天求最大匹配并落盘到网格，返回增广尝试次数
func (s *Matching) matchDay(pctx *plan.Context, day int) int {
	// 当天的槽位单元（仅普通需求；协调员任务由轮换求解器处理）
	var slots []propSlot
	for _, req := range pctx.GeneralRequirements() {
		for _, opType := range req.TypesFor(day) {
			remaining := pctx.RemainingNeed(day, req.TaskID, opType)
			for i := 0; i < remaining; i++ {
				slots = append(slots, propSlot{day: day, taskID: req.TaskID, opType: opType})
			}
		}
	}
	if len(slots) == 0 {
		return 0
	}

	// 邻接表：工人 -> 可承担的槽位下标
	adj := make([][]int, len(pctx.Workers))
	for wi, w := range pctx.Workers {
		for si, slot := range slots {
			if w.Type != slot.opType {
				continue
			}
			task := pctx.Task(slot.taskID)
			if task == nil {
				continue
			}
			if eligibility.CanAssignUncapped(pctx, w, task, day).OK {
				adj[wi] = append(adj[wi], si)
			}
		}
	}

	// Kuhn 增广路径算法
	matchSlot := make([]int, len(slots)) // 槽位 -> 工人下标
	for i := range matchSlot {
		matchSlot[i] = -1
	}

	attempts := 0
	var tryAugment func(wi int, visited []bool) bool
	tryAugment = func(wi int, visited []bool) bool {
		for _, si := range adj[wi] {
			if visited[si] {
				continue
			}
			visited[si] = true
			if matchSlot[si] < 0 || tryAugment(matchSlot[si], visited) {
				matchSlot[si] = wi
				return true
			}
		}
		return false
	}

	for wi := range pctx.Workers {
		if len(adj[wi]) == 0 {
			continue
		}
		attempts++
		tryAugment(wi, make([]bool, len(slots)))
	}

	// 落盘匹配结果
	for si, wi := range matchSlot {
		if wi < 0 {
			continue
		}
		pctx.Week.Assign(pctx.Workers[wi].ID, day, slots[si].taskID)
	}

	return attempts
}
