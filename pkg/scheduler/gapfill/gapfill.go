// Package gapfill 实现缺口填充器
//
// 对任意求解器的产出做最后一道加工：逐个处理仍未满足的需求槽位，
// 先在全部软规则约束下找人，找不到就按优先级从低到高逐条放宽软
// 规则重试。硬约束（资格、锁定、容量）永不放宽；填不上的槽位带
// 结构化原因上报。
package gapfill

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/scheduler/scoring"
)

// Rule 可放宽的软规则
type Rule string

const (
	RuleAvoidConsecutiveSameTask Rule = "avoid_consecutive_same_task"
	RuleTaskVariety              Rule = "task_variety"
	RuleWorkloadBalance          Rule = "workload_balance"
	RuleAvoidConsecutiveHeavy    Rule = "avoid_consecutive_heavy"
)

// DefaultPriority 默认软规则优先级（先到后依次更重要，放宽从末尾开始）
func DefaultPriority() []Rule {
	return []Rule{
		RuleAvoidConsecutiveHeavy,
		RuleWorkloadBalance,
		RuleTaskVariety,
		RuleAvoidConsecutiveSameTask,
	}
}

// Unfillable 无法填充的槽位及其原因
type Unfillable struct {
	Day    int                `json:"day"`
	Label  string             `json:"label"`
	TaskID uuid.UUID          `json:"task_id"`
	Type   model.OperatorType `json:"type"`
	Reason string             `json:"reason"`
}

// Report 缺口填充报告
//
// NoRequirements 与 AllSatisfied 区分两种"无事可做"：前者是没有
// 配置任何需求，后者是需求存在且在填充前就已全部满足。
type Report struct {
	Filled         int            `json:"filled"`
	Relaxed        map[Rule]int   `json:"relaxed,omitempty"`
	Unfillable     []Unfillable   `json:"unfillable,omitempty"`
	NoRequirements bool           `json:"no_requirements"`
	AllSatisfied   bool           `json:"all_satisfied"`
}

// Filler 缺口填充器
type Filler struct {
	priority []Rule
	log      *logger.EngineLogger
}

// NewFiller 创建缺口填充器
// priority 为空时使用默认优先级
func NewFiller(priority []Rule) *Filler {
	if len(priority) == 0 {
		priority = DefaultPriority()
	}
	return &Filler{priority: priority, log: logger.NewEngineLogger()}
}

// Fill 填充剩余缺口并返回报告
func (f *Filler) Fill(ctx context.Context, pctx *plan.Context) (*Report, error) {
	report := &Report{Relaxed: make(map[Rule]int)}

	if len(pctx.Requirements) == 0 {
		report.NoRequirements = true
		report.AllSatisfied = true
		return report, nil
	}
	if pctx.FilledSlots() >= pctx.TotalSlots() {
		report.AllSatisfied = true
		return report, nil
	}

	scorer := scoring.NewScorer(pctx.Config)
	rng := rand.New(rand.NewSource(pctx.Config.Seed))

	for day := 0; day < pctx.Week.Days(); day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, req := range pctx.Requirements {
			task := pctx.Task(req.TaskID)
			if task == nil {
				continue
			}
			for _, opType := range req.TypesFor(day) {
				for pctx.RemainingNeed(day, task.ID, opType) > 0 {
					if !f.fillSlot(pctx, scorer, rng, task, day, opType, report) {
						break
					}
					report.Filled++
				}
			}
		}
	}

	report.AllSatisfied = pctx.FilledSlots() >= pctx.TotalSlots()
	return report, nil
}

// fillSlot 填充单个槽位，成功返回 true
//
// 放宽层级 L 表示忽略优先级最低的 L 条软规则；从 L=0 逐级尝试，
// 在首个有候选的层级选出评分最高者。
func (f *Filler) fillSlot(pctx *plan.Context, scorer *scoring.Scorer, rng *rand.Rand,
	task *model.Task, day int, opType model.OperatorType, report *Report) bool {

	eligible := eligibility.EligibleWorkers(pctx, task, day, opType)
	if len(eligible) == 0 {
		report.Unfillable = append(report.Unfillable, Unfillable{
			Day:    day,
			Label:  pctx.DayLabel(day),
			TaskID: task.ID,
			Type:   opType,
			Reason: f.diagnose(pctx, task, day, opType),
		})
		return false
	}

	for level := 0; level <= len(f.priority); level++ {
		active := f.priority[:len(f.priority)-level]

		var best *model.Worker
		bestScore := 0.0
		for _, w := range eligible {
			if !f.satisfiesRules(pctx, w, task, day, active) {
				continue
			}
			score := scorer.Score(pctx, w, task, day)
			if best == nil || score > bestScore+1e-9 ||
				(score > bestScore-1e-9 && rng.Intn(2) == 0) {
				best = w
				bestScore = score
			}
		}
		if best == nil {
			continue
		}

		if level > 0 {
			// 逐条记录该分配实际违反的被放宽规则；必须在写入网格前
			// 判定（写入后本格子会影响多样性与均衡的统计）
			relaxed := f.priority[len(f.priority)-level:]
			for _, rule := range f.brokenRules(pctx, best, task, day, relaxed) {
				report.Relaxed[rule]++
				f.log.SolverRejection("gapfill", fmt.Sprintf(
					"任务 %s 在 %s 放宽规则 %s 后填充", task.Name, pctx.DayLabel(day), rule))
			}
		}
		pctx.Week.Assign(best.ID, day, task.ID)
		return true
	}

	// 所有层级都无候选不可能发生：全放宽时任何合格工人都可用
	return false
}

// brokenRules 返回该分配实际违反的软规则子集
func (f *Filler) brokenRules(pctx *plan.Context, w *model.Worker,
	task *model.Task, day int, rules []Rule) []Rule {

	var broken []Rule
	for _, rule := range rules {
		if !f.satisfiesRules(pctx, w, task, day, []Rule{rule}) {
			broken = append(broken, rule)
		}
	}
	return broken
}

// satisfiesRules 检查工人承担该槽位是否满足给定软规则集
func (f *Filler) satisfiesRules(pctx *plan.Context, w *model.Worker,
	task *model.Task, day int, rules []Rule) bool {

	for _, rule := range rules {
		switch rule {
		case RuleAvoidConsecutiveSameTask:
			if sameAsNeighbor(pctx, w.ID, task.ID, day) {
				return false
			}
		case RuleTaskVariety:
			if didTaskThisWeek(pctx, w.ID, task.ID) {
				return false
			}
		case RuleWorkloadBalance:
			if overloaded(pctx, w.ID) {
				return false
			}
		case RuleAvoidConsecutiveHeavy:
			if task.Heavy && !pctx.Config.AllowConsecutiveHeavy && heavyNeighbor(pctx, w.ID, day) {
				return false
			}
		}
	}
	return true
}

// diagnose 归纳槽位无人可派的主导原因
func (f *Filler) diagnose(pctx *plan.Context, task *model.Task, day int, opType model.OperatorType) string {
	counts := make(map[eligibility.Reason]int)
	var order []eligibility.Reason

	for _, w := range pctx.Workers {
		if w.Type != opType {
			continue
		}
		c := eligibility.CanAssign(pctx, w, task, day)
		if c.OK {
			continue
		}
		if counts[c.Reason] == 0 {
			order = append(order, c.Reason)
		}
		counts[c.Reason]++
	}

	if len(order) == 0 {
		return fmt.Sprintf("无 %s 类型的工人", opType)
	}

	dominant := order[0]
	for _, r := range order[1:] {
		if counts[r] > counts[dominant] {
			dominant = r
		}
	}
	return string(dominant)
}

// sameAsNeighbor 相邻天是否已承担同一任务
func sameAsNeighbor(pctx *plan.Context, workerID, taskID uuid.UUID, day int) bool {
	if prev := pctx.Week.TaskOn(workerID, day-1); prev != nil && *prev == taskID {
		return true
	}
	if next := pctx.Week.TaskOn(workerID, day+1); next != nil && *next == taskID {
		return true
	}
	return false
}

// didTaskThisWeek 本周是否已承担过该任务
func didTaskThisWeek(pctx *plan.Context, workerID, taskID uuid.UUID) bool {
	for d := 0; d < pctx.Week.Days(); d++ {
		if t := pctx.Week.TaskOn(workerID, d); t != nil && *t == taskID {
			return true
		}
	}
	return false
}

// overloaded 分配数是否已超过全员平均
func overloaded(pctx *plan.Context, workerID uuid.UUID) bool {
	if len(pctx.Workers) == 0 {
		return false
	}
	total := 0
	for _, w := range pctx.Workers {
		total += pctx.Week.AssignedCount(w.ID)
	}
	avg := float64(total) / float64(len(pctx.Workers))
	return float64(pctx.Week.AssignedCount(workerID)) > avg
}

// heavyNeighbor 相邻天是否已有重任务
func heavyNeighbor(pctx *plan.Context, workerID uuid.UUID, day int) bool {
	for _, d := range []int{day - 1, day + 1} {
		taskID := pctx.Week.TaskOn(workerID, d)
		if taskID == nil {
			continue
		}
		if t := pctx.Task(*taskID); t != nil && t.Heavy {
			return true
		}
	}
	return false
}
