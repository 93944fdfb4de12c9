// Package eligibility 实现硬约束资格检查
//
// 回答"工人 W 能否在第 D 天承担任务 T"。纯函数，不修改排班网格。
package eligibility

import (
	"fmt"

	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

// Reason 不合格原因
type Reason string

const (
	ReasonEligible        Reason = "eligible"
	ReasonInactive        Reason = "worker_inactive"
	ReasonUnavailable     Reason = "worker_unavailable"
	ReasonAlreadyAssigned Reason = "already_assigned"
	ReasonSkillMismatch   Reason = "skill_mismatch"
	ReasonNoCapacity      Reason = "no_capacity"
	ReasonTypeMismatch    Reason = "type_mismatch"
	ReasonLocked          Reason = "cell_locked"
	ReasonPinned          Reason = "cell_pinned"
	ReasonNoRequirement   Reason = "no_requirement"
)

// Check 资格检查结果，不合格时携带结构化原因
type Check struct {
	OK      bool   `json:"ok"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

func ok() Check {
	return Check{OK: true, Reason: ReasonEligible}
}

func fail(reason Reason, format string, args ...interface{}) Check {
	return Check{OK: false, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// options 检查模式
type options struct {
	// 允许替换自己当天的格子（不把已有分配视为冲突）
	replace bool

	// 忽略剩余容量（贪心第二阶段的利用率填充）
	uncapped bool
}

// CanAssign 严格检查：所有硬约束必须同时成立
func CanAssign(ctx *plan.Context, w *model.Worker, t *model.Task, day int) Check {
	return check(ctx, w, t, day, options{})
}

// CanReplace 替换检查：允许覆盖工人自己当天的格子
func CanReplace(ctx *plan.Context, w *model.Worker, t *model.Task, day int) Check {
	return check(ctx, w, t, day, options{replace: true})
}

// CanAssignUncapped 放宽容量的检查：不看剩余缺口，仅保留其余硬约束
func CanAssignUncapped(ctx *plan.Context, w *model.Worker, t *model.Task, day int) Check {
	return check(ctx, w, t, day, options{uncapped: true})
}

// CanReplaceUncapped 替换检查且不看容量
// 用于同类型工人互换任务的邻域生成：互换前后各任务人数不变
func CanReplaceUncapped(ctx *plan.Context, w *model.Worker, t *model.Task, day int) Check {
	return check(ctx, w, t, day, options{replace: true, uncapped: true})
}

func check(ctx *plan.Context, w *model.Worker, t *model.Task, day int, opts options) Check {
	if w == nil || t == nil {
		return fail(ReasonNoRequirement, "工人或任务为空")
	}

	if !w.IsActive() {
		return fail(ReasonInactive, "工人 %s 不在岗 (%s)", w.Name, w.Status)
	}

	if !w.AvailableOn(day) {
		return fail(ReasonUnavailable, "工人 %s 在 %s 不可用", w.Name, ctx.DayLabel(day))
	}

	// 锁定的格子只有当前值合格
	cell := ctx.Week.Cell(w.ID, day)
	if cell != nil && cell.Locked {
		if cell.TaskID != nil && *cell.TaskID == t.ID {
			return ok()
		}
		return fail(ReasonLocked, "工人 %s 在 %s 的格子已锁定", w.Name, ctx.DayLabel(day))
	}

	// 钉住的格子同样不可改写（补缺及其他阶段一律跳过）
	if cell != nil && cell.Pinned {
		if cell.TaskID != nil && *cell.TaskID == t.ID {
			return ok()
		}
		return fail(ReasonPinned, "工人 %s 在 %s 的格子已钉住", w.Name, ctx.DayLabel(day))
	}

	// 每天至多一个任务
	if cell != nil && !cell.IsIdle() {
		if !opts.replace {
			return fail(ReasonAlreadyAssigned, "工人 %s 在 %s 已有分配", w.Name, ctx.DayLabel(day))
		}
	}

	// 协调员与普通任务互斥
	if t.CoordinatorOnly != w.IsCoordinator() {
		if t.CoordinatorOnly {
			return fail(ReasonTypeMismatch, "任务 %s 为协调员专属", t.Name)
		}
		return fail(ReasonTypeMismatch, "协调员 %s 不能承担普通任务", w.Name)
	}

	// 技能匹配（仅严格模式下为硬约束，可显式配置放宽，从不静默放宽）
	if ctx.Config.StrictSkillMatch && t.RequiredSkill != "" && !w.HasSkill(t.RequiredSkill) {
		return fail(ReasonSkillMismatch, "工人 %s 缺少技能 %s", w.Name, t.RequiredSkill)
	}

	// 操作员类型必须在当天的需求类型之列
	req := ctx.RequirementFor(t.ID)
	if req == nil {
		return fail(ReasonNoRequirement, "任务 %s 未配置需求", t.Name)
	}
	if req.CountFor(day, w.Type) <= 0 {
		return fail(ReasonTypeMismatch, "任务 %s 在 %s 不需要 %s 类型", t.Name, ctx.DayLabel(day), w.Type)
	}

	// 剩余容量
	if !opts.uncapped {
		remaining := ctx.RemainingNeed(day, t.ID, w.Type)
		// 替换自己当天同任务的格子时，自己占用的名额不算缺口
		if opts.replace && cell != nil && cell.TaskID != nil && *cell.TaskID == t.ID {
			remaining++
		}
		if remaining <= 0 {
			return fail(ReasonNoCapacity, "任务 %s 在 %s 的 %s 名额已满", t.Name, ctx.DayLabel(day), w.Type)
		}
	}

	return ok()
}

// EligibleWorkers 返回第 day 天可承担某任务指定类型槽位的工人（声明顺序）
func EligibleWorkers(ctx *plan.Context, t *model.Task, day int, opType model.OperatorType) []*model.Worker {
	var out []*model.Worker
	for _, w := range ctx.Workers {
		if w.Type != opType {
			continue
		}
		if CanAssign(ctx, w, t, day).OK {
			out = append(out, w)
		}
	}
	return out
}

// EligibleReplacements 返回工人第 day 天可改任的任务（需求声明顺序）
// 替换模式且容量照常检查：已有分配的工人改派到仍有缺口的任务用
func EligibleReplacements(ctx *plan.Context, w *model.Worker, day int) []*model.Task {
	var out []*model.Task
	for _, req := range ctx.Requirements {
		t := ctx.Task(req.TaskID)
		if t == nil {
			continue
		}
		if CanReplace(ctx, w, t, day).OK {
			out = append(out, t)
		}
	}
	return out
}

// EligibleTasks 返回工人第 day 天可承担的任务（需求声明顺序）
func EligibleTasks(ctx *plan.Context, w *model.Worker, day int, uncapped bool) []*model.Task {
	var out []*model.Task
	for _, req := range ctx.Requirements {
		t := ctx.Task(req.TaskID)
		if t == nil {
			continue
		}
		var c Check
		if uncapped {
			c = CanAssignUncapped(ctx, w, t, day)
		} else {
			c = CanAssign(ctx, w, t, day)
		}
		if c.OK {
			out = append(out, t)
		}
	}
	return out
}
