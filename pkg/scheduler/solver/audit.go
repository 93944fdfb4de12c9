// Package solver 提供排班求解器
package solver

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/errors"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

// Audit 审计当前网格，产出可行性警告
//
// 不可行（缺人、技能不符等）是正常的、可上报的结果，以警告形式
// 返回给调用方，从不作为错误抛出。
func Audit(pctx *plan.Context) []model.Warning {
	warnings := make([]model.Warning, 0)

	// 需求满足度：缺员 / 超员
	for _, req := range pctx.Requirements {
		task := pctx.Task(req.TaskID)
		if task == nil {
			continue
		}
		for d := 0; d < pctx.Week.Days(); d++ {
			for _, t := range req.TypesFor(d) {
				need := req.CountFor(d, t)
				have := pctx.AssignedTypeCount(d, req.TaskID, t)
				taskID := req.TaskID
				if have < need {
					warnings = append(warnings, model.Warning{
						Kind:   model.WarnUnderstaffed,
						Day:    d,
						TaskID: &taskID,
						Message: fmt.Sprintf("任务 %s 在 %s 缺 %d 名 %s",
							task.Name, pctx.DayLabel(d), need-have, t),
					})
				} else if have > need {
					warnings = append(warnings, model.Warning{
						Kind:   model.WarnOverstaffed,
						Day:    d,
						TaskID: &taskID,
						Message: fmt.Sprintf("任务 %s 在 %s 超出 %d 名 %s",
							task.Name, pctx.DayLabel(d), have-need, t),
					})
				}
			}
		}
	}

	// 单元格级别：技能不符、可用性冲突
	for _, cell := range pctx.Week.Assignments() {
		if cell.IsIdle() {
			continue
		}
		worker := pctx.Worker(cell.WorkerID)
		task := pctx.Task(*cell.TaskID)
		if worker == nil || task == nil {
			continue
		}
		workerID := cell.WorkerID
		taskID := *cell.TaskID

		if task.RequiredSkill != "" && !worker.HasSkill(task.RequiredSkill) {
			warnings = append(warnings, model.Warning{
				Kind:     model.WarnSkillMismatch,
				Day:      cell.Day,
				TaskID:   &taskID,
				WorkerID: &workerID,
				Message: fmt.Sprintf("工人 %s 缺少任务 %s 所需技能 %s",
					worker.Name, task.Name, task.RequiredSkill),
			})
		}

		if !worker.AvailableOn(cell.Day) {
			warnings = append(warnings, model.Warning{
				Kind:     model.WarnAvailabilityConflict,
				Day:      cell.Day,
				WorkerID: &workerID,
				TaskID:   &taskID,
				Message: fmt.Sprintf("工人 %s 在 %s 不可用但被分配了任务 %s",
					worker.Name, pctx.DayLabel(cell.Day), task.Name),
			})
		}
	}

	return warnings
}

// CheckInvariants 校验内部不变量
//
// 不变量违反意味着求解器自身缺陷而非输入问题，属于致命错误。
func CheckInvariants(pctx *plan.Context) error {
	seen := make(map[string]bool)

	for _, cell := range pctx.Week.Assignments() {
		key := cell.WorkerID.String() + "/" + fmt.Sprint(cell.Day)
		if seen[key] {
			return errors.InvariantViolation(
				fmt.Sprintf("工人 %s 第 %d 天出现重复单元格", cell.WorkerID, cell.Day))
		}
		seen[key] = true

		if cell.IsIdle() {
			continue
		}

		worker := pctx.Worker(cell.WorkerID)
		task := pctx.Task(*cell.TaskID)
		if worker == nil {
			return errors.InvariantViolation(fmt.Sprintf("未知工人 %s", cell.WorkerID))
		}
		if task == nil {
			return errors.InvariantViolation(fmt.Sprintf("未知任务 %s", cell.TaskID))
		}

		// 协调员与普通任务互斥
		if task.CoordinatorOnly != worker.IsCoordinator() {
			return errors.InvariantViolation(
				fmt.Sprintf("工人 %s (%s) 被分配到任务 %s (协调员专属=%v)",
					worker.Name, worker.Type, task.Name, task.CoordinatorOnly))
		}
	}

	return nil
}

// LockViolations 检查锁定/钉住格子是否被篡改（测试与审计使用）
func LockViolations(before, after []*model.Cell) []uuid.UUID {
	index := make(map[string]*model.Cell, len(before))
	for _, c := range before {
		index[c.WorkerID.String()+"/"+fmt.Sprint(c.Day)] = c
	}

	var violated []uuid.UUID
	for _, c := range after {
		orig, ok := index[c.WorkerID.String()+"/"+fmt.Sprint(c.Day)]
		if !ok || (!orig.Locked && !orig.Pinned) {
			continue
		}
		same := (orig.TaskID == nil && c.TaskID == nil) ||
			(orig.TaskID != nil && c.TaskID != nil && *orig.TaskID == *c.TaskID)
		if !same {
			violated = append(violated, c.WorkerID)
		}
	}
	return violated
}
