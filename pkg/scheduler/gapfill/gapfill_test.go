package gapfill

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/eligibility"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

func newWorker(name string, opType model.OperatorType, skills ...string) *model.Worker {
	return &model.Worker{
		ID:           uuid.New(),
		Name:         name,
		Type:         opType,
		Status:       model.StatusActive,
		Skills:       skills,
		Availability: []bool{true, true, true, true, true},
	}
}

func newTask(name, skill string) *model.Task {
	return &model.Task{ID: uuid.New(), Name: name, RequiredSkill: skill}
}

func newReq(taskID uuid.UUID, counts map[model.OperatorType]int) *model.Requirement {
	return &model.Requirement{TaskID: taskID, Enabled: true, Counts: counts}
}

func newFillContext(workers []*model.Worker, tasks []*model.Task,
	reqs []*model.Requirement, seed int64) *plan.Context {
	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	cfg := plan.DefaultConfig()
	cfg.Seed = seed
	return plan.NewContext(days, workers, tasks, reqs, nil, cfg)
}

func TestFill_NoRequirements(t *testing.T) {
	w := newWorker("张三", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newFillContext([]*model.Worker{w}, []*model.Task{task}, nil, 1)

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if !report.NoRequirements {
		t.Error("Report should flag that no requirements were configured")
	}
	if !report.AllSatisfied || report.Filled != 0 {
		t.Error("Nothing to fill without requirements")
	}
}

func TestFill_AlreadySatisfied(t *testing.T) {
	w := newWorker("张三", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newFillContext([]*model.Worker{w}, []*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})}, 1)

	// 需求已由前置求解器满足
	for d := 0; d < pctx.Week.Days(); d++ {
		pctx.Week.Assign(w.ID, d, task.ID)
	}

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	// 与"没有需求"区分：需求存在但填充前已全满足
	if report.NoRequirements {
		t.Error("Requirements exist, flag must be false")
	}
	if !report.AllSatisfied {
		t.Error("Report should flag the plan as already satisfied")
	}
	if report.Filled != 0 {
		t.Errorf("Nothing should have been filled, got %d", report.Filled)
	}
}

func TestFill_RelaxesRulesInPriorityOrder(t *testing.T) {
	// 单工人独自承包整周同一任务：必须放宽连任务与多样性规则
	w := newWorker("张三", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newFillContext([]*model.Worker{w}, []*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})}, 1)

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if report.Filled != 5 {
		t.Errorf("Expected 5 slots filled, got %d", report.Filled)
	}
	if !report.AllSatisfied {
		t.Error("All slots fillable, report should say satisfied")
	}
	// 第一天无需放宽；后四天既连任务又缺多样性，两条规则都要如实上报
	if report.Relaxed[RuleTaskVariety] != 4 {
		t.Errorf("Expected task variety broken 4 times, got %d", report.Relaxed[RuleTaskVariety])
	}
	if report.Relaxed[RuleAvoidConsecutiveSameTask] != 4 {
		t.Errorf("Expected consecutive-same-task broken 4 times, got %d",
			report.Relaxed[RuleAvoidConsecutiveSameTask])
	}
	// 更高优先级的规则未被实际违反，不应出现在报告里
	if report.Relaxed[RuleWorkloadBalance] != 0 || report.Relaxed[RuleAvoidConsecutiveHeavy] != 0 {
		t.Error("Rules the assignment did not break must not be reported")
	}
}

func TestFill_ReportsOnlyRulesActuallyBroken(t *testing.T) {
	// 周一与周三各需一人：周三的重复任务隔天不相邻，
	// 只违反多样性规则，连任务规则不应被错记
	w := newWorker("张三", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newFillContext([]*model.Worker{w}, []*model.Task{task},
		[]*model.Requirement{
			{TaskID: task.ID, Enabled: true,
				Counts:    map[model.OperatorType]int{},
				Overrides: map[int]map[model.OperatorType]int{0: {model.TypeRegular: 1}, 2: {model.TypeRegular: 1}}},
		}, 1)

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if report.Filled != 2 {
		t.Fatalf("Expected 2 slots filled, got %d", report.Filled)
	}
	if report.Relaxed[RuleTaskVariety] != 1 {
		t.Errorf("Expected task variety broken once, got %d", report.Relaxed[RuleTaskVariety])
	}
	if report.Relaxed[RuleAvoidConsecutiveSameTask] != 0 {
		t.Errorf("Non-adjacent repeat must not count as consecutive, got %d",
			report.Relaxed[RuleAvoidConsecutiveSameTask])
	}
}

func TestFill_PrefersRuleAbidingWorker(t *testing.T) {
	// 周一已排 W1：周二的缺口应优先给未违反连任务规则的 W2
	w1 := newWorker("张三", model.TypeRegular, "分拣")
	w2 := newWorker("李四", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newFillContext([]*model.Worker{w1, w2}, []*model.Task{task},
		[]*model.Requirement{
			{TaskID: task.ID, Enabled: true,
				Counts:    map[model.OperatorType]int{},
				Overrides: map[int]map[model.OperatorType]int{0: {model.TypeRegular: 1}, 1: {model.TypeRegular: 1}}},
		}, 1)
	pctx.Week.Assign(w1.ID, 0, task.ID)

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if got := pctx.Week.TaskOn(w2.ID, 1); got == nil || *got != task.ID {
		t.Error("Tuesday gap should go to the worker without a consecutive-task conflict")
	}
	if len(report.Relaxed) != 0 {
		t.Errorf("No rule should need relaxing, got %v", report.Relaxed)
	}
}

func TestFill_UnfillableReportsDominantReason(t *testing.T) {
	// 唯一工人不会该技能：严格技能门槛不可放宽
	w := newWorker("张三", model.TypeRegular, "分拣")
	packing := newTask("包装", "包装")
	pctx := newFillContext([]*model.Worker{w}, []*model.Task{packing},
		[]*model.Requirement{newReq(packing.ID, map[model.OperatorType]int{model.TypeRegular: 1})}, 1)
	pctx.Config.StrictSkillMatch = true

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if report.Filled != 0 {
		t.Errorf("Nothing should be fillable, got %d", report.Filled)
	}
	if len(report.Unfillable) != 5 {
		t.Fatalf("Expected 5 unfillable slots, got %d", len(report.Unfillable))
	}
	for _, u := range report.Unfillable {
		if u.Reason != string(eligibility.ReasonSkillMismatch) {
			t.Errorf("Day %d: expected skill mismatch reason, got %q", u.Day, u.Reason)
		}
		if u.TaskID != packing.ID || u.Type != model.TypeRegular {
			t.Errorf("Day %d: unfillable slot identity wrong", u.Day)
		}
	}
	if report.AllSatisfied {
		t.Error("Plan with gaps must not be reported as satisfied")
	}
}

func TestFill_SkipsPinnedWorker(t *testing.T) {
	// 唯一工人的格子被钉住为空闲：填充器不得动它
	w := newWorker("张三", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newFillContext([]*model.Worker{w}, []*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})}, 1)
	for d := 0; d < pctx.Week.Days(); d++ {
		pctx.Week.Cell(w.ID, d).Pinned = true
	}

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if report.Filled != 0 {
		t.Errorf("Pinned cells must stay idle, got %d filled", report.Filled)
	}
	for d := 0; d < pctx.Week.Days(); d++ {
		if pctx.Week.TaskOn(w.ID, d) != nil {
			t.Errorf("Day %d: pinned idle cell was overwritten", d)
		}
	}
}

func TestFill_StopsAtCapacity(t *testing.T) {
	// 三名工人每天只需一人：填满后不再加塞
	workers := []*model.Worker{
		newWorker("张三", model.TypeRegular, "分拣"),
		newWorker("李四", model.TypeRegular, "分拣"),
		newWorker("王五", model.TypeRegular, "分拣"),
	}
	task := newTask("分拣", "分拣")
	pctx := newFillContext(workers, []*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})}, 1)

	report, err := NewFiller(nil).Fill(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if report.Filled != 5 {
		t.Errorf("Expected exactly 5 fills, got %d", report.Filled)
	}
	for d := 0; d < pctx.Week.Days(); d++ {
		assigned := 0
		for _, w := range workers {
			if pctx.Week.TaskOn(w.ID, d) != nil {
				assigned++
			}
		}
		if assigned != 1 {
			t.Errorf("Day %d: expected 1 assignment, got %d", d, assigned)
		}
	}
}

func TestFill_Deterministic(t *testing.T) {
	build := func() string {
		workers := []*model.Worker{
			newWorker("张三", model.TypeRegular, "分拣"),
			newWorker("李四", model.TypeRegular, "分拣"),
		}
		task := newTask("分拣", "分拣")
		pctx := newFillContext(workers, []*model.Task{task},
			[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})}, 13)
		if _, err := NewFiller(nil).Fill(context.Background(), pctx); err != nil {
			t.Fatalf("Fill failed: %v", err)
		}

		// 以工人下标序列化分配形态（ID每次随机，不能直接比）
		out := ""
		for d := 0; d < pctx.Week.Days(); d++ {
			for i, w := range workers {
				if pctx.Week.TaskOn(w.ID, d) != nil {
					out += string(rune('0' + i))
				} else {
					out += "-"
				}
			}
		}
		return out
	}

	if first, second := build(), build(); first != second {
		t.Errorf("Same seed should reproduce the same fill pattern: %s vs %s", first, second)
	}
}
