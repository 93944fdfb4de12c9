package solver

import (
	"context"
	"testing"

	"github.com/paigong/paigong/pkg/model"
)

func TestGreedy_FillsRequirements(t *testing.T) {
	w1 := newWorker("张三", model.TypeRegular, "分拣")
	w2 := newWorker("李四", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newSolverContext(
		[]*model.Worker{w1, w2},
		[]*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 2})},
		1,
	)

	g := NewGreedy()
	g.FillIdle = false
	result, err := g.Solve(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if result.Statistics.FillRate != 100 {
		t.Errorf("Expected 100%% fill rate, got %f", result.Statistics.FillRate)
	}
	if n := countWarnings(result.Warnings, model.WarnUnderstaffed); n != 0 {
		t.Errorf("Expected no understaffed warnings, got %d", n)
	}
}

func TestGreedy_UnderstaffedWarning(t *testing.T) {
	w := newWorker("张三", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newSolverContext(
		[]*model.Worker{w},
		[]*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 2})},
		1,
	)

	g := NewGreedy()
	g.FillIdle = false
	result, err := g.Solve(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	// 每天需要2人只有1人：缺员以警告上报而不是错误
	if n := countWarnings(result.Warnings, model.WarnUnderstaffed); n != 5 {
		t.Errorf("Expected 5 understaffed warnings (one per day), got %d", n)
	}
	if result.Statistics.FillRate != 50 {
		t.Errorf("Expected 50%% fill rate, got %f", result.Statistics.FillRate)
	}
}

func TestGreedy_Deterministic(t *testing.T) {
	build := func() ([]*model.Worker, []*model.Task, []*model.Requirement) {
		w1 := newWorker("张三", model.TypeRegular, "分拣")
		w2 := newWorker("李四", model.TypeRegular, "分拣")
		w3 := newWorker("王五", model.TypeRegular, "分拣")
		task := newTask("分拣", "分拣")
		return []*model.Worker{w1, w2, w3}, []*model.Task{task},
			[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})}
	}

	// 相同输入和种子必须产出相同排班
	workers, tasks, reqs := build()
	first, err := NewGreedy().Solve(context.Background(),
		newSolverContext(workers, tasks, reqs, 42))
	if err != nil {
		t.Fatalf("First solve failed: %v", err)
	}
	second, err := NewGreedy().Solve(context.Background(),
		newSolverContext(workers, tasks, reqs, 42))
	if err != nil {
		t.Fatalf("Second solve failed: %v", err)
	}

	if !sameAssignments(first.Assignments, second.Assignments) {
		t.Error("Same seed should reproduce identical assignments")
	}
}

func TestGreedy_SkipsCoordinators(t *testing.T) {
	regular := newWorker("张三", model.TypeRegular, "分拣")
	coord := newWorker("李四", model.TypeCoordinator, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newSolverContext(
		[]*model.Worker{regular, coord},
		[]*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})},
		1,
	)

	if _, err := NewGreedy().Solve(context.Background(), pctx); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	// 协调员从不被贪心求解器安排普通任务
	for d := 0; d < pctx.Week.Days(); d++ {
		if pctx.Week.TaskOn(coord.ID, d) != nil {
			t.Errorf("Coordinator should stay idle on day %d", d)
		}
	}
}

func TestGreedy_FillIdlePass(t *testing.T) {
	w1 := newWorker("张三", model.TypeRegular, "分拣")
	w2 := newWorker("李四", model.TypeRegular, "分拣")
	task := newTask("分拣", "分拣")
	pctx := newSolverContext(
		[]*model.Worker{w1, w2},
		[]*model.Task{task},
		[]*model.Requirement{newReq(task.ID, map[model.OperatorType]int{model.TypeRegular: 1})},
		1,
	)

	result, err := NewGreedy().Solve(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	// 利用率填充：两名工人每天都有任务，超出需求的部分上报超员警告
	for d := 0; d < pctx.Week.Days(); d++ {
		if pctx.Week.TaskOn(w1.ID, d) == nil || pctx.Week.TaskOn(w2.ID, d) == nil {
			t.Errorf("Both workers should be occupied on day %d", d)
		}
	}
	if n := countWarnings(result.Warnings, model.WarnOverstaffed); n != 5 {
		t.Errorf("Expected 5 overstaffed warnings, got %d", n)
	}
}

func TestGreedy_RespectsLockedCells(t *testing.T) {
	w1 := newWorker("张三", model.TypeRegular, "分拣", "包装")
	taskA := newTask("分拣", "分拣")
	taskB := newTask("包装", "包装")
	pctx := newSolverContext(
		[]*model.Worker{w1},
		[]*model.Task{taskA, taskB},
		[]*model.Requirement{
			newReq(taskA.ID, map[model.OperatorType]int{model.TypeRegular: 1}),
			newReq(taskB.ID, map[model.OperatorType]int{model.TypeRegular: 1}),
		},
		1,
	)
	taskBID := taskB.ID
	before := []*model.Cell{{WorkerID: w1.ID, Day: 0, TaskID: &taskBID, Locked: true}}
	pctx.ApplyCurrent(before)

	result, err := NewGreedy().Solve(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if violated := LockViolations(before, result.Assignments); len(violated) != 0 {
		t.Errorf("Locked cells must survive solving, %d violations", len(violated))
	}
	got := pctx.Week.TaskOn(w1.ID, 0)
	if got == nil || *got != taskB.ID {
		t.Error("Locked assignment should be preserved")
	}
}
