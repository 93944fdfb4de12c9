package model

import (
	"testing"

	"github.com/google/uuid"
)

func testWorkers(n int) []*Worker {
	workers := make([]*Worker, n)
	for i := range workers {
		workers[i] = &Worker{
			ID:           uuid.New(),
			Name:         "工人",
			Type:         TypeRegular,
			Status:       StatusActive,
			Availability: []bool{true, true, true, true, true},
		}
	}
	return workers
}

func TestWeek_AssignAndTaskOn(t *testing.T) {
	workers := testWorkers(2)
	week := NewWeek(5, workers)
	taskID := uuid.New()

	week.Assign(workers[0].ID, 2, taskID)

	got := week.TaskOn(workers[0].ID, 2)
	if got == nil || *got != taskID {
		t.Errorf("Expected task %s on day 2, got %v", taskID, got)
	}

	// 其他天保持空闲
	if week.TaskOn(workers[0].ID, 1) != nil {
		t.Error("Day 1 should be idle")
	}
	if week.TaskOn(workers[1].ID, 2) != nil {
		t.Error("Other worker should be idle")
	}
}

func TestWeek_OutOfRange(t *testing.T) {
	workers := testWorkers(1)
	week := NewWeek(5, workers)

	// 越界访问返回 nil 而不是崩溃
	if week.Cell(workers[0].ID, -1) != nil {
		t.Error("Negative day should return nil")
	}
	if week.Cell(workers[0].ID, 5) != nil {
		t.Error("Day beyond window should return nil")
	}
	if week.TaskOn(uuid.New(), 0) != nil {
		t.Error("Unknown worker should return nil")
	}
}

func TestWeek_AssignOverwrites(t *testing.T) {
	workers := testWorkers(1)
	week := NewWeek(5, workers)
	first := uuid.New()
	second := uuid.New()

	week.Assign(workers[0].ID, 0, first)
	week.Assign(workers[0].ID, 0, second)

	// 每人每天只有一个格子，再次分配覆盖旧值
	got := week.TaskOn(workers[0].ID, 0)
	if got == nil || *got != second {
		t.Errorf("Expected second task after overwrite, got %v", got)
	}
	if week.AssignedCount(workers[0].ID) != 1 {
		t.Errorf("Expected 1 assigned cell, got %d", week.AssignedCount(workers[0].ID))
	}
}

func TestWeek_SetIdle(t *testing.T) {
	workers := testWorkers(1)
	week := NewWeek(5, workers)

	week.Assign(workers[0].ID, 0, uuid.New())
	week.SetIdle(workers[0].ID, 0)

	if week.TaskOn(workers[0].ID, 0) != nil {
		t.Error("Cell should be idle after SetIdle")
	}
}

func TestWeek_CloneIsDeep(t *testing.T) {
	workers := testWorkers(1)
	week := NewWeek(5, workers)
	taskID := uuid.New()
	week.Assign(workers[0].ID, 0, taskID)

	clone := week.Clone()
	clone.SetIdle(workers[0].ID, 0)
	clone.Assign(workers[0].ID, 1, uuid.New())

	// 修改克隆不影响原网格
	got := week.TaskOn(workers[0].ID, 0)
	if got == nil || *got != taskID {
		t.Error("Original week should keep its assignment after clone mutation")
	}
	if week.TaskOn(workers[0].ID, 1) != nil {
		t.Error("Original week day 1 should stay idle")
	}
}

func TestWeek_CountOn(t *testing.T) {
	workers := testWorkers(3)
	workers[2].Type = TypeFlex
	week := NewWeek(5, workers)
	taskID := uuid.New()

	week.Assign(workers[0].ID, 0, taskID)
	week.Assign(workers[1].ID, 0, taskID)
	week.Assign(workers[2].ID, 0, taskID)

	if got := week.CountOn(0, taskID, nil); got != 3 {
		t.Errorf("Expected 3 workers on task, got %d", got)
	}

	// 带过滤函数只计正式工
	regular := week.CountOn(0, taskID, func(id uuid.UUID) bool {
		for _, w := range workers {
			if w.ID == id {
				return w.Type == TypeRegular
			}
		}
		return false
	})
	if regular != 2 {
		t.Errorf("Expected 2 regular workers, got %d", regular)
	}
}

func TestRequirement_CountForOverride(t *testing.T) {
	req := &Requirement{
		TaskID:  uuid.New(),
		Enabled: true,
		Counts:  map[OperatorType]int{TypeRegular: 2},
		Overrides: map[int]map[OperatorType]int{
			3: {TypeRegular: 0, TypeFlex: 1},
		},
	}

	if got := req.CountFor(0, TypeRegular); got != 2 {
		t.Errorf("Default day should use Counts, got %d", got)
	}

	// 覆盖的天完全替换默认值
	if got := req.CountFor(3, TypeRegular); got != 0 {
		t.Errorf("Override day regular count should be 0, got %d", got)
	}
	if got := req.CountFor(3, TypeFlex); got != 1 {
		t.Errorf("Override day flex count should be 1, got %d", got)
	}
}

func TestRequirement_TypesForOrder(t *testing.T) {
	req := &Requirement{
		TaskID:  uuid.New(),
		Enabled: true,
		Counts:  map[OperatorType]int{TypeFlex: 1, TypeRegular: 1},
	}

	types := req.TypesFor(0)
	if len(types) != 2 || types[0] != TypeRegular || types[1] != TypeFlex {
		t.Errorf("Types should come in fixed order regular,flex, got %v", types)
	}
}

func TestWorker_AvailableOn(t *testing.T) {
	w := &Worker{
		ID:           uuid.New(),
		Status:       StatusActive,
		Availability: []bool{true, false, true},
	}

	if !w.AvailableOn(0) {
		t.Error("Worker should be available on day 0")
	}
	if w.AvailableOn(1) {
		t.Error("Worker should be unavailable on day 1")
	}
	if w.AvailableOn(5) {
		t.Error("Out of range day should be unavailable")
	}
}
