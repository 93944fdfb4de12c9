package solver

import (
	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

// 测试共用的构造辅助

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

func newCoordTask(name, skill string) *model.Task {
	return &model.Task{ID: uuid.New(), Name: name, RequiredSkill: skill, CoordinatorOnly: true}
}

func newReq(taskID uuid.UUID, counts map[model.OperatorType]int) *model.Requirement {
	return &model.Requirement{TaskID: taskID, Enabled: true, Counts: counts}
}

func newSolverContext(workers []*model.Worker, tasks []*model.Task,
	reqs []*model.Requirement, seed int64) *plan.Context {

	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	cfg := plan.DefaultConfig()
	cfg.Seed = seed
	return plan.NewContext(days, workers, tasks, reqs, nil, cfg)
}

// assignmentFingerprint 展开非空闲格子为可比较的键集合
func assignmentFingerprint(cells []*model.Cell) map[string]string {
	out := make(map[string]string)
	for _, c := range cells {
		if c.IsIdle() {
			continue
		}
		key := c.WorkerID.String() + "/" + string(rune('0'+c.Day))
		out[key] = c.TaskID.String()
	}
	return out
}

func sameAssignments(a, b []*model.Cell) bool {
	fa, fb := assignmentFingerprint(a), assignmentFingerprint(b)
	if len(fa) != len(fb) {
		return false
	}
	for k, v := range fa {
		if fb[k] != v {
			return false
		}
	}
	return true
}

func countWarnings(warnings []model.Warning, kind model.WarningKind) int {
	n := 0
	for _, w := range warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
