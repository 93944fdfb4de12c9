package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

func newWorker(name string, skills ...string) *model.Worker {
	return &model.Worker{
		ID:           uuid.New(),
		Name:         name,
		Type:         model.TypeRegular,
		Status:       model.StatusActive,
		Skills:       skills,
		Availability: []bool{true, true, true, true, true},
	}
}

func newTask(name, skill string) *model.Task {
	return &model.Task{ID: uuid.New(), Name: name, RequiredSkill: skill}
}

func newScoringContext(workers []*model.Worker, tasks []*model.Task,
	reqs []*model.Requirement) *plan.Context {

	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	return plan.NewContext(days, workers, tasks, reqs, nil, plan.DefaultConfig())
}

func TestScorer_RepeatPenalty(t *testing.T) {
	w := newWorker("张三", "分拣")
	task := newTask("分拣", "分拣")
	ctx := newScoringContext([]*model.Worker{w}, []*model.Task{task}, nil)
	scorer := NewScorer(ctx.Config)

	fresh := scorer.Score(ctx, w, task, 1)

	// 前一天承担同一任务后，再排同任务得分应降低
	ctx.Week.Assign(w.ID, 0, task.ID)
	repeated := scorer.Score(ctx, w, task, 1)

	if repeated >= fresh {
		t.Errorf("Repeated task should score lower: fresh=%f repeated=%f", fresh, repeated)
	}
}

func TestScorer_PreferenceBonus(t *testing.T) {
	task := newTask("分拣", "分拣")
	plain := newWorker("张三", "分拣")
	fan := newWorker("李四", "分拣")
	fan.PreferredTasks = []uuid.UUID{task.ID}

	ctx := newScoringContext([]*model.Worker{plain, fan}, []*model.Task{task}, nil)
	scorer := NewScorer(ctx.Config)

	if scorer.Score(ctx, fan, task, 0) <= scorer.Score(ctx, plain, task, 0) {
		t.Error("Worker preferring the task should score higher")
	}
}

func TestScorer_FairnessFavorsLessLoaded(t *testing.T) {
	busy := newWorker("张三", "分拣")
	idle := newWorker("李四", "分拣")
	task := newTask("分拣", "分拣")
	other := newTask("包装", "分拣")

	ctx := newScoringContext([]*model.Worker{busy, idle}, []*model.Task{task, other}, nil)
	ctx.Week.Assign(busy.ID, 0, other.ID)
	ctx.Week.Assign(busy.ID, 1, other.ID)

	scorer := NewScorer(ctx.Config)
	if scorer.Score(ctx, idle, task, 2) <= scorer.Score(ctx, busy, task, 2) {
		t.Error("Less loaded worker should score higher under fair distribution")
	}
}

func TestScorer_HeavyPenalty(t *testing.T) {
	w := newWorker("张三", "搬运")
	heavy := &model.Task{ID: uuid.New(), Name: "搬运", RequiredSkill: "搬运", Heavy: true}
	ctx := newScoringContext([]*model.Worker{w}, []*model.Task{heavy}, nil)
	scorer := NewScorer(ctx.Config)

	isolated := scorer.Score(ctx, w, heavy, 2)

	// 前一天已有重任务
	ctx.Week.Assign(w.ID, 1, heavy.ID)
	adjacent := scorer.Score(ctx, w, heavy, 2)

	if adjacent >= isolated {
		t.Errorf("Consecutive heavy should score lower: isolated=%f adjacent=%f", isolated, adjacent)
	}
}

func TestScorer_HeavyAllowed(t *testing.T) {
	w := newWorker("张三", "搬运")
	heavy := &model.Task{ID: uuid.New(), Name: "搬运", RequiredSkill: "搬运", Heavy: true}

	cfg := plan.DefaultConfig()
	cfg.AllowConsecutiveHeavy = true
	days := []string{"monday", "tuesday", "wednesday"}
	ctx := plan.NewContext(days, []*model.Worker{w}, []*model.Task{heavy}, nil, nil, cfg)
	ctx.Week.Assign(w.ID, 0, heavy.ID)

	scorer := NewScorer(cfg)
	withNeighbor := scorer.Score(ctx, w, heavy, 1)

	fresh := plan.NewContext(days, []*model.Worker{w}, []*model.Task{heavy}, nil, nil, cfg)
	isolated := NewScorer(cfg).Score(fresh, w, heavy, 1)

	// 允许连续重任务时不再惩罚；剩余差额只来自多样性项
	// （连续同任务惩罚、新任务加成、稀缺技能使用加成）
	heavyDiff := isolated - withNeighbor
	varietyOnly := cfg.Weights.Variety * (repeatPenaltyBase + newTaskBonusBase + varietyBonusBase)
	if heavyDiff > varietyOnly+0.001 {
		t.Errorf("Heavy penalty should be disabled, diff=%f", heavyDiff)
	}
}

func TestVector_Dominates(t *testing.T) {
	a := Vector{Fill: 100, Fairness: 80, Balance: 70, Variety: 60, HeavySpacing: 100}
	b := Vector{Fill: 100, Fairness: 70, Balance: 70, Variety: 60, HeavySpacing: 100}
	c := Vector{Fill: 90, Fairness: 90, Balance: 70, Variety: 60, HeavySpacing: 100}

	if !a.Dominates(b) {
		t.Error("a should dominate b (better fairness, equal elsewhere)")
	}
	if b.Dominates(a) {
		t.Error("b should not dominate a")
	}
	// 互有胜负：互不支配
	if a.Dominates(c) || c.Dominates(a) {
		t.Error("a and c should be mutually non-dominated")
	}
	// 完全相同：不支配（无严格占优维度）
	if a.Dominates(a) {
		t.Error("Vector should not dominate itself")
	}
}

func TestVector_WeightedFillAlwaysCounts(t *testing.T) {
	full := Vector{Fill: 100}
	empty := Vector{Fill: 0, Fairness: 100, Balance: 100, Variety: 100, HeavySpacing: 100}

	// 满足率固定权重参与：空排班不能靠软目标"全优"翻盘
	weights := model.ObjectiveWeights{}
	if full.Weighted(weights) <= 0 {
		t.Error("Fill should contribute even with zero soft weights")
	}
	if empty.Weighted(model.DefaultWeights()) >= (Vector{Fill: 100, Fairness: 100, Balance: 100,
		Variety: 100, HeavySpacing: 100}).Weighted(model.DefaultWeights()) {
		t.Error("Empty plan should score below full plan with same soft scores")
	}
}

func TestEvaluate_FillScore(t *testing.T) {
	w1 := newWorker("张三", "分拣")
	w2 := newWorker("李四", "分拣")
	task := newTask("分拣", "分拣")
	req := &model.Requirement{
		TaskID:  task.ID,
		Enabled: true,
		Counts:  map[model.OperatorType]int{model.TypeRegular: 2},
	}
	ctx := newScoringContext([]*model.Worker{w1, w2}, []*model.Task{task},
		[]*model.Requirement{req})

	if v := Evaluate(ctx); v.Fill != 0 {
		t.Errorf("Empty plan should have fill 0, got %f", v.Fill)
	}

	// 填一半
	for d := 0; d < 5; d++ {
		ctx.Week.Assign(w1.ID, d, task.ID)
	}
	if v := Evaluate(ctx); v.Fill != 50 {
		t.Errorf("Half-filled plan should have fill 50, got %f", v.Fill)
	}
}

func TestEvaluate_NoRequirements(t *testing.T) {
	w := newWorker("张三", "分拣")
	ctx := newScoringContext([]*model.Worker{w}, nil, nil)

	// 无需求时满足率为100而不是除零
	if v := Evaluate(ctx); v.Fill != 100 {
		t.Errorf("No requirements should yield fill 100, got %f", v.Fill)
	}
}
