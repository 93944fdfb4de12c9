// Package scoring 实现软目标评分器
package scoring

import (
	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/stats"
)

// Vector 整班目标向量，各维度 0-100，越高越好
// 帕累托前沿构建器按同名维度比较支配关系
type Vector struct {
	Fill         float64 `json:"fill"`          // 需求满足率
	Fairness     float64 `json:"fairness"`      // 分配公平性
	Balance      float64 `json:"balance"`       // 工作量均衡
	Variety      float64 `json:"variety"`       // 任务多样性
	HeavySpacing float64 `json:"heavy_spacing"` // 重任务间隔
}

// ObjectiveNames 返回目标维度名称（与 Values 顺序一致）
func ObjectiveNames() []string {
	return []string{"fill", "fairness", "balance", "variety", "heavy_spacing"}
}

// Values 返回与 ObjectiveNames 对应的数值
func (v Vector) Values() []float64 {
	return []float64{v.Fill, v.Fairness, v.Balance, v.Variety, v.HeavySpacing}
}

// Weighted 按权重折算为单一得分
// 满足率始终以固定权重参与，避免空排班在软目标上"全优"
func (v Vector) Weighted(w model.ObjectiveWeights) float64 {
	const fillWeight = 2.0
	return v.Fill*fillWeight +
		v.Fairness*w.Fairness +
		v.Balance*w.Balance +
		v.Variety*w.Variety +
		v.HeavySpacing*w.HeavySpacing
}

// Dominates 检查 v 是否支配 o：各维度不劣且至少一维严格占优
func (v Vector) Dominates(o Vector) bool {
	vv, ov := v.Values(), o.Values()
	strictlyBetter := false
	for i := range vv {
		if vv[i] < ov[i] {
			return false
		}
		if vv[i] > ov[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// Evaluate 计算当前排班网格的目标向量
func Evaluate(ctx *plan.Context) Vector {
	return Vector{
		Fill:         fillScore(ctx),
		Fairness:     fairnessScore(ctx),
		Balance:      balanceScore(ctx),
		Variety:      varietyScore(ctx),
		HeavySpacing: heavySpacingScore(ctx),
	}
}

// fillScore 需求满足率
func fillScore(ctx *plan.Context) float64 {
	total := ctx.TotalSlots()
	if total == 0 {
		return 100
	}
	return float64(ctx.FilledSlots()) / float64(total) * 100
}

// fairnessScore 基于基尼系数的公平性得分
func fairnessScore(ctx *plan.Context) float64 {
	loads := make([]stats.WorkerLoad, 0, len(ctx.Workers))
	for _, w := range ctx.Workers {
		loads = append(loads, stats.WorkerLoad{
			ID:       w.ID.String(),
			Name:     w.Name,
			Assigned: ctx.Week.AssignedCount(w.ID),
		})
	}
	return stats.Analyze(loads).OverallFairnessScore
}

// balanceScore 基于标准差的均衡得分
func balanceScore(ctx *plan.Context) float64 {
	loads := make([]stats.WorkerLoad, 0, len(ctx.Workers))
	for _, w := range ctx.Workers {
		loads = append(loads, stats.WorkerLoad{ID: w.ID.String(), Assigned: ctx.Week.AssignedCount(w.ID)})
	}
	m := stats.Analyze(loads)
	if m.AvgPerWorker == 0 {
		return 100
	}
	score := (1 - m.AssignmentStdDev/m.AvgPerWorker) * 100
	if score < 0 {
		return 0
	}
	return score
}

// varietyScore 任务多样性：有分配的工人中，不同任务数与分配天数之比
func varietyScore(ctx *plan.Context) float64 {
	totalRatio := 0.0
	counted := 0
	for _, w := range ctx.Workers {
		assigned := 0
		distinct := make(map[string]bool)
		for d := 0; d < ctx.Week.Days(); d++ {
			taskID := ctx.Week.TaskOn(w.ID, d)
			if taskID == nil {
				continue
			}
			assigned++
			distinct[taskID.String()] = true
		}
		if assigned == 0 {
			continue
		}
		totalRatio += float64(len(distinct)) / float64(assigned)
		counted++
	}
	if counted == 0 {
		return 100
	}
	return totalRatio / float64(counted) * 100
}

// heavySpacingScore 重任务间隔得分：统计连续重任务违规对
func heavySpacingScore(ctx *plan.Context) float64 {
	violations := 0
	for _, w := range ctx.Workers {
		for d := 1; d < ctx.Week.Days(); d++ {
			if isHeavy(ctx, w.ID, d) && isHeavy(ctx, w.ID, d-1) {
				violations++
			}
		}
	}
	score := 100 - float64(violations)*25
	if score < 0 {
		return 0
	}
	return score
}

func isHeavy(ctx *plan.Context, workerID uuid.UUID, day int) bool {
	taskID := ctx.Week.TaskOn(workerID, day)
	if taskID == nil {
		return false
	}
	task := ctx.Task(*taskID)
	return task != nil && task.Heavy
}
