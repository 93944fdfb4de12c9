// Package scoring 实现软目标评分器
//
// 评分器是 (候选分配, 当前历史) 的纯函数，没有任何全局可变状态。
// 得分越高表示候选越优。
package scoring

import (
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
)

// 各评分项的基准分值，最终乘以对应权重
const (
	repeatPenaltyBase  = 10.0 // 连续同任务衰减惩罚（每多一天加一档）
	varietyBonusBase   = 8.0  // 稀缺技能使用加成
	newTaskBonusBase   = 5.0  // 本周未做过该任务的加成
	balanceBonusBase   = 4.0  // 每少一次分配的均衡加成
	fairnessBonusBase  = 3.0  // 公平性加成
	preferenceBonus    = 6.0  // 工人偏好任务加成
	heavyPenaltyBase   = 12.0 // 连续重任务惩罚（最低优先级规则）
	scarceReserveBonus = 7.0  // 稀缺技能保留加成
)

// Scorer 软目标评分器
type Scorer struct {
	cfg plan.Config
}

// NewScorer 创建评分器
func NewScorer(cfg plan.Config) *Scorer {
	cfg.Normalize()
	return &Scorer{cfg: cfg}
}

// Score 计算候选分配 (工人, 任务, 天) 的软得分
func (s *Scorer) Score(ctx *plan.Context, w *model.Worker, t *model.Task, day int) float64 {
	weights := s.cfg.Weights
	score := 0.0

	// 连续同任务衰减惩罚：往前数连续承担同一任务的天数
	streak := s.sameTaskStreak(ctx, w, t, day)
	score -= weights.Variety * repeatPenaltyBase * float64(streak)

	// 本周未做过该任务的多样性加成
	if !s.didTaskThisWeek(ctx, w, t) {
		score += weights.Variety * newTaskBonusBase
	}

	// 稀缺技能加成：该技能本周使用越少，加成越高
	score += weights.Variety * varietyBonusBase * (1 - s.skillShare(ctx, t.RequiredSkill))

	// 稀缺技能保留：持有该技能的工人越少，把他们留给该任务越有价值
	score += weights.SkillMatch * scarceReserveBonus * s.skillScarcity(ctx, t.RequiredSkill)

	// 工作量均衡：累计分配少的工人加成
	if s.cfg.BalanceWorkload {
		avg := s.avgAssigned(ctx)
		score += weights.Balance * balanceBonusBase * (avg - float64(ctx.Week.AssignedCount(w.ID)))
	}

	// 公平分配：与最多者的差距加成
	if s.cfg.FairDistribution {
		gap := s.maxAssigned(ctx) - ctx.Week.AssignedCount(w.ID)
		score += weights.Fairness * fairnessBonusBase * float64(gap)
	}

	// 工人偏好任务
	if w.Prefers(t.ID) {
		score += weights.SkillMatch * preferenceBonus
	}

	// 类型/任务优先配对（如机动工优先溢出任务）
	for _, pref := range s.cfg.TypePreferences {
		if pref.Type == w.Type && pref.TaskID == t.ID {
			score += pref.Bonus
		}
	}

	// 连续重任务惩罚：最低优先级规则，权重默认最小
	if !s.cfg.AllowConsecutiveHeavy && t.Heavy {
		if s.heavyOnDay(ctx, w, day-1) || s.heavyOnDay(ctx, w, day+1) {
			score -= weights.HeavySpacing * heavyPenaltyBase
		}
	}

	return score
}

// sameTaskStreak 返回工人在 day 之前连续承担任务 t 的天数
func (s *Scorer) sameTaskStreak(ctx *plan.Context, w *model.Worker, t *model.Task, day int) int {
	streak := 0
	for d := day - 1; d >= 0; d-- {
		taskID := ctx.Week.TaskOn(w.ID, d)
		if taskID == nil || *taskID != t.ID {
			break
		}
		streak++
	}
	return streak
}

// didTaskThisWeek 检查工人本周是否已承担过任务 t
func (s *Scorer) didTaskThisWeek(ctx *plan.Context, w *model.Worker, t *model.Task) bool {
	for d := 0; d < ctx.Week.Days(); d++ {
		taskID := ctx.Week.TaskOn(w.ID, d)
		if taskID != nil && *taskID == t.ID {
			return true
		}
	}
	return false
}

// skillShare 返回某技能在当前已分配格子中的占比 (0-1)
func (s *Scorer) skillShare(ctx *plan.Context, skill string) float64 {
	if skill == "" {
		return 0
	}
	total := 0
	using := 0
	for _, cell := range ctx.Week.Assignments() {
		if cell.IsIdle() {
			continue
		}
		total++
		task := ctx.Task(*cell.TaskID)
		if task != nil && task.RequiredSkill == skill {
			using++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(using) / float64(total)
}

// skillScarcity 返回技能稀缺度 (0-1)：持有者越少越稀缺
func (s *Scorer) skillScarcity(ctx *plan.Context, skill string) float64 {
	if skill == "" || len(ctx.Workers) == 0 {
		return 0
	}
	holders := 0
	for _, w := range ctx.Workers {
		if w.HasSkill(skill) {
			holders++
		}
	}
	if holders == 0 {
		return 1
	}
	return 1 - float64(holders)/float64(len(ctx.Workers))
}

// avgAssigned 返回人均分配数
func (s *Scorer) avgAssigned(ctx *plan.Context) float64 {
	if len(ctx.Workers) == 0 {
		return 0
	}
	total := 0
	for _, w := range ctx.Workers {
		total += ctx.Week.AssignedCount(w.ID)
	}
	return float64(total) / float64(len(ctx.Workers))
}

// maxAssigned 返回最大分配数
func (s *Scorer) maxAssigned(ctx *plan.Context) int {
	max := 0
	for _, w := range ctx.Workers {
		if c := ctx.Week.AssignedCount(w.ID); c > max {
			max = c
		}
	}
	return max
}

// heavyOnDay 检查工人第 d 天是否承担重任务
func (s *Scorer) heavyOnDay(ctx *plan.Context, w *model.Worker, d int) bool {
	if d < 0 || d >= ctx.Week.Days() {
		return false
	}
	taskID := ctx.Week.TaskOn(w.ID, d)
	if taskID == nil {
		return false
	}
	task := ctx.Task(*taskID)
	return task != nil && task.Heavy
}
