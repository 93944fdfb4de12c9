// Package model 定义派工引擎的核心数据模型
package model

// ObjectiveWeights 软目标权重
// 由评分器、禁忌搜索和帕累托前沿构建器共用
type ObjectiveWeights struct {
	Fairness     float64 `json:"fairness"`      // 分配公平性
	Balance      float64 `json:"balance"`       // 工作量均衡
	SkillMatch   float64 `json:"skill_match"`   // 技能匹配质量（含偏好加成）
	Variety      float64 `json:"variety"`       // 任务多样性
	HeavySpacing float64 `json:"heavy_spacing"` // 重任务间隔
}

// DefaultWeights 返回默认权重
func DefaultWeights() ObjectiveWeights {
	return ObjectiveWeights{
		Fairness:     1.0,
		Balance:      1.0,
		SkillMatch:   1.0,
		Variety:      0.8,
		HeavySpacing: 0.5,
	}
}

// IsZero 检查权重是否全部为零（未配置）
func (w ObjectiveWeights) IsZero() bool {
	return w.Fairness == 0 && w.Balance == 0 && w.SkillMatch == 0 &&
		w.Variety == 0 && w.HeavySpacing == 0
}
