// Package plan 定义排班上下文和引擎配置
package plan

import (
	"time"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
)

// TypePreference 操作员类型与任务的优先配对
// 例如机动工优先承担溢出任务
type TypePreference struct {
	Type   model.OperatorType `json:"type"`
	TaskID uuid.UUID          `json:"task_id"`
	Bonus  float64            `json:"bonus"`
}

// Config 引擎配置
//
// 种子和超时都是调用方显式提供的参数：引擎不持有任何进程级可变状态，
// 每次调用用自己的种子构造独立的伪随机数发生器。
type Config struct {
	// 严格技能匹配：开启时工人技能集必须包含任务所需技能
	StrictSkillMatch bool `json:"strict_skill_matching"`

	// 允许同一工人连续两天承担重任务（关闭时作为最低优先级软约束惩罚）
	AllowConsecutiveHeavy bool `json:"allow_consecutive_heavy"`

	// 同一任务最多连续天数（软约束，补缺阶段使用）
	MaxConsecutiveSameTask int `json:"max_consecutive_same_task"`

	// 公平分配：优先选择累计分配少的工人
	FairDistribution bool `json:"fair_distribution"`

	// 工作量均衡：参与软评分
	BalanceWorkload bool `json:"balance_workload"`

	// 软目标权重
	Weights model.ObjectiveWeights `json:"weights"`

	// 操作员类型与任务的优先配对
	TypePreferences []TypePreference `json:"type_preferences,omitempty"`

	// 随机种子（确定性平手裁决）
	Seed int64 `json:"seed"`

	// 墙钟预算（回溯与禁忌搜索必须遵守）
	Timeout time.Duration `json:"timeout"`

	// 迭代预算
	MaxIterations int `json:"max_iterations"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		StrictSkillMatch:       true,
		AllowConsecutiveHeavy:  false,
		MaxConsecutiveSameTask: 2,
		FairDistribution:       true,
		BalanceWorkload:        true,
		Weights:                model.DefaultWeights(),
		Seed:                   1,
		Timeout:                5 * time.Second,
		MaxIterations:          2000,
	}
}

// Normalize 填充零值配置项的默认值
func (c *Config) Normalize() {
	if c.MaxConsecutiveSameTask <= 0 {
		c.MaxConsecutiveSameTask = 2
	}
	if c.Weights.IsZero() {
		c.Weights = model.DefaultWeights()
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 2000
	}
}
