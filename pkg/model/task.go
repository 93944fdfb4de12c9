// Package model 定义派工引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Task 任务定义
type Task struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	// 所需技能（单一技能）
	RequiredSkill string `json:"required_skill"`

	// 重任务标记：连续两天安排重任务会受软约束惩罚
	Heavy bool `json:"heavy,omitempty"`

	// 协调员专属任务：只能由协调员承担
	CoordinatorOnly bool `json:"coordinator_only,omitempty"`
}

// Requirement 排班需求：某任务每天按操作员类型的人数要求
type Requirement struct {
	TaskID uuid.UUID `json:"task_id"`

	// 是否启用（未启用的任务不参与本次排班）
	Enabled bool `json:"enabled"`

	// 默认每日人数，按操作员类型拆分
	Counts map[OperatorType]int `json:"counts"`

	// 按天覆盖（key 为天下标）
	Overrides map[int]map[OperatorType]int `json:"overrides,omitempty"`
}

// CountFor 返回第 day 天对某操作员类型的人数要求
func (r *Requirement) CountFor(day int, t OperatorType) int {
	if dayCounts, ok := r.Overrides[day]; ok {
		return dayCounts[t]
	}
	return r.Counts[t]
}

// TypesFor 返回第 day 天有人数要求的操作员类型（固定顺序，保证确定性）
func (r *Requirement) TypesFor(day int) []OperatorType {
	var types []OperatorType
	for _, t := range []OperatorType{TypeRegular, TypeFlex, TypeCoordinator} {
		if r.CountFor(day, t) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// TotalFor 返回第 day 天的总人数要求
func (r *Requirement) TotalFor(day int) int {
	total := 0
	for _, t := range []OperatorType{TypeRegular, TypeFlex, TypeCoordinator} {
		total += r.CountFor(day, t)
	}
	return total
}
