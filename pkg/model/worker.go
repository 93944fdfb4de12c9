// Package model 定义派工引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// OperatorType 操作员类型
type OperatorType string

const (
	TypeRegular     OperatorType = "regular"     // 正式工
	TypeFlex        OperatorType = "flex"        // 机动工
	TypeCoordinator OperatorType = "coordinator" // 协调员
)

// WorkerStatus 工人状态
type WorkerStatus string

const (
	StatusActive WorkerStatus = "active" // 在岗
	StatusSick   WorkerStatus = "sick"   // 病假
	StatusLeave  WorkerStatus = "leave"  // 休假
)

// Worker 工人
type Worker struct {
	ID     uuid.UUID    `json:"id"`
	Name   string       `json:"name"`
	Type   OperatorType `json:"type"`
	Status WorkerStatus `json:"status"`

	// 技能集合（无序）
	Skills []string `json:"skills"`

	// 按天索引的可用性，下标对应排班窗口中的第几天
	Availability []bool `json:"availability"`

	// 偏好任务（可选提示，参与软评分）
	PreferredTasks []uuid.UUID `json:"preferred_tasks,omitempty"`
}

// IsActive 检查工人是否在岗
func (w *Worker) IsActive() bool {
	return w.Status == StatusActive
}

// HasSkill 检查工人是否具备某技能
func (w *Worker) HasSkill(skill string) bool {
	for _, s := range w.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// AvailableOn 检查工人在第 day 天是否可用
func (w *Worker) AvailableOn(day int) bool {
	if day < 0 || day >= len(w.Availability) {
		return false
	}
	return w.Availability[day]
}

// Prefers 检查工人是否偏好某任务
func (w *Worker) Prefers(taskID uuid.UUID) bool {
	for _, id := range w.PreferredTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// IsCoordinator 检查工人是否为协调员
func (w *Worker) IsCoordinator() bool {
	return w.Type == TypeCoordinator
}
