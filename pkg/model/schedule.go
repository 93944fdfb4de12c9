// Package model 定义派工引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Cell 排班单元格：(工人, 天) -> 任务或空闲
type Cell struct {
	WorkerID uuid.UUID `json:"worker_id"`
	Day      int       `json:"day"`

	// 任务，nil 表示空闲
	TaskID *uuid.UUID `json:"task_id,omitempty"`

	// 锁定：任何求解器不得修改
	Locked bool `json:"locked,omitempty"`

	// 钉住：保护该格子不被补缺阶段修改
	Pinned bool `json:"pinned,omitempty"`
}

// IsIdle 检查单元格是否空闲
func (c *Cell) IsIdle() bool {
	return c.TaskID == nil
}

// Clone 深拷贝单元格
func (c *Cell) Clone() *Cell {
	clone := *c
	if c.TaskID != nil {
		id := *c.TaskID
		clone.TaskID = &id
	}
	return &clone
}

// WarningKind 警告类型
type WarningKind string

const (
	WarnSkillMismatch        WarningKind = "skill_mismatch"
	WarnAvailabilityConflict WarningKind = "availability_conflict"
	WarnDoubleAssignment     WarningKind = "double_assignment"
	WarnUnderstaffed         WarningKind = "understaffed"
	WarnOverstaffed          WarningKind = "overstaffed"
)

// Warning 排班警告：可行性问题以数据形式上报，从不抛出错误
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Day      int         `json:"day"`
	TaskID   *uuid.UUID  `json:"task_id,omitempty"`
	WorkerID *uuid.UUID  `json:"worker_id,omitempty"`
	Message  string      `json:"message"`
}

// ScheduleResult 排班结果
type ScheduleResult struct {
	Assignments []*Cell   `json:"assignments"`
	Warnings    []Warning `json:"warnings"`
}

// Week 周排班网格
//
// 每个工人持有一个长度固定、按天索引的单元格数组（每天一格，空闲即
// TaskID 为 nil），使"同一天"和"连续天"查询天然精确。工人顺序保持
// 输入声明顺序，保证遍历的确定性。
type Week struct {
	days  int
	order []uuid.UUID
	cells map[uuid.UUID][]*Cell
}

// NewWeek 创建空白周网格（所有格子空闲）
func NewWeek(days int, workers []*Worker) *Week {
	w := &Week{
		days:  days,
		order: make([]uuid.UUID, 0, len(workers)),
		cells: make(map[uuid.UUID][]*Cell, len(workers)),
	}
	for _, worker := range workers {
		row := make([]*Cell, days)
		for d := 0; d < days; d++ {
			row[d] = &Cell{WorkerID: worker.ID, Day: d}
		}
		w.order = append(w.order, worker.ID)
		w.cells[worker.ID] = row
	}
	return w
}

// Days 返回排班窗口天数
func (w *Week) Days() int {
	return w.days
}

// WorkerIDs 按输入顺序返回工人ID
func (w *Week) WorkerIDs() []uuid.UUID {
	return w.order
}

// Cell 返回指定工人和天的单元格，越界返回 nil
func (w *Week) Cell(workerID uuid.UUID, day int) *Cell {
	row, ok := w.cells[workerID]
	if !ok || day < 0 || day >= w.days {
		return nil
	}
	return row[day]
}

// TaskOn 返回工人在第 day 天的任务，空闲或越界返回 nil
func (w *Week) TaskOn(workerID uuid.UUID, day int) *uuid.UUID {
	cell := w.Cell(workerID, day)
	if cell == nil {
		return nil
	}
	return cell.TaskID
}

// Assign 将工人第 day 天分配到任务
func (w *Week) Assign(workerID uuid.UUID, day int, taskID uuid.UUID) {
	cell := w.Cell(workerID, day)
	if cell == nil {
		return
	}
	id := taskID
	cell.TaskID = &id
}

// SetIdle 将工人第 day 天设为空闲
func (w *Week) SetIdle(workerID uuid.UUID, day int) {
	cell := w.Cell(workerID, day)
	if cell == nil {
		return
	}
	cell.TaskID = nil
}

// SetCell 用已有单元格覆盖网格（用于导入 currentAssignments）
func (w *Week) SetCell(c *Cell) {
	cell := w.Cell(c.WorkerID, c.Day)
	if cell == nil {
		return
	}
	*cell = *c.Clone()
}

// AssignedCount 返回工人本周非空闲的天数
func (w *Week) AssignedCount(workerID uuid.UUID) int {
	count := 0
	for _, cell := range w.cells[workerID] {
		if !cell.IsIdle() {
			count++
		}
	}
	return count
}

// CountOn 返回第 day 天分配到某任务的工人数（可按过滤函数限定）
func (w *Week) CountOn(day int, taskID uuid.UUID, filter func(workerID uuid.UUID) bool) int {
	count := 0
	for _, workerID := range w.order {
		t := w.TaskOn(workerID, day)
		if t == nil || *t != taskID {
			continue
		}
		if filter != nil && !filter(workerID) {
			continue
		}
		count++
	}
	return count
}

// Assignments 按工人输入顺序、天序展开所有单元格
func (w *Week) Assignments() []*Cell {
	out := make([]*Cell, 0, len(w.order)*w.days)
	for _, workerID := range w.order {
		for _, cell := range w.cells[workerID] {
			out = append(out, cell)
		}
	}
	return out
}

// Clone 深拷贝周网格
func (w *Week) Clone() *Week {
	clone := &Week{
		days:  w.days,
		order: make([]uuid.UUID, len(w.order)),
		cells: make(map[uuid.UUID][]*Cell, len(w.cells)),
	}
	copy(clone.order, w.order)
	for workerID, row := range w.cells {
		newRow := make([]*Cell, len(row))
		for i, cell := range row {
			newRow[i] = cell.Clone()
		}
		clone.cells[workerID] = newRow
	}
	return clone
}
