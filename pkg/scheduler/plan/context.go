// Package plan 定义排班上下文和引擎配置
package plan

import (
	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/model"
)

// Context 排班上下文
//
// 持有一次排班调用的全部输入和当前（可能部分完成的）周网格。
// 所有求解器共享读取，网格的修改只发生在单次调用内部。
type Context struct {
	// 天标签（有序工作日集合，如 monday..friday）
	Days []string

	Workers      []*model.Worker
	Tasks        []*model.Task
	Requirements []*model.Requirement

	// 当前排班网格
	Week *model.Week

	Config Config

	// 索引缓存
	workerMap map[uuid.UUID]*model.Worker
	taskMap   map[uuid.UUID]*model.Task
	reqByTask map[uuid.UUID]*model.Requirement
}

// NewContext 创建排班上下文
//
// excluded 中的任务以及未启用的需求不参与本次排班。
func NewContext(days []string, workers []*model.Worker, tasks []*model.Task,
	requirements []*model.Requirement, excluded []uuid.UUID, cfg Config) *Context {

	cfg.Normalize()

	excludedSet := make(map[uuid.UUID]bool, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = true
	}

	ctx := &Context{
		Days:      days,
		Workers:   workers,
		Tasks:     tasks,
		Week:      model.NewWeek(len(days), workers),
		Config:    cfg,
		workerMap: make(map[uuid.UUID]*model.Worker, len(workers)),
		taskMap:   make(map[uuid.UUID]*model.Task, len(tasks)),
		reqByTask: make(map[uuid.UUID]*model.Requirement),
	}

	for _, w := range workers {
		ctx.workerMap[w.ID] = w
	}
	for _, t := range tasks {
		ctx.taskMap[t.ID] = t
	}
	for _, r := range requirements {
		if !r.Enabled || excludedSet[r.TaskID] {
			continue
		}
		ctx.Requirements = append(ctx.Requirements, r)
		ctx.reqByTask[r.TaskID] = r
	}

	return ctx
}

// ApplyCurrent 导入调用方提供的已有分配（锁定/钉住的格子）
func (c *Context) ApplyCurrent(cells []*model.Cell) {
	for _, cell := range cells {
		c.Week.SetCell(cell)
	}
}

// Worker 按ID获取工人
func (c *Context) Worker(id uuid.UUID) *model.Worker {
	return c.workerMap[id]
}

// Task 按ID获取任务
func (c *Context) Task(id uuid.UUID) *model.Task {
	return c.taskMap[id]
}

// RequirementFor 获取任务的需求，未配置返回 nil
func (c *Context) RequirementFor(taskID uuid.UUID) *model.Requirement {
	return c.reqByTask[taskID]
}

// DayLabel 返回天标签，越界返回空串
func (c *Context) DayLabel(day int) string {
	if day < 0 || day >= len(c.Days) {
		return ""
	}
	return c.Days[day]
}

// GeneralRequirements 返回非协调员专属的需求（声明顺序）
func (c *Context) GeneralRequirements() []*model.Requirement {
	var out []*model.Requirement
	for _, r := range c.Requirements {
		task := c.Task(r.TaskID)
		if task == nil || task.CoordinatorOnly {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CoordinatorRequirements 返回协调员专属的需求（声明顺序）
func (c *Context) CoordinatorRequirements() []*model.Requirement {
	var out []*model.Requirement
	for _, r := range c.Requirements {
		task := c.Task(r.TaskID)
		if task == nil || !task.CoordinatorOnly {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Coordinators 返回协调员工人（声明顺序）
func (c *Context) Coordinators() []*model.Worker {
	var out []*model.Worker
	for _, w := range c.Workers {
		if w.IsCoordinator() {
			out = append(out, w)
		}
	}
	return out
}

// AssignedTypeCount 返回第 day 天某任务上已分配的指定类型工人数
func (c *Context) AssignedTypeCount(day int, taskID uuid.UUID, t model.OperatorType) int {
	return c.Week.CountOn(day, taskID, func(workerID uuid.UUID) bool {
		w := c.Worker(workerID)
		return w != nil && w.Type == t
	})
}

// RemainingNeed 返回第 day 天某任务对指定类型的剩余缺口
func (c *Context) RemainingNeed(day int, taskID uuid.UUID, t model.OperatorType) int {
	req := c.RequirementFor(taskID)
	if req == nil {
		return 0
	}
	remaining := req.CountFor(day, t) - c.AssignedTypeCount(day, taskID, t)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TotalSlots 返回整个窗口的总需求槽位数
func (c *Context) TotalSlots() int {
	total := 0
	for _, r := range c.Requirements {
		for d := 0; d < len(c.Days); d++ {
			total += r.TotalFor(d)
		}
	}
	return total
}

// FilledSlots 返回已满足的需求槽位数（超出需求的分配不计入）
func (c *Context) FilledSlots() int {
	filled := 0
	for _, r := range c.Requirements {
		for d := 0; d < len(c.Days); d++ {
			for _, t := range r.TypesFor(d) {
				need := r.CountFor(d, t)
				have := c.AssignedTypeCount(d, r.TaskID, t)
				if have > need {
					have = need
				}
				filled += have
			}
		}
	}
	return filled
}

// Fork 复制上下文：共享不可变输入，深拷贝周网格
func (c *Context) Fork() *Context {
	clone := *c
	clone.Week = c.Week.Clone()
	return &clone
}

// WithSeed 复制上下文并替换种子（帕累托候选生成使用）
func (c *Context) WithSeed(seed int64) *Context {
	clone := c.Fork()
	clone.Config.Seed = seed
	return clone
}
