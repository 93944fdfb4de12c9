// Package scheduler 是周排班引擎的门面
//
// 对外只暴露一个操作：接收完整的排班请求（工人、任务、需求、策略、
// 配置），校验后按选定策略生成一周排班。引擎无进程级可变状态，
// 两次相同请求（含种子）产出相同结果。
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/errors"
	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/gapfill"
	"github.com/paigong/paigong/pkg/scheduler/optimizer"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/scheduler/scoring"
	"github.com/paigong/paigong/pkg/scheduler/solver"
)

// Algorithm 排班策略
type Algorithm string

const (
	// AlgorithmGreedy 贪心：逐天逐槽位选最优工人，可选利用率填充
	AlgorithmGreedy Algorithm = "greedy"

	// AlgorithmPropagation 约束传播：强制分配 + MRV + 显式回溯
	AlgorithmPropagation Algorithm = "propagation"

	// AlgorithmMatching 最大匹配：逐天二分图增广，填充数可证明最大
	AlgorithmMatching Algorithm = "matching"

	// AlgorithmTabu 禁忌搜索：贪心初始解 + 交换/改派邻域精炼
	AlgorithmTabu Algorithm = "tabu"

	// AlgorithmPareto 帕累托：多权重组合并行生成互不支配的候选集
	AlgorithmPareto Algorithm = "pareto"

	// AlgorithmGapFill 仅补缺：保留调用方提供的分配，只填剩余缺口
	AlgorithmGapFill Algorithm = "gapfill"
)

// Request 排班请求
type Request struct {
	Days         []string             `json:"days" validate:"required,min=1,max=7,dive,required"`
	Workers      []*model.Worker      `json:"workers" validate:"required,min=1,dive,required"`
	Tasks        []*model.Task        `json:"tasks" validate:"required,min=1,dive,required"`
	Requirements []*model.Requirement `json:"requirements" validate:"dive,required"`

	// 本次排班排除的任务
	ExcludedTasks []uuid.UUID `json:"excluded_tasks,omitempty"`

	// 已有分配（锁定/钉住的格子随单元格携带）
	CurrentAssignments []*model.Cell `json:"current_assignments,omitempty"`

	Algorithm Algorithm   `json:"algorithm" validate:"required"`
	Config    plan.Config `json:"config"`

	// 补缺阶段的软规则放宽优先级，空则使用默认顺序
	GapRules []gapfill.Rule `json:"gap_rules,omitempty"`
}

// Response 排班响应
type Response struct {
	Algorithm  Algorithm      `json:"algorithm"`
	Result     *solver.Result `json:"result"`
	Objectives scoring.Vector `json:"objectives"`

	// 策略附加产出
	Tabu   *optimizer.TabuStats   `json:"tabu,omitempty"`
	Pareto []*optimizer.Candidate `json:"pareto,omitempty"`
	Gaps   *gapfill.Report        `json:"gaps,omitempty"`
}

// Engine 排班引擎
type Engine struct {
	validate *validator.Validate
	log      *logger.EngineLogger
}

// NewEngine 创建排班引擎
func NewEngine() *Engine {
	return &Engine{
		validate: validator.New(),
		log:      logger.NewEngineLogger(),
	}
}

// Generate 按请求生成一周排班
//
// 流程固定：校验 -> 构造上下文并导入已有分配 -> 协调员轮换 ->
// 选定策略 -> 补缺 -> 不变量校验。不可行问题以警告返回，
// 不变量违反作为致命错误上报。
func (e *Engine) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	pctx := plan.NewContext(req.Days, req.Workers, req.Tasks, req.Requirements,
		req.ExcludedTasks, req.Config)
	pctx.ApplyCurrent(req.CurrentAssignments)

	e.log.StartPlan(string(req.Algorithm), len(req.Workers), len(req.Days))
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, pctx.Config.Timeout)
	defer cancel()

	// 协调员轮换始终先行，之后的策略只处理普通需求
	if _, err := solver.NewRotation().Solve(cctx, pctx); err != nil {
		return nil, e.wrapSolveError(err)
	}

	resp := &Response{Algorithm: req.Algorithm}

	var result *solver.Result
	var err error

	switch req.Algorithm {
	case AlgorithmGreedy:
		result, err = solver.NewGreedy().Solve(cctx, pctx)

	case AlgorithmPropagation:
		result, err = solver.NewPropagation().Solve(cctx, pctx)

	case AlgorithmMatching:
		result, err = solver.NewMatching().Solve(cctx, pctx)

	case AlgorithmTabu:
		g := solver.NewGreedy()
		g.FillIdle = false
		if _, err = g.Solve(cctx, pctx); err == nil {
			result, resp.Tabu, err = optimizer.NewTabuRefiner(optimizer.DefaultTabuConfig()).Refine(cctx, pctx)
		}

	case AlgorithmPareto:
		builder := optimizer.NewParetoBuilder(nil, 0)
		var front []*optimizer.Candidate
		front, err = builder.Build(cctx, pctx)
		if err == nil {
			resp.Pareto = front
			if best := builder.Best(front); best != nil {
				pctx = best
			}
			result = solver.BuildResult(pctx, len(front), start)
		}

	case AlgorithmGapFill:
		// 不跑求解器：调用方的分配即初始解，下面的补缺阶段处理缺口
		result = solver.BuildResult(pctx, 0, start)

	default:
		return nil, errors.New(errors.CodeUnknownAlgorithm,
			fmt.Sprintf("未知的排班算法 '%s'", req.Algorithm))
	}
	if err != nil {
		return nil, e.wrapSolveError(err)
	}

	// 补缺：对剩余缺口按软规则放宽顺序做最后填充
	resp.Gaps, err = gapfill.NewFiller(req.GapRules).Fill(cctx, pctx)
	if err != nil {
		return nil, e.wrapSolveError(err)
	}
	if resp.Gaps.Filled > 0 {
		result = solver.BuildResult(pctx, result.Statistics.Iterations, start)
	}

	if err := solver.CheckInvariants(pctx); err != nil {
		return nil, err
	}
	if violated := solver.LockViolations(req.CurrentAssignments, result.Assignments); len(violated) > 0 {
		return nil, errors.InvariantViolation(
			fmt.Sprintf("%d 个锁定/钉住的格子被修改", len(violated)))
	}

	resp.Result = result
	resp.Objectives = scoring.Evaluate(pctx)

	e.log.PlanComplete(string(req.Algorithm), time.Since(start),
		result.Statistics.FilledSlots, result.Statistics.TotalSlots)
	return resp, nil
}

// wrapSolveError 把取消/超时映射为应用错误
func (e *Engine) wrapSolveError(err error) error {
	if err == context.DeadlineExceeded || err == context.Canceled {
		return errors.Wrap(err, errors.CodeTimeout, "排班求解超时")
	}
	return errors.Wrap(err, errors.CodeInternal, "排班求解失败")
}

// Validate 校验请求：结构校验 + 引用完整性校验
func (e *Engine) Validate(req *Request) error {
	if req == nil {
		return errors.ErrInvalidInput
	}
	if err := e.validate.Struct(req); err != nil {
		ve := &errors.ValidationErrors{}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				ve.Add(fe.Namespace(), fmt.Sprintf("违反约束 '%s'", fe.Tag()))
			}
			return ve.ToAppError()
		}
		return errors.Wrap(err, errors.CodeValidationFail, "请求结构校验失败")
	}
	return e.validateReferences(req)
}

// validateReferences 引用完整性校验
//
// 结构合法但语义错误的请求（未知ID、负数人数、可用性长度不符）
// 全部收集后一次返回，不在第一个错误处中断。
func (e *Engine) validateReferences(req *Request) error {
	ve := &errors.ValidationErrors{}

	workerIDs := make(map[uuid.UUID]bool, len(req.Workers))
	for i, w := range req.Workers {
		if workerIDs[w.ID] {
			ve.Add(fmt.Sprintf("workers[%d]", i), fmt.Sprintf("工人ID重复: %s", w.ID))
		}
		workerIDs[w.ID] = true
		if w.Availability != nil && len(w.Availability) != len(req.Days) {
			ve.Add(fmt.Sprintf("workers[%d].availability", i),
				fmt.Sprintf("可用性长度 %d 与天数 %d 不符", len(w.Availability), len(req.Days)))
		}
	}

	taskIDs := make(map[uuid.UUID]bool, len(req.Tasks))
	for i, t := range req.Tasks {
		if taskIDs[t.ID] {
			ve.Add(fmt.Sprintf("tasks[%d]", i), fmt.Sprintf("任务ID重复: %s", t.ID))
		}
		taskIDs[t.ID] = true
	}

	reqTasks := make(map[uuid.UUID]bool, len(req.Requirements))
	for i, r := range req.Requirements {
		field := fmt.Sprintf("requirements[%d]", i)
		if !taskIDs[r.TaskID] {
			ve.Add(field, fmt.Sprintf("引用了未知任务: %s", r.TaskID))
		}
		if reqTasks[r.TaskID] {
			ve.Add(field, fmt.Sprintf("任务 %s 的需求重复", r.TaskID))
		}
		reqTasks[r.TaskID] = true

		for opType, count := range r.Counts {
			if count < 0 {
				ve.Add(field, fmt.Sprintf("%s 类型人数为负: %d", opType, count))
			}
		}
		for day, counts := range r.Overrides {
			if day < 0 || day >= len(req.Days) {
				ve.Add(field, fmt.Sprintf("覆盖的天下标越界: %d", day))
				continue
			}
			for opType, count := range counts {
				if count < 0 {
					ve.Add(field, fmt.Sprintf("第 %d 天 %s 类型人数为负: %d", day, opType, count))
				}
			}
		}
	}

	for i, id := range req.ExcludedTasks {
		if !taskIDs[id] {
			ve.Add(fmt.Sprintf("excluded_tasks[%d]", i), fmt.Sprintf("引用了未知任务: %s", id))
		}
	}

	for i, cell := range req.CurrentAssignments {
		field := fmt.Sprintf("current_assignments[%d]", i)
		if !workerIDs[cell.WorkerID] {
			ve.Add(field, fmt.Sprintf("引用了未知工人: %s", cell.WorkerID))
		}
		if cell.Day < 0 || cell.Day >= len(req.Days) {
			ve.Add(field, fmt.Sprintf("天下标越界: %d", cell.Day))
		}
		if cell.TaskID != nil && !taskIDs[*cell.TaskID] {
			ve.Add(field, fmt.Sprintf("引用了未知任务: %s", cell.TaskID))
		}
	}

	for i, p := range req.Config.TypePreferences {
		if !taskIDs[p.TaskID] {
			ve.Add(fmt.Sprintf("config.type_preferences[%d]", i),
				fmt.Sprintf("引用了未知任务: %s", p.TaskID))
		}
	}

	switch req.Algorithm {
	case AlgorithmGreedy, AlgorithmPropagation, AlgorithmMatching,
		AlgorithmTabu, AlgorithmPareto, AlgorithmGapFill:
	default:
		ve.Add("algorithm", fmt.Sprintf("未知的排班算法 '%s'", req.Algorithm))
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}
