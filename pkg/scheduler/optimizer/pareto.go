// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/paigong/paigong/pkg/logger"
	"github.com/paigong/paigong/pkg/model"
	"github.com/paigong/paigong/pkg/scheduler/plan"
	"github.com/paigong/paigong/pkg/scheduler/scoring"
	"github.com/paigong/paigong/pkg/scheduler/solver"
)

// WeightProfile 帕累托候选生成用的命名权重组合
type WeightProfile struct {
	Name    string                 `json:"name"`
	Weights model.ObjectiveWeights `json:"weights"`
}

// DefaultProfiles 默认的权重组合集
// 每组侧重不同的软目标，拉开候选在目标空间中的分布
func DefaultProfiles() []WeightProfile {
	return []WeightProfile{
		{Name: "balanced", Weights: model.ObjectiveWeights{Fairness: 1, Balance: 1, SkillMatch: 1, Variety: 0.8, HeavySpacing: 0.5}},
		{Name: "fairness_first", Weights: model.ObjectiveWeights{Fairness: 3, Balance: 1, SkillMatch: 0.5, Variety: 0.5, HeavySpacing: 0.5}},
		{Name: "balance_first", Weights: model.ObjectiveWeights{Fairness: 1, Balance: 3, SkillMatch: 0.5, Variety: 0.5, HeavySpacing: 0.5}},
		{Name: "variety_first", Weights: model.ObjectiveWeights{Fairness: 0.5, Balance: 0.5, SkillMatch: 1, Variety: 3, HeavySpacing: 0.5}},
		{Name: "heavy_spacing_first", Weights: model.ObjectiveWeights{Fairness: 0.5, Balance: 0.5, SkillMatch: 1, Variety: 0.5, HeavySpacing: 3}},
		{Name: "skill_match_first", Weights: model.ObjectiveWeights{Fairness: 0.5, Balance: 0.5, SkillMatch: 3, Variety: 0.5, HeavySpacing: 0.5}},
		{Name: "fair_variety", Weights: model.ObjectiveWeights{Fairness: 2, Balance: 0.5, SkillMatch: 1, Variety: 2, HeavySpacing: 0.5}},
		{Name: "steady_load", Weights: model.ObjectiveWeights{Fairness: 2, Balance: 2, SkillMatch: 0.5, Variety: 0.3, HeavySpacing: 1}},
	}
}

// Candidate 帕累托前沿上的一个候选排班
type Candidate struct {
	Assignments []*model.Cell   `json:"assignments"`
	Warnings    []model.Warning `json:"warnings"`
	Vector      scoring.Vector  `json:"vector"`
	Score       float64         `json:"score"`
	Seed        int64           `json:"seed"`
	Profile     string          `json:"profile"`

	pctx *plan.Context
}

// ParetoBuilder 帕累托前沿构建器
//
// 用不同权重组合和派生种子并行生成多个候选排班，去重后保留互不
// 支配的候选集。调用方拿到的是真实的取舍空间，而不是单一"最优"解。
type ParetoBuilder struct {
	profiles []WeightProfile
	workers  int
}

// NewParetoBuilder 创建帕累托前沿构建器
func NewParetoBuilder(profiles []WeightProfile, workers int) *ParetoBuilder {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	if workers <= 0 {
		workers = 4
	}
	return &ParetoBuilder{profiles: profiles, workers: workers}
}

// Build 生成候选集并返回帕累托前沿（按加权得分降序）
//
// 入参上下文应已完成协调员轮换；每个候选从它分叉，换用派生种子
// (seed+k) 和对应权重组合跑贪心主阶段（不做利用率填充，保持候选
// 在满足率维度上可比）。相同种子下结果可复现。
func (b *ParetoBuilder) Build(ctx context.Context, pctx *plan.Context) ([]*Candidate, error) {
	start := time.Now()
	baseSeed := pctx.Config.Seed

	type job struct {
		idx     int
		seed    int64
		profile WeightProfile
	}

	jobs := make(chan job)
	results := make([]*Candidate, len(b.profiles))
	var wg sync.WaitGroup

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[j.idx] = b.generate(ctx, pctx, j.seed, j.profile)
			}
		}()
	}

	for k, p := range b.profiles {
		jobs <- job{idx: k, seed: baseSeed + int64(k), profile: p}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []*Candidate
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, c)
		}
	}

	front := paretoFront(dedupe(candidates))
	sort.SliceStable(front, func(a, b int) bool {
		return front[a].Score > front[b].Score
	})

	logger.Debug().
		Str("component", "engine").
		Int("candidates", len(candidates)).
		Int("front", len(front)).
		Dur("duration", time.Since(start)).
		Msg("帕累托前沿构建完成")
	return front, nil
}

// Best 返回前沿中加权得分最高的候选的排班上下文
// 供门面在补缺阶段继续加工，前沿为空时返回 nil
func (b *ParetoBuilder) Best(front []*Candidate) *plan.Context {
	if len(front) == 0 {
		return nil
	}
	return front[0].pctx
}

// generate 生成单个候选
func (b *ParetoBuilder) generate(ctx context.Context, pctx *plan.Context,
	seed int64, profile WeightProfile) *Candidate {

	fork := pctx.WithSeed(seed)
	fork.Config.Weights = profile.Weights

	g := solver.NewGreedy()
	g.FillIdle = false
	result, err := g.Solve(ctx, fork)
	if err != nil {
		return nil
	}

	vec := scoring.Evaluate(fork)
	return &Candidate{
		Assignments: result.Assignments,
		Warnings:    result.Warnings,
		Vector:      vec,
		Score:       vec.Weighted(profile.Weights),
		Seed:        seed,
		Profile:     profile.Name,
		pctx:        fork,
	}
}

// dedupe 按分配集合哈希去重（保留先出现的候选）
func dedupe(candidates []*Candidate) []*Candidate {
	seen := make(map[uint64]bool, len(candidates))
	var out []*Candidate
	for _, c := range candidates {
		key := assignmentKey(c.Assignments)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// assignmentKey 计算分配集合的顺序无关哈希
func assignmentKey(cells []*model.Cell) uint64 {
	var key uint64
	for _, c := range cells {
		h := fnv.New64a()
		h.Write(c.WorkerID[:])
		h.Write([]byte{byte(c.Day)})
		if c.TaskID != nil {
			h.Write(c.TaskID[:])
		}
		key ^= h.Sum64()
	}
	return key
}

// paretoFront 过滤出互不支配的候选
func paretoFront(candidates []*Candidate) []*Candidate {
	var front []*Candidate
	for i, c := range candidates {
		dominated := false
		for j, o := range candidates {
			if i == j {
				continue
			}
			if o.Vector.Dominates(c.Vector) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, c)
		}
	}
	return front
}
