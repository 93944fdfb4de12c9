// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"
)

// WorkerLoad 工人负载（用于统计分析，与引擎模型解耦）
type WorkerLoad struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Assigned int    `json:"assigned"`
}

// WorkerStat 工人级别统计
type WorkerStat struct {
	WorkerID  string  `json:"worker_id"`
	Name      string  `json:"name"`
	Assigned  int     `json:"assigned"`
	Deviation float64 `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	AssignmentGini   float64      `json:"assignment_gini"`    // 分配基尼系数 (0=完全公平)
	AssignmentStdDev float64      `json:"assignment_std_dev"` // 分配标准差
	AvgPerWorker     float64      `json:"avg_per_worker"`     // 人均分配数
	MaxAssigned      int          `json:"max_assigned"`
	MinAssigned      int          `json:"min_assigned"`
	WorkerStats      []WorkerStat `json:"worker_stats"`

	// 综合公平性评分 (0-100)
	OverallFairnessScore float64 `json:"overall_fairness_score"`
}

// Analyze 分析分配公平性
func Analyze(loads []WorkerLoad) *FairnessMetrics {
	if len(loads) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	counts := make([]float64, len(loads))
	total := 0.0
	maxAssigned := loads[0].Assigned
	minAssigned := loads[0].Assigned

	for i, l := range loads {
		counts[i] = float64(l.Assigned)
		total += counts[i]
		if l.Assigned > maxAssigned {
			maxAssigned = l.Assigned
		}
		if l.Assigned < minAssigned {
			minAssigned = l.Assigned
		}
	}

	avg := total / float64(len(loads))

	metrics := &FairnessMetrics{
		AssignmentGini:   gini(counts),
		AssignmentStdDev: stdDev(counts, avg),
		AvgPerWorker:     avg,
		MaxAssigned:      maxAssigned,
		MinAssigned:      minAssigned,
	}

	for _, l := range loads {
		deviation := 0.0
		if avg > 0 {
			deviation = (float64(l.Assigned) - avg) / avg * 100
		}
		metrics.WorkerStats = append(metrics.WorkerStats, WorkerStat{
			WorkerID:  l.ID,
			Name:      l.Name,
			Assigned:  l.Assigned,
			Deviation: deviation,
		})
	}

	// 综合评分：基尼系数越低越公平
	metrics.OverallFairnessScore = (1 - metrics.AssignmentGini) * 100
	if metrics.OverallFairnessScore < 0 {
		metrics.OverallFairnessScore = 0
	}

	return metrics
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}
	if total == 0 {
		return 0 // 全员零分配视为完全公平
	}

	weighted := 0.0
	for i, v := range sorted {
		weighted += float64(i+1) * v
	}

	return (2*weighted)/(float64(n)*total) - float64(n+1)/float64(n)
}

// stdDev 计算标准差
func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}
