package stats

import (
	"math"
	"testing"
)

func TestAnalyze_Basic(t *testing.T) {
	loads := []WorkerLoad{
		{ID: "w1", Name: "工人1", Assigned: 4},
		{ID: "w2", Name: "工人2", Assigned: 2},
	}

	metrics := Analyze(loads)

	if metrics == nil {
		t.Fatal("Metrics should not be nil")
	}
	if metrics.AssignmentGini < 0 || metrics.AssignmentGini > 1 {
		t.Errorf("Gini coefficient should be between 0 and 1, got %f", metrics.AssignmentGini)
	}
	if metrics.AvgPerWorker != 3 {
		t.Errorf("Expected average 3, got %f", metrics.AvgPerWorker)
	}
	if metrics.MaxAssigned != 4 || metrics.MinAssigned != 2 {
		t.Errorf("Expected max=4 min=2, got max=%d min=%d", metrics.MaxAssigned, metrics.MinAssigned)
	}
	if len(metrics.WorkerStats) != 2 {
		t.Errorf("Expected 2 worker stats, got %d", len(metrics.WorkerStats))
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	metrics := Analyze(nil)

	if metrics == nil {
		t.Fatal("Should return metrics for nil input")
	}
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Empty input should score 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestAnalyze_PerfectFairness(t *testing.T) {
	loads := []WorkerLoad{
		{ID: "w1", Assigned: 3},
		{ID: "w2", Assigned: 3},
		{ID: "w3", Assigned: 3},
	}

	metrics := Analyze(loads)

	// 完全相同的分配：基尼为0，评分为100
	if metrics.AssignmentGini > 0.001 {
		t.Errorf("Perfect fairness should have Gini near 0, got %f", metrics.AssignmentGini)
	}
	if math.Abs(metrics.OverallFairnessScore-100) > 0.1 {
		t.Errorf("Perfect fairness should score 100, got %f", metrics.OverallFairnessScore)
	}
	if metrics.AssignmentStdDev != 0 {
		t.Errorf("Identical loads should have zero stddev, got %f", metrics.AssignmentStdDev)
	}
}

func TestAnalyze_ZeroAssignments(t *testing.T) {
	loads := []WorkerLoad{
		{ID: "w1", Assigned: 0},
		{ID: "w2", Assigned: 0},
	}

	metrics := Analyze(loads)

	// 全员零分配视为完全公平而不是除零
	if metrics.AssignmentGini != 0 {
		t.Errorf("All-zero loads should have Gini 0, got %f", metrics.AssignmentGini)
	}
}

func TestAnalyze_Deviation(t *testing.T) {
	loads := []WorkerLoad{
		{ID: "w1", Assigned: 4},
		{ID: "w2", Assigned: 2},
	}

	metrics := Analyze(loads)

	// 平均3：4偏差+33.3%，2偏差-33.3%
	if math.Abs(metrics.WorkerStats[0].Deviation-33.33) > 0.5 {
		t.Errorf("Expected deviation near +33.3%%, got %f", metrics.WorkerStats[0].Deviation)
	}
	if math.Abs(metrics.WorkerStats[1].Deviation+33.33) > 0.5 {
		t.Errorf("Expected deviation near -33.3%%, got %f", metrics.WorkerStats[1].Deviation)
	}
}
