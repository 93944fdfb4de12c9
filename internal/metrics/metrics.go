// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// Get 获取全局注册表
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			counters:   make(map[string]*Counter),
			gauges:     make(map[string]*Gauge),
			histograms: make(map[string]*Histogram),
		}
		initDefaultMetrics()
	})
	return registry
}

// initDefaultMetrics 初始化默认指标
func initDefaultMetrics() {
	registry.NewCounter("paigong_http_requests_total", "HTTP请求总数",
		[]string{"method", "path", "status"})
	registry.NewHistogram("paigong_http_request_duration_seconds", "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0})

	registry.NewCounter("paigong_plan_generation_total", "排班生成次数",
		[]string{"algorithm", "status"})
	registry.NewHistogram("paigong_plan_generation_duration_seconds", "排班生成延迟",
		[]string{"algorithm"},
		[]float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0})

	registry.NewGauge("paigong_plan_fill_rate", "最近排班的满足率", []string{"algorithm"})
	registry.NewGauge("paigong_plan_fairness_score", "最近排班的公平性得分", []string{"algorithm"})
	registry.NewGauge("paigong_db_connections", "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.counters[name] = c
	return c
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.gauges[name] = g
	return g
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &Histogram{
		Name: name, Help: help, Labels: labels, Buckets: buckets,
		counts: make(map[string][]int),
		sums:   make(map[string]float64),
	}
	r.histograms[name] = h
	return h
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
		}
	}
	h.counts[key][len(h.Buckets)]++ // +Inf
	h.sums[key] += value
}

// labelKey 生成标签键
func labelKey(values []string) string {
	return strings.Join(values, ",")
}

// Handler 返回Prometheus文本格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		reg := Get()
		reg.mu.RLock()
		defer reg.mu.RUnlock()

		for _, name := range sortedKeys(reg.counters) {
			c := reg.counters[name]
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
			c.mu.RLock()
			for key, value := range c.values {
				writeSample(w, c.Name, c.Labels, key, value)
			}
			c.mu.RUnlock()
		}

		for _, name := range sortedKeys(reg.gauges) {
			g := reg.gauges[name]
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
			g.mu.RLock()
			for key, value := range g.values {
				writeSample(w, g.Name, g.Labels, key, value)
			}
			g.mu.RUnlock()
		}

		for _, name := range sortedKeys(reg.histograms) {
			h := reg.histograms[name]
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
			h.mu.RLock()
			for key, counts := range h.counts {
				cumulative := 0
				for i, bucket := range h.Buckets {
					cumulative += counts[i]
					writeBucket(w, h.Name, h.Labels, key, fmt.Sprintf("%g", bucket), cumulative)
				}
				cumulative += counts[len(h.Buckets)]
				writeBucket(w, h.Name, h.Labels, key, "+Inf", cumulative)
				writeSample(w, h.Name+"_sum", h.Labels, key, h.sums[key])
				writeSample(w, h.Name+"_count", h.Labels, key, float64(cumulative))
			}
			h.mu.RUnlock()
		}
	})
}

// sortedKeys 稳定输出顺序
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeSample 输出单个样本行
func writeSample(w http.ResponseWriter, name string, labels []string, key string, value float64) {
	if formatted := formatLabels(labels, key); formatted != "" {
		fmt.Fprintf(w, "%s{%s} %g\n", name, formatted, value)
	} else {
		fmt.Fprintf(w, "%s %g\n", name, value)
	}
}

// writeBucket 输出直方图桶行
func writeBucket(w http.ResponseWriter, name string, labels []string, key, le string, count int) {
	formatted := formatLabels(labels, key)
	if formatted != "" {
		fmt.Fprintf(w, "%s_bucket{%s,le=%q} %d\n", name, formatted, le, count)
	} else {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, count)
	}
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	values := strings.Split(key, ",")
	parts := make([]string, 0, len(names))
	for i, name := range names {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", name, val))
	}
	return strings.Join(parts, ",")
}

// RecordRequest 记录HTTP请求指标
func RecordRequest(method, path string, status int, duration time.Duration) {
	reg := Get()
	if c := reg.GetCounter("paigong_http_requests_total"); c != nil {
		c.Inc(method, path, fmt.Sprintf("%d", status))
	}
	if h := reg.GetHistogram("paigong_http_request_duration_seconds"); h != nil {
		h.Observe(duration.Seconds(), method, path)
	}
}

// RecordPlanGeneration 记录排班生成指标
func RecordPlanGeneration(algorithm string, success bool, duration time.Duration) {
	reg := Get()
	status := "success"
	if !success {
		status = "failure"
	}
	if c := reg.GetCounter("paigong_plan_generation_total"); c != nil {
		c.Inc(algorithm, status)
	}
	if h := reg.GetHistogram("paigong_plan_generation_duration_seconds"); h != nil {
		h.Observe(duration.Seconds(), algorithm)
	}
}

// RecordPlanQuality 记录排班质量指标
func RecordPlanQuality(algorithm string, fillRate, fairness float64) {
	reg := Get()
	if g := reg.GetGauge("paigong_plan_fill_rate"); g != nil {
		g.Set(fillRate, algorithm)
	}
	if g := reg.GetGauge("paigong_plan_fairness_score"); g != nil {
		g.Set(fairness, algorithm)
	}
}

// SetDBConnections 记录数据库连接池状态
func SetDBConnections(state string, count int) {
	if g := Get().GetGauge("paigong_db_connections"); g != nil {
		g.Set(float64(count), state)
	}
}
