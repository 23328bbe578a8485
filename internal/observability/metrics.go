package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting pipeline metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Observations flowing through the pipeline by zone and outcome
//   - Per-stage latency and failure counts
//   - Tool execution patterns and latencies (the registry's metrics sink)
//   - LLM request performance and token consumption
//   - Sanitizer corrections (private alias leaks caught before execution)
//   - Skill graph promotions, demotions, and replays
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.RecordToolExecution("message.send", "success", 0.042)
type Metrics struct {
	// ObservationCounter tracks processed observations.
	// Labels: zone (public_guild|private_dm|trusted), outcome (success|failure)
	ObservationCounter *prometheus.CounterVec

	// StageDuration measures pipeline stage latency in seconds.
	// Labels: stage (retriever|intent|planner|sanitizer|executor|reflector|skillgraph)
	StageDuration *prometheus.HistogramVec

	// StageFailures counts stage failures replaced by defaults.
	// Labels: stage
	StageFailures *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool
	ToolExecutionDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider, model, and status.
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// SanitizerCorrections counts content rewrites by rule.
	// Labels: rule (greeting|alias-sweep|redact)
	SanitizerCorrections *prometheus.CounterVec

	// PlanSourceCounter counts plans by the path that produced them.
	// Labels: source (llm|intent-map|skill-graph|fallback)
	PlanSourceCounter *prometheus.CounterVec

	// SkillEvents counts skill graph lifecycle events.
	// Labels: event (promoted|promotion_failed|demoted|archived|preferred|replayed)
	SkillEvents *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at application startup.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers metrics with the given registerer.
// Tests pass their own registry to avoid duplicate registration panics.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ObservationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_observations_total",
				Help: "Total observations processed by zone and outcome",
			},
			[]string{"zone", "outcome"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"stage"},
		),

		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_stage_failures_total",
				Help: "Stage failures replaced by their safe defaults",
			},
			[]string{"stage"},
		),

		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_tool_executions_total",
				Help: "Total tool executions by tool name and status",
			},
			[]string{"tool", "status"},
		),

		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),

		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_llm_requests_total",
				Help: "Total LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMTokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_llm_tokens_total",
				Help: "Total tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		SanitizerCorrections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_sanitizer_corrections_total",
				Help: "Content corrections applied before execution, by rule",
			},
			[]string{"rule"},
		),

		PlanSourceCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_plans_total",
				Help: "Plans emitted by planner path",
			},
			[]string{"source"},
		),

		SkillEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_skill_events_total",
				Help: "Skill graph lifecycle events",
			},
			[]string{"event"},
		),
	}
}

// RecordObservation increments the observation counter.
func (m *Metrics) RecordObservation(zone string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ObservationCounter.WithLabelValues(zone, outcome).Inc()
}

// RecordStage records a stage's duration and, on failure, its failure count.
func (m *Metrics) RecordStage(stage string, durationSeconds float64, failed bool) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
	if failed {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordToolExecution records metrics for a tool execution. This is the
// metrics sink the tool registry notifies after every call.
func (m *Metrics) RecordToolExecution(tool, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(tool, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordLLMRequest records metrics for an LLM API request.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordSanitizerCorrection counts a content rewrite by rule name.
func (m *Metrics) RecordSanitizerCorrection(rule string) {
	m.SanitizerCorrections.WithLabelValues(rule).Inc()
}

// RecordPlanSource counts a plan by the path that produced it.
func (m *Metrics) RecordPlanSource(source string) {
	m.PlanSourceCounter.WithLabelValues(source).Inc()
}

// RecordSkillEvent counts a skill graph lifecycle event.
func (m *Metrics) RecordSkillEvent(event string) {
	m.SkillEvents.WithLabelValues(event).Inc()
}
