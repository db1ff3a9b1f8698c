package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("workflow-metrics")

// WorkflowMetrics provides metrics collection for session workflows.
// A nil *WorkflowMetrics records nothing.
type WorkflowMetrics struct {
	uploadsCounter          metric.Int64Counter
	uploadDurationHistogram metric.Float64Histogram
	pollsCounter            metric.Int64Counter
	runsCounter             metric.Int64Counter
	runDurationHistogram    metric.Float64Histogram
	stepsCounter            metric.Int64Counter
	stepDurationHistogram   metric.Float64Histogram
	namesCounter            metric.Int64Counter
	sessionsActiveGauge     metric.Int64UpDownCounter
}

// NewWorkflowMetrics creates a new workflow metrics collector
func NewWorkflowMetrics() (*WorkflowMetrics, error) {
	uploadsCounter, err := meter.Int64Counter(
		"workflow_orchestrator.uploads",
		metric.WithDescription("Total number of file uploads by slot and outcome"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, err
	}

	uploadDurationHistogram, err := meter.Float64Histogram(
		"workflow_orchestrator.upload.duration",
		metric.WithDescription("Duration of upload calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pollsCounter, err := meter.Int64Counter(
		"workflow_orchestrator.progress.polls",
		metric.WithDescription("Total number of progress polls by outcome"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	runsCounter, err := meter.Int64Counter(
		"workflow_orchestrator.progress.runs",
		metric.WithDescription("Total number of processing runs by final status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDurationHistogram, err := meter.Float64Histogram(
		"workflow_orchestrator.progress.run.duration",
		metric.WithDescription("Time from arming to the end of a processing run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepsCounter, err := meter.Int64Counter(
		"workflow_orchestrator.pipeline.steps",
		metric.WithDescription("Total number of drafting pipeline steps by step and outcome"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	stepDurationHistogram, err := meter.Float64Histogram(
		"workflow_orchestrator.pipeline.step.duration",
		metric.WithDescription("Duration of drafting pipeline steps in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	namesCounter, err := meter.Int64Counter(
		"workflow_orchestrator.circuit_names.resolved",
		metric.WithDescription("Total number of circuit names resolved by source"),
		metric.WithUnit("{name}"),
	)
	if err != nil {
		return nil, err
	}

	sessionsActiveGauge, err := meter.Int64UpDownCounter(
		"workflow_orchestrator.sessions.active",
		metric.WithDescription("Number of currently open sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkflowMetrics{
		uploadsCounter:          uploadsCounter,
		uploadDurationHistogram: uploadDurationHistogram,
		pollsCounter:            pollsCounter,
		runsCounter:             runsCounter,
		runDurationHistogram:    runDurationHistogram,
		stepsCounter:            stepsCounter,
		stepDurationHistogram:   stepDurationHistogram,
		namesCounter:            namesCounter,
		sessionsActiveGauge:     sessionsActiveGauge,
	}, nil
}

// RecordUpload records one upload attempt. Rejected uploads never reach a
// server and carry no duration.
func (wm *WorkflowMetrics) RecordUpload(ctx context.Context, slot, outcome string, duration time.Duration) {
	if wm == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("slot", slot),
		attribute.String("outcome", outcome),
	)
	wm.uploadsCounter.Add(ctx, 1, attrs)
	if duration > 0 {
		wm.uploadDurationHistogram.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordPoll records one progress poll
func (wm *WorkflowMetrics) RecordPoll(ctx context.Context, outcome string) {
	if wm == nil {
		return
	}
	wm.pollsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
		),
	)
}

// RecordRunFinished records a processing run reaching a terminal status
func (wm *WorkflowMetrics) RecordRunFinished(ctx context.Context, status string, duration time.Duration) {
	if wm == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("status", status),
	)
	wm.runsCounter.Add(ctx, 1, attrs)
	wm.runDurationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordPipelineStep records a classify, fetch or generate step
func (wm *WorkflowMetrics) RecordPipelineStep(ctx context.Context, step, outcome string, duration time.Duration) {
	if wm == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("outcome", outcome),
	)
	wm.stepsCounter.Add(ctx, 1, attrs)
	wm.stepDurationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordNameResolved records a circuit name reaching its outcome
func (wm *WorkflowMetrics) RecordNameResolved(ctx context.Context, source string) {
	if wm == nil {
		return
	}
	wm.namesCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
		),
	)
}

// RecordSessionOpened records a new session
func (wm *WorkflowMetrics) RecordSessionOpened(ctx context.Context) {
	if wm == nil {
		return
	}
	wm.sessionsActiveGauge.Add(ctx, 1)
}

// RecordSessionClosed records a session teardown
func (wm *WorkflowMetrics) RecordSessionClosed(ctx context.Context, reason string) {
	if wm == nil {
		return
	}
	wm.sessionsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("reason", reason),
		),
	)
}
