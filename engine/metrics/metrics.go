// Package metrics instruments the orchestration core with OpenTelemetry
// counters and a gauge (spec.md §6 expansion, component J), grounded on the
// teacher's engine/autoload/metrics.go.
package metrics

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const subsystem = "core"

// ReconcileOutcome labels a reconciler decision.
type ReconcileOutcome string

const (
	OutcomeInserted       ReconcileOutcome = "inserted"
	OutcomeDuplicateID    ReconcileOutcome = "duplicate_id"
	OutcomeLoadFailed     ReconcileOutcome = "load_failed"
	OutcomeRemoved        ReconcileOutcome = "removed"
	OutcomeNoEntry        ReconcileOutcome = "no_entry"
)

type recorder struct {
	initOnce sync.Once

	reconcileTotal metric.Int64Counter
	schedulerFires metric.Int64Counter
	controlOps     metric.Int64Counter
	registrySize   metric.Int64ObservableGauge
}

var container recorder

// SizeFunc is called each collection cycle to report current registry size.
type SizeFunc func() int64

func get() *recorder {
	container.initOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("flowforge.engine")
		var err error
		container.reconcileTotal, err = meter.Int64Counter(
			nameWithSubsystem(subsystem, "reconcile_events_total"),
			metric.WithDescription("Reconciler events processed, by kind and outcome"),
		)
		if err != nil {
			panic(fmt.Errorf("metrics: reconcile counter: %w", err))
		}
		container.schedulerFires, err = meter.Int64Counter(
			nameWithSubsystem(subsystem, "scheduler_fires_total"),
			metric.WithDescription("Scheduler job firings"),
		)
		if err != nil {
			panic(fmt.Errorf("metrics: scheduler fires counter: %w", err))
		}
		container.controlOps, err = meter.Int64Counter(
			nameWithSubsystem(subsystem, "control_ops_total"),
			metric.WithDescription("Lifecycle control operations invoked, by op"),
		)
		if err != nil {
			panic(fmt.Errorf("metrics: control ops counter: %w", err))
		}
	})
	return &container
}

// RegisterRegistrySize installs an observable gauge reporting the registry's
// current size, called once at façade boot.
func RegisterRegistrySize(size SizeFunc) error {
	meter := otel.GetMeterProvider().Meter("flowforge.engine")
	gauge, err := meter.Int64ObservableGauge(
		nameWithSubsystem(subsystem, "registry_size"),
		metric.WithDescription("Number of workflows currently registered"),
	)
	if err != nil {
		return fmt.Errorf("metrics: registry size gauge: %w", err)
	}
	container.registrySize = gauge
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, size())
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("metrics: register registry size callback: %w", err)
	}
	return nil
}

// RecordReconcile records one reconciler decision.
func RecordReconcile(ctx context.Context, kind string, outcome ReconcileOutcome) {
	r := get()
	r.reconcileTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", string(outcome)),
	))
}

// RecordSchedulerFire records one scheduler job firing for workflowID.
func RecordSchedulerFire(ctx context.Context, workflowID int) {
	r := get()
	r.schedulerFires.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("workflow_id", workflowID),
	))
}

// RecordControlOp records one lifecycle control operation invocation.
func RecordControlOp(ctx context.Context, op string) {
	r := get()
	r.controlOps.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
