package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const opsScopeName = "github.com/tmkit/taskmaster/taskmgr"

// opMetrics holds lazily-initialized instruments for task operations. They
// are created against whatever meter provider is installed at first use.
var opMetrics struct {
	once     sync.Once
	ops      metric.Int64Counter
	dur      metric.Float64Histogram
	errs     metric.Int64Counter
	shifted  metric.Int64Counter
	dropped  metric.Int64Counter
	taskSize metric.Int64Gauge
}

func initOpMetrics() {
	m := Meter(opsScopeName)
	opMetrics.ops, _ = m.Int64Counter("tm.operations",
		metric.WithDescription("Total task operations executed"),
	)
	opMetrics.dur, _ = m.Float64Histogram("tm.operation.duration",
		metric.WithDescription("Task operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	opMetrics.errs, _ = m.Int64Counter("tm.operation.errors",
		metric.WithDescription("Total task operation errors"),
	)
	opMetrics.shifted, _ = m.Int64Counter("tm.engine.shifted",
		metric.WithDescription("Tasks whose id changed during an id transformation"),
		metric.WithUnit("{task}"),
	)
	opMetrics.dropped, _ = m.Int64Counter("tm.engine.dropped_refs",
		metric.WithDescription("Dependency references dropped because they no longer resolve"),
		metric.WithUnit("{reference}"),
	)
	opMetrics.taskSize, _ = m.Int64Gauge("tm.task.count",
		metric.WithDescription("Number of tasks in the document after an operation"),
	)
}

// Op is an in-flight operation span.
type Op struct {
	span  trace.Span
	start time.Time
	attrs []attribute.KeyValue
}

// StartOp starts a span for a task operation and counts it.
func StartOp(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Op) {
	opMetrics.once.Do(initOpMetrics)
	all := append([]attribute.KeyValue{attribute.String("tm.operation", name)}, attrs...)
	ctx, span := Tracer(opsScopeName).Start(ctx, "taskmgr."+name, trace.WithAttributes(all...))
	if opMetrics.ops != nil {
		opMetrics.ops.Add(ctx, 1, metric.WithAttributes(all...))
	}
	return ctx, &Op{span: span, start: time.Now(), attrs: all}
}

// Engine records the outcome of an id transformation inside the operation.
func (o *Op) Engine(ctx context.Context, transform string, shifted, dropped int) {
	attrs := make([]attribute.KeyValue, 0, len(o.attrs)+1)
	attrs = append(attrs, o.attrs...)
	a := metric.WithAttributes(append(attrs, attribute.String("tm.transform", transform))...)
	if opMetrics.shifted != nil {
		opMetrics.shifted.Add(ctx, int64(shifted), a)
		opMetrics.dropped.Add(ctx, int64(dropped), a)
	}
	o.span.AddEvent("taskid."+transform, trace.WithAttributes(
		attribute.Int("tm.engine.shifted", shifted),
		attribute.Int("tm.engine.dropped_refs", dropped),
	))
}

// Tasks records the document size after the operation.
func (o *Op) Tasks(ctx context.Context, n int) {
	if opMetrics.taskSize != nil {
		opMetrics.taskSize.Record(ctx, int64(n), metric.WithAttributes(o.attrs...))
	}
	o.span.SetAttributes(attribute.Int("tm.task.count", n))
}

// End closes the span, records duration and the error if any.
func (o *Op) End(ctx context.Context, err error) {
	if opMetrics.dur != nil {
		opMetrics.dur.Record(ctx, float64(time.Since(o.start).Milliseconds()), metric.WithAttributes(o.attrs...))
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		if opMetrics.errs != nil {
			opMetrics.errs.Add(ctx, 1, metric.WithAttributes(o.attrs...))
		}
	}
	o.span.End()
}
