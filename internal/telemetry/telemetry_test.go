package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestInitDisabled(t *testing.T) {
	if err := Init(context.Background(), "tm", "test", Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Enabled() {
		t.Fatal("expected telemetry to be disabled")
	}
	ctx, op := StartOp(context.Background(), "renumber")
	op.Engine(ctx, "renumber", 2, 1)
	op.End(ctx, nil)
}

func TestInitStdoutSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	if err := Init(ctx, "tm", "test", Options{Enabled: true, Stdout: true, Writer: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !Enabled() {
		t.Fatal("expected telemetry to be enabled")
	}

	opCtx, op := StartOp(ctx, "remove_task", attribute.String("tm.ids", "2"))
	op.Engine(opCtx, "compact", 3, 1)
	op.Tasks(opCtx, 4)
	op.End(opCtx, errors.New("boom"))

	Shutdown(ctx)
	if Enabled() {
		t.Fatal("expected Shutdown to disable telemetry")
	}
	out := buf.String()
	if !strings.Contains(out, "taskmgr.remove_task") {
		t.Errorf("span not exported:\n%s", out)
	}
	if !strings.Contains(out, "taskid.compact") {
		t.Errorf("engine event not exported:\n%s", out)
	}
}
