// ABOUTME: Audit pack and execution observers for the audit trail and metrics
// ABOUTME: Observers run after every registry execution

package operations

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/store"
)

// Execution is the public view of an audit entry.
type Execution struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	ActorID    string    `json:"actorId,omitempty"`
	TraceID    string    `json:"traceId"`
	Outcome    string    `json:"outcome"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// AuditPack creates the audit pack over st.
func AuditPack(st store.ExecutionStore) *Pack {
	return &Pack{
		Owner: "audit",
		Operations: []OperationDef{
			{
				Path:       "audit.executions.list",
				Visibility: sml.VisibilityAdmin,
				Schema: sml.Schema{
					Description: "List recent operation executions, newest first",
					Params: map[string]sml.ParamSpec{
						"limit": {Type: sml.TypeNumber},
					},
					Returns: "Execution[]",
				},
				Handler: func(ctx context.Context, p sml.Params, _ *sml.ExecContext) (any, error) {
					list, err := st.ListExecutions(ctx, p.Int("limit", 0))
					if err != nil {
						return nil, err
					}
					out := make([]*Execution, 0, len(list))
					for _, e := range list {
						out = append(out, &Execution{
							ID:         e.ID,
							Path:       e.Path,
							ActorID:    e.ActorID,
							TraceID:    e.TraceID,
							Outcome:    e.Outcome,
							ErrorCode:  e.ErrorCode,
							DurationMS: e.Duration.Milliseconds(),
							At:         e.Timestamp,
						})
					}
					return out, nil
				},
			},
		},
	}
}

// AuditObserver writes every execution to the audit trail. Write failures
// are logged and never affect the call.
func AuditObserver(st store.ExecutionStore, logger *slog.Logger) sml.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit")
	return func(ctx context.Context, rec sml.ExecRecord) {
		err := st.RecordExecution(context.WithoutCancel(ctx), &store.Execution{
			Path:      rec.Path,
			ActorID:   rec.ActorID,
			TraceID:   rec.TraceID,
			Outcome:   rec.Outcome,
			ErrorCode: string(rec.ErrorCode),
			Duration:  rec.Duration,
			Timestamp: rec.At,
		})
		if err != nil {
			logger.Error("failed to record execution", "path", rec.Path, "trace_id", rec.TraceID, "error", err)
		}
	}
}

// MetricsObserver counts executions and observes their duration.
func MetricsObserver(c *metrics.Collector) sml.Observer {
	return func(_ context.Context, rec sml.ExecRecord) {
		c.ObserveExecution(rec.Path, rec.Outcome, rec.Duration)
	}
}
