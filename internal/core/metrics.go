package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRecorder receives one observation per coordinator operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

var expvarSeq uint64

// ExpvarRecorder publishes per-operation totals via expvar for deployments
// that prefer process-local metrics without external dependencies.
type ExpvarRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*OperationTotals
}

// OperationTotals aggregates outcomes for one operation.
type OperationTotals struct {
	DurationMS float64 `json:"duration_ms_total"`
	Success    int64   `json:"success_total"`
	Error      int64   `json:"error_total"`
}

// ExpvarSnapshot is a read-only view of the recorded totals.
type ExpvarSnapshot struct {
	Operations map[string]OperationTotals `json:"operations"`
	RecordedAt time.Time                  `json:"recorded_at"`
}

// NewExpvarRecorder constructs an expvar-backed recorder published under the
// supplied name. When name is empty a unique identifier is generated.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		name = fmt.Sprintf("coordinator_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarRecorder{name: name, ops: make(map[string]*OperationTotals)}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarRecorder) Name() string { return r.name }

// Observe records one coordinator operation outcome.
func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	totals, ok := r.ops[operation]
	if !ok {
		totals = &OperationTotals{}
		r.ops[operation] = totals
	}
	totals.DurationMS += float64(duration) / float64(time.Millisecond)
	if success {
		totals.Success++
	} else {
		totals.Error++
	}
}

// Snapshot returns an immutable copy of the aggregated totals.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]OperationTotals, len(r.ops))
	for op, totals := range r.ops {
		ops[op] = *totals
	}
	return ExpvarSnapshot{Operations: ops, RecordedAt: time.Now().UTC()}
}
