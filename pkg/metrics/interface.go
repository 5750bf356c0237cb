// Package metrics instruments the persistent graph's three core
// operations (apply, join, preorder) and its load/save traffic.
// Implementations include the Prometheus-backed collector (always
// built) and the no-op collector (built unless the metrics tag is set).
package metrics

import "context"

// Collector is the interface pgraph.PG reports through. Every method is safe to call on a nil Collector
// reference's zero implementation (NoopCollector); callers that want
// metrics disabled entirely simply never set a Collector at all and
// nil-check before calling, mirroring the teacher's optional-collector
// pattern.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)
	RecordError(ctx context.Context, operation string, errorType string)
	SetStorageCount(ctx context.Context, storageType string, count int64)
}
