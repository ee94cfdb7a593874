package observability

import (
	"context"
	"time"

	"attache/internal/attachments"
)

// CollectionMetrics adapts a MetricsCollector to the attachments.Listener
// interface so metric recording wires in by subscription like any other
// consumer of collection events.
type CollectionMetrics struct {
	collector *MetricsCollector
}

var _ attachments.Listener = (*CollectionMetrics)(nil)

// NewCollectionMetrics creates the listener adapter.
func NewCollectionMetrics(collector *MetricsCollector) *CollectionMetrics {
	return &CollectionMetrics{collector: collector}
}

// OnAttachmentAdded implements attachments.Listener. It also tracks the
// handle's settle time in the background.
func (c *CollectionMetrics) OnAttachmentAdded(h attachments.Handle) {
	c.collector.RecordAttachmentAdded(context.Background())

	start := time.Now()
	settled := h.Settled()
	go func() {
		<-settled
		c.collector.RecordSettleDuration(context.Background(), time.Since(start))
	}()
}

// OnAttachmentRemoved implements attachments.Listener.
func (c *CollectionMetrics) OnAttachmentRemoved(attachments.Handle) {
	c.collector.RecordAttachmentRemoved(context.Background())
}

// OnCollectionUpdated implements attachments.Listener.
func (c *CollectionMetrics) OnCollectionUpdated() {
	c.collector.RecordCollectionUpdate(context.Background())
}
