package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attache/internal/attachments"
	"attache/internal/logging"
)

// Event is the wire shape of one collection event on the SSE stream.
type Event struct {
	Type string `json:"type"`
	URI  string `json:"uri,omitempty"`
}

// Collection event types emitted on the stream.
const (
	EventAttachmentAdded   = "attachment.added"
	EventAttachmentRemoved = "attachment.removed"
	EventCollectionUpdated = "collection.updated"
)

// SSEHandler re-broadcasts collection events to SSE clients. Each connection
// subscribes its own buffered listener; events that outrun a slow client are
// dropped for that client only.
type SSEHandler struct {
	collection *attachments.Collection
	logger     logging.Logger
}

// NewSSEHandler creates the handler.
func NewSSEHandler(collection *attachments.Collection) *SSEHandler {
	return &SSEHandler{
		collection: collection,
		logger:     logging.NewComponentLogger("SSEHandler"),
	}
}

// Stream serves one SSE connection until the client disconnects.
func (h *SSEHandler) Stream(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	listener := newStreamListener(100)
	h.collection.Subscribe(listener)
	defer h.collection.Unsubscribe(listener)

	if _, err := fmt.Fprintf(w, "event: connected\ndata: {}\n\n"); err != nil {
		h.logger.Error("failed to send connection message: %v", err)
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	h.logger.Info("sse client connected")
	for {
		select {
		case event := <-listener.events:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to serialize event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				h.logger.Error("failed to send sse message: %v", err)
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-c.Request.Context().Done():
			h.logger.Info("sse client disconnected")
			return
		}
	}
}

// streamListener adapts collection events to a channel with non-blocking
// sends.
type streamListener struct {
	events chan Event
}

var _ attachments.Listener = (*streamListener)(nil)

func newStreamListener(buffer int) *streamListener {
	return &streamListener{events: make(chan Event, buffer)}
}

func (l *streamListener) OnAttachmentAdded(h attachments.Handle) {
	l.send(Event{Type: EventAttachmentAdded, URI: h.Reference().URI().String()})
}

func (l *streamListener) OnAttachmentRemoved(h attachments.Handle) {
	l.send(Event{Type: EventAttachmentRemoved, URI: h.Reference().URI().String()})
}

func (l *streamListener) OnCollectionUpdated() {
	l.send(Event{Type: EventCollectionUpdated})
}

func (l *streamListener) send(e Event) {
	select {
	case l.events <- e:
	default:
		// Slow client; drop rather than stall the collection.
	}
}
