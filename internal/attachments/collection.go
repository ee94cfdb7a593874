package attachments

import (
	"context"
	"net/url"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"

	"attache/internal/logging"
)

// Collection owns a keyed set of attachment handles. It creates handles
// through a factory, re-broadcasts their update events, guarantees exactly one
// disposal and one removal notification per handle, and derives flat ordered
// views over every live reference tree.
//
// Handles are keyed by the cleaned path component of their URI. Two URIs that
// differ only in scheme or authority but share a path therefore collide; that
// is a documented constraint of the keying scheme, not an oversight.
type Collection struct {
	factory HandleFactory
	gate    FeatureGate
	logger  logging.Logger

	mu      sync.Mutex
	order   []string
	handles map[string]Handle
	closed  bool

	listenerMu sync.RWMutex
	listeners  []Listener
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the collection logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Collection) { c.logger = logger }
}

// WithFeatureGate sets the configuration lookup behind PromptFilesEnabled.
func WithFeatureGate(gate FeatureGate) Option {
	return func(c *Collection) { c.gate = gate }
}

// NewCollection creates an empty collection producing handles via factory.
func NewCollection(factory HandleFactory, opts ...Option) *Collection {
	c := &Collection{
		factory: factory,
		handles: make(map[string]Handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// attachmentKey derives the membership key for a URI: its cleaned path.
func attachmentKey(uri *url.URL) string {
	return path.Clean(uri.Path)
}

// Subscribe registers a listener for collection events.
func (c *Collection) Subscribe(l Listener) {
	if l == nil {
		return
	}
	c.listenerMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenerMu.Unlock()
}

// Unsubscribe removes a previously registered listener.
func (c *Collection) Unsubscribe(l Listener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	for i, cur := range c.listeners {
		if cur == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Add attaches uri to the collection and reports whether a handle for its key
// already existed. When it did, Add is a no-op. Otherwise a new handle is
// created, wired to the collection's events, stored, and its asynchronous
// resolution started.
func (c *Collection) Add(ctx context.Context, uri *url.URL) bool {
	key := attachmentKey(uri)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warn("add %q ignored: collection closed", uri)
		return false
	}
	if _, ok := c.handles[key]; ok {
		c.mu.Unlock()
		return true
	}

	handle := c.factory.NewHandle(uri)
	// Wiring order matters: update forwarding first, then the disposal hook
	// that keeps bookkeeping consistent, then storage, then resolution.
	handle.OnUpdate(c.notifyUpdated)
	handle.OnDispose(func() { c.handleDisposed(key, handle) })
	c.handles[key] = handle
	c.order = append(c.order, key)
	c.mu.Unlock()

	handle.Resolve(ctx)
	c.logger.Debug("attached %q (key=%s)", uri, key)

	c.notifyAdded(handle)
	c.notifyUpdated()
	return false
}

// handleDisposed is the disposal hook installed on every handle at Add time.
// It only forgets the bookkeeping entry; the handle has already disposed
// itself, so disposing again here would recurse. It then fires the update and
// removed notifications, which makes them fire exactly once regardless of
// whether the collection or the handle initiated the teardown.
func (c *Collection) handleDisposed(key string, h Handle) {
	c.mu.Lock()
	if cur, ok := c.handles[key]; ok && cur == h {
		delete(c.handles, key)
		c.dropKey(key)
	}
	c.mu.Unlock()

	c.notifyUpdated()
	c.notifyRemoved(h)
}

// Remove detaches the handle for uri's key and disposes it before returning.
// Absent keys are a no-op. The removal notifications fire from the disposal
// hook installed in Add, never from here, so they cannot double-fire.
func (c *Collection) Remove(uri *url.URL) *Collection {
	key := attachmentKey(uri)

	c.mu.Lock()
	handle, ok := c.handles[key]
	if ok {
		delete(c.handles, key)
		c.dropKey(key)
	}
	c.mu.Unlock()

	if ok {
		handle.Dispose()
		c.logger.Debug("detached key=%s", key)
	}
	return c
}

// Has reports whether a handle exists for uri's key.
func (c *Collection) Has(uri *url.URL) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handles[attachmentKey(uri)]
	return ok
}

// Len returns the number of live handles.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// References concatenates the flattened URI lists of every live handle in
// insertion order. The view is recomputed on every call.
func (c *Collection) References() []*url.URL {
	var out []*url.URL
	for _, handle := range c.snapshot() {
		out = append(out, handle.References()...)
	}
	return out
}

// ChatVariables derives the variable-entry view: for each live handle in
// insertion order, one non-root entry per node of its flattened valid
// reference list, then exactly one root entry for the handle's own top-level
// reference. Downstream consumers depend on this leaves-before-roots order.
//
// The root entry is always encoded as a prompt file: only prompt files can be
// top-level attachments on this path, including unsaved documents that carry
// no persisted prompt-file marker.
func (c *Collection) ChatVariables() []ChatVariable {
	var out []ChatVariable
	for _, handle := range c.snapshot() {
		root := handle.Reference()
		for _, ref := range root.AllValidReferences() {
			out = append(out, ToChatVariable(ref, false))
		}
		out = append(out, ToChatVariable(NewReference(root.URI(), true), true))
	}
	return out
}

// AllSettled blocks until every handle alive at call time has settled.
// Handles added afterwards are not waited on. Per-handle resolution failures
// never surface here; the only possible error is ctx expiring.
func (c *Collection) AllSettled(ctx context.Context) error {
	var settled []<-chan struct{}
	for _, handle := range c.snapshot() {
		settled = append(settled, handle.Settled())
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range settled {
		g.Go(func() error {
			select {
			case <-ch:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// PromptFilesEnabled re-evaluates the configuration lookup on every call.
// Without a configured gate the feature is considered enabled.
func (c *Collection) PromptFilesEnabled() bool {
	if c.gate == nil {
		return true
	}
	return c.gate.PromptFilesEnabled()
}

// Close disposes every live handle and stops accepting new attachments.
func (c *Collection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	handles := make([]Handle, 0, len(c.order))
	for _, key := range c.order {
		handles = append(handles, c.handles[key])
	}
	c.order = nil
	c.handles = make(map[string]Handle)
	c.mu.Unlock()

	for _, handle := range handles {
		handle.Dispose()
	}
}

// snapshot returns the live handles in insertion order.
func (c *Collection) snapshot() []Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Handle, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.handles[key])
	}
	return out
}

// dropKey removes key from the insertion-order slice. Caller holds c.mu.
func (c *Collection) dropKey(key string) {
	for i, cur := range c.order {
		if cur == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Collection) notifyAdded(h Handle) {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	for _, l := range c.listeners {
		l.OnAttachmentAdded(h)
	}
}

func (c *Collection) notifyRemoved(h Handle) {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	for _, l := range c.listeners {
		l.OnAttachmentRemoved(h)
	}
}

func (c *Collection) notifyUpdated() {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	for _, l := range c.listeners {
		l.OnCollectionUpdated()
	}
}
