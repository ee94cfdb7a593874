package attachments

import (
	"context"
	"net/url"
)

// Handle is one attached file under exclusive ownership of a Collection. A
// handle resolves its reference tree asynchronously after Resolve and reports
// progress through the update hooks.
//
// Implementations must guarantee:
//   - Resolve begins asynchronous work at most once; later calls are no-ops.
//   - Settled is closed exactly once, after every node of the tree reached a
//     final state, regardless of per-node success or failure.
//   - Dispose is idempotent, runs the registered dispose hooks exactly once,
//     cancels in-flight resolution and drops all update subscribers so no
//     further updates are observable.
type Handle interface {
	// Reference returns the root of the handle's reference tree.
	Reference() *Reference

	// References returns every URI in the tree, flattened: all valid nested
	// references in discovery order, then the root itself.
	References() []*url.URL

	// OnUpdate registers fn to run after every mutation of the reference tree.
	OnUpdate(fn func())

	// OnDispose registers fn to run when the handle is torn down, whether by
	// its owner or by the handle itself.
	OnDispose(fn func())

	// Resolve starts asynchronous resolution of the reference tree.
	Resolve(ctx context.Context)

	// Settled returns a channel closed once the whole tree finished resolving.
	Settled() <-chan struct{}

	// Dispose tears the handle down.
	Dispose()
}

// HandleFactory produces a Handle for a URI. The resolver subsystem provides
// the production implementation.
type HandleFactory interface {
	NewHandle(uri *url.URL) Handle
}

// HandleFactoryFunc adapts ordinary functions to the HandleFactory interface.
type HandleFactoryFunc func(uri *url.URL) Handle

// NewHandle invokes the wrapped function.
func (f HandleFactoryFunc) NewHandle(uri *url.URL) Handle {
	return f(uri)
}

// Listener receives collection-level lifecycle notifications.
//
// OnCollectionUpdated fires on any membership or content change; the added and
// removed callbacks carry the affected handle.
type Listener interface {
	OnAttachmentAdded(h Handle)
	OnAttachmentRemoved(h Handle)
	OnCollectionUpdated()
}

// FeatureGate reports whether prompt-file attachments are enabled. The
// collection re-evaluates it on every read instead of caching.
type FeatureGate interface {
	PromptFilesEnabled() bool
}
