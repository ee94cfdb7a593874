package resolver

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"attache/internal/async"
	"attache/internal/attachments"
)

// promptHandle resolves one prompt file and its transitive references from
// disk. The flattened valid-reference list is built depth-first with a node's
// descendants appended before the node itself, so downstream views see a
// deterministic leaves-before-roots order.
type promptHandle struct {
	res  *FileResolver
	uri  *url.URL
	root *attachments.Reference

	mu         sync.Mutex
	updateFns  []func()
	disposeFns []func()
	errs       []error
	disposed   bool
	cancel     context.CancelFunc

	settled     chan struct{}
	settleOnce  sync.Once
	resolveOnce sync.Once
}

func newHandle(res *FileResolver, uri *url.URL) *promptHandle {
	return &promptHandle{
		res:     res,
		uri:     uri,
		root:    attachments.NewReference(uri, res.IsPromptFile(uri.Path)),
		settled: make(chan struct{}),
	}
}

func (h *promptHandle) Reference() *attachments.Reference { return h.root }

func (h *promptHandle) References() []*url.URL {
	valid := h.root.AllValidReferences()
	out := make([]*url.URL, 0, len(valid)+1)
	for _, ref := range valid {
		out = append(out, ref.URI())
	}
	return append(out, h.root.URI())
}

func (h *promptHandle) OnUpdate(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.updateFns = append(h.updateFns, fn)
}

func (h *promptHandle) OnDispose(fn func()) {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		// Late registration on a dead handle still gets its teardown call.
		fn()
		return
	}
	h.disposeFns = append(h.disposeFns, fn)
	h.mu.Unlock()
}

func (h *promptHandle) Resolve(ctx context.Context) {
	h.resolveOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		h.mu.Lock()
		if h.disposed {
			h.mu.Unlock()
			cancel()
			h.markSettled()
			return
		}
		h.cancel = cancel
		h.mu.Unlock()

		async.Go(h.res.logger, "resolve "+h.uri.String(), func() {
			defer h.markSettled()
			h.run(ctx)
		})
	})
}

func (h *promptHandle) Settled() <-chan struct{} { return h.settled }

func (h *promptHandle) Dispose() {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	h.disposed = true
	cancel := h.cancel
	fns := h.disposeFns
	h.disposeFns = nil
	h.updateFns = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.markSettled()
	for _, fn := range fns {
		fn()
	}
}

// Errors returns the per-node failures recorded during resolution. Resolution
// itself never fails as a whole; callers wanting failure detail inspect this
// before the handle is disposed.
func (h *promptHandle) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error{}, h.errs...)
}

func (h *promptHandle) run(ctx context.Context) {
	if h.uri.Scheme != "" && h.uri.Scheme != "file" {
		// Nothing to read for unsaved or otherwise non-filesystem documents;
		// the tree is just the root.
		return
	}
	visited := map[string]bool{filepath.Clean(h.uri.Path): true}
	h.expand(ctx, filepath.Clean(h.uri.Path), 0, visited)
}

// expand resolves the subtree beneath the prompt file at p. Every valid
// descendant is appended to the root's flattened list, a child's own subtree
// before the child itself. Unreadable or missing nodes are recorded and
// skipped; they never abort the walk.
func (h *promptHandle) expand(ctx context.Context, p string, depth int, visited map[string]bool) {
	if depth >= h.res.cfg.MaxDepth {
		h.recordError(fmt.Errorf("max reference depth %d reached at %s", h.res.cfg.MaxDepth, p))
		return
	}

	content, err := h.res.load(p)
	if err != nil {
		h.recordError(fmt.Errorf("read %s: %w", p, err))
		return
	}
	_, body, err := ParseFrontmatter([]byte(content))
	if err != nil {
		// Keep walking the body; a broken header does not invalidate links.
		h.recordError(fmt.Errorf("%s: %w", p, err))
	}

	for _, target := range ParseReferences(body) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		childPath := h.targetPath(p, target)
		if childPath == "" {
			continue
		}
		if visited[childPath] {
			continue
		}
		visited[childPath] = true

		if !h.res.exists(childPath) {
			h.recordError(fmt.Errorf("reference %s from %s: file not found", target, p))
			continue
		}

		isPrompt := h.res.IsPromptFile(childPath)
		if isPrompt {
			h.expand(ctx, childPath, depth+1, visited)
		}
		h.appendValid(attachments.NewReference(fileURI(childPath), isPrompt))
	}
}

// targetPath converts a parsed reference target into a cleaned absolute path,
// resolving relative targets against the referencing file's directory.
func (h *promptHandle) targetPath(from, target string) string {
	if strings.HasPrefix(target, "file://") {
		u, err := url.Parse(target)
		if err != nil {
			h.recordError(fmt.Errorf("reference %s from %s: %w", target, from, err))
			return ""
		}
		return filepath.Clean(u.Path)
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(from), target))
}

func fileURI(p string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
}

func (h *promptHandle) appendValid(ref *attachments.Reference) {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	fns := append([]func(){}, h.updateFns...)
	h.mu.Unlock()

	h.root.AppendValid(ref)
	for _, fn := range fns {
		fn()
	}
}

func (h *promptHandle) recordError(err error) {
	h.res.logger.Debug("resolve: %v", err)
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *promptHandle) markSettled() {
	h.settleOnce.Do(func() { close(h.settled) })
}
