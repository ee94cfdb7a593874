package attachments

import (
	"net/url"
	"sync"
)

// Reference is one node of a resolved-or-resolving file reference tree: the
// file itself plus, on the root node, the flattened list of every valid file
// the tree transitively pulled in.
//
// The flattened list grows while resolution proceeds. Resolvers append to it
// through AppendValid; readers always get a snapshot.
type Reference struct {
	uri          *url.URL
	isPromptFile bool

	mu    sync.RWMutex
	valid []*Reference
}

// NewReference creates a tree node for uri.
func NewReference(uri *url.URL, isPromptFile bool) *Reference {
	return &Reference{uri: uri, isPromptFile: isPromptFile}
}

// URI returns the file location this node describes.
func (r *Reference) URI() *url.URL {
	return r.uri
}

// IsPromptFile reports whether the node was recognized as a prompt file.
func (r *Reference) IsPromptFile() bool {
	return r.isPromptFile
}

// AllValidReferences returns a snapshot of the flattened valid descendants of
// this node, in the order resolution discovered them. The root itself is not
// part of the list.
func (r *Reference) AllValidReferences() []*Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Reference, len(r.valid))
	copy(out, r.valid)
	return out
}

// AppendValid records newly resolved descendants. Order of appended nodes is
// preserved; downstream views rely on it.
func (r *Reference) AppendValid(refs ...*Reference) {
	if len(refs) == 0 {
		return
	}
	r.mu.Lock()
	r.valid = append(r.valid, refs...)
	r.mu.Unlock()
}
