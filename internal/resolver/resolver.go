package resolver

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"attache/internal/attachments"
	"attache/internal/logging"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 5 * time.Minute
	defaultMaxDepth     = 10
)

// Config configures prompt-file resolution.
type Config struct {
	// PromptSuffixes lists the filename suffixes recognized as prompt files.
	PromptSuffixes []string
	// MaxDepth caps nested reference resolution.
	MaxDepth int
	// CacheSize is the maximum number of entries in the content LRU cache.
	CacheSize int
	// CacheTTL is how long cached file content remains valid.
	CacheTTL time.Duration
}

// DefaultConfig returns sensible defaults for prompt-file resolution.
func DefaultConfig() Config {
	return Config{
		PromptSuffixes: []string{".prompt.md", ".instructions.md"},
		MaxDepth:       defaultMaxDepth,
		CacheSize:      defaultCacheMaxSize,
		CacheTTL:       defaultCacheTTL,
	}
}

func (c Config) normalized() Config {
	if len(c.PromptSuffixes) == 0 {
		c.PromptSuffixes = DefaultConfig().PromptSuffixes
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheMaxSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	return c
}

// cacheEntry holds cached file content with the mtime it was read at.
type cacheEntry struct {
	content  string
	modTime  time.Time
	storedAt time.Time
}

// FileResolver produces attachment handles that resolve prompt-file reference
// trees from the local filesystem. File content is served through an LRU cache
// invalidated on mtime change, and concurrent handles resolving a shared
// include read it once via singleflight.
type FileResolver struct {
	cfg    Config
	logger logging.Logger
	cache  *lru.Cache[string, cacheEntry]
	group  singleflight.Group
}

// New creates a FileResolver.
func New(cfg Config, logger logging.Logger) (*FileResolver, error) {
	cfg = cfg.normalized()
	cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create content cache: %w", err)
	}
	return &FileResolver{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		cache:  cache,
	}, nil
}

// NewHandle implements attachments.HandleFactory.
func (r *FileResolver) NewHandle(uri *url.URL) attachments.Handle {
	return newHandle(r, uri)
}

// IsPromptFile reports whether p carries a recognized prompt-file suffix.
func (r *FileResolver) IsPromptFile(p string) bool {
	lower := strings.ToLower(p)
	for _, suffix := range r.cfg.PromptSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// load returns the content of the file at p, from cache when fresh.
func (r *FileResolver) load(p string) (string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}

	if entry, ok := r.cache.Get(p); ok &&
		entry.modTime.Equal(info.ModTime()) &&
		time.Since(entry.storedAt) < r.cfg.CacheTTL {
		return entry.content, nil
	}

	v, err, _ := r.group.Do(p, func() (any, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		content := string(data)
		r.cache.Add(p, cacheEntry{content: content, modTime: info.ModTime(), storedAt: time.Now()})
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// exists reports whether the file at p is reachable.
func (r *FileResolver) exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
