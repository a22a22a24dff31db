package subst

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"
)

// cacheEntry holds the outcome of parsing one text.
type cacheEntry struct {
	once sync.Once
	text string
	tmpl *Template
	err  error
}

// ParseCached is like [Registry.Parse] but memoizes the result per text.
// Identical texts yield the identical *Template, which is safe to share since
// templates are immutable. Diagnostics are logged on the first parse only.
func (r *Registry) ParseCached(ctx context.Context, text string) (*Template, error) {
	hash := xxh3.HashString(text)

	value, hit := r.cache.LoadOrStore(hash, &cacheEntry{text: text})

	entry, ok := value.(*cacheEntry)
	if !ok || entry.text != text {
		// Hash collision; parse without caching.
		r.logger().TraceContext(
			ctx,
			"cache collision",
			slog.String("hash", strconv.FormatUint(hash, 16)),
		)

		return r.Parse(ctx, text)
	}

	r.logger().TraceContext(
		ctx,
		"cache lookup",
		slog.String("hash", strconv.FormatUint(hash, 16)),
		slog.Bool("cache_hit", hit),
	)

	entry.once.Do(func() {
		entry.tmpl, entry.err = r.Parse(ctx, text)
	})

	return entry.tmpl, entry.err
}

// ClearCache drops every template memoized by [Registry.ParseCached].
func (r *Registry) ClearCache() {
	r.cache.Clear()
}
