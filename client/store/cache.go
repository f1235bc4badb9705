package store

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"changeportal/domain"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// responseCache keeps successful reads for a fixed TTL. It is not size bounded: entries
// only leave through expiry or invalidation, so a long session grows it without limit.
type responseCache struct {
	ttl   time.Duration
	items *cache.Cache
	now   func() time.Time
}

type cacheEntry struct {
	response Response
	cachedAt time.Time
}

func newResponseCache(ttl time.Duration, now func() time.Time) *responseCache {
	cleanup := ttl
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &responseCache{ttl: ttl, items: cache.New(ttl, cleanup), now: now}
}

// cacheKey normalizes the request options: header names are canonicalized and sorted.
func cacheKey(path string, headers http.Header) string {
	if len(headers) == 0 {
		return path
	}
	names := make([]string, 0, len(headers))
	normalized := map[string][]string{}
	for name, values := range headers {
		canonical := http.CanonicalHeaderKey(name)
		if _, ok := normalized[canonical]; !ok {
			names = append(names, canonical)
		}
		normalized[canonical] = append(normalized[canonical], values...)
	}
	sort.Strings(names)

	b := strings.Builder{}
	b.WriteString(path)
	b.WriteString("?")
	for i, name := range names {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strings.Join(normalized[name], ","))
	}
	return b.String()
}

func (c *responseCache) get(key string) (*Response, bool) {
	value, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	entry := value.(*cacheEntry)
	if c.now().Sub(entry.cachedAt) > c.ttl {
		c.items.Delete(key)
		return nil, false
	}
	r := entry.response
	r.Body = append([]byte(nil), entry.response.Body...)
	return &r, true
}

func (c *responseCache) put(key string, r *Response) {
	stored := *r
	stored.Body = append([]byte(nil), r.Body...)
	c.items.Set(key, &cacheEntry{response: stored, cachedAt: c.now()}, cache.DefaultExpiration)
}

// invalidate drops every key containing the path or its parent collection path.
func (c *responseCache) invalidate(path string) int {
	parent := domain.ParentPath(path)
	removed := 0
	for key := range c.items.Items() {
		if strings.Contains(key, path) || strings.Contains(key, parent) {
			c.items.Delete(key)
			removed++
		}
	}
	logrus.WithFields(logrus.Fields{"path": path, "collection": parent, "removed": removed}).Debug("cache invalidated")
	return removed
}

func (c *responseCache) size() int {
	return c.items.ItemCount()
}
