package transport

import (
	"github.com/dgraph-io/ristretto"
)

// AcceptCache stores the negotiated Accept header per (method, URL). Entries
// never expire within the cache's lifetime; the lifetime is tied to the
// owning Negotiator instance so tests stay hermetic.
type AcceptCache interface {
	Get(method, url string) (string, bool)
	Set(method, url, accept string)
}

type ristrettoAcceptCache struct {
	cache *ristretto.Cache
}

// NewAcceptCache returns an AcceptCache backed by a ristretto cache sized
// for a few thousand distinct request shapes.
func NewAcceptCache() (AcceptCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     1 << 12,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoAcceptCache{cache: cache}, nil
}

func (c *ristrettoAcceptCache) Get(method, url string) (string, bool) {
	v, ok := c.cache.Get(acceptKey(method, url))
	if !ok {
		return "", false
	}
	accept, ok := v.(string)
	return accept, ok
}

func (c *ristrettoAcceptCache) Set(method, url, accept string) {
	c.cache.Set(acceptKey(method, url), accept, 1)
	// Ristretto admits entries asynchronously; wait so the corrected header
	// is visible to the very next request.
	c.cache.Wait()
}

func acceptKey(method, url string) string {
	return method + " " + url
}
