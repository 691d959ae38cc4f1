package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	localcontext "github.com/rahul4469/birdwatcher/context"
)

// CachedIdentifier remembers identifications per photo so that submitting
// the same file twice does not call the model twice. Placeholder results
// are never cached.
type CachedIdentifier struct {
	next  BirdIdentifier
	cache *cache.Cache
}

func NewCachedIdentifier(next BirdIdentifier, ttl time.Duration) *CachedIdentifier {
	return &CachedIdentifier{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

func (c *CachedIdentifier) Configured() bool { return c.next.Configured() }

func (c *CachedIdentifier) Identify(ctx context.Context, img Image) (*Identification, error) {
	logger := localcontext.Logger(ctx)

	key, err := img.Fingerprint()
	if err != nil {
		// Nothing to key on, let the wrapped identifier reject it.
		return c.next.Identify(ctx, img)
	}

	if cached, found := c.cache.Get(key); found {
		if id, ok := cached.(*Identification); ok {
			logger.Debug("Identify cache hit", "fingerprint", key[:12])
			out := *id
			out.Cached = true
			return &out, nil
		}
	}

	id, err := c.next.Identify(ctx, img)
	if err != nil {
		return nil, err
	}
	if !id.Fallback {
		stored := *id
		c.cache.Set(key, &stored, cache.DefaultExpiration)
	}
	return id, nil
}

// Len returns the number of live cache entries.
func (c *CachedIdentifier) Len() int {
	return c.cache.ItemCount()
}
