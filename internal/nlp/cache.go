package nlp

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedVectorizer memoizes another vectorizer. Knowledge base examples are
// re-embedded on every reload, so remote backends sit behind this cache.
type CachedVectorizer struct {
	next  Vectorizer
	cache *lru.Cache[string, []float32]
}

func NewCachedVectorizer(next Vectorizer, size int) (*CachedVectorizer, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedVectorizer{next: next, cache: cache}, nil
}

func (c *CachedVectorizer) Vectorize(text string) []float32 {
	if v, ok := c.cache.Get(text); ok {
		return v
	}
	v := c.next.Vectorize(text)
	if v != nil {
		c.cache.Add(text, v)
	}
	return v
}

func (c *CachedVectorizer) Len() int {
	return c.cache.Len()
}
