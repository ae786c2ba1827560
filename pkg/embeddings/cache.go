package embeddings

import (
	"container/list"
	"context"
	"sync"
)

type cacheEntry struct {
	text      string
	embedding []float32
}

// CachedProvider wraps a provider with an in-memory LRU cache keyed by text.
type CachedProvider struct {
	provider Provider
	items    map[string]*list.Element
	lru      *list.List
	maxSize  int
	mu       sync.Mutex
}

var _ Provider = &CachedProvider{}

// NewCachedProvider keeps at most maxSize embeddings (1000 when <= 0).
func NewCachedProvider(provider Provider, maxSize int) *CachedProvider {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &CachedProvider{
		provider: provider,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		maxSize:  maxSize,
	}
}

func (c *CachedProvider) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[text]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).embedding, true
}

func (c *CachedProvider) put(text string, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		el.Value.(*cacheEntry).embedding = embedding
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.maxSize {
		oldest := c.lru.Back()
		delete(c.items, oldest.Value.(*cacheEntry).text)
		c.lru.Remove(oldest)
	}
	c.items[text] = c.lru.PushFront(&cacheEntry{text: text, embedding: embedding})
}

func (c *CachedProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e, ok := c.get(text); ok {
		return e, nil
	}
	embedding, err := c.provider.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(text, embedding)
	return embedding, nil
}

// GenerateBatchEmbeddings only sends the cache misses to the wrapped provider.
func (c *CachedProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if e, ok := c.get(text); ok {
			results[i] = e
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	generated, err := c.provider.GenerateBatchEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, e := range generated {
		results[missingIdx[j]] = e
		c.put(missing[j], e)
	}
	return results, nil
}

func (c *CachedProvider) GetModel() EmbeddingModel {
	return c.provider.GetModel()
}

func (c *CachedProvider) ClearCache() {
	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.mu.Unlock()
}

func (c *CachedProvider) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *CachedProvider) MaxSize() int {
	return c.maxSize
}
