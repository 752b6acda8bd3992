package slice

// BuildCached wraps Build with cache's get/put, so callers never hand-roll
// the memoization lookup around a slice request.
func (b *Builder) BuildCached(cache *Cache, req Request) (*ContextSlice, error) {
	if cache != nil {
		if cached, ok := cache.Get(req); ok {
			return cached, nil
		}
	}
	s, err := b.Build(req)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Put(req, s)
	}
	return s, nil
}
