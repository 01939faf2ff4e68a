package acquire

// Cache holds batch-captured image bytes for one chapter. The batch
// capture pass is the only writer; readers just look up, and the cache
// is discarded when the chapter run ends.
type Cache struct {
	images map[string][]byte
}

func NewCache(images map[string][]byte) *Cache {
	return &Cache{images: images}
}

func (c *Cache) Lookup(url string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.images[url]
	return b, ok
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.images)
}
