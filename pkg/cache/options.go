package cache

// Options represents the configuration options for the page cache.
type Options struct {
	// Capacity is the maximum count of pages kept in memory. Pinned pages
	// are never evicted, so Capacity also bounds the count of pages that
	// may be pinned at the same time.
	Capacity int `json:"capacity"`
}

var defaultOptions = Options{
	Capacity: 1024,
}
