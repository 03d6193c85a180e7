// Package cache keeps recently used pages of a single page file in memory
// and hands them out pinned, so they can't be evicted while in use.
package cache

import (
	"sync"

	"go-mvindex/pkg/customerrors"
	"go-mvindex/pkg/pager"
	"go-mvindex/util/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

func Open(p *pager.Pager, opts *Options) (*Cache, error) {
	if opts == nil {
		opts = &defaultOptions
	}
	if opts.Capacity <= 0 {
		return nil, errors.Errorf("invalid cache capacity %d", opts.Capacity)
	}

	return &Cache{
		pager:    p,
		capacity: opts.Capacity,
		mu:       &sync.Mutex{},
		items:    make(map[uint64]*Entry, opts.Capacity),
		keys:     make([]uint64, 0, opts.Capacity),
		log:      logger.Component("cache"),
	}, nil
}

type Cache struct {
	pager    *pager.Pager
	capacity int

	mu    *sync.Mutex
	items map[uint64]*Entry
	// keys keeps load order, eviction takes the oldest unpinned page
	keys []uint64
	log  *logrus.Entry
}

// Load returns pinned entry of page with given index, reading it from
// the page file if it isn't cached yet.
func (c *Cache) Load(pageIndex uint64) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[pageIndex]; ok {
		e.pins++
		return e, nil
	}

	if err := c.makeRoom(); err != nil {
		return nil, err
	}

	page := pager.NewPage(pageIndex, c.pager.PageSize())
	buf := make([]byte, c.pager.PageSize())
	if err := c.pager.ReadPage(pageIndex, buf); err != nil {
		return nil, errors.Wrapf(err, "failed to read page %d", pageIndex)
	}
	if err := page.UnmarshalBinary(buf); err != nil {
		c.log.Warnf("page %d failed verification: %v", pageIndex, err)
		return nil, err
	}

	return c.put(page), nil
}

// AddPage appends a new zeroed page to the file and returns it pinned.
func (c *Cache) AddPage() (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.makeRoom(); err != nil {
		return nil, err
	}

	pageIndex, err := c.pager.Alloc(1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to alloc page")
	}

	return c.put(pager.NewPage(pageIndex, c.pager.PageSize())), nil
}

// Release unpins the entry. Entry must not be used after release.
func (c *Cache) Release(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.pins == 0 {
		panic(errors.Errorf("page %d released more times than loaded", e.page.Id))
	}
	e.pins--
}

// FilledUpTo returns count of pages in the underlying file.
func (c *Cache) FilledUpTo() uint64 {
	return c.pager.Count()
}

// Flush writes every dirty page and syncs the file.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.flushAll()
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.flushAll()

	c.items = map[uint64]*Entry{}
	c.keys = c.keys[:0]
	return multierr.Append(err, errors.Wrap(c.pager.Close(), "failed to close pager"))
}

func (c *Cache) put(page *pager.Page) *Entry {
	e := &Entry{
		cache: c,
		page:  page,
		pins:  1,
		lock:  &sync.RWMutex{},
	}

	c.items[page.Id] = e
	c.keys = append(c.keys, page.Id)
	return e
}

func (c *Cache) makeRoom() error {
	if len(c.items) < c.capacity {
		return nil
	}

	for i, key := range c.keys {
		e := c.items[key]
		if e.pins > 0 {
			continue
		}

		if err := c.flush(e); err != nil {
			return err
		}

		delete(c.items, key)
		c.keys = append(c.keys[:i], c.keys[i+1:]...)
		c.log.Debugf("evicted page %d", key)
		return nil
	}

	return customerrors.ErrCacheFull
}

func (c *Cache) flushAll() error {
	count := 0
	for _, key := range c.keys {
		e := c.items[key]
		if !e.page.IsDirty() {
			continue
		}
		if err := c.flush(e); err != nil {
			return err
		}
		count++
	}

	if count > 0 {
		c.log.Debugf("flushed %d pages", count)
	}
	return errors.Wrap(c.pager.Flush(), "failed to sync pages")
}

func (c *Cache) flush(e *Entry) error {
	if !e.page.IsDirty() {
		return nil
	}

	d, err := e.page.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "failed to marshal page %d", e.page.Id)
	}
	if err := c.pager.WritePage(e.page.Id, d); err != nil {
		return errors.Wrapf(err, "failed to write page %d", e.page.Id)
	}

	e.page.Dirty(false)
	return nil
}
