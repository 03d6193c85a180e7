// Package nullindex stores values of the null key of a multi-value index.
// Values live in a linked list of null bucket pages, non-full pages are
// also chained into a free list that serves inserts.
package nullindex

import (
	"path"
	"sync"

	"go-mvindex/config"
	"go-mvindex/pkg/cache"
	"go-mvindex/pkg/nullbucket"
	"go-mvindex/pkg/pager"
	"go-mvindex/pkg/rid"
	"go-mvindex/util/helpers"
	"go-mvindex/util/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	fileExtension   = ".nbt"
	entryPointIndex = 0
)

// Open opens the null key file of index with given name, creating it if
// it doesn't exist. If nil config is provided, defaults are used.
func Open(name string, cfg *config.StorageConfig) (*NullIndex, error) {
	if cfg == nil {
		cfg = config.NewStorageConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fileName := pager.InMemoryFileName
	if cfg.Dir != pager.InMemoryFileName {
		if err := helpers.CreateDir(cfg.Dir); err != nil {
			return nil, errors.Wrapf(err, "failed to create dir '%s'", cfg.Dir)
		}
		fileName = path.Join(cfg.Dir, name+fileExtension)
	}

	p, err := pager.Open(fileName, cfg.PageSize, false, 0644)
	if err != nil {
		return nil, err
	}

	c, err := cache.Open(p, &cache.Options{Capacity: cfg.CacheSize})
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	idx := &NullIndex{
		name:  name,
		mu:    &sync.RWMutex{},
		cache: c,
		log:   logger.Component("nullindex").WithField("index", name),
	}

	if err := idx.open(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return idx, nil
}

// NullIndex is the list of RIDs stored under the null key. Page 0 of its
// file is the entry point, bucket pages follow it.
type NullIndex struct {
	name  string
	mu    *sync.RWMutex
	cache *cache.Cache
	log   *logrus.Entry
}

// Put adds value to the list.
func (idx *NullIndex) Put(value rid.RID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	epEntry, err := idx.acquire(entryPointIndex)
	if err != nil {
		return err
	}
	defer idx.release(epEntry)
	ep := nullbucket.NewEntryPoint(epEntry.Page(), false)

	if head := ep.FreeListHeader(); head >= 0 {
		e, err := idx.acquire(head)
		if err != nil {
			return err
		}
		defer idx.release(e)

		b := nullbucket.New(e.Page(), false)
		if b.IsEmpty() {
			if err := idx.addToValueList(ep, b, head); err != nil {
				return err
			}
		}

		helpers.Assert(b.AddValue(value), "free list page %d is full", head)
		if b.IsFull() {
			ep.SetFreeListHeader(b.NextFreeList())
			b.SetNextFreeList(nullbucket.NoPage)
		}
		return nil
	}

	pageIndex := ep.Size() + 1
	e, err := idx.allocate(pageIndex)
	if err != nil {
		return err
	}
	defer idx.release(e)

	b := nullbucket.New(e.Page(), true)
	helpers.Assert(b.AddValue(value), "new page %d is full", pageIndex)
	if err := idx.addToValueList(ep, b, pageIndex); err != nil {
		return err
	}

	ep.SetSize(pageIndex)
	if !b.IsFull() {
		ep.SetFreeListHeader(pageIndex)
	}

	idx.log.Debugf("allocated value page %d", pageIndex)
	return nil
}

// Remove deletes the first occurrence of value. It returns false if the
// list doesn't hold value.
func (idx *NullIndex) Remove(value rid.RID) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	epEntry, err := idx.acquire(entryPointIndex)
	if err != nil {
		return false, err
	}
	defer idx.release(epEntry)
	ep := nullbucket.NewEntryPoint(epEntry.Page(), false)

	prev := int32(nullbucket.NoPage)
	for current := ep.FirstPage(); current >= 0; {
		e, err := idx.acquire(current)
		if err != nil {
			return false, err
		}

		b := nullbucket.New(e.Page(), false)
		wasFull := b.IsFull()

		if !b.RemoveValue(value) {
			prev, current = current, b.Next()
			idx.release(e)
			continue
		}

		if wasFull {
			b.SetNextFreeList(ep.FreeListHeader())
			ep.SetFreeListHeader(current)
		}

		if b.IsEmpty() {
			err = idx.unlink(ep, b, prev, current)
		}

		idx.release(e)
		return err == nil, err
	}

	return false, nil
}

// Get returns all values in list order.
func (idx *NullIndex) Get() ([]rid.RID, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	epEntry, err := idx.cache.Load(entryPointIndex)
	if err != nil {
		return nil, err
	}
	first := nullbucket.NewEntryPoint(epEntry.RLock().Page(), false).FirstPage()
	epEntry.RUnlock()
	idx.cache.Release(epEntry)

	values := []rid.RID{}
	for current := first; current >= 0; {
		e, err := idx.cache.Load(uint64(current))
		if err != nil {
			return nil, err
		}

		b := nullbucket.New(e.RLock().Page(), false)
		values = append(values, b.GetValues()...)
		current = b.Next()

		e.RUnlock()
		idx.cache.Release(e)
	}

	return values, nil
}

// Flush writes all changed pages to the file.
func (idx *NullIndex) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.cache.Flush()
}

func (idx *NullIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.cache.Close()
}

func (idx *NullIndex) open() error {
	if idx.cache.FilledUpTo() > entryPointIndex {
		return nil
	}

	e, err := idx.cache.AddPage()
	if err != nil {
		return err
	}
	defer idx.release(e.Lock())

	helpers.Assert(e.PageIndex() == entryPointIndex, "entry point created at page %d", e.PageIndex())
	nullbucket.NewEntryPoint(e.Page(), true)

	idx.log.Info("created null key file")
	return nil
}

// addToValueList links b, stored at pageIndex, after the last page.
func (idx *NullIndex) addToValueList(ep *nullbucket.EntryPoint, b *nullbucket.NullBucket, pageIndex int32) error {
	if last := ep.LastPage(); last >= 0 {
		helpers.Assert(last != pageIndex, "page %d is already in the value list", pageIndex)

		e, err := idx.acquire(last)
		if err != nil {
			return err
		}
		nullbucket.New(e.Page(), false).SetNext(pageIndex)
		idx.release(e)
	}

	b.SetNext(nullbucket.NoPage)
	if ep.FirstPage() < 0 {
		ep.SetFirstPage(pageIndex)
	}
	ep.SetLastPage(pageIndex)
	return nil
}

// unlink takes empty b, stored at current, out of the value list. It stays
// in the free list.
func (idx *NullIndex) unlink(ep *nullbucket.EntryPoint, b *nullbucket.NullBucket, prev, current int32) error {
	next := b.Next()

	if prev >= 0 {
		e, err := idx.acquire(prev)
		if err != nil {
			return err
		}
		nullbucket.New(e.Page(), false).SetNext(next)
		idx.release(e)
	} else {
		ep.SetFirstPage(next)
	}

	if ep.LastPage() == current {
		ep.SetLastPage(prev)
	}

	b.SetNext(nullbucket.NoPage)
	idx.log.Debugf("value page %d is empty", current)
	return nil
}

// allocate returns locked page at pageIndex, the page file grows if needed.
func (idx *NullIndex) allocate(pageIndex int32) (*cache.Entry, error) {
	if uint64(pageIndex) < idx.cache.FilledUpTo() {
		return idx.acquire(pageIndex)
	}

	e, err := idx.cache.AddPage()
	if err != nil {
		return nil, err
	}
	helpers.Assert(e.PageIndex() == uint64(pageIndex), "page %d allocated instead of %d", e.PageIndex(), pageIndex)
	return e.Lock(), nil
}

// acquire loads page and locks it for writing.
func (idx *NullIndex) acquire(pageIndex int32) (*cache.Entry, error) {
	e, err := idx.cache.Load(uint64(pageIndex))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load page %d of '%s'", pageIndex, idx.name)
	}
	return e.Lock(), nil
}

func (idx *NullIndex) release(e *cache.Entry) {
	idx.cache.Release(e.Unlock())
}
