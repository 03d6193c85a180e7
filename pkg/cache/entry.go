package cache

import (
	"fmt"
	"sync"

	"go-mvindex/pkg/pager"
)

// Entry is a cached page. A loaded entry is pinned until released, the
// lock gives its holder exclusive (or shared) access to page bytes.
type Entry struct {
	cache *Cache
	page  *pager.Page
	pins  int
	lock  *sync.RWMutex
}

func (e *Entry) Page() *pager.Page {
	return e.page
}

func (e *Entry) PageIndex() uint64 {
	return e.page.Id
}

func (e *Entry) RLock() *Entry {
	e.lock.RLock()
	return e
}

func (e *Entry) RUnlock() *Entry {
	e.lock.RUnlock()
	return e
}

func (e *Entry) Lock() *Entry {
	e.lock.Lock()
	return e
}

func (e *Entry) Unlock() *Entry {
	e.lock.Unlock()
	return e
}

func (e *Entry) Format(f fmt.State, c rune) {
	f.Write([]byte(fmt.Sprintf("{page:%v, pins:%v, dirty:%v}", e.page.Id, e.pins, e.page.IsDirty())))
}
