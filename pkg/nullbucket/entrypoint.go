package nullbucket

import "go-mvindex/pkg/pager"

const (
	pagesSizeOffset      = pager.NextFreePosition
	freeListHeaderOffset = pagesSizeOffset + pager.IntSize
	firstPageOffset      = freeListHeaderOffset + pager.IntSize
	lastPageOffset       = firstPageOffset + pager.IntSize
)

// EntryPoint is the header page of the null key value list. Size is the
// count of allocated bucket pages, which follow the entry point page.
type EntryPoint struct {
	page *pager.Page
}

// NewEntryPoint wraps page, a new page is formatted as an empty list.
func NewEntryPoint(page *pager.Page, isNew bool) *EntryPoint {
	ep := &EntryPoint{page: page}
	if isNew {
		ep.SetSize(0)
		ep.SetFreeListHeader(NoPage)
		ep.SetFirstPage(NoPage)
		ep.SetLastPage(NoPage)
	}
	return ep
}

func (ep *EntryPoint) Page() *pager.Page {
	return ep.page
}

func (ep *EntryPoint) Size() int32 {
	return ep.page.GetInt(pagesSizeOffset)
}

func (ep *EntryPoint) SetSize(size int32) {
	ep.page.SetInt(pagesSizeOffset, size)
}

func (ep *EntryPoint) FreeListHeader() int32 {
	return ep.page.GetInt(freeListHeaderOffset)
}

func (ep *EntryPoint) SetFreeListHeader(pageIndex int32) {
	ep.page.SetInt(freeListHeaderOffset, pageIndex)
}

func (ep *EntryPoint) FirstPage() int32 {
	return ep.page.GetInt(firstPageOffset)
}

func (ep *EntryPoint) SetFirstPage(pageIndex int32) {
	ep.page.SetInt(firstPageOffset, pageIndex)
}

func (ep *EntryPoint) LastPage() int32 {
	return ep.page.GetInt(lastPageOffset)
}

func (ep *EntryPoint) SetLastPage(pageIndex int32) {
	ep.page.SetInt(lastPageOffset, pageIndex)
}
