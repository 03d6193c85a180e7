package pager

import (
	"os"
	"sync"

	"go-mvindex/pkg/customerrors"
	"go-mvindex/util/logger"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// InMemoryFileName can be passed to Open to keep pages in RAM only.
const InMemoryFileName = ":memory:"

// Open opens the named file as a page file. Pages of an on-disk file are
// memory mapped, the mapping is recreated whenever the file grows.
func Open(fileName string, pageSize int, readOnly bool, mode os.FileMode) (*Pager, error) {
	if pageSize <= NextFreePosition {
		return nil, errors.Errorf("page size %d is too small", pageSize)
	}

	p := &Pager{
		fileName: fileName,
		pageSize: pageSize,
		readOnly: readOnly,
		mu:       &sync.RWMutex{},
		log:      logger.Component("pager"),
	}

	if fileName == InMemoryFileName {
		p.log.Debugf("opened in-memory pager, page size %d", pageSize)
		return p, nil
	}

	flag := os.O_CREATE | os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(fileName, flag, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open page file '%s'", fileName)
	}
	p.file = f

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to stat page file")
	}

	if stat.Size()%int64(pageSize) != 0 {
		_ = f.Close()
		return nil, errors.Errorf(
			"file size %d is not a multiple of page size %d",
			stat.Size(), pageSize,
		)
	}

	p.count = uint64(stat.Size() / int64(pageSize))
	if p.count > 0 {
		if err := p.mmap(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	p.log.Debugf("opened '%s' with %d pages", fileName, p.count)
	return p, nil
}

// Pager reads and writes fixed size pages of a single file.
type Pager struct {
	fileName string
	file     *os.File
	pageSize int
	readOnly bool
	count    uint64
	closed   bool

	// data holds either the mapped file or in-memory pages
	data   []byte
	mapped mmap.MMap

	mu  *sync.RWMutex
	log *logrus.Entry
}

func (p *Pager) PageSize() int {
	return p.pageSize
}

// Count returns number of pages in the file.
func (p *Pager) Count() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

// Alloc appends n zeroed pages and returns id of the first one.
func (p *Pager) Alloc(n int) (uint64, error) {
	if n <= 0 {
		return 0, errors.Errorf("invalid page count %d", n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, customerrors.ErrClosed
	}
	if p.readOnly {
		return 0, errors.New("cannot alloc pages in read-only mode")
	}

	first := p.count
	newCount := p.count + uint64(n)

	if p.file == nil {
		p.data = append(p.data, make([]byte, n*p.pageSize)...)
		p.count = newCount
		return first, nil
	}

	if err := p.munmap(); err != nil {
		return 0, err
	}
	if err := p.file.Truncate(int64(newCount) * int64(p.pageSize)); err != nil {
		return 0, multierr.Append(errors.Wrap(err, "failed to grow page file"), p.remap())
	}

	p.count = newCount
	if err := p.mmap(); err != nil {
		return 0, err
	}

	p.log.Debugf("allocated %d pages in '%s', total %d", n, p.fileName, p.count)
	return first, nil
}

// ReadPage copies content of page id into dst.
func (p *Pager) ReadPage(id uint64, dst []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	offset, err := p.offset(id, len(dst))
	if err != nil {
		return err
	}

	copy(dst, p.data[offset:offset+p.pageSize])
	return nil
}

// WritePage copies src into page id.
func (p *Pager) WritePage(id uint64, src []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readOnly {
		return errors.New("cannot write pages in read-only mode")
	}

	offset, err := p.offset(id, len(src))
	if err != nil {
		return err
	}

	copy(p.data[offset:offset+p.pageSize], src)
	return nil
}

// Flush syncs mapped pages to disk.
func (p *Pager) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mapped == nil || p.readOnly {
		return nil
	}
	return errors.Wrap(p.mapped.Flush(), "failed to flush mapped pages")
}

func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return customerrors.ErrClosed
	}
	p.closed = true

	if p.file == nil {
		p.data = nil
		return nil
	}

	var err error
	if p.mapped != nil && !p.readOnly {
		err = errors.Wrap(p.mapped.Flush(), "failed to flush mapped pages")
	}
	err = multierr.Combine(
		err,
		p.munmap(),
		errors.Wrap(p.file.Close(), "failed to close page file"),
	)

	p.log.Debugf("closed '%s'", p.fileName)
	return err
}

func (p *Pager) offset(id uint64, bufSize int) (int, error) {
	if p.closed {
		return 0, customerrors.ErrClosed
	}
	if bufSize != p.pageSize {
		return 0, errors.Wrapf(customerrors.ErrInvalidPage, "buffer size %d", bufSize)
	}
	if id >= p.count {
		return 0, errors.Wrapf(customerrors.ErrInvalidPage, "page %d out of %d", id, p.count)
	}
	if len(p.data) < int(p.count)*p.pageSize {
		return 0, errors.Wrapf(customerrors.ErrNotMapped, "'%s'", p.fileName)
	}
	return int(id) * p.pageSize, nil
}

func (p *Pager) mmap() error {
	prot := mmap.RDWR
	if p.readOnly {
		prot = mmap.RDONLY
	}

	m, err := mmap.Map(p.file, prot, 0)
	if err != nil {
		return errors.Wrap(err, "failed to mmap page file")
	}

	p.mapped = m
	p.data = m
	return nil
}

// remap restores mapping of the current pages after a failed resize.
func (p *Pager) remap() error {
	if p.count == 0 {
		return nil
	}
	return p.mmap()
}

func (p *Pager) munmap() error {
	if p.mapped == nil {
		return nil
	}

	if err := p.mapped.Unmap(); err != nil {
		return errors.Wrap(err, "failed to unmap page file")
	}

	p.mapped = nil
	p.data = nil
	return nil
}
