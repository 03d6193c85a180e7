package config

import "github.com/pkg/errors"

const (
	DefaultPageSize  = 64 * 1024
	DefaultCacheSize = 1024
)

type StorageConfig struct {
	// Dir is where index files are created. ":memory:" keeps pages in RAM.
	Dir string `json:"dir" validate:"required"`

	// PageSize of every page in index files. Offsets inside a page are
	// stored as int32 so anything up to 2GB works, 64KB is the default.
	PageSize int `json:"page_size" validate:"min=64,max=2147483647"`

	// CacheSize is the number of pages kept in memory per file. Updates
	// of the null key list pin up to 3 pages at once.
	CacheSize int `json:"cache_size" validate:"min=3"`
}

func NewStorageConfig() *StorageConfig {
	return &StorageConfig{
		Dir:       ":memory:",
		PageSize:  DefaultPageSize,
		CacheSize: DefaultCacheSize,
	}
}

func (c *StorageConfig) Validate() error {
	return errors.Wrap(validate.Struct(c), "invalid storage config")
}
