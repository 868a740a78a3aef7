package cache

import "errors"

// ErrCacheIO wraps any failure to read, decode or write a cached value.
var ErrCacheIO = errors.New("cache io error")
