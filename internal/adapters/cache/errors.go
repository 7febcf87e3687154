package cache

import "errors"

// ErrPersist wraps any failure to write the cache file.
var ErrPersist = errors.New("persist cache entry")

// errCorrupt marks a cache file that exists but cannot be decoded. It is
// logged and reported as absent, never returned.
var errCorrupt = errors.New("corrupt cache entry")
