package cache

import "errors"

// ErrInvalidGeometry is returned when a cache cannot be built with the
// requested number of sets, associativity or line size.
var ErrInvalidGeometry = errors.New("invalid cache geometry")

// ErrUnknownPolicy is returned when a replacement policy name is not known.
var ErrUnknownPolicy = errors.New("unknown replacement policy")

// ErrUnknownPrefetcher is returned when a prefetcher name is not known.
var ErrUnknownPrefetcher = errors.New("unknown prefetcher")
