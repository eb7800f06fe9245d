package hostdi

import "sync"

// Lazy defers resolution of a service until first use, then caches the
// outcome. The resolution runs at most once; every call to Value returns the
// same instance and error. Safe for concurrent use.
type Lazy[T any] struct {
	value func() (T, error)
}

// NewLazy wraps a provider resolution so it happens on first Value call.
func NewLazy[T any](provider ServiceProvider) *Lazy[T] {
	return &Lazy[T]{
		value: sync.OnceValues(func() (T, error) {
			return Resolve[T](provider)
		}),
	}
}

// NewKeyedLazy is like NewLazy for a named service.
func NewKeyedLazy[T any](provider ServiceProvider, key string) *Lazy[T] {
	return &Lazy[T]{
		value: sync.OnceValues(func() (T, error) {
			return ResolveKeyed[T](provider, key)
		}),
	}
}

// LazyFor defers resolution through the provider associated with a host. The
// host's provider is looked up at first Value call, not at construction, so
// a LazyFor created before SetServiceProvider still works.
func LazyFor[S any, T any](host *T) *Lazy[S] {
	return &Lazy[S]{
		value: sync.OnceValues(func() (S, error) {
			return ResolveFor[S](host)
		}),
	}
}

// Value resolves the service on first call and returns the cached result on
// every call after that.
func (l *Lazy[T]) Value() (T, error) {
	return l.value()
}

// MustValue is like Value but panics on failure.
func (l *Lazy[T]) MustValue() T {
	v, err := l.value()
	if err != nil {
		panic(err)
	}
	return v
}
