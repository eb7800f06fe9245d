package hostdi

import (
	"context"
	"sync"
)

// Disposable is implemented by services that hold resources to release when
// their owning provider or scope closes.
type Disposable interface {
	Close() error
}

// DisposableWithContext is the context-aware variant of Disposable. When a
// service implements both, DisposableWithContext wins.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// disposalList tracks disposable instances in creation order and disposes
// them in reverse.
type disposalList struct {
	mu    sync.Mutex
	items []any
}

// track records an instance for disposal if it implements Disposable or
// DisposableWithContext. Anything else is ignored.
func (l *disposalList) track(instance any) {
	switch instance.(type) {
	case DisposableWithContext, Disposable:
	default:
		return
	}

	l.mu.Lock()
	l.items = append(l.items, instance)
	l.mu.Unlock()
}

// dispose closes every tracked instance in reverse creation order,
// continuing past failures, and returns the accumulated errors.
func (l *disposalList) dispose(ctx context.Context) []error {
	l.mu.Lock()
	items := l.items
	l.items = nil
	l.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		switch d := items[i].(type) {
		case DisposableWithContext:
			err = d.Close(ctx)
		case Disposable:
			err = d.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
