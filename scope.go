package hostdi

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/dig"
)

// Scope is a resolution boundary with its own lifetime. Scoped services
// resolve to one instance per Scope; disposing the Scope disposes every
// disposable instance it created, in reverse creation order.
type Scope interface {
	ServiceProvider

	// ID returns the unique identifier of this scope.
	ID() string

	// Context returns the context the scope was created with. Scoped
	// constructors may depend on context.Context to receive it.
	Context() context.Context
}

type scope struct {
	id       string
	ctx      context.Context
	provider *serviceProvider
	digScope *dig.Scope

	disposables disposalList
	disposed    atomic.Bool
}

func newScope(sp *serviceProvider, ctx context.Context) (*scope, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &scope{
		id:       uuid.NewString(),
		ctx:      ctx,
		provider: sp,
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()

	s.digScope = sp.container.Scope(s.id)

	if err := s.digScope.Provide(func() context.Context { return s.ctx }); err != nil {
		return nil, RegistrationError{
			ServiceType: reflect.TypeFor[context.Context](),
			Operation:   "provide",
			Cause:       err,
		}
	}

	// Each scope gets its own provision of every scoped constructor, so the
	// instances dig caches are per-scope.
	for _, d := range sp.scoped {
		if err := provideInto(s.digScope, d, &s.disposables); err != nil {
			return nil, err
		}
	}

	sp.scopesMu.Lock()
	sp.scopes[s] = struct{}{}
	sp.scopesMu.Unlock()

	return s, nil
}

func (s *scope) ID() string {
	return s.id
}

func (s *scope) Context() context.Context {
	return s.ctx
}

func (s *scope) Resolve(serviceType reflect.Type) (any, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}
	return s.provider.resolveWith(s.digScope, &s.disposables, serviceType, "", true)
}

func (s *scope) ResolveKeyed(serviceType reflect.Type, key string) (any, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}
	if key == "" {
		return nil, ResolutionError{ServiceType: serviceType, Cause: ErrServiceKeyEmpty}
	}
	return s.provider.resolveWith(s.digScope, &s.disposables, serviceType, key, true)
}

// CreateScope creates a sibling scope from the owning provider. Scopes do
// not nest: every scope is an independent child of the root.
func (s *scope) CreateScope(ctx context.Context) (Scope, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}
	return s.provider.CreateScope(ctx)
}

func (s *scope) IsDisposed() bool {
	return s.disposed.Load()
}

func (s *scope) Close() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}

	s.provider.scopesMu.Lock()
	delete(s.provider.scopes, s)
	s.provider.scopesMu.Unlock()

	if errs := s.disposables.dispose(s.ctx); len(errs) > 0 {
		return DisposalError{Context: "scope " + s.id, Errors: errs}
	}
	return nil
}
