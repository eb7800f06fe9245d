package hostdi

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/dig"
)

// ServiceProvider is the built, resolvable root of a service collection.
// Resolution, caching, and scoping semantics are delegated to the underlying
// dig container.
//
// All ServiceProvider operations are safe for concurrent use.
type ServiceProvider interface {
	// Resolve returns the service registered for the given type.
	Resolve(serviceType reflect.Type) (any, error)

	// ResolveKeyed returns the named service registered for the given type.
	ResolveKeyed(serviceType reflect.Type, key string) (any, error)

	// CreateScope creates a new scope with its own disposal boundary.
	// Scoped services resolve to one instance per scope.
	CreateScope(ctx context.Context) (Scope, error)

	// Close disposes every tracked disposable instance in reverse creation
	// order, closing any remaining scopes first.
	Close() error

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool
}

// digInvoker is the part of dig the resolution path needs. Both
// *dig.Container and *dig.Scope satisfy it.
type digInvoker interface {
	Invoke(function any, opts ...dig.InvokeOption) error
}

// digProvider is the part of dig the registration path needs.
type digProvider interface {
	Provide(constructor any, opts ...dig.ProvideOption) error
}

// typeKey identifies a registration by service type and optional name.
type typeKey struct {
	Type reflect.Type
	Key  string
}

// serviceProvider implements ServiceProvider over a dig container.
type serviceProvider struct {
	id        string
	container *dig.Container

	// Immutable after Build.
	byKey  map[typeKey]*Descriptor
	scoped []*Descriptor

	// dig containers make no thread-safety promises; all calls into the
	// container and its scopes are serialized on mu.
	mu sync.Mutex

	disposables disposalList

	scopes   map[*scope]struct{}
	scopesMu sync.Mutex

	disposed atomic.Bool
}

// Build creates a ServiceProvider from the registered services. The
// collection is validated first: any lifetime violation or dependency cycle
// fails the build with one aggregate error listing every hazard.
//
// When the same (service type, name) pair is registered more than once, the
// last registration wins; earlier ones are overridden.
func (c *Collection) Build() (ServiceProvider, error) {
	if err := AssertValid(c); err != nil {
		return nil, BuildError{Phase: "validation", Cause: err}
	}

	sp := &serviceProvider{
		id:        uuid.NewString(),
		container: dig.New(),
		byKey:     make(map[typeKey]*Descriptor),
		scopes:    make(map[*scope]struct{}),
	}

	// Last registration per (type, key) wins, in first-seen order.
	var order []typeKey
	for _, d := range c.descriptors {
		k := typeKey{Type: d.ServiceType, Key: d.Key}
		if _, ok := sp.byKey[k]; !ok {
			order = append(order, k)
		}
		sp.byKey[k] = d
	}

	for _, k := range order {
		d := sp.byKey[k]
		if d.Lifetime == Scoped {
			// Scoped constructors are provided into each dig scope on
			// CreateScope, never at the root.
			sp.scoped = append(sp.scoped, d)
			continue
		}
		if err := provideInto(sp.container, d, &sp.disposables); err != nil {
			return nil, BuildError{Phase: "provide", Cause: err}
		}
	}

	for _, dec := range c.decorators {
		if err := sp.container.Decorate(dec); err != nil {
			return nil, BuildError{Phase: "decorate", Cause: err}
		}
	}

	return sp, nil
}

// ID returns the unique identifier of this provider instance.
func (sp *serviceProvider) ID() string {
	return sp.id
}

func (sp *serviceProvider) Resolve(serviceType reflect.Type) (any, error) {
	if sp.IsDisposed() {
		return nil, ErrProviderDisposed
	}
	return sp.resolveWith(sp.container, &sp.disposables, serviceType, "", false)
}

func (sp *serviceProvider) ResolveKeyed(serviceType reflect.Type, key string) (any, error) {
	if sp.IsDisposed() {
		return nil, ErrProviderDisposed
	}
	if key == "" {
		return nil, ResolutionError{ServiceType: serviceType, Cause: ErrServiceKeyEmpty}
	}
	return sp.resolveWith(sp.container, &sp.disposables, serviceType, key, false)
}

func (sp *serviceProvider) CreateScope(ctx context.Context) (Scope, error) {
	if sp.IsDisposed() {
		return nil, ErrProviderDisposed
	}
	return newScope(sp, ctx)
}

func (sp *serviceProvider) IsDisposed() bool {
	return sp.disposed.Load()
}

func (sp *serviceProvider) Close() error {
	if !sp.disposed.CompareAndSwap(false, true) {
		return nil
	}

	sp.scopesMu.Lock()
	open := make([]*scope, 0, len(sp.scopes))
	for s := range sp.scopes {
		open = append(open, s)
	}
	sp.scopes = make(map[*scope]struct{})
	sp.scopesMu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, sp.disposables.dispose(context.Background())...)

	if len(errs) > 0 {
		return DisposalError{Context: "provider", Errors: errs}
	}
	return nil
}

// resolveWith resolves one service through the given dig invoker. inScope
// reports whether the invoker is a scope; scoped services refuse to resolve
// at the root.
func (sp *serviceProvider) resolveWith(inv digInvoker, tracker *disposalList, serviceType reflect.Type, key string, inScope bool) (any, error) {
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}

	d, ok := sp.byKey[typeKey{Type: serviceType, Key: key}]
	if !ok {
		return nil, ResolutionError{ServiceType: serviceType, ServiceKey: key, Cause: ErrServiceNotFound}
	}

	if d.Lifetime == Scoped && !inScope {
		return nil, ResolutionError{ServiceType: serviceType, Cause: ErrScopedFromRoot}
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()

	if d.Lifetime == Transient {
		return invokeFresh(inv, tracker, d)
	}
	return extract(inv, serviceType, key)
}

// extract pulls a single value out of dig by invoking a generated function
// that takes the requested type as its only parameter.
func extract(inv digInvoker, serviceType reflect.Type, key string) (any, error) {
	var result any
	var received bool
	var fnIn reflect.Type

	if key == "" {
		fnIn = serviceType
	} else {
		// Keyed values are consumed through a parameter object carrying a
		// name tag.
		fnIn = reflect.StructOf([]reflect.StructField{
			{Name: "In", Type: reflect.TypeOf(dig.In{}), Anonymous: true},
			{Name: "Service", Type: serviceType, Tag: reflect.StructTag(fmt.Sprintf(`name:%q`, key))},
		})
	}

	fnType := reflect.FuncOf([]reflect.Type{fnIn}, nil, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		if key == "" {
			result = args[0].Interface()
		} else {
			result = args[0].FieldByName("Service").Interface()
		}
		received = true
		return nil
	})

	if err := inv.Invoke(fn.Interface()); err != nil {
		return nil, ResolutionError{ServiceType: serviceType, ServiceKey: key, Cause: err}
	}
	// A nil result is legitimate when the generated function ran: the
	// constructor simply produced a nil value.
	if !received {
		return nil, ResolutionError{ServiceType: serviceType, ServiceKey: key, Cause: ErrFailedToExtractValue}
	}
	return result, nil
}

// invokeFresh creates a new transient instance: dependencies are resolved
// through dig, then the descriptor's constructor is called directly so the
// result bypasses dig's per-container caching.
func invokeFresh(inv digInvoker, tracker *disposalList, d *Descriptor) (any, error) {
	depTypes := make([]reflect.Type, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		depTypes[i] = dep.Type
	}

	var args []reflect.Value
	fnType := reflect.FuncOf(depTypes, nil, false)
	fn := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args = in
		return nil
	})

	if err := inv.Invoke(fn.Interface()); err != nil {
		return nil, ResolutionError{ServiceType: d.ServiceType, ServiceKey: d.Key, Cause: err}
	}

	results := d.Constructor.Call(args)
	if d.hasErrorReturn && len(results) > 1 && !results[1].IsNil() {
		return nil, ResolutionError{
			ServiceType: d.ServiceType,
			ServiceKey:  d.Key,
			Cause:       results[1].Interface().(error),
		}
	}

	instance := results[0].Interface()
	tracker.track(instance)
	return instance, nil
}

// provideInto provides a descriptor's constructor into a dig container or
// scope, wrapped so produced instances are tracked for disposal.
func provideInto(target digProvider, d *Descriptor, tracker *disposalList) error {
	var opts []dig.ProvideOption
	if d.Key != "" {
		opts = append(opts, dig.Name(d.Key))
	}
	if d.ServiceType != d.ImplementationType {
		// Registered with As: expose the interface, not the concrete type.
		opts = append(opts, dig.As(reflect.New(d.ServiceType).Interface()))
	}

	if err := target.Provide(wrapForTracking(d, tracker), opts...); err != nil {
		return RegistrationError{ServiceType: d.ServiceType, Operation: "provide", Cause: err}
	}
	return nil
}

// wrapForTracking wraps a constructor so successfully produced instances are
// captured for disposal when the owning provider or scope closes.
func wrapForTracking(d *Descriptor, tracker *disposalList) any {
	fnValue := d.Constructor

	return reflect.MakeFunc(d.ConstructorType, func(args []reflect.Value) []reflect.Value {
		results := fnValue.Call(args)

		if len(results) > 0 && results[0].IsValid() {
			if d.hasErrorReturn && len(results) > 1 && !results[1].IsNil() {
				return results
			}
			tracker.track(results[0].Interface())
		}

		return results
	}).Interface()
}
