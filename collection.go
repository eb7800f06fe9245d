package hostdi

import (
	"reflect"
	"slices"

	"github.com/gragra33/hostdi/internal/reflection"
)

// Collection is an ordered list of service registrations that is built into
// a ServiceProvider.
//
// Collection follows a builder pattern: services are registered with their
// lifetimes, then Build turns the list into a resolvable provider backed by
// the underlying container.
//
// Collection is NOT safe for concurrent mutation. Configure it in a single
// goroutine before building.
//
// Example:
//
//	services := hostdi.NewCollection()
//	services.AddSingleton(NewLogger)
//	services.AddScoped(NewDatabase)
//
//	provider, err := services.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
type Collection struct {
	analyzer    *reflection.Analyzer
	descriptors []*Descriptor // registration order
	decorators  []any
}

// NewCollection creates a new empty Collection.
func NewCollection() *Collection {
	return &Collection{
		analyzer: reflection.New(),
	}
}

// AddSingleton registers a service with singleton lifetime.
// One instance is created and shared across all resolutions.
func (c *Collection) AddSingleton(constructor any, opts ...AddOption) error {
	return c.add(constructor, Singleton, opts...)
}

// AddScoped registers a service with scoped lifetime.
// One instance is created per scope and shared within that scope.
func (c *Collection) AddScoped(constructor any, opts ...AddOption) error {
	return c.add(constructor, Scoped, opts...)
}

// AddTransient registers a service with transient lifetime.
// A new instance is created every time the service is resolved.
func (c *Collection) AddTransient(constructor any, opts ...AddOption) error {
	return c.add(constructor, Transient, opts...)
}

// AddModules applies one or more module configurations to the collection.
func (c *Collection) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}
		if err := module(c); err != nil {
			return err
		}
	}
	return nil
}

// Decorate registers a decorator function for a service type. The decorator
// takes the decorated service as its first parameter, may take further
// dependencies, and returns the replacement value. Decoration itself is
// performed by the underlying container at build time.
func (c *Collection) Decorate(decorator any) error {
	if decorator == nil {
		return RegistrationError{Operation: "decorate", Cause: ErrDecoratorNil}
	}

	t := reflect.TypeOf(decorator)
	if t.Kind() != reflect.Func || t.NumIn() < 1 || t.NumOut() < 1 {
		return RegistrationError{
			Operation: "decorate",
			Cause:     reflection.ErrNotAFunction,
		}
	}

	c.decorators = append(c.decorators, decorator)
	return nil
}

// Contains checks if a non-keyed service type is registered.
func (c *Collection) Contains(serviceType reflect.Type) bool {
	for _, d := range c.descriptors {
		if d.ServiceType == serviceType && !d.IsKeyed() {
			return true
		}
	}
	return false
}

// ContainsKeyed checks if a keyed service is registered.
func (c *Collection) ContainsKeyed(serviceType reflect.Type, key string) bool {
	for _, d := range c.descriptors {
		if d.ServiceType == serviceType && d.Key == key {
			return true
		}
	}
	return false
}

// Remove removes all registrations for a service type, keyed or not.
func (c *Collection) Remove(serviceType reflect.Type) {
	c.descriptors = slices.DeleteFunc(c.descriptors, func(d *Descriptor) bool {
		return d.ServiceType == serviceType
	})
}

// Descriptors returns a copy of all registered descriptors in registration
// order. The diagnostics engine operates on this list.
func (c *Collection) Descriptors() []*Descriptor {
	return slices.Clone(c.descriptors)
}

// Count returns the number of registered services.
func (c *Collection) Count() int {
	return len(c.descriptors)
}

// add registers a new service descriptor.
func (c *Collection) add(constructor any, lifetime Lifetime, opts ...AddOption) error {
	descriptor, err := newDescriptor(c.analyzer, constructor, lifetime, opts...)
	if err != nil {
		return err
	}

	// Duplicate registrations for the same service type are legal; the
	// diagnostics engine reports them, Build provides the last one.
	c.descriptors = append(c.descriptors, descriptor)
	return nil
}
