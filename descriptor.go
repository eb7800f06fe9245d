package hostdi

import (
	"fmt"
	"reflect"

	"github.com/gragra33/hostdi/internal/reflection"
)

// Descriptor describes a single service registration: the service type it
// produces, the constructor that produces it, and the declared lifetime.
// Descriptors are immutable once created.
type Descriptor struct {
	// ServiceType is the type this registration is resolved as. It is the
	// constructor's return type, or the interface given with As.
	ServiceType reflect.Type

	// ImplementationType is the type the constructor actually returns.
	// It equals ServiceType unless the registration used As.
	ImplementationType reflect.Type

	// Key is the optional name for keyed services. Empty for non-keyed.
	Key string

	// Lifetime determines instance caching behavior.
	Lifetime Lifetime

	// Constructor is the reflected constructor function.
	Constructor reflect.Value

	// ConstructorType is the type of the constructor function.
	ConstructorType reflect.Type

	// Dependencies are the constructor's analyzed parameter types.
	Dependencies []reflection.Dependency

	hasErrorReturn bool
}

// newDescriptor analyzes a constructor and builds a descriptor for it.
func newDescriptor(analyzer *reflection.Analyzer, constructor any, lifetime Lifetime, opts ...AddOption) (*Descriptor, error) {
	if constructor == nil {
		return nil, RegistrationError{Operation: "register", Cause: ErrConstructorNil}
	}
	if !lifetime.IsValid() {
		return nil, LifetimeError{Value: lifetime}
	}

	options := &addOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAddOption(options)
		}
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	info, err := analyzer.Analyze(constructor)
	if err != nil {
		return nil, RegistrationError{Operation: "analyze", Cause: err}
	}

	serviceType := info.ServiceType
	if as := options.As(); as != nil {
		if !info.ServiceType.Implements(as) {
			return nil, RegistrationError{
				ServiceType: info.ServiceType,
				Operation:   "register",
				Cause:       fmt.Errorf("%s does not implement %s", formatType(info.ServiceType), formatType(as)),
			}
		}
		serviceType = as
	}

	return &Descriptor{
		ServiceType:        serviceType,
		ImplementationType: info.ServiceType,
		Key:                options.Name,
		Lifetime:           lifetime,
		Constructor:        info.Value,
		ConstructorType:    info.Type,
		Dependencies:       info.Dependencies,
		hasErrorReturn:     info.HasErrorReturn,
	}, nil
}

// IsKeyed reports whether this descriptor registers a named service.
func (d *Descriptor) IsKeyed() bool {
	return d.Key != ""
}

// Validate checks the descriptor's configuration.
func (d *Descriptor) Validate() error {
	if d.ServiceType == nil {
		return RegistrationError{Operation: "validate", Cause: ErrServiceTypeNil}
	}
	if !d.Constructor.IsValid() {
		return RegistrationError{ServiceType: d.ServiceType, Operation: "validate", Cause: ErrConstructorNil}
	}
	if !d.Lifetime.IsValid() {
		return LifetimeError{Value: d.Lifetime}
	}
	return nil
}
