package hostdi

import (
	"strings"
	"sync"
)

// registration is one constructor recorded for auto-registration, remembered
// under the package path it was registered from.
type registration struct {
	constructor any
	lifetime    Lifetime
	opts        []AddOption
}

var (
	registrationsMu sync.RWMutex
	registrations   = make(map[string][]registration)

	// registrationOrder preserves first-registration order of packages so
	// AutoRegister output is deterministic.
	registrationOrder []string
)

// RegisterConstructor records a constructor for later auto-registration,
// indexed under the calling package's import path. It is intended to be
// called from init functions, the way database/sql drivers register
// themselves:
//
//	func init() {
//		hostdi.RegisterConstructor(NewOrderService, hostdi.Scoped)
//	}
//
// It panics on a nil constructor or an invalid lifetime, since a failure
// here is a programming error that no caller can meaningfully handle.
func RegisterConstructor(constructor any, lifetime Lifetime, opts ...AddOption) {
	if constructor == nil {
		panic(ErrConstructorNil)
	}
	if !lifetime.IsValid() {
		panic(LifetimeError{Value: lifetime})
	}

	pkg := callerPackage(2)

	registrationsMu.Lock()
	defer registrationsMu.Unlock()

	if _, ok := registrations[pkg]; !ok {
		registrationOrder = append(registrationOrder, pkg)
	}
	registrations[pkg] = append(registrations[pkg], registration{
		constructor: constructor,
		lifetime:    lifetime,
		opts:        opts,
	})
}

// AutoRegister adds every recorded constructor whose package falls inside
// the host's scan scopes to the collection. A scope matches its own package
// and all subpackages. When the host has no scan scopes configured, the
// caller's own package is scanned, so zero-configuration usage picks up the
// caller's init-registered constructors.
//
// Constructors are added in registration order; the number added is
// returned.
func AutoRegister[T any](c *Collection, host *T) (int, error) {
	if c == nil {
		return 0, ErrCollectionNil
	}

	scopes := scanScopes(host, 3)

	registrationsMu.RLock()
	var matched []registration
	for _, pkg := range registrationOrder {
		if !inScope(pkg, scopes) {
			continue
		}
		matched = append(matched, registrations[pkg]...)
	}
	registrationsMu.RUnlock()

	for i, r := range matched {
		var err error
		switch r.lifetime {
		case Singleton:
			err = c.AddSingleton(r.constructor, r.opts...)
		case Scoped:
			err = c.AddScoped(r.constructor, r.opts...)
		case Transient:
			err = c.AddTransient(r.constructor, r.opts...)
		}
		if err != nil {
			return i, err
		}
	}
	return len(matched), nil
}

// inScope reports whether pkg is one of the scopes or a subpackage of one.
func inScope(pkg string, scopes []string) bool {
	for _, scope := range scopes {
		if pkg == scope || strings.HasPrefix(pkg, scope+"/") {
			return true
		}
	}
	return false
}
