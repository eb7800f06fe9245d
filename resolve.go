package hostdi

import (
	"reflect"
)

// Resolve returns the service of type T from the provider.
//
//	logger, err := hostdi.Resolve[*zap.Logger](provider)
func Resolve[T any](provider ServiceProvider) (T, error) {
	var zero T
	if provider == nil {
		return zero, ErrProviderNil
	}

	service, err := provider.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(service),
		}
	}
	return typed, nil
}

// ResolveKeyed returns the named service of type T from the provider.
func ResolveKeyed[T any](provider ServiceProvider, key string) (T, error) {
	var zero T
	if provider == nil {
		return zero, ErrProviderNil
	}

	service, err := provider.ResolveKeyed(reflect.TypeFor[T](), key)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(service),
		}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Intended for program
// startup where a missing service is unrecoverable.
func MustResolve[T any](provider ServiceProvider) T {
	service, err := Resolve[T](provider)
	if err != nil {
		panic(err)
	}
	return service
}
