// Package reflection analyzes constructor functions for dependency
// information. Analysis results are cached per constructor.
package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ErrNotAFunction is returned when a constructor is not a function value.
var ErrNotAFunction = errors.New("constructor must be a function")

// ErrNilConstructor is returned for nil or typed-nil constructors.
var ErrNilConstructor = errors.New("constructor cannot be nil")

// Dependency is a single constructor parameter that must be resolved before
// the constructor can be invoked.
type Dependency struct {
	// Type of the dependency.
	Type reflect.Type

	// Index is the parameter position.
	Index int
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Type  reflect.Type
	Value reflect.Value

	// ServiceType is the first non-error return type.
	ServiceType reflect.Type

	// Dependencies are the constructor's parameter types, in order.
	Dependencies []Dependency

	// HasErrorReturn reports whether the last return value is an error.
	HasErrorReturn bool
}

// Analyzer performs reflection-based analysis of constructor functions.
// It caches analysis results keyed by function pointer.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*ConstructorInfo
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[uintptr]*ConstructorInfo),
	}
}

// Analyze analyzes a constructor function and extracts its service type and
// dependency list. Valid constructors have the shape
//
//	func(deps...) T
//	func(deps...) (T, error)
//
// Variadic constructors are rejected.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, ErrNilConstructor
	}

	val := reflect.ValueOf(constructor)
	if !val.IsValid() || (val.Kind() == reflect.Func && val.IsNil()) {
		return nil, ErrNilConstructor
	}

	typ := val.Type()
	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %s", ErrNotAFunction, typ)
	}

	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.cache[cacheKey]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	if typ.IsVariadic() {
		return nil, fmt.Errorf("variadic constructor %s is not supported", typ)
	}

	info := &ConstructorInfo{
		Type:  typ,
		Value: val,
	}

	if err := analyzeReturns(info); err != nil {
		return nil, err
	}
	analyzeParameters(info)

	a.mu.Lock()
	a.cache[cacheKey] = info
	a.mu.Unlock()

	return info, nil
}

func analyzeReturns(info *ConstructorInfo) error {
	fnType := info.Type

	switch fnType.NumOut() {
	case 1:
		out := fnType.Out(0)
		if implementsError(out) {
			return fmt.Errorf("constructor %s only returns an error", fnType)
		}
		info.ServiceType = out
	case 2:
		if !implementsError(fnType.Out(1)) {
			return fmt.Errorf("constructor %s: second return value must be an error, got %s", fnType, fnType.Out(1))
		}
		if implementsError(fnType.Out(0)) {
			return fmt.Errorf("constructor %s only returns errors", fnType)
		}
		info.ServiceType = fnType.Out(0)
		info.HasErrorReturn = true
	case 0:
		return fmt.Errorf("constructor %s has no return values", fnType)
	default:
		return fmt.Errorf("constructor %s has too many return values", fnType)
	}

	return nil
}

func analyzeParameters(info *ConstructorInfo) {
	fnType := info.Type

	info.Dependencies = make([]Dependency, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		info.Dependencies[i] = Dependency{
			Type:  fnType.In(i),
			Index: i,
		}
	}
}

// implementsError checks if a type implements the error interface.
func implementsError(t reflect.Type) bool {
	return t.Implements(errType)
}
