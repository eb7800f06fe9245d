package hostdi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Base errors that are wrapped in typed errors when returned. Never return
// these directly - always wrap them with context.

var (
	// Host registry errors.
	ErrHostNil      = errors.New("host cannot be nil")
	ErrHostZeroSize = errors.New("host type must not be zero-size: all zero-size values share one address, so they have no usable identity")

	// Service resolution errors.
	ErrServiceNotFound      = errors.New("service not found")
	ErrServiceTypeNil       = errors.New("service type cannot be nil")
	ErrServiceKeyEmpty      = errors.New("service key cannot be empty")
	ErrScopedFromRoot       = errors.New("scoped service must be resolved within a scope")
	ErrFailedToExtractValue = errors.New("failed to extract value from container")

	// Lifecycle errors.
	ErrProviderNil      = errors.New("service provider cannot be nil")
	ErrProviderDisposed = errors.New("service provider has been disposed")
	ErrScopeDisposed    = errors.New("scope has been disposed")

	// Registration errors.
	ErrConstructorNil = errors.New("constructor cannot be nil")
	ErrCollectionNil  = errors.New("collection cannot be nil")
	ErrDecoratorNil   = errors.New("decorator cannot be nil")
)

var (
	_ error = LifetimeError{}
	_ error = NotConfiguredError{}
	_ error = ResolutionError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = TypeMismatchError{}
	_ error = BuildError{}
	_ error = DisposalError{}
	_ error = (*ValidationError)(nil)
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid service lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// NotConfiguredError indicates that a host has no service provider
// associated with it. It is distinct from a resolution failure: the host was
// never configured at all.
type NotConfiguredError struct {
	HostType reflect.Type
}

func (e NotConfiguredError) Error() string {
	return fmt.Sprintf("no service provider configured for host %s", formatType(e.HostType))
}

// ResolutionError wraps errors that occur during service resolution.
type ResolutionError struct {
	ServiceType reflect.Type
	ServiceKey  string // empty for non-keyed services
	Cause       error
}

func (e ResolutionError) Error() string {
	var b strings.Builder

	if e.ServiceKey != "" {
		b.WriteString(fmt.Sprintf("failed to resolve %s (key: %q)", formatType(e.ServiceType), e.ServiceKey))
	} else {
		b.WriteString(fmt.Sprintf("failed to resolve %s", formatType(e.ServiceType)))
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// RegistrationError wraps errors during service registration.
type RegistrationError struct {
	ServiceType reflect.Type
	Operation   string // "register", "analyze", "auto-register", etc.
	Cause       error
}

func (e RegistrationError) Error() string {
	if e.ServiceType != nil {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatType(e.ServiceType), e.Cause)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion or conversion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", formatType(e.Expected), formatType(e.Actual))
}

// BuildError wraps errors that occur while building a provider.
type BuildError struct {
	Phase string // "validation", "provide", "decorate"
	Cause error
}

func (e BuildError) Error() string {
	return fmt.Sprintf("build failed during %s phase: %v", e.Phase, e.Cause)
}

func (e BuildError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates disposal errors.
type DisposalError struct {
	Context string // "provider", "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return b.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// ValidationError is the aggregate failure returned by AssertValid. It lists
// every lifetime violation and every cycle found, so all issues can be fixed
// in one pass. Duplicate registrations are never part of this error;
// re-registration is a legitimate override pattern.
type ValidationError struct {
	Violations []LifetimeViolation
	Cycles     []Cycle
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("service configuration is invalid: %d lifetime violation(s), %d cycle(s)",
		len(e.Violations), len(e.Cycles)))

	n := 0
	for _, v := range e.Violations {
		n++
		b.WriteString(fmt.Sprintf("\n  %d. %s", n, v.String()))
	}
	for _, c := range e.Cycles {
		n++
		b.WriteString(fmt.Sprintf("\n  %d. circular dependency: %s", n, c.String()))
	}

	return b.String()
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
