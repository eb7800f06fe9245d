package hostdi

import "reflect"

// Context is a read-only snapshot of a host's DI context: the provider it
// carries and the scan scopes configured for auto-registration discovery.
type Context struct {
	// Provider is the service provider associated with the host, or nil if
	// only scan scopes were configured so far.
	Provider ServiceProvider

	// ScanScopes are the package paths auto-registration will search, in
	// insertion order.
	ScanScopes []string
}

// SetServiceProvider associates a service provider with a host instance.
//
// Passing a nil provider removes the association entirely: both the provider
// and any scan scopes are dropped. This is a destructive clear, not a
// partial update. Passing a non-nil provider creates a context if none
// exists, or replaces only the provider of an existing context, preserving
// its scan scopes. Callers that clear and then set again therefore lose
// previously added scan scopes.
//
// The association is weak: it never keeps the host alive, and it disappears
// on its own once the host becomes unreachable.
//
// The host type must not be zero-size. All zero-size values share a single
// address, so they carry no identity to key on; every registry operation
// panics with ErrHostZeroSize for such hosts.
//
// Concurrent configuration of the same host is last-writer-wins; DI
// configuration is expected to happen once, at startup.
func SetServiceProvider[T any](host *T, sp ServiceProvider) {
	key := hostKey(host)

	if sp == nil {
		hosts.Delete(key)
		return
	}

	var created *hostEntry
	hosts.Compute(key, func(old *hostEntry, loaded bool) (*hostEntry, bool) {
		if loaded {
			return old.withProvider(sp), false
		}
		created = &hostEntry{gen: hostGen.Add(1), provider: sp}
		return created, false
	})

	if created != nil {
		attachCleanup(host, key, created.gen)
	}
}

// GetServiceProvider returns the service provider associated with a host,
// or (nil, false) when none is configured. It has no side effects.
func GetServiceProvider[T any](host *T) (ServiceProvider, bool) {
	e, ok := hosts.Load(hostKey(host))
	if !ok || e.provider == nil {
		return nil, false
	}
	return e.provider, true
}

// RequireServiceProvider returns the service provider associated with a
// host, or a NotConfiguredError when the host has none. Absence of a
// provider is never conflated with a resolution failure.
func RequireServiceProvider[T any](host *T) (ServiceProvider, error) {
	sp, ok := GetServiceProvider(host)
	if !ok {
		return nil, NotConfiguredError{HostType: reflect.TypeOf(host)}
	}
	return sp, nil
}

// HostContext returns a snapshot of the host's context, or (Context{},
// false) when the host has no association at all.
func HostContext[T any](host *T) (Context, bool) {
	e, ok := hosts.Load(hostKey(host))
	if !ok {
		return Context{}, false
	}
	return Context{Provider: e.provider, ScanScopes: scanScopesCopy(e)}, true
}

// AddScanScope adds package paths to the host's scan-scope set, creating a
// provider-less context when none exists. Insertion is idempotent: the set
// never shrinks and never holds duplicates. The host is returned to support
// chaining:
//
//	hostdi.AddScanScope(app, "example.com/app/services")
func AddScanScope[T any](host *T, pkgs ...string) *T {
	key := hostKey(host)

	var created *hostEntry
	hosts.Compute(key, func(old *hostEntry, loaded bool) (*hostEntry, bool) {
		if loaded {
			return old.withScopes(pkgs), false
		}
		created = (&hostEntry{gen: hostGen.Add(1)}).withScopes(pkgs)
		return created, false
	})

	if created != nil {
		attachCleanup(host, key, created.gen)
	}
	return host
}

// ScanScopes returns the host's scan-scope set in insertion order. When the
// host has no scan scopes (or no context at all), it falls back to a
// single-element slice holding the caller's own package path, so that
// zero-configuration usage still scans something.
func ScanScopes[T any](host *T) []string {
	return scanScopes(host, 3)
}

// ClearContext removes the host's association entirely and reports whether
// one existed.
func ClearContext[T any](host *T) bool {
	_, existed := hosts.LoadAndDelete(hostKey(host))
	return existed
}

// ResolveFor resolves a service of type S from the provider associated with
// the host. It fails with NotConfiguredError when the host carries no
// provider.
func ResolveFor[S any, T any](host *T) (S, error) {
	sp, err := RequireServiceProvider(host)
	if err != nil {
		var zero S
		return zero, err
	}
	return Resolve[S](sp)
}

func scanScopesCopy(e *hostEntry) []string {
	if len(e.scopes) == 0 {
		return nil
	}
	scopes := make([]string, len(e.scopes))
	copy(scopes, e.scopes)
	return scopes
}
