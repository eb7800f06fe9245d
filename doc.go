// Package hostdi lets arbitrary "host" objects carry an associated
// dependency-injection service provider without inheriting from a base type
// or implementing an interface. The association is held in a weak,
// identity-keyed side table, so attaching DI metadata to an object never
// keeps that object alive.
//
// Service resolution, lifetimes, disposal, and scoping are delegated to
// go.uber.org/dig; hostdi is a convenience layer on top of it.
//
// # Attaching a provider to a host
//
// Any pointer can act as a host:
//
//	type App struct{ /* ... */ }
//
//	app := &App{}
//
//	services := hostdi.NewCollection()
//	services.AddSingleton(NewLogger)
//	services.AddScoped(NewUserService)
//
//	provider, err := services.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hostdi.SetServiceProvider(app, provider)
//
// Later, anywhere the host is available:
//
//	sp, err := hostdi.RequireServiceProvider(app)
//	userService, err := hostdi.ResolveFor[*UserService](app)
//
// The side table holds no strong reference to the host. When the host becomes
// unreachable its entry is removed automatically; calling
// SetServiceProvider(host, nil) removes it eagerly, dropping both the
// provider and any scan scopes.
//
// # Service lifetimes
//
// hostdi supports three service lifetimes:
//
//   - Singleton: one instance created and shared across the entire provider
//   - Scoped: one instance per scope (per-request isolation in web apps)
//   - Transient: a new instance created on every resolution
//
// # Auto-registration
//
// Packages can publish constructors into a process-wide index:
//
//	func init() {
//	    hostdi.RegisterConstructor(NewMetrics, hostdi.Singleton)
//	}
//
// A host selects which packages to pull registrations from via scan scopes:
//
//	hostdi.AddScanScope(app, "example.com/app/services")
//	n, err := hostdi.AutoRegister(services, app)
//
// When a host has no scan scopes, AutoRegister falls back to the calling
// package, so zero-configuration usage still discovers something.
//
// # Diagnostics
//
// The diagnostics engine analyzes a Collection without building it and
// reports duplicate registrations, lifetime conflicts (a Singleton depending
// on a Scoped service), and circular dependencies:
//
//	report := hostdi.Diagnose(services)
//	report.Log(logger)
//
//	if err := hostdi.AssertValid(services); err != nil {
//	    log.Fatal(err) // one aggregate error listing every hazard
//	}
//
// Diagnostics are read-only and advisory: they never mutate the collection,
// and duplicate registrations are reported but never fatal.
//
// # Thread safety
//
// The host registry is safe for concurrent use by independent goroutines
// operating on different hosts. Configuring the same host from multiple
// goroutines concurrently is last-writer-wins. A Collection is not safe for
// concurrent mutation; configure it in one goroutine, then Build.
package hostdi
