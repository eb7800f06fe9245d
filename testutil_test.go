package hostdi

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TLogger is a basic dependency-free service.
type TLogger struct {
	Name string
}

func NewTLogger() *TLogger {
	return &TLogger{Name: "logger"}
}

// TDatabase depends on TLogger.
type TDatabase struct {
	Logger *TLogger
}

func NewTDatabase(logger *TLogger) *TDatabase {
	return &TDatabase{Logger: logger}
}

// THandler depends on TDatabase.
type THandler struct {
	DB *TDatabase
}

func NewTHandler(db *TDatabase) *THandler {
	return &THandler{DB: db}
}

// TGreeter is used for name/interface registration tests.
type TGreeter struct {
	Greeting string
}

func (g *TGreeter) Greet() string { return g.Greeting }

type Greeter interface {
	Greet() string
}

func NewTGreeter() *TGreeter {
	return &TGreeter{Greeting: "hello"}
}

// TCounter tracks how many instances its constructor produced.
type TCounter struct {
	Instance int64
}

var counterInstances atomic.Int64

func NewTCounter() *TCounter {
	return &TCounter{Instance: counterInstances.Add(1)}
}

// TDisposable records disposal for lifecycle tests.
type TDisposable struct {
	Name     string
	closed   atomic.Bool
	closeErr error
	onClose  func(name string)
}

func (d *TDisposable) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	if d.onClose != nil {
		d.onClose(d.Name)
	}
	return d.closeErr
}

func (d *TDisposable) IsClosed() bool {
	return d.closed.Load()
}

// closeRecorder collects disposal order across instances.
type closeRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *closeRecorder) record(name string) {
	r.mu.Lock()
	r.order = append(r.order, name)
	r.mu.Unlock()
}

func (r *closeRecorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// ============================================================================
// Circular Dependency Test Types
// ============================================================================

type TCycleA struct{ B *TCycleB }
type TCycleB struct{ C *TCycleC }
type TCycleC struct{ A *TCycleA }

func NewTCycleA(b *TCycleB) *TCycleA { return &TCycleA{B: b} }
func NewTCycleB(c *TCycleC) *TCycleB { return &TCycleB{C: c} }
func NewTCycleC(a *TCycleA) *TCycleC { return &TCycleC{A: a} }

// ============================================================================
// Lifetime Violation Test Types
// ============================================================================

type TScopedDep struct{}

func NewTScopedDep() *TScopedDep { return &TScopedDep{} }

type TSingletonConsumer struct{ Dep *TScopedDep }

func NewTSingletonConsumer(dep *TScopedDep) *TSingletonConsumer {
	return &TSingletonConsumer{Dep: dep}
}

// ============================================================================
// Host Test Types
// ============================================================================

// TApp stands in for an arbitrary host object.
type TApp struct {
	Name string
}

// resetRegistrations restores the auto-registration index after a test that
// mutates it.
func resetRegistrations() func() {
	registrationsMu.Lock()
	savedRegs := registrations
	savedOrder := registrationOrder
	registrations = make(map[string][]registration)
	registrationOrder = nil
	registrationsMu.Unlock()

	return func() {
		registrationsMu.Lock()
		registrations = savedRegs
		registrationOrder = savedOrder
		registrationsMu.Unlock()
	}
}
