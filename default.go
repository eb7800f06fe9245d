package hostdi

import "sync"

var (
	defaultMu       sync.RWMutex
	defaultProvider ServiceProvider
)

// SetDefaultServiceProvider sets the process-wide default provider, similar
// to slog.SetDefault. It is a convenience for applications with exactly one
// provider; host associations always take precedence because they are
// explicit. Pass nil to remove the default.
func SetDefaultServiceProvider(provider ServiceProvider) {
	defaultMu.Lock()
	defaultProvider = provider
	defaultMu.Unlock()
}

// DefaultServiceProvider returns the current process-wide fallback provider,
// or nil if none has been set.
func DefaultServiceProvider() ServiceProvider {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider
}
