package hostdi

import (
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/puzpuzpuz/xsync/v3"
)

// hostEntry is the context record associated with one host instance. Entries
// are immutable; updates replace the whole record atomically via Compute.
// An entry must never reference the host itself, directly or transitively,
// or the host could never be collected.
type hostEntry struct {
	// gen distinguishes entries across address reuse. A deferred cleanup for
	// a collected host only removes the entry if the generation still
	// matches; a new host allocated at the same address has a newer one.
	gen      uint64
	provider ServiceProvider
	scopes   []string // scan scopes in insertion order, no duplicates
}

// withProvider returns a copy of the entry with the provider replaced.
// Scan scopes are preserved.
func (e *hostEntry) withProvider(sp ServiceProvider) *hostEntry {
	return &hostEntry{gen: e.gen, provider: sp, scopes: e.scopes}
}

// withScopes returns a copy of the entry with the given packages merged into
// its scan-scope set. The set only ever grows.
func (e *hostEntry) withScopes(pkgs []string) *hostEntry {
	scopes := slices.Clone(e.scopes)
	for _, pkg := range pkgs {
		if pkg != "" && !slices.Contains(scopes, pkg) {
			scopes = append(scopes, pkg)
		}
	}
	return &hostEntry{gen: e.gen, provider: e.provider, scopes: scopes}
}

// hosts is the process-wide identity-keyed side table. Keys are host
// addresses, which hold no reference at all; liveness of entries is tied to
// the host via runtime.AddCleanup. xsync's Compute gives the atomic
// insert-or-update required for concurrent callers.
var hosts = xsync.NewMapOf[uintptr, *hostEntry]()

// hostGen issues entry generations.
var hostGen atomic.Uint64

// hostKey derives the identity key for a host. Nil hosts are a precondition
// violation and fail fast. Zero-size hosts are rejected the same way: the
// runtime gives every zero-size allocation the same address, so distinct
// instances would alias one table entry, and their cleanups may never run.
func hostKey[T any](host *T) uintptr {
	if host == nil {
		panic(ErrHostNil)
	}
	if reflect.TypeFor[T]().Size() == 0 {
		panic(ErrHostZeroSize)
	}
	return uintptr(unsafe.Pointer(host))
}

// attachCleanup schedules removal of the host's entry once the host becomes
// unreachable. The cleanup closure captures only the key and generation,
// never the host, so it does not extend the host's lifetime.
func attachCleanup[T any](host *T, key uintptr, gen uint64) {
	runtime.AddCleanup(host, func(g uint64) {
		hosts.Compute(key, func(old *hostEntry, loaded bool) (*hostEntry, bool) {
			if loaded && old.gen == g {
				return nil, true // drop the dead host's entry
			}
			if loaded {
				return old, false // address reused by a newer host
			}
			return nil, true // already cleared explicitly
		})
	}, gen)
}

// scanScopes returns the host's scan-scope set, falling back to the calling
// package when nothing was ever added. skip is the runtime.Caller distance
// to the frame outside this package.
func scanScopes[T any](host *T, skip int) []string {
	key := hostKey(host)
	if e, ok := hosts.Load(key); ok && len(e.scopes) > 0 {
		return slices.Clone(e.scopes)
	}
	if pkg := callerPackage(skip); pkg != "" {
		return []string{pkg}
	}
	return nil
}

// callerPackage resolves the import path of the package skip frames up the
// stack. skip counts as in runtime.Caller: 0 is callerPackage itself.
func callerPackage(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}

	// Function names look like "path/to/pkg.Func" or "path/to/pkg.(*T).M";
	// the package path ends at the first dot after the last slash.
	name := fn.Name()
	slash := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[slash+1:], '.')
	if dot < 0 {
		return name
	}
	return name[:slash+1+dot]
}
