package hostdi

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies the sharing policy of a registered service.
// The lifetime determines when instances are created and how they are cached.
// Enforcement is delegated to the underlying container; hostdi only declares
// and analyzes lifetimes.
type Lifetime int

const (
	// Singleton specifies that a single instance of the service is created
	// and shared for the lifetime of the root provider.
	// Singleton services must not depend on Scoped services.
	Singleton Lifetime = iota

	// Scoped specifies that a new instance of the service is created for
	// each scope. In web applications this typically means one instance per
	// HTTP request. Scoped instances are disposed with their scope.
	Scoped

	// Transient specifies that a new instance is created every time the
	// service is resolved directly. When injected into another service, a
	// transient follows the consuming service's lifetime.
	Transient
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the declared constants.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Transient
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*l = Singleton
	case "Scoped", "scoped":
		*l = Scoped
	case "Transient", "transient":
		*l = Transient
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
