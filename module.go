package hostdi

import (
	"fmt"
	"reflect"
	"strings"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Collection) error

// NewModule creates a new module with the given name and builders.
// Modules are a way to group related service registrations together.
//
// Example:
//
//	var DatabaseModule = hostdi.NewModule("database",
//	    hostdi.AddSingleton(NewDatabaseConnection),
//	    hostdi.AddScoped(NewUserRepository),
//	    hostdi.AddScoped(NewOrderRepository),
//	)
//
//	var AppModule = hostdi.NewModule("app",
//	    DatabaseModule,
//	    hostdi.AddScoped(NewService1),
//	    hostdi.AddScoped(NewService1, hostdi.Name("replica")),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(c *Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddSingleton creates a ModuleOption for adding a singleton service.
func AddSingleton(constructor any, opts ...AddOption) ModuleOption {
	return func(c *Collection) error {
		return c.AddSingleton(constructor, opts...)
	}
}

// AddScoped creates a ModuleOption for adding a scoped service.
func AddScoped(constructor any, opts ...AddOption) ModuleOption {
	return func(c *Collection) error {
		return c.AddScoped(constructor, opts...)
	}
}

// AddTransient creates a ModuleOption for adding a transient service.
func AddTransient(constructor any, opts ...AddOption) ModuleOption {
	return func(c *Collection) error {
		return c.AddTransient(constructor, opts...)
	}
}

// AddDecorator creates a ModuleOption for adding a decorator.
func AddDecorator(decorator any) ModuleOption {
	return func(c *Collection) error {
		return c.Decorate(decorator)
	}
}

// An AddOption modifies the default behavior of AddSingleton, AddScoped, and
// AddTransient.
type AddOption interface {
	applyAddOption(*addOptions)
}

type addOptions struct {
	Name    string
	asIface any
	asSet   bool
}

func (o *addOptions) Validate() error {
	// Names must be representable inside a backquoted string, a constraint
	// inherited from the underlying container's name tags.
	if strings.ContainsRune(o.Name, '`') {
		return fmt.Errorf("invalid hostdi.Name(%q): names cannot contain backquotes", o.Name)
	}

	if o.asSet {
		t := reflect.TypeOf(o.asIface)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
			return fmt.Errorf("invalid hostdi.As(%v): argument must be a pointer to an interface", t)
		}
	}
	return nil
}

// As returns the interface type requested with the As option, or nil.
func (o *addOptions) As() reflect.Type {
	if !o.asSet {
		return nil
	}
	return reflect.TypeOf(o.asIface).Elem()
}

// Name is an AddOption that registers the service under the given name.
// Named services are resolved with ResolveKeyed.
//
// Given,
//
//	func NewReadOnlyConnection(...) (*Connection, error)
//	func NewReadWriteConnection(...) (*Connection, error)
//
// the following registers two connections, one under the name "ro" and the
// other under "rw":
//
//	c.AddSingleton(NewReadOnlyConnection, hostdi.Name("ro"))
//	c.AddSingleton(NewReadWriteConnection, hostdi.Name("rw"))
func Name(name string) AddOption {
	return addNameOption(name)
}

type addNameOption string

func (o addNameOption) String() string {
	return fmt.Sprintf("Name(%q)", string(o))
}

func (o addNameOption) applyAddOption(opt *addOptions) {
	opt.Name = string(o)
}

// As is an AddOption that registers the constructor's value as the given
// interface instead of its concrete type.
//
// As expects a pointer to the implemented interface:
//
//	c.AddSingleton(newBuffer, hostdi.As(new(io.Reader)))
//
// The value is then available in the container as io.Reader, but not as the
// concrete buffer type. To expose several interfaces, register the
// constructor once per interface.
func As(iface any) AddOption {
	return addAsOption{iface: iface}
}

type addAsOption struct {
	iface any
}

func (o addAsOption) String() string {
	t := reflect.TypeOf(o.iface)
	if t != nil && t.Kind() == reflect.Pointer {
		return fmt.Sprintf("As(%v)", t.Elem())
	}
	return fmt.Sprintf("As(%v)", t)
}

func (o addAsOption) applyAddOption(opt *addOptions) {
	opt.asIface = o.iface
	opt.asSet = true
}
