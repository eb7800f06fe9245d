package hostdi

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/gragra33/hostdi/internal/graph"
)

// singletonWarnThreshold is the singleton count above which Diagnose emits a
// soft warning. Large singleton populations are usually a sign that scoped
// registrations were promoted by habit rather than need.
const singletonWarnThreshold = 200

// DuplicateGroup describes a (service type, key) pair registered more than
// once. Duplicates are never an error: the last registration wins at Build,
// so earlier ones are silent overrides worth surfacing.
type DuplicateGroup struct {
	ServiceType reflect.Type
	Key         string
	Count       int

	// Lifetimes holds the lifetime of each registration in order. A group
	// whose registrations disagree on lifetime is the most suspicious kind.
	Lifetimes []Lifetime
}

func (g DuplicateGroup) String() string {
	name := formatType(g.ServiceType)
	if g.Key != "" {
		name = fmt.Sprintf("%s[%s]", name, g.Key)
	}
	parts := make([]string, len(g.Lifetimes))
	for i, lt := range g.Lifetimes {
		parts[i] = lt.String()
	}
	return fmt.Sprintf("%s registered %d times (%s)", name, g.Count, strings.Join(parts, ", "))
}

// LifetimeViolation describes a singleton service that depends on a scoped
// service. The singleton is constructed once and would capture a single
// scope's instance forever, silently leaking it across every other scope.
//
// This is the only flagged pairing. A singleton depending on a transient is
// legal: the transient instance simply follows its consumer's lifetime.
type LifetimeViolation struct {
	Consumer           reflect.Type
	ConsumerLifetime   Lifetime
	Dependency         reflect.Type
	DependencyLifetime Lifetime
}

func (v LifetimeViolation) String() string {
	return fmt.Sprintf("%s service %s depends on %s service %s",
		v.ConsumerLifetime, formatType(v.Consumer),
		v.DependencyLifetime, formatType(v.Dependency))
}

// Cycle is a circular dependency among registered services. Path holds each
// service type on the cycle exactly once, in dependency order.
type Cycle struct {
	Path []reflect.Type
}

func (c Cycle) String() string {
	if len(c.Path) == 0 {
		return "<empty cycle>"
	}
	var b strings.Builder
	for _, t := range c.Path {
		b.WriteString(formatType(t))
		b.WriteString(" -> ")
	}
	b.WriteString(formatType(c.Path[0]))
	return b.String()
}

// Detail renders the cycle in multi-line arrow form with resolution hints,
// for human-facing reports. String stays the compact one-line form used in
// aggregate errors.
func (c Cycle) Detail() string {
	path := make([]graph.Key, len(c.Path))
	for i, t := range c.Path {
		path[i] = graph.Key{Type: t}
	}
	return graph.CircularDependencyError{Path: path}.Error()
}

// GraphNode is one registered service in a dependency graph. When a service
// is registered more than once, the node carries the last registration's
// lifetime and implementation type, matching what Build would use, and
// Registrations counts them all.
type GraphNode struct {
	ServiceType        reflect.Type
	ImplementationType reflect.Type
	Key                string
	Lifetime           Lifetime
	Registrations      int
}

func (n GraphNode) label() string {
	name := formatType(n.ServiceType)
	if n.Key != "" {
		name = fmt.Sprintf("%s[%s]", name, n.Key)
	}
	return name
}

// GraphEdge is a dependency from one service on another.
type GraphEdge struct {
	From GraphNode
	To   GraphNode
}

// DependencyGraph is a point-in-time snapshot of a collection's registrations
// and the dependencies between them.
type DependencyGraph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *DependencyGraph) WriteDOT(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph services {"); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		if _, err := fmt.Fprintf(w, "  %q [label=%q];\n", n.label(), fmt.Sprintf("%s\n%s", n.label(), n.Lifetime)); err != nil {
			return err
		}
	}
	for _, e := range g.Edges {
		if _, err := fmt.Fprintf(w, "  %q -> %q;\n", e.From.label(), e.To.label()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// Report is the result of a full diagnostic pass over a collection. Nothing
// in a Report is fatal by itself; use AssertValid to turn hazards into an
// error.
type Report struct {
	Services   int
	Singletons int
	Scoped     int
	Transients int

	Duplicates []DuplicateGroup
	Violations []LifetimeViolation
	Cycles     []Cycle
	Graph      *DependencyGraph

	Warnings []string
}

// Healthy reports whether the collection has no lifetime violations and no
// cycles. Duplicates and warnings do not affect health.
func (r *Report) Healthy() bool {
	return len(r.Violations) == 0 && len(r.Cycles) == 0
}

// WriteText renders the report as indented plain text.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "services: %d (%d singleton, %d scoped, %d transient)\n",
		r.Services, r.Singletons, r.Scoped, r.Transients)

	writeSection := func(header string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d):\n", header, len(lines))
		for _, line := range lines {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}

	writeSection("duplicates", stringsOf(r.Duplicates))
	writeSection("lifetime violations", stringsOf(r.Violations))

	if len(r.Cycles) > 0 {
		fmt.Fprintf(&b, "cycles (%d):\n", len(r.Cycles))
		for _, c := range r.Cycles {
			for _, line := range strings.Split(strings.TrimRight(c.Detail(), "\n"), "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	writeSection("warnings", r.Warnings)

	if r.Healthy() && len(r.Duplicates) == 0 && len(r.Warnings) == 0 {
		b.WriteString("no issues found\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Log emits the report through a zap logger: one summary entry, then one
// entry per hazard. Violations and cycles log at warn, everything else at
// info.
func (r *Report) Log(logger *zap.Logger) {
	logger.Info("service diagnostics",
		zap.Int("services", r.Services),
		zap.Int("singletons", r.Singletons),
		zap.Int("scoped", r.Scoped),
		zap.Int("transients", r.Transients),
		zap.Int("duplicates", len(r.Duplicates)),
		zap.Int("lifetimeViolations", len(r.Violations)),
		zap.Int("cycles", len(r.Cycles)),
	)

	for _, d := range r.Duplicates {
		logger.Info("duplicate registration", zap.String("group", d.String()))
	}
	for _, v := range r.Violations {
		logger.Warn("lifetime violation", zap.String("violation", v.String()))
	}
	for _, c := range r.Cycles {
		logger.Warn("circular dependency", zap.String("cycle", c.String()))
	}
	for _, w := range r.Warnings {
		logger.Info("diagnostic warning", zap.String("warning", w))
	}
}

func stringsOf[T fmt.Stringer](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.String()
	}
	return out
}

// FindDuplicates returns every (service type, key) pair registered more than
// once, in first-registration order.
func FindDuplicates(c *Collection) []DuplicateGroup {
	type groupKey struct {
		t reflect.Type
		k string
	}

	var order []groupKey
	lifetimes := make(map[groupKey][]Lifetime)

	for _, d := range c.Descriptors() {
		gk := groupKey{t: d.ServiceType, k: d.Key}
		if _, ok := lifetimes[gk]; !ok {
			order = append(order, gk)
		}
		lifetimes[gk] = append(lifetimes[gk], d.Lifetime)
	}

	var groups []DuplicateGroup
	for _, gk := range order {
		lts := lifetimes[gk]
		if len(lts) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			ServiceType: gk.t,
			Key:         gk.k,
			Count:       len(lts),
			Lifetimes:   lts,
		})
	}
	return groups
}

// FindLifetimeViolations returns every singleton registration that depends on
// a scoped registration. No other lifetime pairing is flagged.
//
// Both sides of the check use effective registrations only: when a (type,
// key) pair is registered more than once, the last registration is the one
// Build provides, so overridden registrations can neither cause nor suffer a
// violation.
func FindLifetimeViolations(c *Collection) []LifetimeViolation {
	type regKey struct {
		t reflect.Type
		k string
	}

	effective := make(map[regKey]*Descriptor)
	var order []regKey
	for _, d := range c.Descriptors() {
		k := regKey{t: d.ServiceType, k: d.Key}
		if _, ok := effective[k]; !ok {
			order = append(order, k)
		}
		effective[k] = d
	}

	lifetimeOf := make(map[reflect.Type]Lifetime)
	for _, k := range order {
		if k.k == "" {
			lifetimeOf[k.t] = effective[k].Lifetime
		}
	}

	var violations []LifetimeViolation
	for _, k := range order {
		d := effective[k]
		if d.Lifetime != Singleton {
			continue
		}
		for _, dep := range d.Dependencies {
			depLifetime, registered := lifetimeOf[dep.Type]
			if !registered || depLifetime != Scoped {
				continue
			}
			violations = append(violations, LifetimeViolation{
				Consumer:           d.ServiceType,
				ConsumerLifetime:   Singleton,
				Dependency:         dep.Type,
				DependencyLifetime: Scoped,
			})
		}
	}
	return violations
}

// FindCycles returns every distinct circular dependency in the collection.
// A chain without a back edge is not a cycle, no matter how long.
func FindCycles(c *Collection) []Cycle {
	g := dependencyGraph(c)

	var cycles []Cycle
	for _, path := range g.Cycles() {
		types := make([]reflect.Type, len(path))
		for i, k := range path {
			types[i] = k.Type
		}
		cycles = append(cycles, Cycle{Path: types})
	}
	return cycles
}

// BuildGraph returns a snapshot of the collection's registrations and the
// dependency edges between them. Edges to unregistered types (such as
// context.Context) are included so the picture is complete.
func BuildGraph(c *Collection) *DependencyGraph {
	descriptors := c.Descriptors()

	nodeOf := make(map[graph.Key]GraphNode)
	var order []graph.Key

	record := func(k graph.Key, n GraphNode) {
		if _, ok := nodeOf[k]; !ok {
			order = append(order, k)
		}
		nodeOf[k] = n
	}

	for _, d := range descriptors {
		k := graphKey(d)
		n := GraphNode{
			ServiceType:        d.ServiceType,
			ImplementationType: d.ImplementationType,
			Key:                d.Key,
			Lifetime:           d.Lifetime,
			Registrations:      1,
		}
		if prev, ok := nodeOf[k]; ok {
			n.Registrations = prev.Registrations + 1
		}
		record(k, n)
	}

	dg := &DependencyGraph{}
	seenEdges := make(map[[2]graph.Key]struct{})

	for _, d := range descriptors {
		from := graphKey(d)
		for _, dep := range d.Dependencies {
			to := graph.Key{Type: dep.Type}
			if _, ok := nodeOf[to]; !ok {
				record(to, GraphNode{ServiceType: dep.Type})
			}
			ek := [2]graph.Key{from, to}
			if _, dup := seenEdges[ek]; dup {
				continue
			}
			seenEdges[ek] = struct{}{}
			dg.Edges = append(dg.Edges, GraphEdge{From: nodeOf[from], To: nodeOf[to]})
		}
	}

	for _, k := range order {
		dg.Nodes = append(dg.Nodes, nodeOf[k])
	}
	return dg
}

// Diagnose runs every analysis over the collection and returns the combined
// report. It never fails: the report is advisory.
func Diagnose(c *Collection) *Report {
	r := &Report{
		Duplicates: FindDuplicates(c),
		Violations: FindLifetimeViolations(c),
		Cycles:     FindCycles(c),
		Graph:      BuildGraph(c),
	}

	for _, d := range c.Descriptors() {
		r.Services++
		switch d.Lifetime {
		case Singleton:
			r.Singletons++
		case Scoped:
			r.Scoped++
		case Transient:
			r.Transients++
		}
	}

	for _, g := range r.Duplicates {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("duplicate registration: %s; the last one wins at build", g))
	}
	if r.Singletons > singletonWarnThreshold {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("%d singleton services registered; consider whether some should be scoped", r.Singletons))
	}

	return r
}

// AssertValid checks the collection for fatal hazards and returns a single
// aggregate error listing every lifetime violation and every cycle found.
// Duplicate registrations are never fatal. Returns nil when the collection
// is clean.
func AssertValid(c *Collection) error {
	violations := FindLifetimeViolations(c)
	cycles := FindCycles(c)

	if len(violations) == 0 && len(cycles) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations, Cycles: cycles}
}

// dependencyGraph builds the internal analysis graph: one node per
// registration, one edge per constructor dependency.
func dependencyGraph(c *Collection) *graph.Graph {
	g := graph.New()
	for _, d := range c.Descriptors() {
		from := graphKey(d)
		g.AddNode(from)
		for _, dep := range d.Dependencies {
			g.AddEdge(from, graph.Key{Type: dep.Type})
		}
	}
	return g
}

func graphKey(d *Descriptor) graph.Key {
	if d.Key == "" {
		return graph.Key{Type: d.ServiceType}
	}
	return graph.Key{Type: d.ServiceType, Key: d.Key}
}
