package hostdi

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFindDuplicates(t *testing.T) {
	t.Run("no duplicates", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTDatabase))

		assert.Empty(t, FindDuplicates(services))
	})

	t.Run("three registrations form one group", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTLogger))

		groups := FindDuplicates(services)
		require.Len(t, groups, 1)
		assert.Equal(t, reflect.TypeFor[*TLogger](), groups[0].ServiceType)
		assert.Equal(t, 3, groups[0].Count)
		assert.Equal(t, []Lifetime{Singleton, Singleton, Scoped}, groups[0].Lifetimes)
	})

	t.Run("keyed and non-keyed are distinct", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddSingleton(NewTLogger, Name("audit")))

		assert.Empty(t, FindDuplicates(services))
	})

	t.Run("same key duplicates group together", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger, Name("audit")))
		require.NoError(t, services.AddSingleton(NewTLogger, Name("audit")))

		groups := FindDuplicates(services)
		require.Len(t, groups, 1)
		assert.Equal(t, "audit", groups[0].Key)
		assert.Equal(t, 2, groups[0].Count)
	})
}

func TestFindLifetimeViolations(t *testing.T) {
	t.Run("singleton depending on scoped is flagged", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))

		violations := FindLifetimeViolations(services)
		require.Len(t, violations, 1)
		assert.Equal(t, reflect.TypeFor[*TSingletonConsumer](), violations[0].Consumer)
		assert.Equal(t, reflect.TypeFor[*TScopedDep](), violations[0].Dependency)
		assert.Equal(t, Singleton, violations[0].ConsumerLifetime)
		assert.Equal(t, Scoped, violations[0].DependencyLifetime)
	})

	t.Run("singleton depending on transient is legal", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddTransient(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))

		assert.Empty(t, FindLifetimeViolations(services))
	})

	t.Run("singleton depending on singleton is legal", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddSingleton(NewTDatabase))

		assert.Empty(t, FindLifetimeViolations(services))
	})

	t.Run("scoped depending on scoped is legal", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTLogger))
		require.NoError(t, services.AddScoped(NewTDatabase))

		assert.Empty(t, FindLifetimeViolations(services))
	})

	t.Run("unregistered dependencies are ignored", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTDatabase))

		assert.Empty(t, FindLifetimeViolations(services))
	})

	t.Run("last registration decides the dependency lifetime", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))

		assert.Empty(t, FindLifetimeViolations(services),
			"the scoped registration was overridden by a singleton one")
	})

	t.Run("last registration decides the consumer lifetime", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))
		require.NoError(t, services.AddScoped(NewTSingletonConsumer))

		assert.Empty(t, FindLifetimeViolations(services),
			"the singleton registration was overridden by a scoped one")
	})
}

func TestFindCycles(t *testing.T) {
	t.Run("three-node cycle is found exactly once", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTCycleA))
		require.NoError(t, services.AddSingleton(NewTCycleB))
		require.NoError(t, services.AddSingleton(NewTCycleC))

		cycles := FindCycles(services)
		require.Len(t, cycles, 1)
		assert.Len(t, cycles[0].Path, 3)

		rendered := cycles[0].String()
		assert.Contains(t, rendered, "TCycleA")
		assert.Contains(t, rendered, "TCycleB")
		assert.Contains(t, rendered, "TCycleC")
	})

	t.Run("a chain is not a cycle", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddSingleton(NewTDatabase))
		require.NoError(t, services.AddSingleton(NewTHandler))

		assert.Empty(t, FindCycles(services))
	})

	t.Run("self dependency", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(func(a *TCycleA) *TCycleA { return a }))

		cycles := FindCycles(services)
		require.Len(t, cycles, 1)
		assert.Len(t, cycles[0].Path, 1)
	})
}

func TestBuildGraph(t *testing.T) {
	t.Run("nodes and edges", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTDatabase))
		require.NoError(t, services.AddScoped(NewTHandler))

		g := BuildGraph(services)
		require.NotNil(t, g)
		assert.Len(t, g.Nodes, 3)
		assert.Len(t, g.Edges, 2)

		lifetimes := make(map[reflect.Type]Lifetime)
		for _, n := range g.Nodes {
			lifetimes[n.ServiceType] = n.Lifetime
		}
		assert.Equal(t, Singleton, lifetimes[reflect.TypeFor[*TLogger]()])
		assert.Equal(t, Scoped, lifetimes[reflect.TypeFor[*TDatabase]()])
	})

	t.Run("duplicate registrations share one node", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTLogger))

		g := BuildGraph(services)
		require.Len(t, g.Nodes, 1)
		assert.Equal(t, 2, g.Nodes[0].Registrations)
		assert.Equal(t, Scoped, g.Nodes[0].Lifetime, "the node reflects the last registration")
	})

	t.Run("interface registration records the implementation", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTGreeter, As(new(Greeter))))

		g := BuildGraph(services)
		require.Len(t, g.Nodes, 1)
		assert.Equal(t, reflect.TypeFor[Greeter](), g.Nodes[0].ServiceType)
		assert.Equal(t, reflect.TypeFor[*TGreeter](), g.Nodes[0].ImplementationType)
	})

	t.Run("edges to unregistered dependencies are kept", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTDatabase))

		g := BuildGraph(services)
		assert.Len(t, g.Nodes, 2)
		require.Len(t, g.Edges, 1)
		assert.Zero(t, g.Edges[0].To.Registrations)
	})
}

func TestDependencyGraphWriteDOT(t *testing.T) {
	services := NewCollection()
	require.NoError(t, services.AddSingleton(NewTLogger))
	require.NoError(t, services.AddScoped(NewTDatabase))

	var b strings.Builder
	require.NoError(t, BuildGraph(services).WriteDOT(&b))

	out := b.String()
	assert.True(t, strings.HasPrefix(out, "digraph services {"))
	assert.Contains(t, out, "TLogger")
	assert.Contains(t, out, "->")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
}

func TestDiagnose(t *testing.T) {
	t.Run("counts and health", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTDatabase))
		require.NoError(t, services.AddTransient(NewTCounter))

		report := Diagnose(services)
		assert.Equal(t, 3, report.Services)
		assert.Equal(t, 1, report.Singletons)
		assert.Equal(t, 1, report.Scoped)
		assert.Equal(t, 1, report.Transients)
		assert.True(t, report.Healthy())
		assert.Empty(t, report.Warnings)
	})

	t.Run("duplicates produce a warning but stay healthy", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddSingleton(NewTLogger))

		report := Diagnose(services)
		assert.True(t, report.Healthy())
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "duplicate registration")
	})

	t.Run("violations and cycles make a report unhealthy", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))
		require.NoError(t, services.AddSingleton(NewTCycleA))
		require.NoError(t, services.AddSingleton(NewTCycleB))
		require.NoError(t, services.AddSingleton(NewTCycleC))

		report := Diagnose(services)
		assert.False(t, report.Healthy())
		assert.Len(t, report.Violations, 1)
		assert.Len(t, report.Cycles, 1)
	})
}

func TestReportWriteText(t *testing.T) {
	t.Run("violations", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))

		var b strings.Builder
		require.NoError(t, Diagnose(services).WriteText(&b))

		out := b.String()
		assert.Contains(t, out, "services: 2")
		assert.Contains(t, out, "lifetime violations (1):")
		assert.Contains(t, out, "TSingletonConsumer")
	})

	t.Run("cycles render in arrow form", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTCycleA))
		require.NoError(t, services.AddSingleton(NewTCycleB))
		require.NoError(t, services.AddSingleton(NewTCycleC))

		var b strings.Builder
		require.NoError(t, Diagnose(services).WriteText(&b))

		out := b.String()
		assert.Contains(t, out, "cycles (1):")
		assert.Contains(t, out, "↓")
		assert.Contains(t, out, "(cycle)")
		assert.Contains(t, out, "To resolve this:")
	})
}

func TestCycleDetail(t *testing.T) {
	cycle := Cycle{Path: []reflect.Type{
		reflect.TypeFor[*TCycleA](),
		reflect.TypeFor[*TCycleB](),
	}}

	detail := cycle.Detail()
	assert.Contains(t, detail, "circular dependency detected")
	assert.Contains(t, detail, "↓")
	assert.Contains(t, detail, "TCycleA")
	assert.Contains(t, detail, "TCycleB")
	assert.Contains(t, detail, "(cycle)")
}

func TestReportLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	services := NewCollection()
	require.NoError(t, services.AddScoped(NewTScopedDep))
	require.NoError(t, services.AddSingleton(NewTSingletonConsumer))

	Diagnose(services).Log(logger)

	require.GreaterOrEqual(t, logs.Len(), 2)
	assert.Equal(t, "service diagnostics", logs.All()[0].Message)

	warns := logs.FilterLevelExact(zap.WarnLevel)
	require.Equal(t, 1, warns.Len())
	assert.Equal(t, "lifetime violation", warns.All()[0].Message)
}

func TestAssertValid(t *testing.T) {
	t.Run("clean collection", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTDatabase))

		assert.NoError(t, AssertValid(services))
	})

	t.Run("duplicates alone never fail", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddSingleton(NewTLogger))
		require.NoError(t, services.AddScoped(NewTLogger))

		assert.NoError(t, AssertValid(services))
	})

	t.Run("one aggregate error lists every hazard", func(t *testing.T) {
		services := NewCollection()
		require.NoError(t, services.AddScoped(NewTScopedDep))
		require.NoError(t, services.AddSingleton(NewTSingletonConsumer))
		require.NoError(t, services.AddSingleton(NewTCycleA))
		require.NoError(t, services.AddSingleton(NewTCycleB))
		require.NoError(t, services.AddSingleton(NewTCycleC))

		err := AssertValid(services)
		require.Error(t, err)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Len(t, validation.Violations, 1)
		assert.Len(t, validation.Cycles, 1)

		msg := err.Error()
		assert.Contains(t, msg, "1 lifetime violation(s)")
		assert.Contains(t, msg, "1 cycle(s)")
		assert.Contains(t, msg, "TSingletonConsumer")
		assert.Contains(t, msg, "TCycleA")
	})
}
