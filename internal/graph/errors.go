package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError reports a single dependency cycle.
type CircularDependencyError struct {
	Path []Key
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n")

	for _, node := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", node.String()))
		b.WriteString("      ↓\n")
	}
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Path[0].String()))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Use a factory function for lazy initialization\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}
