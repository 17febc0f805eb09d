package cli

import (
	"fmt"
	"strings"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

// renderClause prints a normalized clause tree back in filter notation.
// The output is canonical (fully parenthesized, explicit operators), so it
// doubles as a readable dump of what the transformer produced.
func renderClause(c clause.Clause) string {
	switch node := c.(type) {
	case clause.And:
		return renderBoolean(node.Operands, " AND ")
	case clause.Or:
		return renderBoolean(node.Operands, " OR ")
	case clause.Not:
		return "NOT " + renderClause(node.Operand)
	case clause.Comparison:
		return fmt.Sprintf("%s %s %s", node.Property.Name, node.Op, clause.FormatValue(node.Value))
	case clause.Membership:
		return fmt.Sprintf("%s %s %s", node.Property.Name, node.Mode, renderValueMatches(node.Values))
	case clause.ZipMembership:
		names := make([]string, 0, len(node.Properties))
		for _, p := range node.Properties {
			names = append(names, p.Name)
		}
		tuples := make([]string, 0, len(node.Tuples))
		for _, tuple := range node.Tuples {
			parts := make([]string, 0, len(tuple))
			for _, vm := range tuple {
				parts = append(parts, renderValueMatch(vm))
			}
			tuples = append(tuples, strings.Join(parts, ":"))
		}
		return fmt.Sprintf("%s %s %s", strings.Join(names, ":"), node.Mode, strings.Join(tuples, ", "))
	case clause.Known:
		if node.Known {
			return node.Property.Name + " IS KNOWN"
		}
		return node.Property.Name + " IS UNKNOWN"
	case clause.Match:
		return fmt.Sprintf("%s %s %q", node.Property.Name, node.Kind, node.Value)
	case clause.Length:
		return fmt.Sprintf("%s LENGTH %s %d", node.Property.Name, node.Op, node.Value)
	default:
		return fmt.Sprintf("<%T>", c)
	}
}

func renderBoolean(operands []clause.Clause, sep string) string {
	parts := make([]string, 0, len(operands))
	for _, op := range operands {
		parts = append(parts, renderClause(op))
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func renderValueMatches(values []clause.ValueMatch) string {
	parts := make([]string, 0, len(values))
	for _, vm := range values {
		parts = append(parts, renderValueMatch(vm))
	}
	return strings.Join(parts, ", ")
}

func renderValueMatch(vm clause.ValueMatch) string {
	if vm.Op == clause.OpEq {
		return clause.FormatValue(vm.Value)
	}
	return fmt.Sprintf("%s %s", vm.Op, clause.FormatValue(vm.Value))
}
