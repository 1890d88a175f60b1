// Package cascade implements the cascade graph: parsing chain declarations,
// alias resolution, and the downstream-closure computation that decides which
// branches a change propagates to.
package cascade

import (
	"fmt"
	"strings"
)

// Separator between branch names in a chain declaration.
const chainSeparator = ">"

// Declaration is one unparsed chain plus where it was declared, so parse
// errors can point at the offending file or git config key.
type Declaration struct {
	Text   string
	Origin string
}

// ConfigParseError reports a cascade declaration that could not be parsed.
// Parse errors are fatal: the run aborts before any merge is attempted.
type ConfigParseError struct {
	Declaration string
	Origin      string
	Reason      string
}

func (e *ConfigParseError) Error() string {
	switch {
	case e.Declaration == "" && e.Origin != "":
		return fmt.Sprintf("invalid cascade configuration in %s: %s", e.Origin, e.Reason)
	case e.Origin == "":
		return fmt.Sprintf("invalid cascade declaration %q: %s", e.Declaration, e.Reason)
	}
	return fmt.Sprintf("invalid cascade declaration %q (from %s): %s", e.Declaration, e.Origin, e.Reason)
}

// ParseChain parses a declaration like "development > staging > master" into
// its ordered branch names. Whitespace around names is ignored. A single
// name is a valid chain that declares the branch with no edges.
func ParseChain(text, origin string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ConfigParseError{Declaration: text, Origin: origin, Reason: "empty declaration"}
	}
	parts := strings.Split(text, chainSeparator)
	chain := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, &ConfigParseError{Declaration: text, Origin: origin, Reason: "empty branch name"}
		}
		chain = append(chain, name)
	}
	return chain, nil
}

// BuildGraph parses every declaration and assembles the cascade graph,
// normalizing branch names through the resolver. The first malformed
// declaration aborts the build with its ConfigParseError.
func BuildGraph(decls []Declaration, resolver *Resolver) (*Graph, error) {
	g := NewGraph()
	for _, d := range decls {
		chain, err := ParseChain(d.Text, d.Origin)
		if err != nil {
			return nil, err
		}
		g.AddChain(resolver.ResolveAll(chain))
	}
	return g, nil
}
