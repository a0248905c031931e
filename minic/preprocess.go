package minic

import (
	"path"
	"strings"
)

// IncludeResolver locates the contents of an #include target. Implementations
// exist for the virtual filesystem and for the host filesystem, so the front
// end does not care where source lives.
//
// The returned id is the canonical identity of the resolved file and is what
// cycle detection compares; fromDir is the directory of the including file,
// consulted first for quoted includes.
type IncludeResolver interface {
	Resolve(name string, quoted bool, fromDir string) (id string, src string, err error)
}

// Options configures one compilation.
type Options struct {
	Resolver IncludeResolver
}

// Compile preprocesses, scans and parses one MiniC translation unit.
func Compile(name, source string, opts Options) (*Program, error) {
	pp := &preprocessor{resolver: opts.Resolver}

	flat, err := pp.expand(name, source, path.Dir(name))
	if err != nil {
		return nil, err
	}

	tokens, err := NewScanner(name, flat).ScanTokens()
	if err != nil {
		return nil, err
	}

	return NewParser(name, tokens).Parse()
}

type preprocessor struct {
	resolver IncludeResolver
	active   []string // stack of files currently being expanded
}

func (pp *preprocessor) expand(id, source, fromDir string) (string, error) {
	for _, open := range pp.active {
		if open == id {
			chain := append(append([]string(nil), pp.active...), id)
			return "", errf(id, 0, "include cycle: %s", strings.Join(chain, " -> "))
		}
	}

	pp.active = append(pp.active, id)
	defer func() {
		pp.active = pp.active[:len(pp.active)-1]
	}()

	var out strings.Builder

	lines := strings.Split(source, "\n")
	for n, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "#") {
			out.WriteString(line)
			if n < len(lines)-1 {
				out.WriteByte('\n')
			}
			continue
		}

		if name, quoted, ok := parseInclude(trimmed); ok {
			if pp.resolver == nil {
				return "", errf(id, n+1, "no include resolver for %q", name)
			}

			incID, src, err := pp.resolver.Resolve(name, quoted, fromDir)
			if err != nil {
				return "", errf(id, n+1, "cannot resolve include %q: %s", name, err)
			}

			expanded, err := pp.expand(incID, src, path.Dir(incID))
			if err != nil {
				return "", err
			}

			out.WriteString(expanded)
			out.WriteByte('\n')
			continue
		}

		// Unknown directive. Blank it so line numbers survive.
		out.WriteByte('\n')
	}

	return out.String(), nil
}

// parseInclude recognizes `#include <name>` and `#include "name"`.
func parseInclude(line string) (name string, quoted bool, ok bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if !strings.HasPrefix(rest, "include") {
		return "", false, false
	}

	rest = strings.TrimSpace(strings.TrimPrefix(rest, "include"))
	if len(rest) < 2 {
		return "", false, false
	}

	switch rest[0] {
	case '<':
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return "", false, false
		}
		return rest[1:end], false, true
	case '"':
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return "", false, false
		}
		return rest[1 : 1+end], true, true
	}

	return "", false, false
}
