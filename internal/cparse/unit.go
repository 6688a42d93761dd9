package cparse

import (
	"fmt"
)

// IncludeEdge records that file From includes file To.
type IncludeEdge struct {
	From string
	To   string
}

// FileDecls holds the declarations of one file in a translation unit.
type FileDecls struct {
	Path   string
	System bool
	Decls  []Decl
}

// Unit is a loaded translation unit: the root header plus everything it
// transitively includes, each file parsed exactly once.
type Unit struct {
	// Root is the absolute path of the root header.
	Root string
	// Files lists parsed files in breadth-first include order, root first.
	Files []*FileDecls
	// Edges is the inclusion edge list used for depth computation.
	Edges []IncludeEdge
	// Diags holds warnings and fatal diagnostics raised during loading.
	Diags []Diagnostic
}

// Fatal returns the first fatal diagnostic, or nil.
func (u *Unit) Fatal() *Diagnostic {
	for i := range u.Diags {
		if u.Diags[i].Severity == SeverityFatal {
			return &u.Diags[i]
		}
	}
	return nil
}

// Warnings returns all non-fatal diagnostics.
func (u *Unit) Warnings() []Diagnostic {
	var warnings []Diagnostic
	for _, d := range u.Diags {
		if d.Severity == SeverityWarning {
			warnings = append(warnings, d)
		}
	}
	return warnings
}

// Loader parses root headers into translation units.
type Loader struct {
	parser   *Parser
	resolver *IncludeResolver
	defines  map[string]int64
}

// NewLoader creates a loader with the given include search directories and
// predefined identifiers for constant evaluation.
func NewLoader(userDirs, systemDirs []string, defines map[string]int64) *Loader {
	return &Loader{
		parser: NewParser(),
		resolver: &IncludeResolver{
			UserDirs:   userDirs,
			SystemDirs: systemDirs,
		},
		defines: defines,
	}
}

// Close releases parser resources.
func (l *Loader) Close() {
	if l.parser != nil {
		l.parser.Close()
		l.parser = nil
	}
}

// Load parses rootPath and every header it transitively includes. A missing
// root returns a FileReadError. Include resolution failures become
// diagnostics on the unit: fatal for quoted includes in user files, warnings
// otherwise.
func (l *Loader) Load(rootPath string) (*Unit, error) {
	root := absPath(rootPath)
	if !fileExists(root) {
		return nil, &FileReadError{Path: rootPath, Err: fmt.Errorf("no such file")}
	}

	unit := &Unit{Root: root}

	type queued struct {
		path   string
		system bool
	}
	queue := []queued{{path: root}}
	visited := map[string]bool{root: true}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		result, err := l.parser.ParseFile(entry.path)
		if err != nil {
			unit.Diags = append(unit.Diags, Diagnostic{
				Severity: SeverityWarning,
				File:     entry.path,
				Message:  err.Error(),
			})
			continue
		}

		if result.HasErrors() && !entry.system {
			unit.Diags = append(unit.Diags, Diagnostic{
				Severity: SeverityWarning,
				File:     entry.path,
				Message:  "file contains syntax errors; some declarations may be missed",
			})
		}

		extractor := NewExtractor(result, l.defines)
		decls := extractor.ExtractAll()
		unit.Diags = append(unit.Diags, extractor.Warnings()...)

		unit.Files = append(unit.Files, &FileDecls{
			Path:   entry.path,
			System: entry.system,
			Decls:  decls,
		})

		for _, directive := range ScanIncludes(result) {
			target, system, ok := l.resolver.Resolve(directive)
			if !ok {
				unit.Diags = append(unit.Diags, l.unresolvedDiag(directive, entry.system))
				continue
			}
			unit.Edges = append(unit.Edges, IncludeEdge{From: entry.path, To: target})
			if !visited[target] {
				visited[target] = true
				// A file reached through a system header stays system
				// even when it lives outside the system roots.
				queue = append(queue, queued{path: target, system: system || entry.system})
			}
		}

		result.Close()
	}

	return unit, nil
}

// unresolvedDiag classifies an unresolvable include. Quoted includes in
// user headers are fatal: the missing file would silently truncate the
// generated surface. Angle includes are expected to be resolvable only when
// a full system header set is installed, so they degrade to warnings.
func (l *Loader) unresolvedDiag(d IncludeDirective, fromSystem bool) Diagnostic {
	severity := SeverityFatal
	if d.Angle || fromSystem {
		severity = SeverityWarning
	}
	form := fmt.Sprintf("%q", d.Target)
	if d.Angle {
		form = "<" + d.Target + ">"
	}
	return Diagnostic{
		Severity: severity,
		File:     d.File,
		Line:     d.Line,
		Message:  fmt.Sprintf("cannot resolve #include %s; check include_directory configuration", form),
	}
}
