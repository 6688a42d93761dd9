package gen

import (
	"errors"

	"github.com/hargabyte/bindgen/internal/cparse"
	"github.com/hargabyte/bindgen/internal/policy"
	"github.com/hargabyte/bindgen/internal/render"
)

// Options controls one generation run.
type Options struct {
	// IncludeDirs are user include search directories, searched before
	// SystemIncludeDirs.
	IncludeDirs       []string
	SystemIncludeDirs []string
	// IncludeDepth bounds how many include hops past each root header may
	// still contribute declarations. UnboundedDepth lifts the bound.
	IncludeDepth int
	// MultiUnit emits one file per library instead of one merged file.
	MultiUnit bool
	// Tolerate downgrades per-header failures to warnings and keeps going.
	Tolerate bool
	// Namespace overrides the default output namespace; a per-library
	// namespace in the policy still wins.
	Namespace string
}

// Result is the generated output: per-library files in multi-unit mode,
// a single merged file otherwise.
type Result struct {
	// Units maps output file name to content, in multi-unit mode.
	Units map[string]string
	// UnitOrder lists Units keys in library declaration order.
	UnitOrder []string
	// Merged is the single-file output, in merged mode.
	Merged   string
	Warnings []string
	// InputFiles lists every file read during the run, for cache
	// fingerprinting.
	InputFiles []string
}

// Generator runs the full pipeline for one policy: load every header's
// translation unit, compute include depths, pre-scan registries, walk
// declarations, merge enums, and assemble the output files.
type Generator struct {
	pol  *policy.Policy
	opts Options
}

// New creates a generator for the given policy and options.
func New(pol *policy.Policy, opts Options) *Generator {
	return &Generator{pol: pol, opts: opts}
}

type loadedUnit struct {
	unit    *cparse.Unit
	library string
}

// Generate runs the pipeline. Without Tolerate, a missing header returns
// a NotFoundError and a fatal diagnostic returns a ParseFailedError; with
// Tolerate both degrade to warnings and the header is skipped. When no
// header at all produces declarations, ErrNothingGenerated is returned.
func (g *Generator) Generate() (*Result, error) {
	result := &Result{Units: make(map[string]string)}

	defines := g.evalDefines(result)

	loader := cparse.NewLoader(g.opts.IncludeDirs, g.opts.SystemIncludeDirs, defines)
	defer loader.Close()

	units, err := g.loadUnits(loader, result)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNothingGenerated
	}

	seenInputs := make(map[string]bool)
	for _, lu := range units {
		for _, file := range lu.unit.Files {
			if !seenInputs[file.Path] {
				seenInputs[file.Path] = true
				result.InputFiles = append(result.InputFiles, file.Path)
			}
		}
	}

	session := NewSession(g.pol.Rules, g.strategy())
	session.SeedMacroValues(defines)
	for _, lu := range units {
		session.AllowFiles(ComputeDepths(lu.unit.Root, lu.unit.Edges, g.opts.IncludeDepth))
	}

	walker := NewWalker(session, g.pol.Visibility, g.pol.Constants)
	for _, lu := range units {
		walker.PreScan(lu.unit)
	}
	session.PruneDefinedOpaques()

	blocks := make(map[string]*Blocks)
	var libraryOrder []string
	for _, lu := range units {
		out, ok := blocks[lu.library]
		if !ok {
			out = &Blocks{}
			blocks[lu.library] = out
			libraryOrder = append(libraryOrder, lu.library)
		}
		walker.Walk(lu.unit, lu.library, out)
	}

	g.appendEnums(session, blocks, &libraryOrder)
	g.assemble(result, blocks, libraryOrder)
	return result, nil
}

func (g *Generator) strategy() DedupStrategy {
	if g.opts.MultiUnit {
		return PerLibraryKeys{}
	}
	return GlobalKeys{}
}

// evalDefines turns the policy's defines into an evaluation environment.
// A valueless define gets the conventional 1; an unevaluable value is
// skipped with a warning, since it can still appear in #if-style logic
// this generator never interprets.
func (g *Generator) evalDefines(result *Result) map[string]int64 {
	defines := make(map[string]int64, len(g.pol.Defines))
	for _, def := range g.pol.Defines {
		if !def.HasValue {
			defines[def.Name] = 1
			continue
		}
		v, err := cparse.EvalConstExpr(def.Value, defines)
		if err != nil {
			result.Warnings = append(result.Warnings,
				"define "+def.Name+": value is not a constant expression, ignored")
			continue
		}
		defines[def.Name] = v
	}
	return defines
}

func (g *Generator) loadUnits(loader *cparse.Loader, result *Result) ([]loadedUnit, error) {
	var units []loadedUnit
	for _, pair := range g.pol.Pairs() {
		unit, err := loader.Load(pair.Header)
		if err != nil {
			if g.opts.Tolerate {
				result.Warnings = append(result.Warnings, pair.Header+": "+err.Error())
				continue
			}
			var readErr *cparse.FileReadError
			if errors.As(err, &readErr) {
				return nil, &NotFoundError{Path: pair.Header}
			}
			return nil, err
		}
		if fatal := unit.Fatal(); fatal != nil {
			if g.opts.Tolerate {
				result.Warnings = append(result.Warnings, fatal.String())
				continue
			}
			return nil, &ParseFailedError{File: fatal.File, Message: fatal.Message}
		}
		for _, warning := range unit.Warnings() {
			result.Warnings = append(result.Warnings, warning.String())
		}
		units = append(units, loadedUnit{unit: unit, library: pair.Library})
	}
	return units, nil
}

// appendEnums formats the merged enums and macro constant groups after
// every unit has been walked: only then is each enum's member set
// complete. Each enum lands in its first-sighting library's section.
func (g *Generator) appendEnums(session *Session, blocks map[string]*Blocks, order *[]string) {
	merged := session.Enums.Emit()
	merged = append(merged, session.ConstantEnums()...)

	for _, enum := range merged {
		members := make([]render.EnumMember, 0, len(enum.Members))
		for _, m := range enum.Members {
			members = append(members, render.EnumMember{Name: m.Name, Value: m.Value})
		}
		formatted := render.FormatEnum(render.Enum{
			Name:       enum.Name,
			Underlying: enum.Underlying,
			Flags:      enum.Flags || session.Rules.FlagEnum(enum.Name),
			Members:    members,
			Visibility: g.pol.Visibility,
		})

		out, ok := blocks[enum.Library]
		if !ok {
			out = &Blocks{}
			blocks[enum.Library] = out
			*order = append(*order, enum.Library)
		}
		out.Enums = append(out.Enums, formatted)
	}
}

func (g *Generator) assemble(result *Result, blocks map[string]*Blocks, libraryOrder []string) {
	renames := g.pol.Rules.RenamePairs()

	var sections []render.LibrarySection
	for _, name := range libraryOrder {
		lib := g.pol.LibraryByName(name)
		out := blocks[name]
		sections = append(sections, render.LibrarySection{
			Library:    name,
			ClassName:  lib.ClassName,
			Visibility: g.pol.Visibility,
			Enums:      out.Enums,
			Records:    out.Records,
			Functions:  out.Functions,
		})
	}

	if !g.opts.MultiUnit {
		var usings []string
		seen := make(map[string]bool)
		for _, name := range libraryOrder {
			for _, u := range g.pol.LibraryByName(name).Usings {
				if !seen[u] {
					seen[u] = true
					usings = append(usings, u)
				}
			}
		}
		text := render.BuildUnit(render.UnitSpec{
			Namespace: g.mergedNamespace(libraryOrder),
			Usings:    usings,
			Sections:  sections,
		})
		result.Merged = render.ApplyFinalRenames(text, renames)
		return
	}

	for i, name := range libraryOrder {
		lib := g.pol.LibraryByName(name)
		text := render.BuildUnit(render.UnitSpec{
			Namespace: g.libraryNamespace(lib),
			Usings:    lib.Usings,
			Sections:  []render.LibrarySection{sections[i]},
		})
		fileName := name + ".cs"
		result.Units[fileName] = render.ApplyFinalRenames(text, renames)
		result.UnitOrder = append(result.UnitOrder, fileName)
	}
}

func (g *Generator) libraryNamespace(lib policy.Library) string {
	if lib.Namespace != "" {
		return lib.Namespace
	}
	if g.opts.Namespace != "" {
		return g.opts.Namespace
	}
	return policy.DefaultNamespace
}

// mergedNamespace picks the namespace for single-file output: the explicit
// option, else the first library with one, else the default.
func (g *Generator) mergedNamespace(libraryOrder []string) string {
	if g.opts.Namespace != "" {
		return g.opts.Namespace
	}
	for _, name := range libraryOrder {
		if ns := g.pol.LibraryByName(name).Namespace; ns != "" {
			return ns
		}
	}
	return policy.DefaultNamespace
}
