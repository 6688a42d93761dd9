package gen

import (
	"fmt"

	"github.com/hargabyte/bindgen/internal/cparse"
	"github.com/hargabyte/bindgen/internal/policy"
	"github.com/hargabyte/bindgen/internal/render"
)

// Blocks collects the formatted declaration blocks of one library, in the
// order the walker accepted them.
type Blocks struct {
	Enums     []string
	Records   []string
	Functions []string
}

// Walker traverses a translation unit's declarations twice: a pre-scan
// pass that populates the typedef registry, record definition set, opaque
// type set, and macro values ahead of any type resolution, then a main
// pass that filters, deduplicates, resolves, and emits.
type Walker struct {
	session    *Session
	resolver   *Resolver
	visibility string
	constants  []policy.ConstantGroup
}

// NewWalker creates a walker bound to one generation session.
func NewWalker(session *Session, visibility string, constants []policy.ConstantGroup) *Walker {
	return &Walker{
		session:    session,
		resolver:   NewResolver(session),
		visibility: visibility,
		constants:  constants,
	}
}

// PreScan registers typedefs, record definitions, opaque candidates, and
// macro values from every file of the unit, system headers included.
// Registering everything up front keeps pointer typing independent of
// declaration order across files.
func (w *Walker) PreScan(unit *cparse.Unit) {
	for _, file := range unit.Files {
		for i := range file.Decls {
			decl := &file.Decls[i]
			switch decl.Kind {
			case cparse.DeclTypedef:
				w.preScanTypedef(decl)
			case cparse.DeclStruct, cparse.DeclUnion:
				if decl.IsDefinition && decl.Name != "" {
					w.session.RecordDefs[decl.Name] = true
				}
			case cparse.DeclMacro:
				if decl.Value == "" {
					continue
				}
				if v, err := cparse.EvalConstExpr(decl.Value, w.session.MacroValues); err == nil {
					w.session.MacroValues[decl.Name] = v
				}
			}
		}
	}
}

func (w *Walker) preScanTypedef(decl *cparse.Decl) {
	if decl.Underlying == nil {
		return
	}
	w.session.Typedefs[decl.Name] = *decl.Underlying

	// A typedef to a record forward reference is an opaque handle
	// candidate. A removed name must not come back as a typed pointer
	// through someone else's parameter, so removal suppresses the
	// registration itself.
	if decl.Underlying.Kind != cparse.KindElaborated {
		return
	}
	if w.removed(decl.Name) || w.removed(decl.Underlying.Name) {
		return
	}
	w.session.RegisterOpaque(decl.Name, decl.Underlying.Name)
}

// Walk performs the main pass over one unit for one library, appending
// accepted declarations to out. Enums and macro constants go to the
// session's accumulators instead; they are emitted after all units.
func (w *Walker) Walk(unit *cparse.Unit, library string, out *Blocks) {
	for _, file := range unit.Files {
		// System and out-of-depth files are traversed for registration
		// (already done in the pre-scan) but never emitted.
		eligible := !file.System && w.session.Allowed[file.Path]
		if !eligible {
			continue
		}
		for i := range file.Decls {
			decl := &file.Decls[i]
			switch decl.Kind {
			case cparse.DeclFunction:
				w.walkFunction(decl, library, out)
			case cparse.DeclStruct, cparse.DeclUnion:
				w.walkRecord(decl, library, out)
			case cparse.DeclEnum:
				w.walkEnum(decl, library)
			case cparse.DeclTypedef:
				w.walkTypedef(decl, library, out)
			case cparse.DeclMacro:
				w.walkMacro(decl, library)
			}
		}
	}
}

func (w *Walker) walkFunction(decl *cparse.Decl, library string, out *Blocks) {
	if decl.Variadic {
		// No safe interop representation for varargs.
		return
	}
	if w.removed(decl.Name) {
		return
	}
	if !w.session.Symbols.ShouldEmitFunction(decl.Name, library) {
		return
	}

	returnType, ok := w.resolver.Resolve(decl.Result, ResolveContext{ReturnPosition: true})
	if !ok {
		return
	}

	var params []render.Param
	utf8 := false
	for _, p := range decl.Params {
		paramType, ok := w.resolver.Resolve(p.Type, ResolveContext{})
		if !ok {
			// One unmappable parameter drops the whole function; a
			// partially wrong signature must never be emitted.
			return
		}
		if paramType == "string" {
			utf8 = true
		}
		params = append(params, render.Param{Type: paramType, Name: p.Name})
	}

	w.session.Symbols.MarkFunction(decl.Name, library)
	out.Functions = append(out.Functions, render.FormatFunction(render.Function{
		Library:    library,
		EntryPoint: decl.Name,
		Name:       w.session.Rules.Rename(decl.Name),
		ReturnType: returnType,
		Params:     params,
		Visibility: w.visibility,
		Utf8:       utf8,
	}))
}

func (w *Walker) walkRecord(decl *cparse.Decl, library string, out *Blocks) {
	if !decl.IsDefinition || decl.Name == "" {
		return
	}
	if w.removed(decl.Name) {
		return
	}
	if !w.session.Symbols.ShouldEmitRecord(decl.Name, decl.File, decl.Line, library) {
		return
	}

	var fields []render.RecordField
	for _, field := range decl.Fields {
		fields = append(fields, w.resolveField(field)...)
	}
	if len(fields) == 0 {
		return
	}

	w.session.Symbols.MarkRecord(decl.Name, decl.File, decl.Line, library)
	out.Records = append(out.Records, render.FormatRecord(render.Record{
		Name:       w.session.Rules.Rename(decl.Name),
		Fields:     fields,
		Visibility: w.visibility,
		Union:      decl.Kind == cparse.DeclUnion,
	}))
}

// resolveField maps one C field to zero or more C# fields. Constant-array
// fields unroll into individually numbered scalars when the element type
// is mappable: N consecutive scalars occupy the same bytes as the C array
// under sequential layout. Unmappable or unnamed fields are skipped.
func (w *Walker) resolveField(field cparse.Field) []render.RecordField {
	if field.Name == "" {
		return nil
	}

	if field.Type.Kind == cparse.KindConstantArray {
		if field.Type.ArrayLen <= 0 {
			return nil
		}
		elemType, ok := w.resolver.Resolve(*field.Type.Elem, ResolveContext{})
		if !ok {
			return nil
		}
		fields := make([]render.RecordField, 0, field.Type.ArrayLen)
		for i := 0; i < field.Type.ArrayLen; i++ {
			fields = append(fields, render.RecordField{
				Type: elemType,
				Name: fmt.Sprintf("%s%d", field.Name, i),
			})
		}
		return fields
	}

	fieldType, ok := w.resolver.Resolve(field.Type, ResolveContext{})
	if !ok {
		return nil
	}
	return []render.RecordField{{Type: fieldType, Name: field.Name}}
}

func (w *Walker) walkEnum(decl *cparse.Decl, library string) {
	if !decl.IsDefinition {
		return
	}
	name := decl.Name
	if name != "" {
		if w.removed(name) {
			return
		}
		name = w.session.Rules.Rename(name)
	}

	underlying := ""
	if decl.Underlying != nil {
		if resolved, ok := w.resolver.Resolve(*decl.Underlying, ResolveContext{}); ok {
			underlying = resolved
		}
	}

	w.session.Enums.Accumulate(name, decl.Enumerators, underlying, library)
}

// walkTypedef emits the zero-field opaque marker for a forward-declared
// record typedef, unless the record's full definition was or will be
// emitted separately.
func (w *Walker) walkTypedef(decl *cparse.Decl, library string, out *Blocks) {
	if decl.Underlying == nil || decl.Underlying.Kind != cparse.KindElaborated {
		return
	}
	if w.removed(decl.Name) || w.removed(decl.Underlying.Name) {
		return
	}
	if w.session.RecordDefs[decl.Name] || w.session.RecordDefs[decl.Underlying.Name] {
		return
	}
	if !w.session.Symbols.ShouldEmitRecord(decl.Name, decl.File, decl.Line, library) {
		return
	}

	w.session.Symbols.MarkRecord(decl.Name, decl.File, decl.Line, library)
	out.Records = append(out.Records, render.FormatOpaque(
		w.session.Rules.Rename(decl.Name), w.visibility))
}

func (w *Walker) walkMacro(decl *cparse.Decl, library string) {
	if len(w.constants) == 0 {
		return
	}
	value, ok := w.session.MacroValues[decl.Name]
	if !ok {
		return
	}
	for _, group := range w.constants {
		if group.Match(decl.Name) {
			w.session.AccumulateConstant(group, library, decl.Name, value)
		}
	}
}

// removed tests both the original and the renamed spelling against the
// removal patterns; removal wins over rename.
func (w *Walker) removed(name string) bool {
	if name == "" {
		return false
	}
	if w.session.Rules.Removed(name) {
		return true
	}
	return w.session.Rules.Removed(w.session.Rules.Rename(name))
}
