package gen

import "github.com/hargabyte/bindgen/internal/cparse"

// HandleType is the generic native-sized integer handle used for pointers
// with no safer representation.
const HandleType = "nint"

// ResolveContext carries the position of the type being resolved. Return
// values need different string handling than parameters: a char* returned
// by the callee has no safe marshalled lifetime, so it stays a raw handle.
type ResolveContext struct {
	ReturnPosition bool
}

// Resolver converts C type descriptors into C# type names. Resolution
// reads the session's typedef registry and opaque type set but never
// writes them: given fixed registry state it is referentially transparent.
type Resolver struct {
	session *Session
}

// NewResolver creates a resolver over the session's registries.
func NewResolver(session *Session) *Resolver {
	return &Resolver{session: session}
}

// primitiveNames maps scalar C kinds to C# type names.
var primitiveNames = map[cparse.TypeKind]string{
	cparse.KindVoid:      "void",
	cparse.KindBool:      "bool",
	cparse.KindCharS:     "sbyte",
	cparse.KindSChar:     "sbyte",
	cparse.KindUChar:     "byte",
	cparse.KindShort:     "short",
	cparse.KindUShort:    "ushort",
	cparse.KindInt:       "int",
	cparse.KindUInt:      "uint",
	cparse.KindLong:      "int",
	cparse.KindULong:     "uint",
	cparse.KindLongLong:  "long",
	cparse.KindULongLong: "ulong",
	cparse.KindFloat:     "float",
	cparse.KindDouble:    "double",
}

// builtinTypedefs maps well-known C typedef names directly to C# types.
// These take priority over canonical expansion: expanding size_t down to
// its platform integer would erase the pointer-width semantics the alias
// exists to express.
var builtinTypedefs = map[string]string{
	"size_t":    "nuint",
	"ssize_t":   "nint",
	"uintptr_t": "nuint",
	"intptr_t":  "nint",
	"ptrdiff_t": "nint",
	"int8_t":    "sbyte",
	"uint8_t":   "byte",
	"int16_t":   "short",
	"uint16_t":  "ushort",
	"int32_t":   "int",
	"uint32_t":  "uint",
	"int64_t":   "long",
	"uint64_t":  "ulong",
}

// Resolve maps a C type descriptor to a C# type name. ok is false when the
// type has no safe interop representation; the caller must then drop the
// enclosing declaration rather than emit a partial signature.
func (r *Resolver) Resolve(t cparse.Type, ctx ResolveContext) (name string, ok bool) {
	return r.resolve(t, ctx, 0)
}

// maxTypedefDepth bounds typedef chain expansion so malformed self-
// referential registries cannot recurse forever.
const maxTypedefDepth = 32

func (r *Resolver) resolve(t cparse.Type, ctx ResolveContext, depth int) (string, bool) {
	if depth > maxTypedefDepth {
		return "", false
	}

	switch t.Kind {
	case cparse.KindVariadic:
		// va_list has no representation at an interop boundary.
		return "", false

	case cparse.KindConstantArray:
		// No generic marshalling strategy for fixed-size arrays; struct
		// fields special-case these before resolving.
		return "", false

	case cparse.KindPointer:
		return r.resolvePointer(*t.Pointee, ctx)

	case cparse.KindElaborated:
		if t.Name == "" {
			return HandleType, true
		}
		return r.namedType(t.Name)

	case cparse.KindTypedef:
		if mapped, ok := builtinTypedefs[t.Name]; ok {
			return mapped, true
		}
		if r.session.Rules.Removed(t.Name) {
			return "", false
		}
		if underlying, ok := r.session.Typedefs[t.Name]; ok {
			if sameTypedef(underlying, t.Name) {
				// Self-referential alias such as typedef struct X X.
				return r.namedType(t.Name)
			}
			return r.resolve(underlying, ctx, depth+1)
		}
		if r.session.Opaque[t.Name] || r.session.RecordDefs[t.Name] {
			return r.namedType(t.Name)
		}
		// Unknown alias: keep the spelling and let the post-render pass
		// catch any renames.
		return r.namedType(t.Name)

	case cparse.KindEnum:
		if t.Name == "" {
			return "int", true
		}
		return r.namedType(t.Name)

	case cparse.KindRecord:
		return r.namedType(t.Name)

	case cparse.KindInvalid:
		if t.Spelling != "" {
			return t.Spelling, true
		}
		return HandleType, true
	}

	if mapped, ok := primitiveNames[t.Kind]; ok {
		return mapped, true
	}
	if t.Spelling != "" {
		return t.Spelling, true
	}
	return HandleType, true
}

// resolvePointer applies the pointee-kind dispatch of the pointer rules.
func (r *Resolver) resolvePointer(pointee cparse.Type, ctx ResolveContext) (string, bool) {
	switch pointee.Kind {
	case cparse.KindCharS:
		if ctx.ReturnPosition {
			// The callee owns the buffer; hand back a raw address.
			return "nuint", true
		}
		return "string", true

	case cparse.KindVoid:
		return HandleType, true

	case cparse.KindRecord, cparse.KindElaborated, cparse.KindTypedef:
		if name := r.opaquePointerName(pointee); name != "" {
			return name + "*", true
		}
		return HandleType, true
	}

	// Pointers to scalars, pointers to pointers, anything else: a generic
	// handle is the only safe default.
	return HandleType, true
}

// opaquePointerName returns the renamed target name when the pointee is a
// registered opaque type, or "" when the pointer must degrade to a handle.
// A removed name never comes back as a typed pointer: removal suppresses
// opaque registration in the first place, but the rename set may still be
// checked here for renamed spellings.
func (r *Resolver) opaquePointerName(pointee cparse.Type) string {
	name := pointee.Name
	if name == "" {
		return ""
	}
	if !r.session.Opaque[name] {
		return ""
	}
	return r.session.Rules.Rename(name)
}

// namedType resolves a record or enum name, applying removal and rename
// rules. A removed name poisons the enclosing declaration.
func (r *Resolver) namedType(name string) (string, bool) {
	if r.session.Rules.Removed(name) {
		return "", false
	}
	renamed := r.session.Rules.Rename(name)
	if r.session.Rules.Removed(renamed) {
		return "", false
	}
	return renamed, true
}

// sameTypedef reports whether an underlying descriptor aliases its own
// typedef name, as in typedef struct X X.
func sameTypedef(underlying cparse.Type, name string) bool {
	switch underlying.Kind {
	case cparse.KindElaborated, cparse.KindRecord, cparse.KindEnum, cparse.KindTypedef:
		return underlying.Name == name
	}
	return false
}
