package gen

import (
	"testing"

	"github.com/hargabyte/bindgen/internal/cparse"
	"github.com/hargabyte/bindgen/internal/policy"
)

func newTestSession(t *testing.T, renames []policy.RenameRule, removals []policy.MatchRule) *Session {
	t.Helper()
	rules, err := policy.CompileRules(renames, removals, nil)
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}
	return NewSession(rules, GlobalKeys{})
}

func primitive(kind cparse.TypeKind, spelling string) cparse.Type {
	return cparse.Type{Kind: kind, Spelling: spelling}
}

func TestResolvePrimitives(t *testing.T) {
	r := NewResolver(newTestSession(t, nil, nil))

	tests := []struct {
		typ  cparse.Type
		want string
	}{
		{primitive(cparse.KindVoid, "void"), "void"},
		{primitive(cparse.KindBool, "bool"), "bool"},
		{primitive(cparse.KindCharS, "char"), "sbyte"},
		{primitive(cparse.KindUChar, "unsigned char"), "byte"},
		{primitive(cparse.KindShort, "short"), "short"},
		{primitive(cparse.KindInt, "int"), "int"},
		{primitive(cparse.KindUInt, "unsigned int"), "uint"},
		{primitive(cparse.KindLong, "long"), "int"},
		{primitive(cparse.KindULong, "unsigned long"), "uint"},
		{primitive(cparse.KindLongLong, "long long"), "long"},
		{primitive(cparse.KindULongLong, "unsigned long long"), "ulong"},
		{primitive(cparse.KindFloat, "float"), "float"},
		{primitive(cparse.KindDouble, "double"), "double"},
	}

	for _, tt := range tests {
		got, ok := r.Resolve(tt.typ, ResolveContext{})
		if !ok {
			t.Errorf("Resolve(%s) should succeed", tt.typ.Spelling)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%s) = %q, want %q", tt.typ.Spelling, got, tt.want)
		}
	}
}

func TestResolveBuiltinTypedefs(t *testing.T) {
	r := NewResolver(newTestSession(t, nil, nil))

	tests := []struct {
		name string
		want string
	}{
		{"size_t", "nuint"},
		{"intptr_t", "nint"},
		{"uint32_t", "uint"},
		{"int64_t", "long"},
	}
	for _, tt := range tests {
		typ := cparse.Type{Kind: cparse.KindTypedef, Spelling: tt.name, Name: tt.name}
		got, ok := r.Resolve(typ, ResolveContext{})
		if !ok || got != tt.want {
			t.Errorf("Resolve(%s) = %q ok=%v, want %q", tt.name, got, ok, tt.want)
		}
	}
}

func TestResolveCharPointerByPosition(t *testing.T) {
	r := NewResolver(newTestSession(t, nil, nil))
	charPtr := cparse.Pointer(primitive(cparse.KindCharS, "char"))

	got, ok := r.Resolve(charPtr, ResolveContext{})
	if !ok || got != "string" {
		t.Errorf("char* parameter should be string, got %q ok=%v", got, ok)
	}

	got, ok = r.Resolve(charPtr, ResolveContext{ReturnPosition: true})
	if !ok || got != "nuint" {
		t.Errorf("char* return should be nuint, got %q ok=%v", got, ok)
	}
}

func TestResolveDefinedRecordPointer(t *testing.T) {
	session := newTestSession(t, nil, nil)
	session.RegisterOpaque("Vector3", "Vector3")
	session.RecordDefs["Vector3"] = true
	session.PruneDefinedOpaques()
	r := NewResolver(session)

	typ := cparse.Type{Kind: cparse.KindTypedef, Spelling: "Vector3", Name: "Vector3"}
	got, ok := r.Resolve(cparse.Pointer(typ), ResolveContext{})
	if !ok || got != HandleType {
		t.Errorf("pointer to a defined record should be %s, got %q ok=%v", HandleType, got, ok)
	}
}

func TestPruneDefinedOpaquesMatchesTag(t *testing.T) {
	session := newTestSession(t, nil, nil)
	session.RegisterOpaque("Handle", "HandleTag")
	session.RegisterOpaque("Other", "OtherTag")
	session.RecordDefs["HandleTag"] = true
	session.PruneDefinedOpaques()

	if session.Opaque["Handle"] {
		t.Error("definition under the tag name should prune the typedef's opaque entry")
	}
	if !session.Opaque["Other"] {
		t.Error("undefined forward reference should stay opaque")
	}
}

func TestResolveVoidPointer(t *testing.T) {
	r := NewResolver(newTestSession(t, nil, nil))
	voidPtr := cparse.Pointer(primitive(cparse.KindVoid, "void"))

	got, ok := r.Resolve(voidPtr, ResolveContext{})
	if !ok || got != HandleType {
		t.Errorf("void* should be %s, got %q", HandleType, got)
	}
}

func TestResolveOpaquePointer(t *testing.T) {
	session := newTestSession(t, nil, nil)
	session.Opaque["SDL_Window"] = true
	r := NewResolver(session)

	opaque := cparse.Type{Kind: cparse.KindTypedef, Spelling: "SDL_Window", Name: "SDL_Window"}
	got, ok := r.Resolve(cparse.Pointer(opaque), ResolveContext{})
	if !ok || got != "SDL_Window*" {
		t.Errorf("opaque pointer should be typed, got %q ok=%v", got, ok)
	}

	unknown := cparse.Type{Kind: cparse.KindTypedef, Spelling: "Other", Name: "Other"}
	got, ok = r.Resolve(cparse.Pointer(unknown), ResolveContext{})
	if !ok || got != HandleType {
		t.Errorf("non-opaque pointer should degrade to %s, got %q", HandleType, got)
	}
}

func TestResolveOpaquePointerRenamed(t *testing.T) {
	session := newTestSession(t,
		[]policy.RenameRule{{From: "SDL_Window", To: "Window"}}, nil)
	session.Opaque["SDL_Window"] = true
	r := NewResolver(session)

	opaque := cparse.Type{Kind: cparse.KindTypedef, Spelling: "SDL_Window", Name: "SDL_Window"}
	got, ok := r.Resolve(cparse.Pointer(opaque), ResolveContext{})
	if !ok || got != "Window*" {
		t.Errorf("renamed opaque pointer should use the new name, got %q", got)
	}
}

func TestResolveTypedefExpansion(t *testing.T) {
	session := newTestSession(t, nil, nil)
	session.Typedefs["Uint32"] = primitive(cparse.KindUInt, "unsigned int")
	r := NewResolver(session)

	typ := cparse.Type{Kind: cparse.KindTypedef, Spelling: "Uint32", Name: "Uint32"}
	got, ok := r.Resolve(typ, ResolveContext{})
	if !ok || got != "uint" {
		t.Errorf("typedef should expand through the registry, got %q", got)
	}
}

func TestResolveTypedefChain(t *testing.T) {
	session := newTestSession(t, nil, nil)
	session.Typedefs["A"] = cparse.Type{Kind: cparse.KindTypedef, Spelling: "B", Name: "B"}
	session.Typedefs["B"] = primitive(cparse.KindInt, "int")
	r := NewResolver(session)

	typ := cparse.Type{Kind: cparse.KindTypedef, Spelling: "A", Name: "A"}
	got, ok := r.Resolve(typ, ResolveContext{})
	if !ok || got != "int" {
		t.Errorf("typedef chain should fully expand, got %q", got)
	}
}

func TestResolveSelfAliasTypedef(t *testing.T) {
	session := newTestSession(t, nil, nil)
	// typedef struct X X;
	session.Typedefs["X"] = cparse.Type{Kind: cparse.KindElaborated, Spelling: "struct X", Name: "X"}
	r := NewResolver(session)

	typ := cparse.Type{Kind: cparse.KindTypedef, Spelling: "X", Name: "X"}
	got, ok := r.Resolve(typ, ResolveContext{})
	if !ok || got != "X" {
		t.Errorf("self-aliasing typedef should resolve to its own name, got %q", got)
	}
}

func TestResolveRemovedTypePoisons(t *testing.T) {
	session := newTestSession(t, nil,
		[]policy.MatchRule{{Pattern: "Secret"}})
	r := NewResolver(session)

	typ := cparse.Type{Kind: cparse.KindRecord, Spelling: "Secret", Name: "Secret"}
	if _, ok := r.Resolve(typ, ResolveContext{}); ok {
		t.Error("a removed type should be unmappable")
	}
}

func TestResolveRemovedRenamedTargetPoisons(t *testing.T) {
	session := newTestSession(t,
		[]policy.RenameRule{{From: "Old", To: "Gone"}},
		[]policy.MatchRule{{Pattern: "Gone"}})
	r := NewResolver(session)

	typ := cparse.Type{Kind: cparse.KindRecord, Spelling: "Old", Name: "Old"}
	if _, ok := r.Resolve(typ, ResolveContext{}); ok {
		t.Error("a name renamed onto a removed name should be unmappable")
	}
}

func TestResolveUnmappableKinds(t *testing.T) {
	r := NewResolver(newTestSession(t, nil, nil))

	variadic := cparse.Type{Kind: cparse.KindVariadic, Spelling: "va_list"}
	if _, ok := r.Resolve(variadic, ResolveContext{}); ok {
		t.Error("va_list should be unmappable")
	}

	arr := cparse.Array(primitive(cparse.KindInt, "int"), 4)
	if _, ok := r.Resolve(arr, ResolveContext{}); ok {
		t.Error("a bare constant array should be unmappable")
	}
}

func TestResolveAnonymousEnumType(t *testing.T) {
	r := NewResolver(newTestSession(t, nil, nil))

	typ := cparse.Type{Kind: cparse.KindEnum, Spelling: "enum "}
	got, ok := r.Resolve(typ, ResolveContext{})
	if !ok || got != "int" {
		t.Errorf("anonymous enum type should be int, got %q", got)
	}
}
