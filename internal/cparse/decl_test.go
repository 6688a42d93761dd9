package cparse

import (
	"testing"
)

func parseCCode(t *testing.T, code string) *ParseResult {
	t.Helper()
	p := NewParser()
	t.Cleanup(p.Close)

	result, err := p.Parse([]byte(code))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	t.Cleanup(result.Close)
	return result
}

func extractCCode(t *testing.T, code string) []Decl {
	t.Helper()
	result := parseCCode(t, code)
	ext := NewExtractor(result, nil)
	return ext.ExtractAll()
}

func declsOfKind(decls []Decl, kind DeclKind) []Decl {
	var out []Decl
	for _, d := range decls {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func TestExtractFunctionPrototype(t *testing.T) {
	decls := extractCCode(t, `int SDL_Init(unsigned int flags);`)

	funcs := declsOfKind(decls, DeclFunction)
	if len(funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(funcs))
	}

	fn := funcs[0]
	if fn.Name != "SDL_Init" {
		t.Errorf("expected name 'SDL_Init', got %q", fn.Name)
	}
	if fn.IsDefinition {
		t.Error("prototype should not be a definition")
	}
	if fn.Result.Kind != KindInt {
		t.Errorf("expected int return, got %v", fn.Result.Kind)
	}
	if len(fn.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(fn.Params))
	}
	if fn.Params[0].Name != "flags" || fn.Params[0].Type.Kind != KindUInt {
		t.Errorf("param 0: expected flags:unsigned int, got %s:%v",
			fn.Params[0].Name, fn.Params[0].Type.Kind)
	}
}

func TestExtractFunctionPointerReturn(t *testing.T) {
	decls := extractCCode(t, `const char *SDL_GetError(void);`)

	funcs := declsOfKind(decls, DeclFunction)
	if len(funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(funcs))
	}

	fn := funcs[0]
	if fn.Name != "SDL_GetError" {
		t.Errorf("expected name 'SDL_GetError', got %q", fn.Name)
	}
	if fn.Result.Kind != KindPointer {
		t.Fatalf("expected pointer return, got %v", fn.Result.Kind)
	}
	if fn.Result.Pointee.Kind != KindCharS {
		t.Errorf("expected char pointee, got %v", fn.Result.Pointee.Kind)
	}
	if len(fn.Params) != 0 {
		t.Errorf("(void) parameter list should yield no params, got %d", len(fn.Params))
	}
}

func TestExtractVariadicFunction(t *testing.T) {
	decls := extractCCode(t, `void SDL_Log(const char *fmt, ...);`)

	funcs := declsOfKind(decls, DeclFunction)
	if len(funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(funcs))
	}
	if !funcs[0].Variadic {
		t.Error("expected variadic function")
	}
	if len(funcs[0].Params) != 1 {
		t.Errorf("expected 1 named param, got %d", len(funcs[0].Params))
	}
}

func TestExtractStructDefinition(t *testing.T) {
	decls := extractCCode(t, `
struct Point {
    int x;
    int y;
    float *weights;
    char name[16];
};`)

	records := declsOfKind(decls, DeclStruct)
	if len(records) != 1 {
		t.Fatalf("expected 1 struct, got %d", len(records))
	}

	s := records[0]
	if s.Name != "Point" {
		t.Errorf("expected name 'Point', got %q", s.Name)
	}
	if !s.IsDefinition {
		t.Error("expected a definition")
	}
	if len(s.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(s.Fields))
	}
	if s.Fields[2].Name != "weights" || s.Fields[2].Type.Kind != KindPointer {
		t.Errorf("field 2: expected weights pointer, got %s:%v",
			s.Fields[2].Name, s.Fields[2].Type.Kind)
	}
	arr := s.Fields[3]
	if arr.Name != "name" || arr.Type.Kind != KindConstantArray || arr.Type.ArrayLen != 16 {
		t.Errorf("field 3: expected name[16], got %s kind=%v len=%d",
			arr.Name, arr.Type.Kind, arr.Type.ArrayLen)
	}
}

func TestStructReferenceIsNotExtracted(t *testing.T) {
	decls := extractCCode(t, `void Use(struct Widget *w);`)

	if got := len(declsOfKind(decls, DeclStruct)); got != 0 {
		t.Errorf("reference-only struct specifier should not extract, got %d", got)
	}
}

func TestBitfieldsSkipped(t *testing.T) {
	decls := extractCCode(t, `
struct Flags {
    unsigned int a : 1;
    int normal;
};`)

	records := declsOfKind(decls, DeclStruct)
	if len(records) != 1 {
		t.Fatalf("expected 1 struct, got %d", len(records))
	}
	if len(records[0].Fields) != 1 || records[0].Fields[0].Name != "normal" {
		t.Errorf("expected only 'normal' field, got %+v", records[0].Fields)
	}
}

func TestFunctionPointerField(t *testing.T) {
	decls := extractCCode(t, `
struct Callbacks {
    void (*on_event)(int code);
};`)

	records := declsOfKind(decls, DeclStruct)
	if len(records) != 1 {
		t.Fatalf("expected 1 struct, got %d", len(records))
	}
	fields := records[0].Fields
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Name != "on_event" {
		t.Errorf("expected field 'on_event', got %q", fields[0].Name)
	}
	if fields[0].Type.Kind != KindPointer || fields[0].Type.Pointee.Kind != KindVoid {
		t.Errorf("function pointer should extract as void pointer, got %+v", fields[0].Type)
	}
}

func TestExtractUnion(t *testing.T) {
	decls := extractCCode(t, `
union Value {
    int i;
    double d;
};`)

	unions := declsOfKind(decls, DeclUnion)
	if len(unions) != 1 {
		t.Fatalf("expected 1 union, got %d", len(unions))
	}
	if unions[0].Name != "Value" || len(unions[0].Fields) != 2 {
		t.Errorf("expected Value with 2 fields, got %s with %d", unions[0].Name, len(unions[0].Fields))
	}
}

func TestExtractEnumValues(t *testing.T) {
	decls := extractCCode(t, `
enum Mode {
    MODE_OFF,
    MODE_ON = 5,
    MODE_AUTO,
    MODE_MASK = (1 << 3) | 1,
    MODE_ALIAS = MODE_ON
};`)

	enums := declsOfKind(decls, DeclEnum)
	if len(enums) != 1 {
		t.Fatalf("expected 1 enum, got %d", len(enums))
	}

	want := []Enumerator{
		{Name: "MODE_OFF", Value: 0},
		{Name: "MODE_ON", Value: 5},
		{Name: "MODE_AUTO", Value: 6},
		{Name: "MODE_MASK", Value: 9},
		{Name: "MODE_ALIAS", Value: 5},
	}
	got := enums[0].Enumerators
	if len(got) != len(want) {
		t.Fatalf("expected %d enumerators, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("enumerator %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestEnumUnevaluableValueWarns(t *testing.T) {
	result := parseCCode(t, `
enum Bad {
    FIRST = 2,
    BROKEN = sizeof(int),
    AFTER
};`)
	ext := NewExtractor(result, nil)
	decls := ext.ExtractAll()

	enums := declsOfKind(decls, DeclEnum)
	if len(enums) != 1 {
		t.Fatalf("expected 1 enum, got %d", len(enums))
	}
	if len(ext.Warnings()) == 0 {
		t.Error("expected a warning for the unevaluable enumerator")
	}

	// The broken value falls back to previous+1 and numbering continues.
	got := enums[0].Enumerators
	if got[1].Value != 3 {
		t.Errorf("expected fallback value 3 for BROKEN, got %d", got[1].Value)
	}
	if got[2].Value != 4 {
		t.Errorf("expected AFTER to be 4, got %d", got[2].Value)
	}
}

func TestEnumWithDefinesEnvironment(t *testing.T) {
	result := parseCCode(t, `
enum Sized {
    LIMIT = MAX_ITEMS
};`)
	ext := NewExtractor(result, map[string]int64{"MAX_ITEMS": 64})
	decls := ext.ExtractAll()

	enums := declsOfKind(decls, DeclEnum)
	if len(enums) != 1 {
		t.Fatalf("expected 1 enum, got %d", len(enums))
	}
	if enums[0].Enumerators[0].Value != 64 {
		t.Errorf("expected LIMIT=64 from defines, got %d", enums[0].Enumerators[0].Value)
	}
}

func TestTypedefInlineStruct(t *testing.T) {
	decls := extractCCode(t, `
typedef struct {
    int x;
} Point;`)

	records := declsOfKind(decls, DeclStruct)
	if len(records) != 1 || records[0].Name != "Point" {
		t.Fatalf("expected anonymous struct named by typedef, got %+v", records)
	}

	typedefs := declsOfKind(decls, DeclTypedef)
	if len(typedefs) != 1 {
		t.Fatalf("expected 1 typedef, got %d", len(typedefs))
	}
	td := typedefs[0]
	if td.Name != "Point" || td.Underlying.Kind != KindRecord || td.Underlying.Name != "Point" {
		t.Errorf("typedef should alias the named record, got %+v", td)
	}
}

func TestTypedefForwardReference(t *testing.T) {
	decls := extractCCode(t, `typedef struct SDL_Window SDL_Window;`)

	if got := len(declsOfKind(decls, DeclStruct)); got != 0 {
		t.Errorf("forward reference should not produce a record, got %d", got)
	}

	typedefs := declsOfKind(decls, DeclTypedef)
	if len(typedefs) != 1 {
		t.Fatalf("expected 1 typedef, got %d", len(typedefs))
	}
	td := typedefs[0]
	if td.Name != "SDL_Window" {
		t.Errorf("expected typedef name 'SDL_Window', got %q", td.Name)
	}
	if td.Underlying.Kind != KindElaborated || td.Underlying.Name != "SDL_Window" {
		t.Errorf("expected elaborated underlying, got %+v", td.Underlying)
	}
}

func TestTypedefScalar(t *testing.T) {
	decls := extractCCode(t, `typedef unsigned int Uint32;`)

	typedefs := declsOfKind(decls, DeclTypedef)
	if len(typedefs) != 1 {
		t.Fatalf("expected 1 typedef, got %d", len(typedefs))
	}
	td := typedefs[0]
	if td.Name != "Uint32" || td.Underlying.Kind != KindUInt {
		t.Errorf("expected Uint32 -> unsigned int, got %s -> %v", td.Name, td.Underlying.Kind)
	}
}

func TestExtractMacro(t *testing.T) {
	decls := extractCCode(t, `
#define VERSION_MAJOR 2
#define GREETING "hi"
#define BARE
`)

	macros := declsOfKind(decls, DeclMacro)
	if len(macros) != 3 {
		t.Fatalf("expected 3 macros, got %d", len(macros))
	}
	if macros[0].Name != "VERSION_MAJOR" || macros[0].Value != "2" {
		t.Errorf("macro 0: expected VERSION_MAJOR=2, got %s=%q", macros[0].Name, macros[0].Value)
	}
	if macros[2].Name != "BARE" || macros[2].Value != "" {
		t.Errorf("macro 2: expected bare BARE, got %s=%q", macros[2].Name, macros[2].Value)
	}
}

func TestDeclLineNumbers(t *testing.T) {
	decls := extractCCode(t, "int first(void);\nint second(void);\n")

	funcs := declsOfKind(decls, DeclFunction)
	if len(funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(funcs))
	}
	if funcs[0].Line != 1 || funcs[1].Line != 2 {
		t.Errorf("expected lines 1 and 2, got %d and %d", funcs[0].Line, funcs[1].Line)
	}
}
