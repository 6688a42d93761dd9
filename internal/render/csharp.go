// Package render formats resolved declaration records as C# source text.
// It is a pure function layer: everything it needs arrives in its inputs,
// and the same inputs always produce the same text.
package render

import (
	"fmt"
	"strings"
)

// RequiredUsings are prepended to every generated unit.
var RequiredUsings = []string{
	"using System.Runtime.InteropServices;",
	"using System.Runtime.InteropServices.Marshalling;",
}

// Param is one formatted function parameter.
type Param struct {
	Type string
	Name string
}

// Function describes one native import to format.
type Function struct {
	// Library is the native library name passed to LibraryImport.
	Library string
	// EntryPoint is the original C symbol; Name may differ after renames.
	EntryPoint string
	Name       string
	ReturnType string
	Params     []Param
	Visibility string
	// Utf8 requests automatic UTF-8 string marshalling for the import.
	Utf8 bool
}

// csharpKeywords need an @ escape when used as parameter names.
var csharpKeywords = map[string]bool{
	"base": true, "bool": true, "byte": true, "char": true, "class": true,
	"decimal": true, "default": true, "delegate": true, "double": true,
	"event": true, "fixed": true, "float": true, "in": true, "int": true,
	"internal": true, "lock": true, "long": true, "namespace": true,
	"new": true, "null": true, "object": true, "out": true, "params": true,
	"ref": true, "sbyte": true, "short": true, "string": true,
	"struct": true, "this": true, "uint": true, "ulong": true,
	"ushort": true, "void": true,
}

// FormatFunction renders one [LibraryImport] method block.
func FormatFunction(f Function) string {
	var params []string
	for i, p := range f.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("param%d", i)
		}
		if csharpKeywords[name] {
			name = "@" + name
		}
		params = append(params, p.Type+" "+name)
	}

	attr := fmt.Sprintf("[LibraryImport(%q, EntryPoint = %q", f.Library, f.EntryPoint)
	if f.Utf8 {
		attr += ", StringMarshalling = StringMarshalling.Utf8"
	}
	attr += ")]"

	var b strings.Builder
	fmt.Fprintf(&b, "    %s\n", attr)
	fmt.Fprintf(&b, "    %s static partial %s %s(%s);\n",
		f.Visibility, f.ReturnType, f.Name, strings.Join(params, ", "))
	return b.String()
}

// RecordField is one formatted struct or union member.
type RecordField struct {
	Type string
	Name string
}

// Record describes a struct or union to format.
type Record struct {
	Name       string
	Fields     []RecordField
	Visibility string
	// Union selects explicit layout with every field at offset zero,
	// matching C union semantics.
	Union bool
}

// FormatRecord renders a [StructLayout] struct block.
func FormatRecord(r Record) string {
	var b strings.Builder
	if r.Union {
		b.WriteString("[StructLayout(LayoutKind.Explicit)]\n")
	} else {
		b.WriteString("[StructLayout(LayoutKind.Sequential)]\n")
	}
	fmt.Fprintf(&b, "%s struct %s\n{\n", r.Visibility, r.Name)
	for _, f := range r.Fields {
		if r.Union {
			b.WriteString("    [FieldOffset(0)]\n")
		}
		fmt.Fprintf(&b, "    %s %s %s;\n", r.Visibility, f.Type, f.Name)
	}
	b.WriteString("}\n")
	return b.String()
}

// FormatOpaque renders the zero-field marker struct for an opaque handle
// type. The struct is partial so consumers can extend the handle with
// their own members.
func FormatOpaque(name, visibility string) string {
	return fmt.Sprintf("%s partial struct %s\n{\n}\n", visibility, name)
}

// EnumMember is one formatted enum member.
type EnumMember struct {
	Name  string
	Value int64
}

// Enum describes a merged enum to format.
type Enum struct {
	Name string
	// Underlying adds an explicit base clause when it differs from the
	// implicit int default.
	Underlying string
	Flags      bool
	Members    []EnumMember
	Visibility string
}

// FormatEnum renders one enum block.
func FormatEnum(e Enum) string {
	var b strings.Builder
	if e.Flags {
		b.WriteString("[Flags]\n")
	}
	decl := fmt.Sprintf("%s enum %s", e.Visibility, e.Name)
	if e.Underlying != "" && e.Underlying != "int" {
		decl += " : " + e.Underlying
	}
	b.WriteString(decl + "\n{\n")
	for _, m := range e.Members {
		fmt.Fprintf(&b, "    %s = %d,\n", m.Name, m.Value)
	}
	b.WriteString("}\n")
	return b.String()
}

// LibrarySection is one library's formatted declaration blocks.
type LibrarySection struct {
	Library    string
	ClassName  string
	Visibility string
	Enums      []string
	Records    []string
	Functions  []string
}

// UnitSpec is the input contract of the output assembler: per library,
// three ordered lists of already-formatted blocks, plus packaging.
type UnitSpec struct {
	Namespace string
	Usings    []string
	Sections  []LibrarySection
}

// BuildUnit assembles one output file from formatted blocks.
func BuildUnit(spec UnitSpec) string {
	var parts []string

	parts = append(parts, RequiredUsings...)
	for _, u := range spec.Usings {
		parts = append(parts, "using "+u+";")
	}
	parts = append(parts, "")

	namespace := spec.Namespace
	if namespace == "" {
		namespace = "Bindings"
	}
	parts = append(parts, "namespace "+namespace+";", "")

	for _, section := range spec.Sections {
		if len(section.Enums) > 0 {
			parts = append(parts, section.Enums...)
			parts = append(parts, "")
		}
		if len(section.Records) > 0 {
			parts = append(parts, section.Records...)
			parts = append(parts, "")
		}
		if len(section.Functions) > 0 {
			parts = append(parts, fmt.Sprintf("%s static partial class %s", section.Visibility, section.ClassName))
			parts = append(parts, "{")
			parts = append(parts, section.Functions...)
			parts = append(parts, "}")
			parts = append(parts, "")
		}
	}

	return strings.TrimRight(strings.Join(parts, "\n"), "\n") + "\n"
}
