package cparse

import "strings"

// TypeKind tags a syntactic C type descriptor.
type TypeKind int

const (
	KindInvalid TypeKind = iota
	KindVoid
	KindBool
	KindCharS
	KindUChar
	KindSChar
	KindShort
	KindUShort
	KindInt
	KindUInt
	KindLong
	KindULong
	KindLongLong
	KindULongLong
	KindFloat
	KindDouble
	KindPointer
	KindConstantArray
	KindTypedef
	KindRecord
	KindEnum
	KindElaborated
	KindVariadic
)

// Type is a syntactic C type descriptor. Pointer types carry a Pointee,
// constant arrays carry Elem and ArrayLen, named kinds (typedef, record,
// enum, elaborated) carry Name with the struct/union/enum keyword already
// stripped.
type Type struct {
	Kind     TypeKind
	Spelling string
	Name     string
	Pointee  *Type
	Elem     *Type
	ArrayLen int
	// RecordKind is "struct" or "union" for record and elaborated kinds.
	RecordKind string
}

// IsPrimitive reports whether the kind is a directly mappable scalar.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindVoid, KindBool, KindCharS, KindUChar, KindSChar,
		KindShort, KindUShort, KindInt, KindUInt,
		KindLong, KindULong, KindLongLong, KindULongLong,
		KindFloat, KindDouble:
		return true
	}
	return false
}

// primitiveKinds maps normalized C type spellings to kinds. Qualifiers are
// stripped before lookup.
var primitiveKinds = map[string]TypeKind{
	"void":                   KindVoid,
	"bool":                   KindBool,
	"_Bool":                  KindBool,
	"char":                   KindCharS,
	"signed char":            KindSChar,
	"unsigned char":          KindUChar,
	"short":                  KindShort,
	"short int":              KindShort,
	"signed short":           KindShort,
	"signed short int":       KindShort,
	"unsigned short":         KindUShort,
	"unsigned short int":     KindUShort,
	"int":                    KindInt,
	"signed":                 KindInt,
	"signed int":             KindInt,
	"unsigned":               KindUInt,
	"unsigned int":           KindUInt,
	"long":                   KindLong,
	"long int":               KindLong,
	"signed long":            KindLong,
	"signed long int":        KindLong,
	"unsigned long":          KindULong,
	"unsigned long int":      KindULong,
	"long long":              KindLongLong,
	"long long int":          KindLongLong,
	"signed long long":       KindLongLong,
	"signed long long int":   KindLongLong,
	"unsigned long long":     KindULongLong,
	"unsigned long long int": KindULongLong,
	"float":                  KindFloat,
	"double":                 KindDouble,
}

// typeQualifiers are dropped when normalizing a base type spelling.
var typeQualifiers = map[string]bool{
	"const":    true,
	"volatile": true,
	"restrict": true,
	"_Atomic":  true,
}

// normalizeSpelling strips qualifiers and collapses whitespace.
func normalizeSpelling(spelling string) string {
	parts := strings.Fields(spelling)
	kept := parts[:0]
	for _, p := range parts {
		if !typeQualifiers[p] {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// baseTypeFromSpelling classifies a declaration's base type text into a
// descriptor. Struct/union/enum spellings become elaborated or enum kinds;
// a bare identifier becomes a typedef reference to be resolved later against
// the typedef registry.
func baseTypeFromSpelling(spelling string) Type {
	norm := normalizeSpelling(spelling)
	if norm == "" {
		return Type{Kind: KindInvalid, Spelling: spelling}
	}
	if kind, ok := primitiveKinds[norm]; ok {
		return Type{Kind: kind, Spelling: norm}
	}
	if name, ok := strings.CutPrefix(norm, "struct "); ok {
		return Type{Kind: KindElaborated, Spelling: norm, Name: name, RecordKind: "struct"}
	}
	if name, ok := strings.CutPrefix(norm, "union "); ok {
		return Type{Kind: KindElaborated, Spelling: norm, Name: name, RecordKind: "union"}
	}
	if name, ok := strings.CutPrefix(norm, "enum "); ok {
		return Type{Kind: KindEnum, Spelling: norm, Name: name}
	}
	if norm == "va_list" || norm == "__builtin_va_list" {
		return Type{Kind: KindVariadic, Spelling: norm, Name: norm}
	}
	return Type{Kind: KindTypedef, Spelling: norm, Name: norm}
}

// Pointer wraps a descriptor one pointer level deep.
func Pointer(pointee Type) Type {
	p := pointee
	return Type{Kind: KindPointer, Spelling: pointee.Spelling + " *", Pointee: &p}
}

// Array wraps a descriptor as a constant-size array.
func Array(elem Type, length int) Type {
	e := elem
	return Type{Kind: KindConstantArray, Spelling: elem.Spelling + " []", Elem: &e, ArrayLen: length}
}
