package cparse

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// DeclKind tags a declaration record.
type DeclKind int

const (
	DeclFunction DeclKind = iota
	DeclStruct
	DeclUnion
	DeclEnum
	DeclTypedef
	DeclMacro
)

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
}

// Field is a struct or union member.
type Field struct {
	Name string
	Type Type
}

// Enumerator is an enum member with its evaluated value.
type Enumerator struct {
	Name  string
	Value int64
}

// Decl is one C declaration extracted from a parsed file.
type Decl struct {
	Kind         DeclKind
	Name         string
	File         string
	Line         uint32
	IsDefinition bool
	Variadic     bool
	Result       Type
	Params       []Param
	Fields       []Field
	Enumerators  []Enumerator
	// Underlying is the typedef target, or the explicit enum underlying type.
	Underlying *Type
	// Value is the raw replacement text of an object-like macro.
	Value string
}

// Extractor turns a parsed C file into an ordered list of declaration
// records. Defines supplies predefined identifiers for constant-expression
// evaluation of enumerator values.
type Extractor struct {
	result   *ParseResult
	defines  map[string]int64
	warnings []Diagnostic
}

// NewExtractor creates an extractor for the given parse result.
func NewExtractor(result *ParseResult, defines map[string]int64) *Extractor {
	return &Extractor{result: result, defines: defines}
}

// Warnings returns diagnostics accumulated during extraction.
func (e *Extractor) Warnings() []Diagnostic {
	return e.warnings
}

// ExtractAll walks the file and returns its declarations in source order.
func (e *Extractor) ExtractAll() []Decl {
	var decls []Decl
	e.visit(e.result.Root, &decls)
	return decls
}

func (e *Extractor) visit(node *sitter.Node, decls *[]Decl) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "type_definition":
		e.extractTypedef(node, decls)
		return
	case "declaration", "function_definition":
		if decl := e.extractFunction(node); decl != nil {
			*decls = append(*decls, *decl)
			return
		}
		// Not a function; a record or enum definition may hide inside.
	case "struct_specifier", "union_specifier":
		if decl := e.extractRecord(node, ""); decl != nil {
			*decls = append(*decls, *decl)
		}
		// Recurse into the body for nested record definitions.
	case "enum_specifier":
		if decl := e.extractEnum(node, ""); decl != nil {
			*decls = append(*decls, *decl)
		}
		return
	case "preproc_def":
		if decl := e.extractMacro(node); decl != nil {
			*decls = append(*decls, *decl)
		}
		return
	}

	for i := uint32(0); i < node.ChildCount(); i++ {
		e.visit(node.Child(int(i)), decls)
	}
}

// extractFunction extracts a function prototype or definition.
// Returns nil if the node does not declare a function.
func (e *Extractor) extractFunction(node *sitter.Node) *Decl {
	declarator := findFunctionDeclarator(node)
	if declarator == nil {
		return nil
	}

	name := e.declaredName(declarator)
	if name == "" {
		return nil
	}

	result := e.baseType(node)
	// Pointer return types wrap the declarator chain outside the
	// function_declarator.
	outer := node.ChildByFieldName("declarator")
	for outer != nil && isPointerDeclarator(outer) {
		result = Pointer(result)
		outer = declaratorChild(outer)
	}

	params, variadic := e.extractParameters(declarator)

	return &Decl{
		Kind:         DeclFunction,
		Name:         name,
		File:         e.result.FilePath,
		Line:         getLine(node),
		IsDefinition: node.Type() == "function_definition",
		Variadic:     variadic,
		Result:       result,
		Params:       params,
	}
}

// extractRecord extracts a struct or union definition. Reference-only
// specifiers (no field list) yield nil. fallbackName names anonymous
// records defined inside a typedef.
func (e *Extractor) extractRecord(node *sitter.Node, fallbackName string) *Decl {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	name := e.nodeFieldText(node, "name")
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil
	}

	kind := DeclStruct
	if node.Type() == "union_specifier" {
		kind = DeclUnion
	}

	return &Decl{
		Kind:         kind,
		Name:         name,
		File:         e.result.FilePath,
		Line:         getLine(node),
		IsDefinition: true,
		Fields:       e.extractFields(body),
	}
}

// extractEnum extracts an enum definition with evaluated member values.
func (e *Extractor) extractEnum(node *sitter.Node, fallbackName string) *Decl {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	name := e.nodeFieldText(node, "name")
	if name == "" {
		name = fallbackName
	}

	decl := &Decl{
		Kind:         DeclEnum,
		Name:         name,
		File:         e.result.FilePath,
		Line:         getLine(node),
		IsDefinition: true,
	}

	if underlying := node.ChildByFieldName("underlying_type"); underlying != nil {
		t := baseTypeFromSpelling(e.result.NodeText(underlying))
		decl.Underlying = &t
	}

	env := make(map[string]int64, len(e.defines))
	for k, v := range e.defines {
		env[k] = v
	}

	next := int64(0)
	for i := uint32(0); i < body.ChildCount(); i++ {
		child := body.Child(int(i))
		if child.Type() != "enumerator" {
			continue
		}
		memberName := e.nodeFieldText(child, "name")
		if memberName == "" {
			continue
		}
		value := next
		if valueNode := child.ChildByFieldName("value"); valueNode != nil {
			v, err := EvalConstExpr(e.result.NodeText(valueNode), env)
			if err != nil {
				e.warnings = append(e.warnings, Diagnostic{
					Severity: SeverityWarning,
					File:     e.result.FilePath,
					Line:     getLine(child),
					Message:  fmt.Sprintf("cannot evaluate value of enumerator %s: %v", memberName, err),
				})
			} else {
				value = v
			}
		}
		decl.Enumerators = append(decl.Enumerators, Enumerator{Name: memberName, Value: value})
		env[memberName] = value
		next = value + 1
	}

	return decl
}

// extractTypedef handles a type_definition node, emitting the typedef
// itself plus any record or enum defined inline.
func (e *Extractor) extractTypedef(node *sitter.Node, decls *[]Decl) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}

	names := e.typedefNames(node)
	if len(names) == 0 {
		return
	}
	primary := names[0]

	var underlying Type
	switch typeNode.Type() {
	case "struct_specifier", "union_specifier":
		tag := e.nodeFieldText(typeNode, "name")
		if typeNode.ChildByFieldName("body") != nil {
			if decl := e.extractRecord(typeNode, primary); decl != nil {
				*decls = append(*decls, *decl)
				underlying = Type{Kind: KindRecord, Spelling: decl.Name, Name: decl.Name}
				if typeNode.Type() == "union_specifier" {
					underlying.RecordKind = "union"
				} else {
					underlying.RecordKind = "struct"
				}
			}
		} else {
			// Forward reference: opaque handle candidate.
			recordKind := "struct"
			if typeNode.Type() == "union_specifier" {
				recordKind = "union"
			}
			underlying = Type{
				Kind:       KindElaborated,
				Spelling:   recordKind + " " + tag,
				Name:       tag,
				RecordKind: recordKind,
			}
		}
	case "enum_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			if decl := e.extractEnum(typeNode, primary); decl != nil {
				*decls = append(*decls, *decl)
				underlying = Type{Kind: KindEnum, Spelling: decl.Name, Name: decl.Name}
			}
		} else {
			tag := e.nodeFieldText(typeNode, "name")
			underlying = Type{Kind: KindEnum, Spelling: "enum " + tag, Name: tag}
		}
	default:
		underlying = baseTypeFromSpelling(e.result.NodeText(typeNode))
	}

	for _, entry := range e.typedefEntries(node, underlying) {
		u := entry.typ
		*decls = append(*decls, Decl{
			Kind:       DeclTypedef,
			Name:       entry.name,
			File:       e.result.FilePath,
			Line:       getLine(node),
			Underlying: &u,
		})
	}
}

// extractMacro captures an object-like macro with its raw replacement text.
func (e *Extractor) extractMacro(node *sitter.Node) *Decl {
	name := e.nodeFieldText(node, "name")
	if name == "" {
		return nil
	}
	value := ""
	if valueNode := node.ChildByFieldName("value"); valueNode != nil {
		value = e.result.NodeText(valueNode)
	}
	return &Decl{
		Kind:  DeclMacro,
		Name:  name,
		File:  e.result.FilePath,
		Line:  getLine(node),
		Value: value,
	}
}

// extractParameters reads a function_declarator's parameter list.
func (e *Extractor) extractParameters(declarator *sitter.Node) ([]Param, bool) {
	paramList := declarator.ChildByFieldName("parameters")
	if paramList == nil {
		return nil, false
	}

	var params []Param
	variadic := false
	for i := uint32(0); i < paramList.ChildCount(); i++ {
		child := paramList.Child(int(i))
		switch child.Type() {
		case "parameter_declaration":
			base := e.baseType(child)
			if base.Kind == KindVoid && child.ChildByFieldName("declarator") == nil {
				// A bare (void) parameter list.
				continue
			}
			name, typ := e.applyDeclarator(child.ChildByFieldName("declarator"), base)
			params = append(params, Param{Name: name, Type: typ})
		case "variadic_parameter":
			variadic = true
		}
	}
	return params, variadic
}

// extractFields reads a field_declaration_list.
func (e *Extractor) extractFields(body *sitter.Node) []Field {
	var fields []Field
	for i := uint32(0); i < body.ChildCount(); i++ {
		child := body.Child(int(i))
		if child.Type() != "field_declaration" {
			continue
		}
		if findChildByType(child, "bitfield_clause") != nil {
			// Bit fields have no portable interop layout.
			continue
		}
		base := e.baseType(child)
		for j := uint32(0); j < child.ChildCount(); j++ {
			dtor := child.Child(int(j))
			switch dtor.Type() {
			case "field_identifier", "pointer_declarator", "array_declarator":
				name, typ := e.applyDeclarator(dtor, base)
				if name == "" {
					continue
				}
				fields = append(fields, Field{Name: name, Type: typ})
			}
		}
	}
	return fields
}

// applyDeclarator wraps a base type with the pointer and array levels of a
// declarator and returns the declared name. A nil declarator yields the base
// type unchanged and an empty name.
func (e *Extractor) applyDeclarator(node *sitter.Node, base Type) (string, Type) {
	typ := base
	name := ""
	for node != nil {
		switch node.Type() {
		case "pointer_declarator", "abstract_pointer_declarator":
			typ = Pointer(typ)
			node = declaratorChild(node)
		case "array_declarator", "abstract_array_declarator":
			length := -1
			if sizeNode := node.ChildByFieldName("size"); sizeNode != nil {
				if v, err := EvalConstExpr(e.result.NodeText(sizeNode), e.defines); err == nil {
					length = int(v)
				}
			}
			typ = Array(typ, length)
			node = declaratorChild(node)
		case "function_declarator":
			// Function pointer: an opaque callable handle.
			name = e.declaredName(node)
			void := Type{Kind: KindVoid, Spelling: "void"}
			return name, Pointer(void)
		case "parenthesized_declarator":
			node = firstNamedChild(node)
		case "identifier", "field_identifier", "type_identifier":
			return e.result.NodeText(node), typ
		default:
			return name, typ
		}
	}
	return name, typ
}

// baseType reads the "type" field of a declaration-like node.
func (e *Extractor) baseType(node *sitter.Node) Type {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return Type{Kind: KindInvalid}
	}
	switch typeNode.Type() {
	case "struct_specifier", "union_specifier", "enum_specifier":
		tag := e.nodeFieldText(typeNode, "name")
		keyword := map[string]string{
			"struct_specifier": "struct",
			"union_specifier":  "union",
			"enum_specifier":   "enum",
		}[typeNode.Type()]
		if typeNode.Type() == "enum_specifier" {
			return Type{Kind: KindEnum, Spelling: keyword + " " + tag, Name: tag}
		}
		return Type{
			Kind:       KindElaborated,
			Spelling:   keyword + " " + tag,
			Name:       tag,
			RecordKind: keyword,
		}
	}
	return baseTypeFromSpelling(e.result.NodeText(typeNode))
}

// declaredName digs through declarator wrappers for the declared identifier.
func (e *Extractor) declaredName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		switch child.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return e.result.NodeText(child)
		case "pointer_declarator", "array_declarator", "parenthesized_declarator", "function_declarator":
			if name := e.declaredName(child); name != "" {
				return name
			}
		case "parameter_list":
			// The name never lives in the parameter list.
		}
	}
	return ""
}

type typedefEntry struct {
	name string
	typ  Type
}

// typedefEntries pairs each declarator of a type_definition with its
// underlying type; a pointer declarator adds a level of indirection to the
// shared base. Only children in the "declarator" field position are
// considered, so the aliased type itself is never mistaken for a new name.
func (e *Extractor) typedefEntries(node *sitter.Node, base Type) []typedefEntry {
	var entries []typedefEntry
	for i := uint32(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(int(i)) != "declarator" {
			continue
		}
		child := node.Child(int(i))
		name, typ := e.applyDeclarator(child, base)
		if name != "" {
			entries = append(entries, typedefEntry{name: name, typ: typ})
		}
	}
	return entries
}

// typedefNames lists the names declared by a type_definition in order.
func (e *Extractor) typedefNames(node *sitter.Node) []string {
	var names []string
	for _, entry := range e.typedefEntries(node, Type{}) {
		names = append(names, entry.name)
	}
	return names
}

func (e *Extractor) nodeFieldText(node *sitter.Node, field string) string {
	return e.result.NodeText(node.ChildByFieldName(field))
}

func isPointerDeclarator(node *sitter.Node) bool {
	return node != nil && node.Type() == "pointer_declarator"
}

// declaratorChild returns the wrapped declarator of a pointer or array
// declarator.
func declaratorChild(node *sitter.Node) *sitter.Node {
	if child := node.ChildByFieldName("declarator"); child != nil {
		return child
	}
	return firstNamedChild(node)
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(int(i))
		if child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// findFunctionDeclarator finds the function_declarator within a declaration,
// skipping parameter lists so nested function pointers don't match.
func findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	decl := node.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Type() {
		case "function_declarator":
			return decl
		case "pointer_declarator", "parenthesized_declarator":
			decl = declaratorChild(decl)
		default:
			return nil
		}
	}
	return nil
}
