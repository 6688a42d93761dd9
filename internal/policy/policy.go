// Package policy loads the XML policy file that drives bindings
// generation: which headers belong to which library, rename/removal
// patterns, flag-enum marking, and per-library output packaging.
package policy

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultClassName is the class holding native methods when a library does
// not configure one.
const DefaultClassName = "NativeMethods"

// DefaultNamespace is used when neither the policy nor the caller set one.
const DefaultNamespace = "Bindings"

// ErrInvalidPolicy is returned when the policy file fails validation.
var ErrInvalidPolicy = errors.New("invalid policy")

// HeaderLibrary is one root header attributed to a logical library.
type HeaderLibrary struct {
	Header  string
	Library string
}

// Define is a predefined identifier available to constant-expression
// evaluation.
type Define struct {
	Name     string
	Value    string
	HasValue bool
}

// ConstantGroup collects matching object-like macros into one generated
// declaration. Pattern is always a regular expression matched against the
// whole macro name.
type ConstantGroup struct {
	Name    string
	Pattern string
	Type    string
	Flags   bool

	re *regexp.Regexp
}

// Match reports whether a macro name belongs to this group.
func (g ConstantGroup) Match(name string) bool {
	return g.re != nil && g.re.MatchString(name)
}

// Library describes one logical library's packaging.
type Library struct {
	Name      string
	ClassName string
	Namespace string
	Usings    []string
	Headers   []string
}

// Policy is the parsed and validated policy file.
type Policy struct {
	Visibility  string
	IncludeDirs []string
	Defines     []Define
	Constants   []ConstantGroup
	Libraries   []Library

	// Rules holds the compiled rename/removal/flag-enum patterns.
	Rules *RuleSet
}

// Pairs returns the ordered (header, library) pairs of the policy.
func (p *Policy) Pairs() []HeaderLibrary {
	var pairs []HeaderLibrary
	for _, lib := range p.Libraries {
		for _, header := range lib.Headers {
			pairs = append(pairs, HeaderLibrary{Header: header, Library: lib.Name})
		}
	}
	return pairs
}

// LibraryByName returns the library entry for name, or a default-shaped one.
func (p *Policy) LibraryByName(name string) Library {
	for _, lib := range p.Libraries {
		if lib.Name == name {
			return lib
		}
	}
	return Library{Name: name, ClassName: DefaultClassName}
}

// XML document shape.

type xmlBindings struct {
	XMLName     xml.Name          `xml:"bindings"`
	Visibility  string            `xml:"visibility,attr"`
	IncludeDirs []xmlIncludeDir   `xml:"include_directory"`
	Renames     []xmlRename       `xml:"rename"`
	Removals    []xmlRemove       `xml:"remove"`
	Flags       []xmlFlags        `xml:"flags"`
	Defines     []xmlDefine       `xml:"define"`
	Constants   []xmlConstants    `xml:"constants"`
	Libraries   []xmlLibrary      `xml:"library"`
}

type xmlIncludeDir struct {
	Path string `xml:"path,attr"`
}

type xmlRename struct {
	From  string `xml:"from,attr"`
	To    string `xml:"to,attr"`
	Regex string `xml:"regex,attr"`
}

type xmlRemove struct {
	Pattern string `xml:"pattern,attr"`
	Regex   string `xml:"regex,attr"`
}

type xmlFlags struct {
	Pattern string `xml:"pattern,attr"`
	Regex   string `xml:"regex,attr"`
}

type xmlDefine struct {
	Name  string  `xml:"name,attr"`
	Value *string `xml:"value,attr"`
}

type xmlConstants struct {
	Name    string `xml:"name,attr"`
	Pattern string `xml:"pattern,attr"`
	Type    string `xml:"type,attr"`
	Flags   string `xml:"flags,attr"`
}

type xmlLibrary struct {
	Name        string          `xml:"name,attr"`
	Class       string          `xml:"class,attr"`
	Namespace   string          `xml:"namespace,attr"`
	Usings      []xmlUsing      `xml:"using"`
	IncludeDirs []xmlIncludeDir `xml:"include_directory"`
	Includes    []xmlInclude    `xml:"include"`
}

type xmlUsing struct {
	Namespace string `xml:"namespace,attr"`
}

type xmlInclude struct {
	File string `xml:"file,attr"`
}

// Load reads and validates a policy file. All patterns are compiled here so
// a malformed policy fails before any header is processed.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	policy, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}

// Parse parses policy XML from memory.
func Parse(data []byte) (*Policy, error) {
	var doc xmlBindings
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if doc.XMLName.Local != "bindings" {
		return nil, fmt.Errorf("%w: expected root element 'bindings', got %q",
			ErrInvalidPolicy, doc.XMLName.Local)
	}

	policy := &Policy{
		Visibility: strings.ToLower(strings.TrimSpace(doc.Visibility)),
	}
	if policy.Visibility == "" {
		policy.Visibility = "public"
	}
	if policy.Visibility != "public" && policy.Visibility != "internal" {
		return nil, fmt.Errorf("%w: visibility must be 'public' or 'internal', got %q",
			ErrInvalidPolicy, policy.Visibility)
	}

	for _, dir := range doc.IncludeDirs {
		if strings.TrimSpace(dir.Path) == "" {
			return nil, fmt.Errorf("%w: include_directory element missing 'path' attribute", ErrInvalidPolicy)
		}
		policy.IncludeDirs = append(policy.IncludeDirs, strings.TrimSpace(dir.Path))
	}

	var rawRenames []RenameRule
	for _, r := range doc.Renames {
		if r.From == "" || r.To == "" {
			return nil, fmt.Errorf("%w: rename element missing 'from' or 'to' attribute", ErrInvalidPolicy)
		}
		rawRenames = append(rawRenames, RenameRule{
			From:  strings.TrimSpace(r.From),
			To:    strings.TrimSpace(r.To),
			Regex: isTrue(r.Regex),
		})
	}

	var rawRemovals []MatchRule
	for _, r := range doc.Removals {
		if r.Pattern == "" {
			return nil, fmt.Errorf("%w: remove element missing 'pattern' attribute", ErrInvalidPolicy)
		}
		rawRemovals = append(rawRemovals, MatchRule{
			Pattern: strings.TrimSpace(r.Pattern),
			Regex:   isTrue(r.Regex),
		})
	}

	var rawFlags []MatchRule
	for _, f := range doc.Flags {
		if f.Pattern == "" {
			return nil, fmt.Errorf("%w: flags element missing 'pattern' attribute", ErrInvalidPolicy)
		}
		rawFlags = append(rawFlags, MatchRule{
			Pattern: strings.TrimSpace(f.Pattern),
			Regex:   isTrue(f.Regex),
		})
	}

	rules, err := CompileRules(rawRenames, rawRemovals, rawFlags)
	if err != nil {
		return nil, err
	}
	policy.Rules = rules

	for _, d := range doc.Defines {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: define element missing 'name' attribute", ErrInvalidPolicy)
		}
		define := Define{Name: strings.TrimSpace(d.Name)}
		if d.Value != nil {
			define.Value = strings.TrimSpace(*d.Value)
			define.HasValue = true
		}
		policy.Defines = append(policy.Defines, define)
	}

	for _, c := range doc.Constants {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: constants element missing 'name' attribute", ErrInvalidPolicy)
		}
		if c.Pattern == "" {
			return nil, fmt.Errorf("%w: constants element missing 'pattern' attribute", ErrInvalidPolicy)
		}
		group := ConstantGroup{
			Name:    strings.TrimSpace(c.Name),
			Pattern: strings.TrimSpace(c.Pattern),
			Type:    strings.TrimSpace(c.Type),
			Flags:   isTrue(c.Flags),
		}
		if group.Type == "" {
			group.Type = "uint"
		}
		re, err := compileAnchored(group.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: constants pattern %q: %v", ErrInvalidPolicy, group.Pattern, err)
		}
		group.re = re
		policy.Constants = append(policy.Constants, group)
	}

	for _, l := range doc.Libraries {
		if l.Name == "" {
			return nil, fmt.Errorf("%w: library element missing 'name' attribute", ErrInvalidPolicy)
		}
		lib := Library{
			Name:      strings.TrimSpace(l.Name),
			ClassName: strings.TrimSpace(l.Class),
			Namespace: strings.TrimSpace(l.Namespace),
		}
		if lib.ClassName == "" {
			lib.ClassName = DefaultClassName
		}
		for _, u := range l.Usings {
			if u.Namespace != "" {
				lib.Usings = append(lib.Usings, strings.TrimSpace(u.Namespace))
			}
		}
		for _, dir := range l.IncludeDirs {
			if strings.TrimSpace(dir.Path) == "" {
				return nil, fmt.Errorf("%w: include_directory element in library %q missing 'path' attribute",
					ErrInvalidPolicy, lib.Name)
			}
			policy.IncludeDirs = append(policy.IncludeDirs, strings.TrimSpace(dir.Path))
		}
		for _, inc := range l.Includes {
			if strings.TrimSpace(inc.File) == "" {
				return nil, fmt.Errorf("%w: include element in library %q missing 'file' attribute",
					ErrInvalidPolicy, lib.Name)
			}
			lib.Headers = append(lib.Headers, strings.TrimSpace(inc.File))
		}
		policy.Libraries = append(policy.Libraries, lib)
	}

	return policy, nil
}

func isTrue(attr string) bool {
	return strings.EqualFold(strings.TrimSpace(attr), "true")
}
