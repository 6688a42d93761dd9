package policy

import (
	"fmt"
	"regexp"
)

// RenameRule maps a symbol name to a replacement. Regex rules match the
// whole name and may use capture group references in To.
type RenameRule struct {
	From  string
	To    string
	Regex bool

	re *regexp.Regexp
}

// MatchRule is a removal or flag-enum pattern.
type MatchRule struct {
	Pattern string
	Regex   bool

	re *regexp.Regexp
}

// RuleSet holds the compiled policy patterns. Rules apply in declaration
// order; for renames the first matching rule wins.
type RuleSet struct {
	renames   []RenameRule
	removals  []MatchRule
	flagEnums []MatchRule
}

// CompileRules compiles the raw rules, anchoring every regex so patterns
// match whole symbol names. A malformed pattern fails the whole policy.
func CompileRules(renames []RenameRule, removals, flagEnums []MatchRule) (*RuleSet, error) {
	rs := &RuleSet{}

	for _, r := range renames {
		if r.Regex {
			re, err := compileAnchored(r.From)
			if err != nil {
				return nil, fmt.Errorf("%w: rename pattern %q: %v", ErrInvalidPolicy, r.From, err)
			}
			r.re = re
		}
		rs.renames = append(rs.renames, r)
	}

	for _, m := range removals {
		compiled, err := compileMatchRule(m, "remove")
		if err != nil {
			return nil, err
		}
		rs.removals = append(rs.removals, compiled)
	}

	for _, m := range flagEnums {
		compiled, err := compileMatchRule(m, "flags")
		if err != nil {
			return nil, err
		}
		rs.flagEnums = append(rs.flagEnums, compiled)
	}

	return rs, nil
}

func compileMatchRule(m MatchRule, element string) (MatchRule, error) {
	if !m.Regex {
		return m, nil
	}
	re, err := compileAnchored(m.Pattern)
	if err != nil {
		return m, fmt.Errorf("%w: %s pattern %q: %v", ErrInvalidPolicy, element, m.Pattern, err)
	}
	m.re = re
	return m, nil
}

func compileAnchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// Rename returns the policy name for a symbol. The first matching rule in
// declaration order applies; a name matching no rule is returned unchanged.
func (rs *RuleSet) Rename(name string) string {
	if rs == nil {
		return name
	}
	for _, r := range rs.renames {
		if r.Regex {
			if r.re.MatchString(name) {
				return r.re.ReplaceAllString(name, r.To)
			}
			continue
		}
		if r.From == name {
			return r.To
		}
	}
	return name
}

// Removed reports whether a symbol name matches any removal pattern.
func (rs *RuleSet) Removed(name string) bool {
	if rs == nil {
		return false
	}
	return matchAny(rs.removals, name)
}

// FlagEnum reports whether an enum name matches any flag-enum pattern.
func (rs *RuleSet) FlagEnum(name string) bool {
	if rs == nil {
		return false
	}
	return matchAny(rs.flagEnums, name)
}

// RenamePairs returns every rename as a concrete (from, to) pair applied to
// name-shaped strings, for use by the post-render safety pass. Regex rules
// cannot be expanded to a single pair, so the pass evaluates them directly.
func (rs *RuleSet) RenamePairs() []RenameRule {
	if rs == nil {
		return nil
	}
	return rs.renames
}

// ApplyRenameRule applies one rename rule to a name, reporting whether it
// matched.
func ApplyRenameRule(r RenameRule, name string) (string, bool) {
	if r.Regex {
		if r.re != nil && r.re.MatchString(name) {
			return r.re.ReplaceAllString(name, r.To), true
		}
		return name, false
	}
	if r.From == name {
		return r.To, true
	}
	return name, false
}

func matchAny(rules []MatchRule, name string) bool {
	for _, m := range rules {
		if m.Regex {
			if m.re.MatchString(name) {
				return true
			}
			continue
		}
		if m.Pattern == name {
			return true
		}
	}
	return false
}
