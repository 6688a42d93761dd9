package gen

import (
	"github.com/hargabyte/bindgen/internal/cparse"
	"github.com/hargabyte/bindgen/internal/policy"
)

// Session bundles every piece of mutable state owned by one generation
// run: the typedef registry, the opaque type set, the symbol registry, the
// enum merger, the allowed-file set, and the macro-constant accumulators.
// A Session is constructed fresh per Generate call and never shared.
type Session struct {
	// Typedefs maps typedef names to their underlying descriptors. It is
	// populated for every typedef seen, system headers included, because
	// user declarations may resolve through system typedefs. Last write
	// wins on duplicate names; never cleared mid-run.
	Typedefs map[string]cparse.Type

	// Opaque holds names of forward-declared-only record typedefs.
	// Membership upgrades pointer resolution from a generic handle to a
	// typed pointer.
	Opaque map[string]bool

	// opaqueTags maps each opaque candidate to its record tag so the
	// post-scan prune can match a definition seen under either spelling.
	opaqueTags map[string]string

	// RecordDefs holds names of records whose full field list was seen
	// anywhere in the run. Used to suppress conflicting opaque markers.
	RecordDefs map[string]bool

	// Allowed is the union of every computed include-depth map's keys.
	// It only grows during a run.
	Allowed map[string]bool

	// MacroValues holds every object-like macro whose replacement text
	// evaluated to an integer, seeded with configured defines. Later
	// macros may reference earlier ones.
	MacroValues map[string]int64

	Symbols *SymbolRegistry
	Enums   *EnumMerger
	Rules   *policy.RuleSet

	constGroups map[string]*constantAcc
	constOrder  []string
}

type constantAcc struct {
	group   policy.ConstantGroup
	library string
	members []cparse.Enumerator
	seen    map[string]bool
}

// NewSession creates the state for one generation run.
func NewSession(rules *policy.RuleSet, strategy DedupStrategy) *Session {
	return &Session{
		Typedefs:    make(map[string]cparse.Type),
		Opaque:      make(map[string]bool),
		opaqueTags:  make(map[string]string),
		RecordDefs:  make(map[string]bool),
		Allowed:     make(map[string]bool),
		MacroValues: make(map[string]int64),
		Symbols:     NewSymbolRegistry(strategy),
		Enums:       NewEnumMerger(strategy),
		Rules:       rules,
		constGroups: make(map[string]*constantAcc),
	}
}

// SeedMacroValues preloads configured defines into the macro value
// environment so header macros can reference them.
func (s *Session) SeedMacroValues(defines map[string]int64) {
	for name, value := range defines {
		s.MacroValues[name] = value
	}
}

// RegisterOpaque records one opaque handle candidate: a typedef name over
// a record forward reference with the given tag.
func (s *Session) RegisterOpaque(name, tag string) {
	s.Opaque[name] = true
	s.opaqueTags[name] = tag
}

// PruneDefinedOpaques drops every opaque candidate whose record definition
// was seen anywhere in the run, under either the typedef name or the tag.
// Opaque membership means forward-declared only; a defined record's
// pointers degrade to the generic handle. Must run after every unit's
// pre-scan, since a later header may define an earlier header's forward
// reference.
func (s *Session) PruneDefinedOpaques() {
	for name, tag := range s.opaqueTags {
		if s.RecordDefs[name] || s.RecordDefs[tag] {
			delete(s.Opaque, name)
		}
	}
}

// AllowFiles merges the keys of one include-depth map into the
// allowed-file set.
func (s *Session) AllowFiles(depths map[string]int) {
	for path := range depths {
		s.Allowed[path] = true
	}
}

// AccumulateConstant adds one macro value to a constant group, keeping the
// first sighting of each macro name.
func (s *Session) AccumulateConstant(group policy.ConstantGroup, library, name string, value int64) {
	key := s.Symbols.strategy.ScopeKey(group.Name, library)
	acc, ok := s.constGroups[key]
	if !ok {
		acc = &constantAcc{group: group, library: library, seen: make(map[string]bool)}
		s.constGroups[key] = acc
		s.constOrder = append(s.constOrder, key)
	}
	if acc.seen[name] {
		return
	}
	acc.seen[name] = true
	acc.members = append(acc.members, cparse.Enumerator{Name: name, Value: value})
}

// ConstantEnums returns the accumulated macro-constant groups as merged
// enums in first-insertion order. Empty groups are not emitted.
func (s *Session) ConstantEnums() []MergedEnum {
	var enums []MergedEnum
	for _, key := range s.constOrder {
		acc := s.constGroups[key]
		if len(acc.members) == 0 {
			continue
		}
		enums = append(enums, MergedEnum{
			Name:       acc.group.Name,
			Library:    acc.library,
			Members:    acc.members,
			Underlying: acc.group.Type,
			Flags:      acc.group.Flags,
		})
	}
	return enums
}
