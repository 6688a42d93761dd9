package gen

import "fmt"

// DedupStrategy shapes the keys used to decide whether a declaration
// instance has been seen before. Two modes exist: merged output uses
// global keys so a physical declaration is emitted exactly once overall,
// while multi-unit output scopes keys by library so a shared declaration
// is emitted once per library unit.
type DedupStrategy interface {
	FunctionKey(name, library string) string
	RecordKey(name, file string, line uint32, library string) string
	// NameKey is the location-independent record key used to suppress
	// opaque re-sightings of an already-emitted name.
	NameKey(name, library string) string
	// ScopeKey scopes enum and constant accumulation.
	ScopeKey(name, library string) string
}

// GlobalKeys is the merged-output strategy: dedup spans all libraries.
type GlobalKeys struct{}

func (GlobalKeys) FunctionKey(name, _ string) string { return name }

func (GlobalKeys) RecordKey(name, file string, line uint32, _ string) string {
	return fmt.Sprintf("%s|%s:%d", name, file, line)
}

func (GlobalKeys) NameKey(name, _ string) string { return name }

func (GlobalKeys) ScopeKey(name, _ string) string { return name }

// PerLibraryKeys is the multi-unit strategy: every key carries the library,
// so a declaration shared between libraries lands in each library's unit.
type PerLibraryKeys struct{}

func (PerLibraryKeys) FunctionKey(name, library string) string {
	return library + "|" + name
}

func (PerLibraryKeys) RecordKey(name, file string, line uint32, library string) string {
	return fmt.Sprintf("%s|%s|%s:%d", library, name, file, line)
}

func (PerLibraryKeys) NameKey(name, library string) string {
	return library + "|" + name
}

func (PerLibraryKeys) ScopeKey(name, library string) string {
	return library + "|" + name
}

// SymbolRegistry tracks which functions and records have already been
// emitted. Enums never pass through here; they are merged by EnumMerger
// instead of first-wins gated.
type SymbolRegistry struct {
	strategy    DedupStrategy
	seenFuncs   map[string]bool
	seenRecords map[string]bool
	seenNames   map[string]bool
}

// NewSymbolRegistry creates an empty registry with the given key strategy.
func NewSymbolRegistry(strategy DedupStrategy) *SymbolRegistry {
	return &SymbolRegistry{
		strategy:    strategy,
		seenFuncs:   make(map[string]bool),
		seenRecords: make(map[string]bool),
		seenNames:   make(map[string]bool),
	}
}

// ShouldEmitFunction reports whether a function has not been emitted yet.
func (r *SymbolRegistry) ShouldEmitFunction(name, library string) bool {
	return !r.seenFuncs[r.strategy.FunctionKey(name, library)]
}

// MarkFunction records a function as emitted.
func (r *SymbolRegistry) MarkFunction(name, library string) {
	r.seenFuncs[r.strategy.FunctionKey(name, library)] = true
}

// ShouldEmitRecord reports whether a record instance has not been emitted,
// by location key or by name. The name check is what keeps an opaque
// marker from shadowing a full definition emitted from another location.
func (r *SymbolRegistry) ShouldEmitRecord(name, file string, line uint32, library string) bool {
	if r.seenNames[r.strategy.NameKey(name, library)] {
		return false
	}
	return !r.seenRecords[r.strategy.RecordKey(name, file, line, library)]
}

// MarkRecord records a record as emitted under both its location key and
// its bare name key.
func (r *SymbolRegistry) MarkRecord(name, file string, line uint32, library string) {
	r.seenRecords[r.strategy.RecordKey(name, file, line, library)] = true
	r.seenNames[r.strategy.NameKey(name, library)] = true
}

// RecordNameSeen reports whether any record with this name was emitted.
func (r *SymbolRegistry) RecordNameSeen(name, library string) bool {
	return r.seenNames[r.strategy.NameKey(name, library)]
}
