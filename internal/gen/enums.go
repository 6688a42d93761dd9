package gen

import (
	"fmt"
	"strings"

	"github.com/hargabyte/bindgen/internal/cparse"
)

// MergedEnum is one canonical enum assembled from every partial
// declaration sharing its name.
type MergedEnum struct {
	Name    string
	Library string
	Members []cparse.Enumerator
	// Underlying is the resolved underlying type name, empty for the
	// implicit default.
	Underlying string
	// Flags marks the enum for bitwise-combinable attribute treatment.
	Flags bool
}

// EnumMerger accumulates enum members discovered across files and
// libraries into one declaration per canonical enum name. Anonymous enums
// get a name synthesized from the common prefix of their members, falling
// back to numbered AnonymousEnumN slots.
type EnumMerger struct {
	strategy  DedupStrategy
	order     []string
	byKey     map[string]*MergedEnum
	seen      map[string]map[string]bool
	anonSlots map[string]bool
}

// NewEnumMerger creates an empty merger with the given key strategy.
func NewEnumMerger(strategy DedupStrategy) *EnumMerger {
	return &EnumMerger{
		strategy:  strategy,
		byKey:     make(map[string]*MergedEnum),
		seen:      make(map[string]map[string]bool),
		anonSlots: make(map[string]bool),
	}
}

// Accumulate merges one partial enum declaration. An empty name triggers
// canonical-name synthesis. Member names already present under the
// canonical name are not appended again; the first non-empty underlying
// type wins, but a later explicit one fills an initially absent slot.
func (m *EnumMerger) Accumulate(name string, members []cparse.Enumerator, underlying, library string) {
	if len(members) == 0 && name == "" {
		return
	}
	if name == "" {
		name = m.synthesizeName(members)
	}

	key := m.strategy.ScopeKey(name, library)
	entry, ok := m.byKey[key]
	if !ok {
		entry = &MergedEnum{Name: name, Library: library, Underlying: underlying}
		m.byKey[key] = entry
		m.seen[key] = make(map[string]bool)
		m.order = append(m.order, key)
	} else if entry.Underlying == "" && underlying != "" {
		entry.Underlying = underlying
	}

	for _, member := range members {
		if m.seen[key][member.Name] {
			continue
		}
		m.seen[key][member.Name] = true
		entry.Members = append(entry.Members, member)
	}
}

// Emit returns the merged enums in first-insertion order.
func (m *EnumMerger) Emit() []MergedEnum {
	enums := make([]MergedEnum, 0, len(m.order))
	for _, key := range m.order {
		enums = append(enums, *m.byKey[key])
	}
	return enums
}

// synthesizeName derives a canonical name for an anonymous enum: the
// longest common prefix of its member names trimmed of trailing
// underscores, or the next free AnonymousEnumN slot.
func (m *EnumMerger) synthesizeName(members []cparse.Enumerator) string {
	prefix := commonPrefix(members)
	prefix = strings.TrimRight(prefix, "_")
	if prefix != "" {
		return prefix
	}

	for n := 1; ; n++ {
		name := fmt.Sprintf("AnonymousEnum%d", n)
		if !m.anonSlots[name] {
			m.anonSlots[name] = true
			return name
		}
	}
}

func commonPrefix(members []cparse.Enumerator) string {
	if len(members) == 0 {
		return ""
	}
	prefix := members[0].Name
	for _, member := range members[1:] {
		for !strings.HasPrefix(member.Name, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}
