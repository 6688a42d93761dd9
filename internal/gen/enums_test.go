package gen

import (
	"testing"

	"github.com/hargabyte/bindgen/internal/cparse"
)

func TestEnumMergerMergesByName(t *testing.T) {
	m := NewEnumMerger(GlobalKeys{})

	m.Accumulate("Mode", []cparse.Enumerator{
		{Name: "MODE_OFF", Value: 0},
		{Name: "MODE_ON", Value: 1},
	}, "", "Lib")
	m.Accumulate("Mode", []cparse.Enumerator{
		{Name: "MODE_ON", Value: 1},
		{Name: "MODE_AUTO", Value: 2},
	}, "uint", "Lib")

	enums := m.Emit()
	if len(enums) != 1 {
		t.Fatalf("expected 1 merged enum, got %d", len(enums))
	}
	e := enums[0]
	if len(e.Members) != 3 {
		t.Errorf("expected 3 members after dedup, got %d", len(e.Members))
	}
	if e.Underlying != "uint" {
		t.Errorf("later explicit underlying should fill the empty slot, got %q", e.Underlying)
	}
}

func TestEnumMergerFirstUnderlyingWins(t *testing.T) {
	m := NewEnumMerger(GlobalKeys{})
	m.Accumulate("E", []cparse.Enumerator{{Name: "A"}}, "int", "Lib")
	m.Accumulate("E", []cparse.Enumerator{{Name: "B"}}, "long", "Lib")

	if got := m.Emit()[0].Underlying; got != "int" {
		t.Errorf("first non-empty underlying should win, got %q", got)
	}
}

func TestAnonymousEnumCommonPrefixName(t *testing.T) {
	m := NewEnumMerger(GlobalKeys{})
	m.Accumulate("", []cparse.Enumerator{
		{Name: "LOG_DEBUG", Value: 0},
		{Name: "LOG_INFO", Value: 1},
		{Name: "LOG_WARN", Value: 2},
	}, "", "Lib")

	enums := m.Emit()
	if len(enums) != 1 {
		t.Fatalf("expected 1 enum, got %d", len(enums))
	}
	if enums[0].Name != "LOG" {
		t.Errorf("expected common prefix name LOG, got %q", enums[0].Name)
	}
}

func TestAnonymousEnumNumberedFallback(t *testing.T) {
	m := NewEnumMerger(GlobalKeys{})
	m.Accumulate("", []cparse.Enumerator{
		{Name: "Alpha", Value: 0},
		{Name: "Beta", Value: 1},
	}, "", "Lib")
	m.Accumulate("", []cparse.Enumerator{
		{Name: "North", Value: 0},
		{Name: "South", Value: 1},
	}, "", "Lib")

	enums := m.Emit()
	if len(enums) != 2 {
		t.Fatalf("expected 2 enums, got %d", len(enums))
	}
	if enums[0].Name != "AnonymousEnum1" || enums[1].Name != "AnonymousEnum2" {
		t.Errorf("expected numbered names, got %q and %q", enums[0].Name, enums[1].Name)
	}
}

func TestEnumMergerPerLibraryScope(t *testing.T) {
	m := NewEnumMerger(PerLibraryKeys{})
	m.Accumulate("Mode", []cparse.Enumerator{{Name: "A"}}, "", "LibA")
	m.Accumulate("Mode", []cparse.Enumerator{{Name: "B"}}, "", "LibB")

	enums := m.Emit()
	if len(enums) != 2 {
		t.Fatalf("per-library scope should keep enums separate, got %d", len(enums))
	}
}

func TestEnumMergerEmitOrder(t *testing.T) {
	m := NewEnumMerger(GlobalKeys{})
	m.Accumulate("B", []cparse.Enumerator{{Name: "B1"}}, "", "Lib")
	m.Accumulate("A", []cparse.Enumerator{{Name: "A1"}}, "", "Lib")
	m.Accumulate("B", []cparse.Enumerator{{Name: "B2"}}, "", "Lib")

	enums := m.Emit()
	if enums[0].Name != "B" || enums[1].Name != "A" {
		t.Errorf("expected first-insertion order B, A; got %s, %s", enums[0].Name, enums[1].Name)
	}
}
