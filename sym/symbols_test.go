package sym

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestCommandList(t *testing.T) {
	want := []string{"chime", "notify", "task", "agent", "db", "config"}
	if !reflect.DeepEqual(Commands, want) {
		t.Fatalf("Commands = %v, want %v", Commands, want)
	}

	for _, cmd := range Commands {
		if _, ok := CommandToSymbol[cmd]; !ok {
			t.Errorf("Commands lists %q but CommandToSymbol has no glyph for it", cmd)
		}
	}
}

func TestGlyphTablesRoundTrip(t *testing.T) {
	if len(SymbolToCommand) != len(CommandToSymbol) {
		t.Fatalf("table size mismatch: %d glyphs, %d commands", len(SymbolToCommand), len(CommandToSymbol))
	}

	// A missing reverse entry compares as "" and fails the same check.
	for glyph, cmd := range SymbolToCommand {
		if CommandToSymbol[cmd] != glyph {
			t.Errorf("round trip broken: SymbolToCommand[%q] = %q but CommandToSymbol[%q] = %q",
				glyph, cmd, cmd, CommandToSymbol[cmd])
		}
	}
	for cmd, glyph := range CommandToSymbol {
		if SymbolToCommand[glyph] != cmd {
			t.Errorf("round trip broken: CommandToSymbol[%q] = %q but SymbolToCommand[%q] = %q",
				cmd, glyph, glyph, SymbolToCommand[glyph])
		}
	}
}

func TestDescriptionsMatchCommands(t *testing.T) {
	for cmd := range CommandToSymbol {
		if CommandDescriptions[cmd] == "" {
			t.Errorf("no description for command %q", cmd)
		}
	}
	for cmd := range CommandDescriptions {
		if _, ok := CommandToSymbol[cmd]; !ok {
			t.Errorf("description for unknown command %q", cmd)
		}
	}
}

// Terminal alignment in the minimal console encoder assumes every
// glyph occupies a single rune cell.
func TestGlyphsAreSingleRunes(t *testing.T) {
	for glyph, cmd := range SymbolToCommand {
		if !utf8.ValidString(glyph) {
			t.Errorf("glyph for %q is not valid UTF-8", cmd)
		}
		if n := utf8.RuneCountInString(glyph); n != 1 {
			t.Errorf("glyph for %q is %d runes, want exactly 1", cmd, n)
		}
	}
}

func TestAllGlyphsDistinct(t *testing.T) {
	glyphs := map[string]string{
		"Chime":      Chime,
		"Notify":     Notify,
		"Task":       Task,
		"Agent":      Agent,
		"ChimeOpen":  ChimeOpen,
		"ChimeClose": ChimeClose,
		"DB":         DB,
		"Cfg":        Cfg,
	}

	byGlyph := make(map[string]string, len(glyphs))
	for name, glyph := range glyphs {
		if prev, ok := byGlyph[glyph]; ok {
			t.Errorf("%s and %s share glyph %q", prev, name, glyph)
		}
		byGlyph[glyph] = name
	}
}
