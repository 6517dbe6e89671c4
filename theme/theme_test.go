package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gpl = `GIMP Palette
Name: Test
Columns: 2
# comment
  0   0   0	black
255 255 255	white
300   0   0	out of range
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	if err != nil {
		t.Fatalf("ParseGPL: %v", err)
	}
	if p.Name != "Test" {
		t.Errorf("Name = %q", p.Name)
	}
	if len(p.Colors) != 2 {
		t.Fatalf("Colors = %v", p.Colors)
	}
}

func TestParseGPLEmpty(t *testing.T) {
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n")); err == nil {
		t.Error("expected error for palette without colors")
	}
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}
	tests := []struct {
		norm float64
		want RGB
	}{
		{-1, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{100, 50, 25}},
		{1, RGB{200, 100, 50}},
		{2, RGB{200, 100, 50}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.norm); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.norm, got, tt.want)
		}
	}

	single := &Palette{Colors: []RGB{{1, 2, 3}}}
	if got := single.Lookup(0.5); got != (RGB{1, 2, 3}) {
		t.Errorf("single color Lookup = %v", got)
	}
}

func TestLoad(t *testing.T) {
	th, err := Load("")
	if err != nil || th.Palette != Default {
		t.Fatalf("Load(\"\") = %v, %v", th, err)
	}

	path := filepath.Join(t.TempDir(), "p.gpl")
	if err := os.WriteFile(path, []byte(gpl), 0644); err != nil {
		t.Fatal(err)
	}
	th, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if th.Palette.Name != "Test" {
		t.Errorf("palette = %q", th.Palette.Name)
	}
	if got := th.Value(127); got != Hex(RGB{255, 255, 255}) {
		t.Errorf("Value(127) = %v", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.gpl")); err == nil {
		t.Error("expected error for missing file")
	}
}
