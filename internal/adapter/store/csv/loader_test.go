package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.ngs.io/grace-api/internal/domain"
)

func TestParseSamples(t *testing.T) {
	in := "1,60,-120\n2, 58.5, -118.25\n\n# comment\n3,-10,45\n"
	got, err := ParseSamples(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseSamples: %v", err)
	}
	want := []domain.SamplePoint{{1, 60, -120}, {2, 58.5, -118.25}, {3, -10, 45}}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseSamples_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"header row", "id,lat,lon\n1,60,-120\n"},
		{"two columns", "1,60\n"},
		{"bad latitude", "1,north,-120\n"},
		{"bad longitude", "1,60,west\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSamples(strings.NewReader(tt.in)); err == nil {
				t.Errorf("expected error for %q", tt.in)
			}
		})
	}
}

// TestParseSamples_KeepsDuplicates leaves duplicate detection to the request validation.
func TestParseSamples_KeepsDuplicates(t *testing.T) {
	got, err := ParseSamples(strings.NewReader("1,60,-120\n1,50,-100\n"))
	if err != nil {
		t.Fatalf("ParseSamples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
}

func TestSampleStore_LoadAndList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wells.csv"), []byte("7,45,-100\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewSampleStore(dir)
	points, err := s.LoadSamples("wells.csv")
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(points) != 1 || points[0].ID != 7 {
		t.Errorf("unexpected points %+v", points)
	}

	if _, err := s.LoadSamples("missing.csv"); err == nil {
		t.Error("expected error for missing catalog")
	}

	names, err := s.ListCatalogs()
	if err != nil {
		t.Fatalf("ListCatalogs: %v", err)
	}
	if len(names) != 1 || names[0] != "wells.csv" {
		t.Errorf("ListCatalogs = %v, want [wells.csv]", names)
	}
}
