package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openpredict/arbscan/internal/domain"
)

func testEntries() []Entry {
	return []Entry{
		{
			Tag:         "us-recession-2026",
			Description: "US recession declared before 2027",
			Kalshi:      "RECESS-26",
			PredictIt:   "7051.29871",
		},
		{
			Tag:         "fed-cut-mar",
			Description: "Fed cuts rates at the March meeting",
			Kalshi:      "FED-26MAR-CUT",
			Nadex:       "NDX.FED.MAR26",
			PredictIt:   "7102.30015",
		},
	}
}

func TestNew_RoundTrip(t *testing.T) {
	r, err := New(testEntries())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, tag := range r.Tags() {
		for venue, symbol := range r.VenuesFor(tag) {
			got, ok := r.TagFrom(venue, symbol)
			if !ok {
				t.Fatalf("TagFrom(%s, %s) not found", venue, symbol)
			}
			if got != tag {
				t.Errorf("TagFrom(%s, %s) = %q, want %q", venue, symbol, got, tag)
			}
		}
	}
}

func TestNew_DuplicateVenueSymbol(t *testing.T) {
	entries := testEntries()
	entries = append(entries, Entry{Tag: "other-tag", Kalshi: "RECESS-26"})

	if _, err := New(entries); err == nil {
		t.Fatal("expected error for duplicate (venue, symbol) pair")
	}
}

func TestNew_DuplicateTag(t *testing.T) {
	entries := testEntries()
	entries = append(entries, Entry{Tag: "fed-cut-mar", Nadex: "NDX.OTHER"})

	if _, err := New(entries); err == nil {
		t.Fatal("expected error for duplicate tag")
	}
}

func TestNew_MissingTag(t *testing.T) {
	if _, err := New([]Entry{{Kalshi: "ORPHAN-1"}}); err == nil {
		t.Fatal("expected error for entry without tag")
	}
}

func TestTagFrom_UntrackedIsNotAnError(t *testing.T) {
	r, err := New(testEntries())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if tag, ok := r.TagFrom(domain.VenueKalshi, "NOT-TRACKED"); ok {
		t.Errorf("TagFrom returned %q for untracked symbol", tag)
	}
}

func TestVenuesFor_OmitsAbsentVenues(t *testing.T) {
	r, err := New(testEntries())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	venues := r.VenuesFor("us-recession-2026")
	if len(venues) != 2 {
		t.Fatalf("len(venues) = %d, want 2", len(venues))
	}
	if _, ok := venues[domain.VenueNadex]; ok {
		t.Error("nadex should be absent for us-recession-2026")
	}
}

func TestVenues_OnlyReferenced(t *testing.T) {
	r, err := New([]Entry{{Tag: "solo", Kalshi: "SOLO-1", PredictIt: "1.2"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := r.Venues()
	want := []domain.Venue{domain.VenueKalshi, domain.VenuePredictIt}
	if len(got) != len(want) {
		t.Fatalf("Venues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Venues()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.toml")
	data := `
[[events]]
tag = "fed-cut-mar"
description = "Fed cuts rates at the March meeting"
kalshi = "FED-26MAR-CUT"
nadex = "NDX.FED.MAR26"

[[events]]
tag = "us-recession-2026"
kalshi = "RECESS-26"
predictit = "7051.29871"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	tag, ok := r.TagFrom(domain.VenueNadex, "NDX.FED.MAR26")
	if !ok || tag != "fed-cut-mar" {
		t.Errorf("TagFrom(nadex, NDX.FED.MAR26) = %q, %v", tag, ok)
	}

	syms := r.Symbols(domain.VenueKalshi)
	if len(syms) != 2 || syms[0] != "FED-26MAR-CUT" || syms[1] != "RECESS-26" {
		t.Errorf("Symbols(kalshi) = %v", syms)
	}
}
