package nadex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/normalize"
)

const contractBody = `{
	"id": "NDX.FED.MAR26",
	"name": "Fed funds rate cut by March 2026",
	"expiry": "2026-03-31T20:00:00Z",
	"strike": 4.25,
	"yes_price": 47,
	"no_price": 56,
	"updated_at": "2026-03-10T14:00:02Z"
}`

func TestFetch_WrapsContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contract/NDX.FED.MAR26" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(contractBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, []string{"NDX.FED.MAR26"})

	payloads, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}

	snap, err := normalize.ToSnapshot(payloads[0], domain.VenueNadex)
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}
	if snap.Key.Symbol != "NDX.FED.MAR26" {
		t.Errorf("Symbol = %q", snap.Key.Symbol)
	}
	if snap.BestYes.Price.String() != "0.47" {
		t.Errorf("yes price = %q, want 0.47", snap.BestYes.Price.String())
	}
}

func TestFetch_RetriesOnServiceUnavailable(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(contractBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, []string{"NDX.FED.MAR26"})
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestFetch_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, []string{"NDX.FED.MAR26"})
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}
