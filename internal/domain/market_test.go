package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var ts = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteValidate(t *testing.T) {
	valid := Quote{Side: SideYes, Price: dec("0.46"), Size: 100, TS: ts}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid quote: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Quote)
	}{
		{"bad side", func(q *Quote) { q.Side = "MAYBE" }},
		{"negative price", func(q *Quote) { q.Price = dec("-0.01") }},
		{"price above one", func(q *Quote) { q.Price = dec("1.01") }},
		{"negative size", func(q *Quote) { q.Size = -1 }},
		{"zero timestamp", func(q *Quote) { q.TS = time.Time{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := valid
			tc.mutate(&q)
			err := q.Validate()
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestQuoteEqual_ValueSemantics(t *testing.T) {
	a := Quote{Side: SideYes, Price: dec("0.50"), Size: 10, TS: ts}
	b := Quote{Side: SideYes, Price: dec("0.5"), Size: 10, TS: ts}
	// 0.50 and 0.5 differ in exponent but are the same value.
	if !a.Equal(b) {
		t.Error("quotes with equal decimal values should compare equal")
	}
}

func TestEventKeyIdentity(t *testing.T) {
	a := EventKey{Exchange: VenueKalshi, Symbol: "FED-26MAR-CUT", Question: "q1", Expiry: ts}
	b := EventKey{Exchange: VenueKalshi, Symbol: "FED-26MAR-CUT", Question: "different wording"}

	if a.ID() != "kalshi:FED-26MAR-CUT" {
		t.Errorf("ID = %q", a.ID())
	}
	// Identity is (exchange, symbol); descriptive fields do not matter.
	if !a.SameMarket(b) {
		t.Error("keys with same exchange+symbol should identify the same market")
	}
	c := EventKey{Exchange: VenueNadex, Symbol: "FED-26MAR-CUT"}
	if a.SameMarket(c) {
		t.Error("different exchanges must not identify the same market")
	}
}

func TestSnapshotValidate(t *testing.T) {
	yes := &Quote{Side: SideYes, Price: dec("0.46"), Size: 1, TS: ts}
	no := &Quote{Side: SideNo, Price: dec("0.55"), Size: 1, TS: ts}

	snap := MarketSnapshot{
		Key:     EventKey{Exchange: VenueKalshi, Symbol: "X"},
		BestYes: yes,
		BestNo:  no,
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("valid snapshot: %v", err)
	}

	bad := snap
	bad.BestYes = no
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("misassigned side: err = %v, want ErrInvalidInput", err)
	}

	unknown := snap
	unknown.Key.Exchange = Venue("betfair")
	if err := unknown.Validate(); !errors.Is(err, ErrUnknownVenue) {
		t.Errorf("unknown venue: err = %v, want ErrUnknownVenue", err)
	}

	// Both sides absent is a legal, if useless, snapshot.
	empty := MarketSnapshot{Key: EventKey{Exchange: VenueKalshi, Symbol: "X"}}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty snapshot: %v", err)
	}
}

func TestSnapshotEqual_NilSides(t *testing.T) {
	yes := &Quote{Side: SideYes, Price: dec("0.46"), Size: 1, TS: ts}
	key := EventKey{Exchange: VenueKalshi, Symbol: "X"}

	a := MarketSnapshot{Key: key, BestYes: yes}
	b := MarketSnapshot{Key: key, BestYes: yes}
	if !a.Equal(b) {
		t.Error("identical snapshots should compare equal")
	}

	c := MarketSnapshot{Key: key}
	if a.Equal(c) {
		t.Error("present vs absent side must not compare equal")
	}
}

func TestVenueDisplay(t *testing.T) {
	for v, want := range map[Venue]string{
		VenueKalshi:    "Kalshi",
		VenueNadex:     "Nadex",
		VenuePredictIt: "PredictIt",
	} {
		if got := v.Display(); got != want {
			t.Errorf("Display(%s) = %q, want %q", v, got, want)
		}
	}
}
