package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/edge"
	"github.com/openpredict/arbscan/internal/fees"
	"github.com/openpredict/arbscan/internal/registry"
	"github.com/openpredict/arbscan/internal/venue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeClient struct {
	venue    domain.Venue
	payloads []json.RawMessage
	err      error
}

func (f *fakeClient) Venue() domain.Venue { return f.venue }

func (f *fakeClient) Fetch(context.Context) ([]json.RawMessage, error) {
	return f.payloads, f.err
}

type fakeSink struct {
	messages []string
	err      error
}

func (f *fakeSink) Send(_ context.Context, message string) error {
	f.messages = append(f.messages, message)
	return f.err
}

type fakeStore struct {
	snapshots int
	edges     []domain.EdgeResult
	stakes    []*decimal.Decimal
}

func (f *fakeStore) SaveSnapshot(context.Context, uuid.UUID, string, domain.MarketSnapshot) error {
	f.snapshots++
	return nil
}

func (f *fakeStore) SaveEdge(_ context.Context, _ uuid.UUID, res domain.EdgeResult, stake *decimal.Decimal) error {
	f.edges = append(f.edges, res)
	f.stakes = append(f.stakes, stake)
	return nil
}

type fakeCache struct {
	latest map[string]domain.EdgeResult
}

func (f *fakeCache) SetLatest(_ context.Context, res domain.EdgeResult, _ time.Duration) error {
	if f.latest == nil {
		f.latest = make(map[string]domain.EdgeResult)
	}
	f.latest[res.Tag] = res
	return nil
}

func kalshiPayload(ticker string, yesCents, noCents int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"event": {"close_time": "2026-03-31T20:00:00Z"},
		"market": {
			"ticker": %q,
			"title": "t",
			"yes_bids": [{"price": %d, "size": 100}],
			"no_bids": [{"price": %d, "size": 100}]
		},
		"timestamp": "2026-03-10T14:00:00Z"
	}`, ticker, yesCents, noCents))
}

func predictItPayload(marketID, contractID, yes, no string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"market": {
			"id": %s,
			"dateCloses": "2026-03-31T20:00:00Z",
			"contracts": [{"id": %s, "name": "c", "bestBuyYesCost": %s, "bestBuyNoCost": %s}]
		},
		"timestamp": "2026-03-10T14:00:05Z"
	}`, marketID, contractID, yes, no))
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Entry{
		{Tag: "fed-cut", Kalshi: "FED-26MAR-CUT", PredictIt: "7102.30015", Nadex: "NDX.FED.MAR26"},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func testCalculator(t *testing.T) *edge.Calculator {
	t.Helper()
	table, err := fees.New(map[domain.Venue]domain.FeeSpec{
		domain.VenueKalshi:    {EntryFee: decimal.Zero, ExitFeePct: dec("0.05")},
		domain.VenueNadex:     {EntryFee: decimal.Zero, ExitFeePct: decimal.Zero},
		domain.VenuePredictIt: {EntryFee: dec("0.001"), ExitFeePct: decimal.Zero},
	})
	if err != nil {
		t.Fatalf("fees.New: %v", err)
	}
	return edge.NewCalculator(table, time.Minute)
}

func pairClients() []venue.Client {
	return []venue.Client{
		&fakeClient{venue: domain.VenueKalshi, payloads: []json.RawMessage{kalshiPayload("FED-26MAR-CUT", 46, 70)}},
		&fakeClient{venue: domain.VenuePredictIt, payloads: []json.RawMessage{predictItPayload("7102", "30015", "0.80", "0.55")}},
	}
}

func TestRunCycle_AlertLine(t *testing.T) {
	bankroll := dec("2000")
	sink := &fakeSink{}
	store := &fakeStore{}
	cache := &fakeCache{}

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute, Bankroll: &bankroll},
		testRegistry(t), pairClients(), testCalculator(t),
		sink, store, cache, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(sink.messages) != 1 {
		t.Fatalf("got %d alerts, want 1", len(sink.messages))
	}
	// Edge 0.062 at even odds with p = 0.562 sizes 12.4% of a $2000 bankroll.
	want := "EDGE 6.200 | fed-cut YES@Kalshi 0.46 vs NO@PredictIt 0.55 | Kelly stake: $248"
	if sink.messages[0] != want {
		t.Errorf("alert = %q\nwant    %q", sink.messages[0], want)
	}

	if store.snapshots != 2 {
		t.Errorf("persisted %d snapshots, want 2", store.snapshots)
	}
	if len(store.edges) != 1 || !store.edges[0].Edge.Equal(dec("0.062")) {
		t.Errorf("persisted edges = %+v, want one with edge 0.062", store.edges)
	}
	if got, ok := cache.latest["fed-cut"]; !ok || !got.Edge.Equal(dec("0.062")) {
		t.Errorf("cached edge = %+v, want edge 0.062", got)
	}
}

func TestRunCycle_StakeOmittedWithoutBankroll(t *testing.T) {
	sink := &fakeSink{}

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute},
		testRegistry(t), pairClients(), testCalculator(t),
		sink, nil, nil, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(sink.messages) != 1 {
		t.Fatalf("got %d alerts, want 1", len(sink.messages))
	}
	want := "EDGE 6.200 | fed-cut YES@Kalshi 0.46 vs NO@PredictIt 0.55"
	if sink.messages[0] != want {
		t.Errorf("alert = %q\nwant    %q", sink.messages[0], want)
	}
}

func TestRunCycle_VenueFailureIsIsolated(t *testing.T) {
	sink := &fakeSink{}
	clients := append(pairClients(),
		&fakeClient{venue: domain.VenueNadex, err: errors.New("connection refused")},
	)

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute},
		testRegistry(t), clients, testCalculator(t),
		sink, nil, nil, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle with one failing venue: %v", err)
	}
	if len(sink.messages) != 1 {
		t.Errorf("got %d alerts, want 1 from the surviving pair", len(sink.messages))
	}
}

func TestRunCycle_ThresholdFiltersAlerts(t *testing.T) {
	sink := &fakeSink{}
	store := &fakeStore{}

	s := New(
		Config{Threshold: dec("0.10"), Interval: time.Minute},
		testRegistry(t), pairClients(), testCalculator(t),
		sink, store, nil, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(sink.messages) != 0 {
		t.Errorf("got %d alerts, want 0 below threshold", len(sink.messages))
	}
	// Snapshots are still recorded even when nothing clears the threshold.
	if store.snapshots != 2 {
		t.Errorf("persisted %d snapshots, want 2", store.snapshots)
	}
	if len(store.edges) != 0 {
		t.Errorf("persisted %d edges, want 0", len(store.edges))
	}
}

func TestRunCycle_SinkFailureDoesNotAbort(t *testing.T) {
	sink := &fakeSink{err: errors.New("webhook down")}
	store := &fakeStore{}

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute},
		testRegistry(t), pairClients(), testCalculator(t),
		sink, store, nil, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle with failing sink: %v", err)
	}
	if len(store.edges) != 1 {
		t.Errorf("persisted %d edges, want 1 despite delivery failure", len(store.edges))
	}
}

func TestRunCycle_UntrackedSymbolSkipped(t *testing.T) {
	sink := &fakeSink{}
	store := &fakeStore{}
	clients := []venue.Client{
		&fakeClient{venue: domain.VenueKalshi, payloads: []json.RawMessage{kalshiPayload("SOMETHING-ELSE", 46, 70)}},
	}

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute},
		testRegistry(t), clients, testCalculator(t),
		sink, store, nil, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if store.snapshots != 0 || len(sink.messages) != 0 {
		t.Errorf("untracked symbol produced snapshots=%d alerts=%d, want none",
			store.snapshots, len(sink.messages))
	}
}

func TestRunCycle_MalformedPayloadSkipped(t *testing.T) {
	sink := &fakeSink{}
	clients := append(pairClients(),
		&fakeClient{venue: domain.VenueNadex, payloads: []json.RawMessage{json.RawMessage(`{"contract": {}}`)}},
	)

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute},
		testRegistry(t), clients, testCalculator(t),
		sink, nil, nil, discardLogger(),
	)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle with malformed payload: %v", err)
	}
	if len(sink.messages) != 1 {
		t.Errorf("got %d alerts, want 1 from the valid pair", len(sink.messages))
	}
}

func TestRunCycle_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(
		Config{Threshold: dec("0.02"), Interval: time.Minute},
		testRegistry(t), pairClients(), testCalculator(t),
		&fakeSink{}, nil, nil, discardLogger(),
	)

	if err := s.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunCycle on cancelled context = %v, want context.Canceled", err)
	}
}

func TestRunCycle_Deterministic(t *testing.T) {
	var first []string
	for run := 0; run < 3; run++ {
		sink := &fakeSink{}
		s := New(
			Config{Threshold: dec("0.02"), Interval: time.Minute},
			testRegistry(t), pairClients(), testCalculator(t),
			sink, nil, nil, discardLogger(),
		)
		if err := s.RunCycle(context.Background()); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if run == 0 {
			first = sink.messages
			continue
		}
		if len(sink.messages) != len(first) || sink.messages[0] != first[0] {
			t.Fatalf("run %d produced %v, first run produced %v", run, sink.messages, first)
		}
	}
}
