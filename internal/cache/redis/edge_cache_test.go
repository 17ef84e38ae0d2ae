package redis

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func sampleEdge(t *testing.T) domain.EdgeResult {
	t.Helper()
	return domain.EdgeResult{
		Tag:         "fed-cut",
		VenueYes:    domain.VenueKalshi,
		VenueNo:     domain.VenuePredictIt,
		AdjustedYes: dec(t, "0.487"),
		AdjustedNo:  dec(t, "0.451"),
		Edge:        dec(t, "0.062"),
		YesQuote:    domain.Quote{Side: domain.SideYes, Price: dec(t, "0.46")},
		NoQuote:     domain.Quote{Side: domain.SideNo, Price: dec(t, "0.55")},
	}
}

// The hash written by SetLatest must read back as the same edge.
func TestEdgeFieldsRoundTrip(t *testing.T) {
	in := sampleEdge(t)

	vals := make(map[string]string, len(edgeFields(in)))
	for k, v := range edgeFields(in) {
		vals[k] = v.(string)
	}

	out, err := edgeFromFields(in.Tag, vals)
	if err != nil {
		t.Fatalf("edgeFromFields: %v", err)
	}

	if out.Tag != in.Tag || out.VenueYes != in.VenueYes || out.VenueNo != in.VenueNo {
		t.Errorf("identity fields = %s/%s/%s, want %s/%s/%s",
			out.Tag, out.VenueYes, out.VenueNo, in.Tag, in.VenueYes, in.VenueNo)
	}
	if !out.Edge.Equal(in.Edge) || !out.AdjustedYes.Equal(in.AdjustedYes) || !out.AdjustedNo.Equal(in.AdjustedNo) {
		t.Errorf("edge decimals = %s/%s/%s, want %s/%s/%s",
			out.Edge, out.AdjustedYes, out.AdjustedNo, in.Edge, in.AdjustedYes, in.AdjustedNo)
	}
	if !out.YesQuote.Price.Equal(in.YesQuote.Price) || !out.NoQuote.Price.Equal(in.NoQuote.Price) {
		t.Errorf("prices = %s/%s, want %s/%s",
			out.YesQuote.Price, out.NoQuote.Price, in.YesQuote.Price, in.NoQuote.Price)
	}
	if out.YesQuote.Side != domain.SideYes || out.NoQuote.Side != domain.SideNo {
		t.Errorf("sides = %s/%s, want YES/NO", out.YesQuote.Side, out.NoQuote.Side)
	}
}

func TestEdgeFromFieldsRejectsBadHash(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"venue_yes":    "kalshi",
			"venue_no":     "predictit",
			"yes_price":    "0.46",
			"no_price":     "0.55",
			"adjusted_yes": "0.487",
			"adjusted_no":  "0.451",
			"edge":         "0.062",
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{"missing edge", func(m map[string]string) { delete(m, "edge") }, "missing field edge"},
		{"missing yes price", func(m map[string]string) { delete(m, "yes_price") }, "missing field yes_price"},
		{"garbage decimal", func(m map[string]string) { m["adjusted_no"] = "not-a-number" }, "adjusted_no"},
		{"empty decimal", func(m map[string]string) { m["no_price"] = "" }, "no_price"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vals := base()
			tc.mutate(vals)
			_, err := edgeFromFields("fed-cut", vals)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestEdgeKey(t *testing.T) {
	if got := edgeKey("fed-cut"); got != "edge:fed-cut" {
		t.Errorf("edgeKey = %q", got)
	}
}
