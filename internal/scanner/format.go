package scanner

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
)

var hundred = decimal.New(1, 2)

// formatAlert renders one alert line, e.g.
//
//	EDGE 6.200 | fed-cut-mar YES@Kalshi 0.46 vs NO@PredictIt 0.55 | Kelly stake: $120
//
// The leading figure is the edge times one hundred to three decimals. The
// stake clause is omitted when no bankroll is configured.
func formatAlert(res domain.EdgeResult, stake *decimal.Decimal) string {
	line := fmt.Sprintf("EDGE %s | %s YES@%s %s vs NO@%s %s",
		res.Edge.Mul(hundred).StringFixed(3),
		res.Tag,
		res.VenueYes.Display(), res.YesQuote.Price.StringFixed(2),
		res.VenueNo.Display(), res.NoQuote.Price.StringFixed(2),
	)
	if stake != nil {
		line += fmt.Sprintf(" | Kelly stake: $%s", stake.StringFixed(0))
	}
	return line
}
