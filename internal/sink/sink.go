package sink

import (
	"strconv"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// Sink persists canonical ticker records for one or more sources.
type Sink interface {
	// Reset clears persisted state for a source. It is invoked for every
	// configured source exactly once at startup, before any poll target may
	// fetch, and must be idempotent.
	Reset(source string) error

	// AppendTicker writes one record to the source's destination.
	AppendTicker(rec model.Ticker) error
}

// tsLayout renders ISO-8601 UTC with millisecond precision.
const tsLayout = "2006-01-02T15:04:05.000Z"

// tickerRow is the flat persistence shape shared by the CSV and JSON sinks:
// four string fields in this literal order.
type tickerRow struct {
	Timestamp string `json:"timestamp"`
	Exchange  string `json:"exchange"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
}

func newTickerRow(rec model.Ticker) tickerRow {
	return tickerRow{
		Timestamp: rec.CapturedAt.UTC().Format(tsLayout),
		Exchange:  rec.Source,
		Symbol:    rec.Symbol,
		Price:     formatPrice(rec.Last),
	}
}

// formatPrice renders a price as decimal text. A nil price renders empty:
// the record is still appended, absence stays visible.
func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
