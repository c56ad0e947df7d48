// Package symbols defines the optionable-ticker universes and loads the
// earnings calendar that drives a scan.
package symbols

import "strings"

// Universe represents a predefined ticker universe
type Universe string

const (
	UniverseLiquid100 Universe = "liquid100"
	UniverseTest      Universe = "test" // small set for quick runs
)

// GetUniverse returns the tickers for a given universe
func GetUniverse(u Universe) []string {
	switch u {
	case UniverseLiquid100:
		return Liquid100Symbols
	case UniverseTest:
		return TestSymbols
	default:
		return nil
	}
}

// Contains reports whether the universe includes the ticker
func Contains(u Universe, ticker string) bool {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, s := range GetUniverse(u) {
		if s == ticker {
			return true
		}
	}
	return false
}

// TestSymbols is a small set of heavily-traded option names
var TestSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "AMD", "NFLX", "JPM",
}

// Liquid100Symbols are large caps with consistently tight, deep option
// markets. Illiquid-chain names are pointless here: the classifier would
// reject every structure anyway, so the scan does not bother fetching them.
var Liquid100Symbols = []string{
	// Technology
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "NVDA", "META", "TSLA", "AVGO", "ORCL",
	"CRM", "ADBE", "AMD", "INTC", "CSCO", "IBM", "TXN", "QCOM", "AMAT", "MU",
	"PANW", "CRWD", "SNOW", "NOW", "UBER", "SHOP", "SQ", "PLTR", "SMCI", "ARM",
	// Financials
	"JPM", "V", "MA", "BAC", "WFC", "GS", "MS", "C", "SCHW", "AXP",
	"BLK", "COIN", "PYPL",
	// Healthcare
	"UNH", "JNJ", "LLY", "PFE", "ABBV", "MRK", "TMO", "ABT", "BMY", "AMGN",
	"GILD", "MRNA", "CVS",
	// Consumer
	"WMT", "PG", "KO", "PEP", "COST", "MCD", "NKE", "SBUX", "TGT", "HD",
	"LOW", "DIS", "BKNG", "CMG", "LULU", "ABNB",
	// Industrials
	"CAT", "DE", "BA", "HON", "UPS", "GE", "LMT", "RTX", "FDX", "UNP",
	// Energy
	"XOM", "CVX", "COP", "SLB", "OXY",
	// Communications
	"NFLX", "CMCSA", "T", "VZ", "TMUS",
	// High-beta earnings movers
	"ROKU", "DKNG", "RBLX", "AFRM", "SOFI", "CVNA", "UPST", "NET", "DDOG", "MDB",
	"ZM", "DOCU", "TTD", "ENPH", "MARA",
}
