// chaintest exercises the live market-data providers end to end. It needs
// real API tokens and network access, so it lives outside the test suite.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ivcrush/internal/config"
	"ivcrush/internal/provider"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("=== Provider Smoke Test ===")
	ctx := context.Background()

	var providers []provider.Provider
	if cfg.Providers.Tradier.Token != "" {
		providers = append(providers, provider.NewTradierProvider(
			cfg.Providers.Tradier.Token, cfg.Providers.Tradier.RateLimit, cfg.Providers.DailyBudget))
	}
	providers = append(providers, provider.NewYahooProvider(cfg.Providers.Yahoo.RateLimit))
	if cfg.Providers.Finnhub.Token != "" {
		providers = append(providers, provider.NewFinnhubProvider(
			cfg.Providers.Finnhub.Token, cfg.Providers.Finnhub.RateLimit))
	}

	const ticker = "NVDA"
	for i, p := range providers {
		fmt.Printf("\n[%d] %s\n", i+1, p.Name())

		start := time.Now()
		spot, err := p.GetSpot(ctx, ticker)
		if err != nil {
			fmt.Printf("    spot: ERROR - %v\n", err)
		} else {
			fmt.Printf("    spot: %s = $%.2f (%s)\n", ticker, spot, time.Since(start).Round(time.Millisecond))
		}

		expirations, err := p.GetExpirations(ctx, ticker)
		if err != nil {
			fmt.Printf("    expirations: ERROR - %v\n", err)
			continue
		}
		fmt.Printf("    expirations: %d, nearest %s\n", len(expirations), expirations[0].Format("2006-01-02"))

		start = time.Now()
		chain, err := p.GetChain(ctx, ticker, expirations[0])
		if err != nil {
			fmt.Printf("    chain: ERROR - %v\n", err)
			continue
		}
		atm, _ := chain.ATMStrike(chain.Spot)
		withGreeks := 0
		for _, q := range append(chain.Calls, chain.Puts...) {
			if q.Greeks != nil {
				withGreeks++
			}
		}
		fmt.Printf("    chain: %d calls / %d puts, ATM %.1f, %d with greeks (%s)\n",
			len(chain.Calls), len(chain.Puts), atm, withGreeks, time.Since(start).Round(time.Millisecond))
	}

	fmt.Println("\n[calendar] next 7 days")
	from := time.Now()
	for _, p := range providers {
		events, err := p.GetEarningsCalendar(ctx, from, from.AddDate(0, 0, 7))
		if err != nil {
			fmt.Printf("    %s: %v\n", p.Name(), err)
			continue
		}
		fmt.Printf("    %s: %d events\n", p.Name(), len(events))
		for i, e := range events {
			if i >= 5 {
				break
			}
			fmt.Printf("      %s %s %s\n", e.Date.Format("2006-01-02"), e.Session, e.Ticker)
		}
	}

	fmt.Println("\n=== Done ===")
}
