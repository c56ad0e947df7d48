package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ivcrush/internal/backtest"
	"ivcrush/internal/config"
	"ivcrush/internal/daemon"
	"ivcrush/internal/provider"
	"ivcrush/internal/scanner"
	"ivcrush/internal/store"
	"ivcrush/internal/symbols"
	"ivcrush/internal/web"
	"ivcrush/pkg/model"
)

var (
	cfgFile      string
	profileName  string
	calendarFile string
	format       string
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ivcrush",
		Short: "Earnings IV-crush scanner for short premium structures",
		Long: `ivcrush finds earnings events where the options market prices a far
larger move than the stock has historically delivered, and constructs
defined-risk short premium structures around them.

Examples:
  ivcrush scan --universe liquid100 --days 7
  ivcrush analyze NVDA --bias neutral
  ivcrush backtest NVDA,AMD --quarters 8
  ivcrush serve --port 8750`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "scoring profile: balanced, consistency-heavy, aggressive")
	rootCmd.PersistentFlags().StringVar(&calendarFile, "calendar", "", "fixed earnings calendar YAML (overrides provider lookups)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "show detailed output")

	rootCmd.AddCommand(scanCmd(), analyzeCmd(), backtestCmd(), serveCmd(), daemonCmd(), runsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config and wires the provider chain and calendar
func setup() (*config.Config, provider.Provider, *symbols.CalendarLoader, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	providers := createProviders(cfg)
	fallback := provider.NewFallbackProvider(providers...)
	if !fallback.IsAvailable() {
		return nil, nil, nil, fmt.Errorf("no available data providers")
	}
	if verbose {
		names := make([]string, 0, len(fallback.Providers()))
		for _, p := range fallback.Providers() {
			names = append(names, p.Name())
		}
		fmt.Printf("Using providers: %s\n", strings.Join(names, ", "))
	}

	cached := provider.NewCachingProvider(fallback)
	calendar := symbols.NewCalendarLoader(cached)
	if calendarFile != "" {
		if err := calendar.LoadFile(calendarFile); err != nil {
			return nil, nil, nil, fmt.Errorf("loading calendar: %w", err)
		}
	}
	return cfg, cached, calendar, nil
}

func createProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider

	// Tradier first: the only chain source with Greeks and open interest
	if cfg.Providers.Tradier.Token != "" {
		providers = append(providers, provider.NewTradierProvider(
			cfg.Providers.Tradier.Token,
			cfg.Providers.Tradier.RateLimit,
			cfg.Providers.DailyBudget,
		))
	}

	// Yahoo fallback: chains without Greeks, scored on the reduced path
	providers = append(providers, provider.NewYahooProvider(cfg.Providers.Yahoo.RateLimit))

	// Finnhub serves the earnings calendar
	if cfg.Providers.Finnhub.Token != "" {
		providers = append(providers, provider.NewFinnhubProvider(
			cfg.Providers.Finnhub.Token,
			cfg.Providers.Finnhub.RateLimit,
		))
	}

	return providers
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted.")
		cancel()
	}()
	return ctx, cancel
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
}

func scanCmd() *cobra.Command {
	var (
		universe  string
		daysAhead int
		workers   int
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan upcoming earnings for IV-crush candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prov, calendar, err := setup()
			if err != nil {
				return err
			}
			profile, err := cfg.Profile(profileName)
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Scanner.Workers = workers
			}
			if daysAhead > 0 {
				cfg.Scanner.DaysAhead = daysAhead
			}
			if universe == "" {
				universe = string(symbols.UniverseLiquid100)
			}

			ctx, cancel := signalContext()
			defer cancel()

			events, err := calendar.Upcoming(ctx, symbols.Universe(universe), time.Now(), cfg.Scanner.DaysAhead)
			if err != nil {
				return fmt.Errorf("loading earnings calendar: %w", err)
			}
			if len(events) == 0 {
				fmt.Printf("No earnings events in the next %d days.\n", cfg.Scanner.DaysAhead)
				return nil
			}

			fmt.Printf("Scanning %d earnings events (%s profile)...\n\n", len(events), profile.Name)
			s := scanner.NewScanner(prov, calendar, profile, cfg.Analysis.RiskBudget,
				cfg.Scanner.Workers, cfg.Scanner.Timeout)

			bar := newProgressBar(len(events))
			s.SetProgressCallback(func(scanned, total int) {
				bar.Set(scanned)
			})

			result, err := s.Scan(ctx, events)
			if err != nil {
				return fmt.Errorf("scanning: %w", err)
			}
			bar.Finish()
			fmt.Println()

			if save {
				st, err := store.Open(cfg.Store.Path)
				if err != nil {
					return fmt.Errorf("opening store: %w", err)
				}
				defer st.Close()
				runID, err := st.SaveScan(ctx, universe, result)
				if err != nil {
					return fmt.Errorf("saving run: %w", err)
				}
				fmt.Printf("Saved run %s\n\n", runID)
			}

			if format == "json" {
				return outputJSON(result)
			}
			return outputScanTable(result)
		},
	}

	cmd.Flags().StringVar(&universe, "universe", "", "ticker universe: liquid100, test")
	cmd.Flags().IntVar(&daysAhead, "days", 0, "earnings window in days")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run to the local store")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var (
		bias         string
		earningsDate string
		session      string
		riskBudget   float64
	)

	cmd := &cobra.Command{
		Use:   "analyze TICKER",
		Short: "Analyze a single upcoming earnings event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := strings.ToUpper(args[0])

			cfg, prov, calendar, err := setup()
			if err != nil {
				return err
			}
			profile, err := cfg.Profile(profileName)
			if err != nil {
				return err
			}
			if riskBudget <= 0 {
				riskBudget = cfg.Analysis.RiskBudget
			}

			directional, err := parseBias(bias)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			event, err := resolveEvent(ctx, calendar, cfg, ticker, earningsDate, session)
			if err != nil {
				return err
			}

			s := scanner.NewScanner(prov, calendar, profile, riskBudget, 1, cfg.Scanner.Timeout)
			result, err := s.AnalyzeEvent(ctx, event, directional)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", ticker, err)
			}

			if format == "json" {
				return outputJSON(result)
			}
			outputAnalysis(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&bias, "bias", "neutral", "directional bias: bullish, bearish, neutral")
	cmd.Flags().StringVar(&earningsDate, "date", "", "earnings date YYYY-MM-DD (default: next calendar event)")
	cmd.Flags().StringVar(&session, "session", "AMC", "earnings session: BMO, AMC")
	cmd.Flags().Float64Var(&riskBudget, "risk", 0, "max dollars at risk (default from config)")
	return cmd
}

func backtestCmd() *cobra.Command {
	var (
		quarters  int
		ivPremium float64
	)

	cmd := &cobra.Command{
		Use:   "backtest TICKERS",
		Short: "Replay past earnings and settle picks against realized moves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers := splitTickers(args[0])

			cfg, prov, calendar, err := setup()
			if err != nil {
				return err
			}
			profile, err := cfg.Profile(profileName)
			if err != nil {
				return err
			}

			btCfg := backtest.DefaultConfig()
			btCfg.RiskBudget = cfg.Analysis.RiskBudget
			if quarters > 0 {
				btCfg.Quarters = quarters
			}
			if ivPremium > 0 {
				btCfg.IVPremium = ivPremium
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("Replaying %d tickers, %d quarters back...\n\n", len(tickers), btCfg.Quarters)
			bt := backtest.NewBacktester(prov, calendar, profile, btCfg)
			result, err := bt.Run(ctx, tickers)
			if err != nil {
				return fmt.Errorf("backtesting: %w", err)
			}

			if format == "json" {
				return outputJSON(result)
			}
			outputBacktest(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&quarters, "quarters", 0, "quarters to replay per ticker")
	cmd.Flags().Float64Var(&ivPremium, "premium", 0, "assumed implied/realized richness at entry")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		port       int
		issueToken string
		tokenTTL   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prov, calendar, err := setup()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Web.Port = port
			}

			if issueToken != "" {
				if cfg.Web.JWTSecret == "" {
					return fmt.Errorf("cannot issue a token without a JWT secret configured")
				}
				token, err := web.IssueToken(cfg.Web.JWTSecret, issueToken, tokenTTL)
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			}

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			log := newLogger()
			srv := web.New(cfg, prov, calendar, st, log)

			ctx, cancel := signalContext()
			defer cancel()
			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	cmd.Flags().StringVar(&issueToken, "issue-token", "", "print a bearer token for the given subject and exit")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "issued token lifetime")
	return cmd
}

func daemonCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled pre-market scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prov, calendar, err := setup()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			ctx, cancel := signalContext()
			defer cancel()

			d := daemon.New(cfg, prov, calendar, st, newLogger())
			if once {
				d.RunOnce(ctx)
				return nil
			}
			return d.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single scan and exit")
	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			runs, err := st.ListRuns(context.Background(), 20)
			if err != nil {
				return err
			}
			if format == "json" {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Run", "When", "Profile", "Universe", "Scanned", "Tradeable", "Skipped"}),
			)
			for _, r := range runs {
				table.Append([]string{
					r.ID[:8],
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.Profile,
					r.Universe,
					fmt.Sprintf("%d", r.TotalScanned),
					fmt.Sprintf("%d", r.Tradeable),
					fmt.Sprintf("%d", r.Skipped),
				})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func resolveEvent(ctx context.Context, calendar *symbols.CalendarLoader, cfg *config.Config, ticker, date, session string) (model.EarningsEvent, error) {
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return model.EarningsEvent{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", date)
		}
		sess := model.AfterClose
		if strings.EqualFold(session, "BMO") {
			sess = model.BeforeOpen
		}
		return model.EarningsEvent{Ticker: ticker, Date: d, Session: sess}, nil
	}

	events, err := calendar.Upcoming(ctx, symbols.UniverseLiquid100, time.Now(), cfg.Scanner.DaysAhead)
	if err != nil {
		return model.EarningsEvent{}, fmt.Errorf("loading earnings calendar: %w", err)
	}
	for _, ev := range events {
		if ev.Ticker == ticker {
			return ev, nil
		}
	}
	return model.EarningsEvent{}, fmt.Errorf("no upcoming earnings for %s in the next %d days; pass --date explicitly", ticker, cfg.Scanner.DaysAhead)
}

func parseBias(raw string) (model.Bias, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "neutral":
		return model.Neutral, nil
	case "bullish":
		return model.Bullish, nil
	case "bearish":
		return model.Bearish, nil
	default:
		return "", fmt.Errorf("bad bias %q: want bullish, bearish or neutral", raw)
	}
}

func splitTickers(raw string) []string {
	parts := strings.Split(raw, ",")
	tickers := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

func outputScanTable(result *model.ScanResult) error {
	if len(result.Results) == 0 {
		fmt.Println("No tradeable IV-crush setups found.")
		fmt.Printf("Scanned %d events in %s\n", result.TotalScanned, result.ScanTime.Round(time.Second))
		if verbose {
			printSkips(result.Skipped)
		}
		return nil
	}

	fmt.Printf("Found %d tradeable setups:\n\n", len(result.Results))

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Earnings", "Strategy", "Score", "VRP", "POP", "Credit", "Liquidity"}),
	)
	for _, r := range result.Results {
		top := r.Recommended()
		table.Append([]string{
			r.Ticker,
			r.EarningsDate.Format("01-02") + " " + string(r.Bias),
			string(top.Type),
			fmt.Sprintf("%.1f", top.Score),
			fmt.Sprintf("%.1fx %s", r.VRP.Ratio, r.VRP.Tier),
			fmt.Sprintf("%.0f%%", top.POP*100),
			fmt.Sprintf("$%.2f", top.NetCredit),
			string(r.LiquiditySummary),
		})
	}
	table.Render()

	// Details for the top results
	fmt.Println("\n--- Top Setups ---")
	for i, r := range result.Results {
		if i >= 5 {
			break
		}
		printResultDetail(&r)
	}

	fmt.Printf("\nScanned %d events in %s (%d skipped)\n",
		result.TotalScanned, result.ScanTime.Round(time.Second), len(result.Skipped))
	if verbose {
		printSkips(result.Skipped)
	}
	return nil
}

func printSkips(skipped []model.ScanSkip) {
	if len(skipped) == 0 {
		return
	}
	fmt.Println("\nSkipped:")
	for _, s := range skipped {
		fmt.Printf("  %-6s %s\n", s.Ticker, s.Reason)
	}
}

func outputAnalysis(result *model.AnalysisResult) {
	fmt.Printf("[%s] earnings %s, expiration %s\n",
		result.Ticker, result.EarningsDate.Format("2006-01-02"), result.Expiration.Format("2006-01-02"))
	if result.ImpliedMove != nil && result.MoveStats != nil {
		fmt.Printf("  Implied move %.1f%% vs %.1f%% historical (%d events)\n",
			result.ImpliedMove.ImpliedMovePct, result.MoveStats.WeightedAbsPct, result.MoveStats.Events)
	}
	if result.VRP != nil {
		fmt.Printf("  VRP %.1fx [%s], consistency %.2f\n",
			result.VRP.Ratio, result.VRP.Tier, result.VRP.Consistency)
	}

	if len(result.RankedStrategies) == 0 {
		fmt.Printf("  No trade: %s\n", result.NoTradeReason)
		return
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Strategy", "Score", "POP", "Credit", "Width", "Max Loss", "Contracts"}),
	)
	for _, s := range result.RankedStrategies {
		table.Append([]string{
			string(s.Type),
			fmt.Sprintf("%.1f", s.Score),
			fmt.Sprintf("%.0f%%", s.POP*100),
			fmt.Sprintf("$%.2f", s.NetCredit),
			fmt.Sprintf("%.1f", s.SpreadWidth),
			fmt.Sprintf("$%.0f", s.MaxLoss),
			fmt.Sprintf("%d", s.Contracts),
		})
	}
	table.Render()

	printResultDetail(result)
}

func printResultDetail(r *model.AnalysisResult) {
	top := r.Recommended()
	if top == nil {
		return
	}
	fmt.Printf("\n[%s] %s\n", r.Ticker, top.Type)
	fmt.Printf("  %s\n", top.Rationale)
	fmt.Printf("  Shorts at %v, break-evens %v\n", top.ShortStrikes(), roundAll(top.BreakEvens))
	if top.Position != nil {
		fmt.Printf("  %d contracts: $%.0f credit against $%.0f at risk (%.0f%% of budget)\n",
			top.Position.Contracts, top.Position.CreditReceived,
			top.Position.DollarsAtRisk, top.Position.BudgetUsedPct)
	}
}

func outputBacktest(result *backtest.Result) {
	if result.TotalTrades == 0 {
		fmt.Printf("No trades replayed (%d events, %d declined).\n", result.TotalEvents, result.NoTrades)
		return
	}

	fmt.Printf("Replayed %s: %d events, %d trades\n\n", result.Period, result.TotalEvents, result.TotalTrades)
	fmt.Printf("  Win rate:       %.1f%% (%d/%d)\n", result.WinRate, result.Wins, result.TotalTrades)
	fmt.Printf("  Total P&L:      $%.0f (avg $%.0f per trade)\n", result.TotalPnL, result.AvgPnL)
	fmt.Printf("  Avg win/loss:   $%.0f / $%.0f\n", result.AvgWin, result.AvgLoss)
	fmt.Printf("  Worst loss:     $%.0f\n", result.LargestLoss)
	fmt.Printf("  Profit factor:  %.2f\n", result.ProfitFactor)
	fmt.Printf("  Expectancy:     $%.0f per trade\n", result.Expectancy)
	fmt.Printf("  Implied vs realized: %.1f%% / %.1f%%\n", result.AvgImpliedPct, result.AvgRealizedPct)

	if !verbose {
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Date", "Strategy", "Implied", "Realized", "P&L"}),
	)
	for _, t := range result.Trades {
		table.Append([]string{
			t.Ticker,
			t.Date.Format("2006-01-02"),
			string(t.Strategy),
			fmt.Sprintf("%.1f%%", t.ImpliedMovePct),
			fmt.Sprintf("%+.1f%%", t.RealizedMovePct),
			fmt.Sprintf("$%.0f", t.PnL),
		})
	}
	table.Render()
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(int(v*100+0.5)) / 100
	}
	return out
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
