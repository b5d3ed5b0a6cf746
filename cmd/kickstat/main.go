package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/internal/logger"
	"github.com/HatemAHMED80/kickstat/pkg/history"
	"github.com/HatemAHMED80/kickstat/pkg/predictor"
	"github.com/HatemAHMED80/kickstat/pkg/store"
)

var (
	cfgPath  string
	dbPath   string
	logLevel string
	cfg      *config.Config

	asOf     string
	oddsHome float64
	oddsDraw float64
	oddsAway float64
)

var rootCmd = &cobra.Command{
	Use:   "kickstat",
	Short: "Football match prediction and betting backtest engine",
	Long: `kickstat fits goal and rating models on historical match results,
predicts upcoming fixtures across the main betting markets, and
backtests the whole pipeline walk-forward against recorded odds.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(logLevel)
		var err error
		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			cfg = config.Default()
		}
		return err
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv> [file.csv...]",
	Short: "Load football-data.co.uk result files into the match store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var predictCmd = &cobra.Command{
	Use:   "predict <home> <away>",
	Short: "Predict one fixture from the stored match history",
	Long: `Fits the models on every stored match played before the --asof date
(default now) and prints the market view for the fixture. Pass 1X2
odds to see the value analysis against a bookmaker price.`,
	Args: cobra.ExactArgs(2),
	RunE: runPredict,
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Walk the stored history forward and report calibration and betting performance",
	Args:  cobra.NoArgs,
	RunE:  runBacktest,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "kickstat.db", "sqlite match store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	predictCmd.Flags().StringVar(&asOf, "asof", "", "prediction date, RFC3339 or 2006-01-02 (default now)")
	predictCmd.Flags().Float64Var(&oddsHome, "odds-home", 0, "decimal home odds for value analysis")
	predictCmd.Flags().Float64Var(&oddsDraw, "odds-draw", 0, "decimal draw odds for value analysis")
	predictCmd.Flags().Float64Var(&oddsAway, "odds-away", 0, "decimal away odds for value analysis")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(backtestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	total := 0
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		matches, err := history.ParseFootballDataCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := s.SaveMatches(matches); err != nil {
			return fmt.Errorf("storing %s: %w", path, err)
		}
		log.Info().Str("file", path).Int("matches", len(matches)).Msg("ingested")
		total += len(matches)
	}

	n, err := s.CountMatches()
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d matches, store now holds %d\n", total, n)
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	home, away := args[0], args[1]

	reference := time.Now().UTC()
	if asOf != "" {
		var err error
		reference, err = parseDate(asOf)
		if err != nil {
			return err
		}
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	matches, err := s.LoadMatches()
	if err != nil {
		return err
	}

	p := predictor.New(cfg)
	if err := p.Fit(matches, reference); err != nil {
		return err
	}
	pred, err := p.Predict(home, away)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s v %s\t\n", home, away)
	fmt.Fprintf(w, "home\t%.1f%%\n", pred.Outcomes.Home*100)
	fmt.Fprintf(w, "draw\t%.1f%%\n", pred.Outcomes.Draw*100)
	fmt.Fprintf(w, "away\t%.1f%%\n", pred.Outcomes.Away*100)
	fmt.Fprintf(w, "over 1.5\t%.1f%%\n", pred.Over15*100)
	fmt.Fprintf(w, "over 2.5\t%.1f%%\n", pred.Over25*100)
	fmt.Fprintf(w, "over 3.5\t%.1f%%\n", pred.Over35*100)
	fmt.Fprintf(w, "btts\t%.1f%%\n", pred.BTTSYes*100)
	fmt.Fprintf(w, "expected goals\t%.2f - %.2f\n", pred.ExpectedHomeGoals, pred.ExpectedAwayGoals)
	fmt.Fprintf(w, "model agreement\t%.2f\n", pred.Agreement)
	for _, sc := range pred.TopScores {
		fmt.Fprintf(w, "score %d-%d\t%.1f%%\n", sc.HomeGoals, sc.AwayGoals, sc.Probability*100)
	}
	w.Flush()

	if oddsHome > 1 && oddsDraw > 1 && oddsAway > 1 {
		records, err := p.EvaluateEdge(pred, &history.OddsQuote{Home: oddsHome, Draw: oddsDraw, Away: oddsAway})
		if err != nil {
			return err
		}
		fmt.Println()
		ew := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(ew, "selection\tmodel\tfair\tedge\tkelly\trisk")
		for _, r := range records {
			fmt.Fprintf(ew, "%s\t%.1f%%\t%.1f%%\t%+.1f%%\t%.1f%%\t%s\n",
				r.Selection, r.ModelProbability*100, r.FairProbability*100,
				r.EdgePercent, r.KellyStake*100, r.Risk)
		}
		ew.Flush()
	}
	return nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	matches, err := s.LoadMatches()
	if err != nil {
		return err
	}

	p := predictor.New(cfg)
	result, err := p.RunBacktest(ctx, matches)
	if err != nil {
		return err
	}

	cal := result.Calibration
	bet := result.Betting

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "predictions\t%d\n", len(result.Ledger.Predictions))
	fmt.Fprintf(w, "accuracy\t%.1f%%\n", cal.Accuracy*100)
	if cal.ScoreSamples > 0 {
		fmt.Fprintf(w, "exact score\t%.1f%%\n", cal.ScoreAccuracy*100)
	}
	fmt.Fprintf(w, "brier\t%.4f\n", cal.Brier)
	fmt.Fprintf(w, "log loss\t%.4f\n", cal.LogLoss)
	fmt.Fprintf(w, "ece\t%.4f\n", cal.ECE)
	fmt.Fprintf(w, "bets\t%d\n", bet.Bets)
	fmt.Fprintf(w, "win rate\t%.1f%%\n", bet.WinRate*100)
	fmt.Fprintf(w, "roi\t%+.2f%%\n", bet.ROI*100)
	fmt.Fprintf(w, "final bankroll\t%.2f\n", bet.FinalBankroll)
	w.Flush()

	if len(bet.PerMarket) > 0 {
		fmt.Println()
		markets := make([]string, 0, len(bet.PerMarket))
		for m := range bet.PerMarket {
			markets = append(markets, m)
		}
		sort.Strings(markets)
		mw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(mw, "market\tbets\twins\tstaked\tpnl\troi")
		for _, m := range markets {
			ms := bet.PerMarket[m]
			fmt.Fprintf(mw, "%s\t%d\t%d\t%.2f\t%+.2f\t%+.2f%%\n",
				m, ms.Bets, ms.Wins, ms.Staked, ms.PnL, ms.ROI*100)
		}
		mw.Flush()
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
