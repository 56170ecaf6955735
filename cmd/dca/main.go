package main

import (
	"fmt"
	"os"
	"time"

	"zcash-dca-bot-go/internal/bot"
	"zcash-dca-bot-go/internal/config"
	"zcash-dca-bot-go/internal/gateway"
	"zcash-dca-bot-go/internal/kraken"
	"zcash-dca-bot-go/internal/ledger"
	"zcash-dca-bot-go/internal/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "dca",
		Short:         "Automated ZEC DCA purchases on Kraken with accumulation tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yml")
	cmd.AddCommand(newBuyCmd(&configPath))
	cmd.AddCommand(newStatsCmd(&configPath))
	return cmd
}

// newApp wires configuration, logging, the exchange client, the gateway and
// the ledger store into a ready bot. Credential validation happens here,
// before any network call.
func newApp(configPath string) (*bot.Bot, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("could not initialize logger: %w", err)
	}

	client := kraken.NewClient(&cfg.Kraken, log)
	gw := gateway.New(client, cfg.Trading.Pair, log)
	store := ledger.NewStore(cfg.Ledger.Path, log)

	return bot.New(gw, store, log), log, nil
}

func newBuyCmd(configPath *string) *cobra.Command {
	var (
		amount string
		dryRun bool
		noPost bool
	)

	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Execute a single budgeted market buy (or simulate it with --dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			budget, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}

			b, log, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			res := b.Buy(budget, dryRun, !noPost)

			switch res.Status {
			case bot.StatusFailed:
				return res.Err
			case bot.StatusPartial:
				printRecord(cmd, res)
				return fmt.Errorf("trade executed but the ledger could not be updated, reconcile manually: %w", res.Err)
			default:
				printRecord(cmd, res)
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "EUR amount to spend")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate without placing an order")
	cmd.Flags().BoolVar(&noPost, "no-post", false, "skip generating the social media post")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func printRecord(cmd *cobra.Command, res bot.BuyResult) {
	rec := res.Record
	if rec == nil {
		return
	}

	mode := "LIVE"
	if res.DryRun {
		mode = "DRY RUN"
	}
	cmd.Printf("Mode: %s\n", mode)
	cmd.Printf("Bought: %s ZEC\n", rec.Quantity.StringFixed(8))
	cmd.Printf("Spent: €%s\n", rec.QuoteSpent.StringFixed(2))
	cmd.Printf("Price: €%s per ZEC\n", rec.UnitPrice.StringFixed(2))
	if rec.OrderID != nil {
		cmd.Printf("Order ID: %s\n", *rec.OrderID)
	}
	cmd.Printf("Total accumulated: %s ZEC\n", res.TotalQuantity.StringFixed(8))

	if res.Post != "" {
		cmd.Println("\nSocial media post:")
		cmd.Println("======================================================================")
		cmd.Println(res.Post)
		cmd.Println("======================================================================")
	}
}

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show accumulation statistics and recent purchases",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, log, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			stats, recent := b.Stats()

			cmd.Println("ZCash Accumulation Statistics")
			cmd.Println("======================================================================")
			cmd.Printf("Total ZEC accumulated: %s ZEC\n", stats.TotalQuantity.StringFixed(8))
			cmd.Printf("Total EUR spent: €%s\n", stats.TotalQuoteSpent.StringFixed(2))
			if stats.HasAverage {
				cmd.Printf("Average price: €%s per ZEC\n", stats.AveragePrice.StringFixed(2))
			}
			cmd.Printf("Number of purchases: %d\n", stats.NumPurchases)
			if stats.FirstPurchase != "" {
				cmd.Printf("First purchase: %s\n", shortDate(stats.FirstPurchase))
			}
			if stats.LastPurchase != "" {
				cmd.Printf("Last purchase: %s\n", shortDate(stats.LastPurchase))
			}

			if len(recent) > 0 {
				cmd.Println("\nRecent purchases:")
				for _, rec := range recent {
					cmd.Printf("  %s: %s ZEC @ €%s\n",
						shortDate(rec.Date), rec.Quantity.StringFixed(8), rec.UnitPrice.StringFixed(2))
				}
			}
			cmd.Println("======================================================================")
			return nil
		},
	}
}

func shortDate(iso string) string {
	if ts, err := time.Parse(time.RFC3339, iso); err == nil {
		return ts.Format("2006-01-02 15:04")
	}
	return iso
}
