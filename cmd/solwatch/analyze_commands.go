package main

import (
	"context"
	"fmt"

	"github.com/brojonat/solwatch/service/correlation"
	"github.com/brojonat/solwatch/service/pnl"
	"github.com/urfave/cli/v2"
)

func correlateCommand() *cli.Command {
	return &cli.Command{
		Name:  "correlate",
		Usage: "Run the correlation analyzer over all tracked wallets' stored swaps",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "popular-percent", Value: 0.1, Usage: "Top fraction of tokens by rank treated as popular"},
			&cli.IntFlag{Name: "min-occurrences-for-popular", Value: 20, Usage: "Occurrence count above which a token is popular regardless of rank"},
			&cli.Int64Flag{Name: "sync-window-seconds", Value: 300, Usage: "Max timestamp difference for a synchronized trade"},
			&cli.Float64Flag{Name: "weight-shared", Value: 1.0, Usage: "Score weight per shared non-obvious token"},
			&cli.Float64Flag{Name: "weight-sync", Value: 2.0, Usage: "Score weight per synchronized trade event"},
			&cli.IntFlag{Name: "min-shared", Value: 0, Usage: "Minimum shared non-obvious tokens to emit a pair"},
			&cli.IntFlag{Name: "min-sync-events", Value: 0, Usage: "Minimum sync events to emit a pair"},
			&cli.Float64Flag{Name: "min-cluster-score", Value: 0, Usage: "Minimum pair score for a pair to join the cluster graph"},
			&cli.IntFlag{Name: "bot-filter-max-daily-tokens", Value: 50, EnvVars: []string{"CORRELATION_BOT_FILTER_MAX_DAILY_TOKENS"}, Usage: "Exclude wallets buying more than this many distinct mints on any UTC day"},
			&cli.StringSliceFlag{Name: "exclude-mint", Usage: "Mint to exclude from analysis (repeatable)"},
			&cli.StringFlag{Name: "since", Usage: "Only include swaps at or after this time (RFC3339)"},
			&cli.StringFlag{Name: "until", Usage: "Only include swaps at or before this time (RFC3339)"},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			wallets, err := store.ListWallets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}
			addresses := make([]string, 0, len(wallets))
			for _, w := range wallets {
				addresses = append(addresses, w.Address)
			}

			tr, err := parseTimeRangeFlags(c)
			if err != nil {
				return err
			}

			excluded := map[string]bool{}
			for _, m := range c.StringSlice("exclude-mint") {
				excluded[m] = true
			}

			txByWallet, err := store.GetByWallets(ctx, addresses, c.StringSlice("exclude-mint"), tr.toDBRange())
			if err != nil {
				return fmt.Errorf("failed to load swap data: %w", err)
			}

			cfg := correlation.Config{
				PopularPercent:           c.Float64("popular-percent"),
				MinOccurrencesForPopular: c.Int("min-occurrences-for-popular"),
				ExcludedMints:            excluded,
				SyncTimeWindowSeconds:    c.Int64("sync-window-seconds"),
				WeightSharedNonObvious:   c.Float64("weight-shared"),
				WeightSyncEvents:         c.Float64("weight-sync"),
				MinSharedNonObvious:      c.Int("min-shared"),
				MinSyncEvents:            c.Int("min-sync-events"),
				MinClusterScoreThreshold: c.Float64("min-cluster-score"),
				BotFilterMaxDailyTokens:  c.Int("bot-filter-max-daily-tokens"),
			}

			result := correlation.Analyze(txByWallet, cfg)
			return outputJSON(result)
		},
	}
}

func pnlCommand() *cli.Command {
	return &cli.Command{
		Name:      "pnl",
		Usage:     "Compute realized SOL PnL, volume, and holding-time profile for tracked wallets",
		ArgsUsage: "[address...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "since", Usage: "Only include swaps at or after this time (RFC3339)"},
			&cli.StringFlag{Name: "until", Usage: "Only include swaps at or before this time (RFC3339)"},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			addresses := c.Args().Slice()
			if len(addresses) == 0 {
				wallets, err := store.ListWallets(ctx)
				if err != nil {
					return fmt.Errorf("failed to list wallets: %w", err)
				}
				for _, w := range wallets {
					addresses = append(addresses, w.Address)
				}
			}

			tr, err := parseTimeRangeFlags(c)
			if err != nil {
				return err
			}

			txByWallet, err := store.GetByWallets(ctx, addresses, nil, tr.toDBRange())
			if err != nil {
				return fmt.Errorf("failed to load swap data: %w", err)
			}

			result := map[string]any{}
			pnlByWallet := pnl.Compute(txByWallet)
			for addr, txs := range txByWallet {
				result[addr] = map[string]any{
					"pnl":     pnlByWallet[addr],
					"holding": pnl.ClassifyHoldingTime(txs),
				}
			}
			return outputJSON(result)
		},
	}
}
