package main

import (
	"context"
	"fmt"
	"os"

	"github.com/brojonat/solwatch/service/participants"
	"github.com/brojonat/solwatch/service/report"
	"github.com/brojonat/solwatch/service/traders"
	"github.com/urfave/cli/v2"
)

func mintFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source", Usage: "Bonding-curve or source address to page signatures from", Required: true},
		&cli.StringFlag{Name: "mint", Usage: "Token mint address", Required: true},
		&cli.IntFlag{Name: "max-buyers", Value: 50},
		&cli.IntFlag{Name: "max-signatures", Value: 1000},
		&cli.IntFlag{Name: "batch-size", Value: 100},
	}
}

func firstBuyersCommand() *cli.Command {
	return &cli.Command{
		Name:  "first-buyers",
		Usage: "Find the first N distinct wallets to receive a mint",
		Flags: mintFlags(),
		Action: func(c *cli.Context) error {
			rpcClient, err := getSolanaClient(c)
			if err != nil {
				return err
			}

			buyers, err := traders.FirstBuyers(context.Background(), rpcClient, rpcClient, c.String("source"), c.String("mint"), traders.Options{
				MaxBuyers:     c.Int("max-buyers"),
				MaxSignatures: c.Int("max-signatures"),
				BatchSize:     c.Int("batch-size"),
			})
			if err != nil {
				return fmt.Errorf("first-buyers scan failed: %w", err)
			}
			return outputJSON(buyers)
		},
	}
}

func topTradersCommand() *cli.Command {
	return &cli.Command{
		Name:  "top-traders",
		Usage: "Rank first buyers by first-buy token amount and by scoped realized PnL",
		Flags: append(mintFlags(),
			&cli.IntFlag{Name: "top-n", Value: 20},
			&cli.StringFlag{Name: "since", Usage: "Only include swaps at or after this time (RFC3339)"},
			&cli.StringFlag{Name: "until", Usage: "Only include swaps at or before this time (RFC3339)"},
			&cli.StringFlag{Name: "format", Value: "json", Usage: "Output format: json, csv, or markdown"},
			&cli.StringFlag{Name: "rank-by", Value: "token-amount", Usage: "Ranking used for csv/markdown output: token-amount or pnl"},
		),
		Action: func(c *cli.Context) error {
			rpcClient, err := getSolanaClient(c)
			if err != nil {
				return err
			}

			mint := c.String("mint")
			buyers, err := traders.FirstBuyers(context.Background(), rpcClient, rpcClient, c.String("source"), mint, traders.Options{
				MaxBuyers:     c.Int("max-buyers"),
				MaxSignatures: c.Int("max-signatures"),
				BatchSize:     c.Int("batch-size"),
			})
			if err != nil {
				return fmt.Errorf("first-buyers scan failed: %w", err)
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			addresses := make([]string, 0, len(buyers))
			for _, b := range buyers {
				addresses = append(addresses, b.Wallet)
			}

			tr, err := parseTimeRangeFlags(c)
			if err != nil {
				return err
			}

			txByWallet, err := store.GetByWallets(context.Background(), addresses, nil, tr.toDBRange())
			if err != nil {
				return fmt.Errorf("failed to load swap data: %w", err)
			}

			byTokenAmount := traders.TopTradersByTokenAmount(buyers, txByWallet, mint, c.Int("top-n"))
			byPnL := traders.TopTradersByPnL(buyers, txByWallet, mint, c.Int("top-n"))

			format := c.String("format")
			if format == "json" {
				return outputJSON(map[string]any{
					"by_token_amount": byTokenAmount,
					"by_pnl":          byPnL,
				})
			}

			ranked := byTokenAmount
			if c.String("rank-by") == "pnl" {
				ranked = byPnL
			}
			rows := report.BuildFirstBuyerRows(ranked)
			switch format {
			case "csv":
				return report.WriteFirstBuyersCSV(os.Stdout, rows)
			case "markdown":
				return report.WriteFirstBuyersMarkdown(os.Stdout, rows)
			default:
				return fmt.Errorf("unknown format %q (want json, csv, or markdown)", format)
			}
		},
	}
}

func participantsCommand() *cli.Command {
	return &cli.Command{
		Name:  "participants",
		Usage: "Scan pre-cutoff buyers of a mint and append an enriched participants manifest",
		Flags: append(mintFlags(),
			&cli.Int64Flag{Name: "cutoff-ts", Required: true, Usage: "Unix timestamp cutoff; only buys at or before this time are included"},
			&cli.Int64Flag{Name: "window-seconds", Value: 3600, Usage: "Lookback window before cutoff-ts"},
			&cli.StringFlag{Name: "output", Value: "csv", Usage: "Manifest format: csv or jsonl"},
			&cli.StringFlag{Name: "outfile", Required: true, Usage: "Manifest file path to append to"},
		),
		Action: func(c *cli.Context) error {
			rpcClient, err := getSolanaClient(c)
			if err != nil {
				return err
			}

			mint := c.String("mint")
			cutoffTs := c.Int64("cutoff-ts")
			rows, err := participants.Scan(context.Background(), rpcClient, rpcClient, rpcClient, c.String("source"), mint, participants.Options{
				CutoffTs:      cutoffTs,
				WindowSeconds: c.Int64("window-seconds"),
				BatchSize:     c.Int("batch-size"),
				MaxSignatures: c.Int("max-signatures"),
			})
			if err != nil {
				return fmt.Errorf("participants scan failed: %w", err)
			}

			opts := report.ParticipantManifestOptions{
				RunSource: c.String("source"),
			}

			outfile := c.String("outfile")
			switch c.String("output") {
			case "csv":
				err = report.AppendParticipantsCSV(outfile, rows, opts)
			case "jsonl":
				err = report.AppendParticipantsJSONL(outfile, rows, opts)
			default:
				return fmt.Errorf("unknown output %q (want csv or jsonl)", c.String("output"))
			}
			if err != nil {
				return fmt.Errorf("writing manifest: %w", err)
			}

			fmt.Fprintf(os.Stderr, "appended %d participants to %s\n", len(rows), outfile)
			return nil
		},
	}
}
