package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "solwatch",
		Usage: "Solana wallet transaction ingestion and correlation analysis CLI",
		Description: `A command-line tool for driving and inspecting the solwatch ingestion
and analysis pipeline: sync wallets, inspect stored swaps, run the
correlation analyzer, and extract first-buyer / top-trader / mint
-participants reports.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			{
				Name:  "db",
				Usage: "Database inspection commands",
				Subcommands: []*cli.Command{
					listWalletsCommand(),
					getWalletCommand(),
					listSwapsCommand(),
				},
			},
			{
				Name:  "ingest",
				Usage: "One-shot wallet ingestion commands",
				Subcommands: []*cli.Command{
					syncWalletCommand(),
				},
			},
			{
				Name:  "analyze",
				Usage: "Offline analysis commands over stored swap data",
				Subcommands: []*cli.Command{
					correlateCommand(),
					pnlCommand(),
				},
			},
			{
				Name:  "mint",
				Usage: "Mint-scoped trader and participant reports",
				Subcommands: []*cli.Command{
					firstBuyersCommand(),
					topTradersCommand(),
					participantsCommand(),
				},
			},
			{
				Name:  "temporal",
				Usage: "Temporal schedule management commands",
				Subcommands: []*cli.Command{
					createScheduleCommand(),
					deleteScheduleCommand(),
				},
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "solana-rpc-url",
				Usage:   "Solana RPC endpoint",
				EnvVars: []string{"SOLANA_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "helius-base-url",
				Usage:   "Helius enhanced-transactions base URL",
				EnvVars: []string{"HELIUS_BASE_URL"},
				Value:   "https://api.helius.xyz",
			},
			&cli.StringFlag{
				Name:    "helius-api-key",
				Usage:   "Helius API key",
				EnvVars: []string{"HELIUS_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "temporal-task-queue",
				Usage:   "Temporal task queue",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "solwatch-ingestion",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
