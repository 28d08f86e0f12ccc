package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/solwatch/service/cache"
	"github.com/brojonat/solwatch/service/ingest"
	"github.com/brojonat/solwatch/service/walletsync"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func syncWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync-wallet",
		Usage:     "Run one incremental-or-full sync for a wallet and exit",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "smart-fetch", Value: true, Usage: "Use the wallet's cursor for an incremental fetch when available"},
			&cli.IntFlag{Name: "target-tx-count", Value: 200, Usage: "Target transaction count; sizes the full-fetch cap"},
			&cli.IntFlag{Name: "min-full-fetch-cap", Value: 300, Usage: "Minimum signature cap for a full fetch"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			rpcClient, err := getSolanaClient(c)
			if err != nil {
				return err
			}

			dbURL := c.String("database-url")
			pool, err := pgxpool.New(context.Background(), dbURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			swapCache := cache.New(pool)
			engine := ingest.NewEngine(rpcClient, swapCache, nil, slog.Default())
			syncer := walletsync.New(store, engine, slog.Default())

			result, err := syncer.SyncWallet(context.Background(), address, walletsync.Options{
				SmartFetch:      c.Bool("smart-fetch"),
				TargetTxCount:   c.Int("target-tx-count"),
				MinFullFetchCap: c.Int("min-full-fetch-cap"),
			})
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(result)
			}

			fmt.Printf("Wallet:            %s\n", result.WalletAddress)
			fmt.Printf("Records Persisted: %d\n", result.RecordsPersisted)
			fmt.Printf("Incremental:       %v\n", result.Incremental)
			return nil
		},
	}
}
