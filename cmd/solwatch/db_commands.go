package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
)

func listWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-wallets",
		Usage:   "List all tracked wallets",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			wallets, err := store.ListWallets(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(wallets)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tSTATUS\tPOLL INTERVAL\tLAST POLL\tCREATED")
			for _, wallet := range wallets {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
					wallet.Address,
					wallet.Status,
					wallet.PollInterval,
					formatOptionalTime(wallet.LastPollTime),
					wallet.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d wallets\n", len(wallets))
			return nil
		},
	}
}

func getWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-wallet",
		Usage:     "Get a wallet's cursor and sync state",
		Aliases:   []string{"get"},
		ArgsUsage: "<address>",
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

			wallet, err := store.GetWallet(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get wallet: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(wallet)
			}

			fmt.Printf("Address:                %s\n", wallet.Address)
			fmt.Printf("Status:                 %s\n", wallet.Status)
			fmt.Printf("Poll Interval:          %v\n", wallet.PollInterval)
			fmt.Printf("Newest Signature:       %v\n", wallet.NewestProcessedSignature)
			fmt.Printf("Newest Timestamp:       %s\n", formatOptionalInt64(wallet.NewestProcessedTimestamp))
			fmt.Printf("Last Poll:              %s\n", formatOptionalTime(wallet.LastPollTime))
			fmt.Printf("Created:                %s\n", wallet.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Updated:                %s\n", wallet.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func listSwapsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-swaps",
		Usage:     "List persisted swap records for a wallet",
		Aliases:   []string{"swaps"},
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "since", Usage: "Only include swaps at or after this time (RFC3339)"},
			&cli.StringFlag{Name: "until", Usage: "Only include swaps at or before this time (RFC3339)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()

			tr, err := parseTimeRangeFlags(c)
			if err != nil {
				return err
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			swaps, err := store.GetByWallet(context.Background(), address, tr.toDBRange())
			if err != nil {
				return fmt.Errorf("failed to list swaps: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(swaps)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIGNATURE\tMINT\tDIRECTION\tAMOUNT\tSOL VALUE\tTIMESTAMP")
			for _, s := range swaps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%.9f\t%s\n",
					s.Signature, s.Mint, s.Direction, s.Amount, s.AssociatedSolValue,
					time.Unix(s.Timestamp, 0).UTC().Format(time.RFC3339),
				)
			}
			w.Flush()
			fmt.Fprintf(os.Stderr, "\nTotal: %d swaps\n", len(swaps))
			return nil
		},
	}
}
