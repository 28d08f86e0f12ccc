package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solwatch/service/temporal"
	"github.com/urfave/cli/v2"
)

func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	return temporal.NewClient(c.String("temporal-host"), c.String("temporal-namespace"), c.String("temporal-task-queue"), slog.Default())
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-schedule",
		Usage:     "Create a recurring Temporal schedule that syncs a wallet",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Value: 5 * time.Minute, Usage: "Sync interval"},
			&cli.BoolFlag{Name: "smart-fetch", Value: true},
			&cli.IntFlag{Name: "target-tx-count", Value: 200},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()

			client, err := getTemporalClient(c)
			if err != nil {
				return fmt.Errorf("failed to connect to temporal: %w", err)
			}
			defer client.Close()

			if err := client.CreateWalletSchedule(context.Background(), address, c.Duration("interval"), c.Bool("smart-fetch"), c.Int("target-tx-count")); err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}

			fmt.Printf("created sync schedule for %s (interval=%v)\n", address, c.Duration("interval"))
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-schedule",
		Usage:     "Delete a wallet's recurring sync schedule",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()

			client, err := getTemporalClient(c)
			if err != nil {
				return fmt.Errorf("failed to connect to temporal: %w", err)
			}
			defer client.Close()

			if err := client.DeleteWalletSchedule(context.Background(), address); err != nil {
				return fmt.Errorf("failed to delete schedule: %w", err)
			}

			fmt.Printf("deleted sync schedule for %s\n", address)
			return nil
		},
	}
}
