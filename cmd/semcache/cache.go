package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pario-ai/semcache/pkg/assistant"
)

var (
	hitLabel  = color.New(color.FgGreen, color.Bold).SprintFunc()
	missLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

// storeChangeNote warns that a running server keeps its own in-memory index.
const storeChangeNote = "A running `semcache serve` on the same database does not see this change: " +
	"its index stays as it was and its stats report consistent=false until " +
	"POST /api/cache/rebuild is called or the server restarts. Prefer the HTTP API while a server is running."

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the semantic cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configPath)
			if err != nil {
				return err
			}
			c, closeCache, err := openCache(cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			stats, err := c.Stats(context.Background())
			if err != nil {
				return err
			}
			consistent := "yes"
			if !stats.Consistent {
				consistent = missLabel("no (run `semcache cache rebuild`)")
			}
			fmt.Printf("Records:    %s\nIndexed:    %s\nConsistent: %s\n",
				humanize.Comma(stats.RecordCount), humanize.Comma(stats.IndexSize), consistent)
			return nil
		},
	}

	var threshold float64
	lookupCmd := &cobra.Command{
		Use:   "lookup <query>",
		Short: "Look up the closest cached query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configPath)
			if err != nil {
				return err
			}
			c, closeCache, err := openCache(cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			t := cfg.Cache.Threshold
			if cmd.Flags().Changed("threshold") {
				t = float32(threshold)
			}
			res, err := c.Lookup(context.Background(), args[0], t)
			if err != nil {
				return err
			}
			if !res.Hit {
				fmt.Printf("%s  best score %.4f (threshold %.2f)\n", missLabel("MISS"), res.Score, t)
				return nil
			}
			fmt.Printf("%s  #%d score %.4f\nMatched: %s\n%s\n",
				hitLabel("HIT"), res.ID, res.Score, res.MatchedQuery, res.Response)
			return nil
		},
	}
	lookupCmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold (defaults to cache.threshold)")

	var raw bool
	insertCmd := &cobra.Command{
		Use:   "insert <query> <response-json>",
		Short: "Store a query and its tool recommendation response",
		Long: "Store a query and its response. The response must be a tool " +
			"recommendation object unless --raw is set, in which case any JSON value is accepted.\n\n" +
			storeChangeNote,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[1], raw)
			if err != nil {
				return err
			}

			cfg, log, err := setup(configPath)
			if err != nil {
				return err
			}
			c, closeCache, err := openCache(cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			id, err := c.Insert(context.Background(), args[0], payload)
			if err != nil {
				return err
			}
			fmt.Printf("Inserted record #%s.\n", strconv.FormatInt(id, 10))
			return nil
		},
	}
	insertCmd.Flags().BoolVar(&raw, "raw", false, "accept any JSON value as the response")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached record",
		Long:  "Delete every cached record.\n\n" + storeChangeNote,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configPath)
			if err != nil {
				return err
			}
			c, closeCache, err := openCache(cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			if err := c.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector index from the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configPath)
			if err != nil {
				return err
			}
			c, closeCache, err := openCache(cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			ctx := context.Background()
			if err := c.Rebuild(ctx); err != nil {
				return err
			}
			stats, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Index rebuilt: %s records.\n", humanize.Comma(stats.IndexSize))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.AddCommand(statsCmd, lookupCmd, insertCmd, clearCmd, rebuildCmd)
	return cmd
}

// parsePayload reads a response argument. "-" reads it from stdin.
func parsePayload(arg string, raw bool) ([]byte, error) {
	data := []byte(arg)
	if arg == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		data = b
	}
	if raw {
		if !json.Valid(data) {
			return nil, errors.New("response is not valid JSON")
		}
		return data, nil
	}
	return assistant.ValidateToolResponse(data)
}
