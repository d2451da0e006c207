// cmd/inspect/main.go
// Read-only tools for discovering fixed-width record layouts in the raw
// archive. "prefixes" tallies record-type prefixes; "layouts" samples a
// prefix and reports hit rates for candidate date slices. A slice that
// hits ~100% with a plausible min/max range is accepted as the true
// field position and promoted into the layout catalog.
//
// Usage:
//
//	go run ./cmd/inspect prefixes --dataspec RACE
//	go run ./cmd/inspect layouts --prefix JG1 --prefix HR2
//	go run ./cmd/inspect layouts --prefix SE7 --date-slice 11,8 --date-slice 3,8
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asayao-fp/keiba/config"
	bundb "github.com/asayao-fp/keiba/db"
	"github.com/asayao-fp/keiba/jv"
	"github.com/asayao-fp/keiba/models"
)

var (
	dbPath     string
	dataSpec   string
	limit      int
	samples    int
	chars      int
	prefixes   []string
	dateSlices []string
)

var rootCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Explore fixed-width record layouts in the raw archive",
}

var prefixesCmd = &cobra.Command{
	Use:   "prefixes",
	Short: "Count records per 2- and 3-character payload prefix",
	RunE:  runPrefixes,
}

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "Sample a prefix and test candidate date slices",
	RunE:  runLayouts,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: DB_PATH env or jv_data.db)")
	rootCmd.PersistentFlags().StringVar(&dataSpec, "dataspec", "RACE", "feed category to sample")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 1000, "sample size per prefix")

	layoutsCmd.Flags().StringArrayVar(&prefixes, "prefix", nil, "payload prefix to sample (repeatable, required)")
	layoutsCmd.Flags().StringArrayVar(&dateSlices, "date-slice", nil, "candidate slice as offset,length (repeatable)")
	layoutsCmd.Flags().IntVar(&samples, "samples", 5, "payload heads to print")
	layoutsCmd.Flags().IntVar(&chars, "chars", 120, "characters per printed payload head")
	_ = layoutsCmd.MarkFlagRequired("prefix")

	rootCmd.AddCommand(prefixesCmd, layoutsCmd)
}

func runPrefixes(cmd *cobra.Command, args []string) error {
	cfg := config.LoadBatch()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	db := bundb.Setup(cfg)
	defer db.Close()
	ctx := context.Background()

	total, err := db.NewSelect().
		Model((*models.RawRecord)(nil)).
		Where("dataspec = ?", dataSpec).
		Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("dataspec=%q  total records: %d\n", dataSpec, total)

	known := make(map[string]bool)
	for _, p := range jv.DefaultCatalog().Prefixes() {
		known[p] = true
	}

	for _, prefixLen := range []int{2, 3} {
		var rows []struct {
			Prefix string `bun:"prefix"`
			Cnt    int    `bun:"cnt"`
		}
		err := db.NewSelect().
			TableExpr("raw_jv_records").
			ColumnExpr("SUBSTR(payload_text, 1, ?) AS prefix", prefixLen).
			ColumnExpr("COUNT(*) AS cnt").
			Where("dataspec = ?", dataSpec).
			GroupExpr("prefix").
			OrderExpr("cnt DESC").
			Limit(limit).
			Scan(ctx, &rows)
		if err != nil {
			return err
		}

		fmt.Printf("\nprefix_len=%d\n  %-10s  %10s\n", prefixLen, "PREFIX", "COUNT")
		for _, row := range rows {
			name := row.Prefix
			if name == "" {
				name = "(empty)"
			}
			mark := ""
			if known[row.Prefix] {
				mark = "  decoded"
			}
			fmt.Printf("  %-10s  %10d%s\n", name, row.Cnt, mark)
		}
	}
	fmt.Println("\n\"decoded\" marks prefixes the layout catalog already handles.")
	return nil
}

func runLayouts(cmd *cobra.Command, args []string) error {
	cfg := config.LoadBatch()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	db := bundb.Setup(cfg)
	defer db.Close()
	ctx := context.Background()

	slices := jv.DefaultDateSlices()
	if len(dateSlices) > 0 {
		slices = slices[:0]
		for _, s := range dateSlices {
			offset, length, err := parseSlice(s)
			if err != nil {
				return err
			}
			slices = append(slices, [2]int{offset, length})
		}
	}

	for _, prefix := range prefixes {
		var payloads []string
		err := db.NewSelect().
			Model((*models.RawRecord)(nil)).
			Column("payload_text").
			Where("dataspec = ?", dataSpec).
			Where("SUBSTR(payload_text, 1, ?) = ?", len(prefix), prefix).
			Limit(limit).
			Scan(ctx, &payloads)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\nprefix=%q  samples: %d / limit=%d\n", strings.Repeat("=", 60), prefix, len(payloads), limit)
		if len(payloads) == 0 {
			continue
		}

		minLen, maxLen := len(payloads[0]), len(payloads[0])
		for _, p := range payloads[1:] {
			if len(p) < minLen {
				minLen = len(p)
			}
			if len(p) > maxLen {
				maxLen = len(p)
			}
		}
		fmt.Printf("payload length  min=%d  max=%d\n", minLen, maxLen)

		for _, s := range slices {
			rep := jv.DateSlice(payloads, s[0], s[1])
			if rep.Hits > 0 {
				fmt.Printf("date-slice offset=%d,len=%d  hit=%d/%d (%.1f%%)  min=%s  max=%s\n",
					rep.Offset, rep.Length, rep.Hits, rep.Samples, rep.HitRate(), rep.Min, rep.Max)
			} else {
				fmt.Printf("date-slice offset=%d,len=%d  hit=0/%d  (no YYYYMMDD pattern)\n",
					rep.Offset, rep.Length, rep.Samples)
			}
		}

		n := samples
		if n > len(payloads) {
			n = len(payloads)
		}
		fmt.Printf("payload heads (first %d chars, up to %d records):\n", chars, n)
		for i := 0; i < n; i++ {
			head := payloads[i]
			if len(head) > chars {
				head = head[:chars]
			}
			fmt.Printf("  [%d] %q\n", i+1, head)
		}
	}
	return nil
}

func parseSlice(value string) (offset, length int, err error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("--date-slice wants offset,length (e.g. 11,8): %q", value)
	}
	offset, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("--date-slice offset: %w", err)
	}
	length, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("--date-slice length: %w", err)
	}
	if offset < 0 || length < 1 {
		return 0, 0, fmt.Errorf("--date-slice offset must be >= 0 and length >= 1: %q", value)
	}
	return offset, length, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
