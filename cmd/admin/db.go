package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"matchsim.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	matchID := fs.String("match", "", "match id (required)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit for cycles (0 = all)")
	_ = fs.Parse(args)

	q := "outcomes"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if strings.TrimSpace(*matchID) == "" {
		fmt.Fprintln(os.Stderr, "missing -match")
		os.Exit(2)
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "matches", *matchID, "index", "cycles.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	switch q {
	case "outcomes":
		counts, err := idx.OutcomeCounts(ctx, *matchID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		_ = enc.Encode(counts)
	case "cycles":
		rows, err := idx.Cycles(ctx, *matchID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		if *limit > 0 && len(rows) > *limit {
			rows = rows[len(rows)-*limit:]
		}
		for _, r := range rows {
			_ = enc.Encode(r)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want outcomes|cycles)")
		os.Exit(2)
	}
}
