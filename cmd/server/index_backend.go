package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"matchsim.ai/internal/persistence/indexdb"
)

// openRuntimeIndex returns nil when indexing is off. The index is a read-model
// only; the match runs the same with or without it.
func openRuntimeIndex(matchDir string, disableDB bool, logger *log.Logger) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MATCHSIM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		logger.Printf("cycle index disabled (MATCHSIM_INDEX_BACKEND=%s)", backend)
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(matchDir, "index", "cycles.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported MATCHSIM_INDEX_BACKEND: %s", backend)
	}
}
