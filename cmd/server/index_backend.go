package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hearthsim.ai/internal/persistence/indexdb"
)

// openRuntimeIndex opens the read-model index. A nil index with a nil error
// means indexing is disabled.
func openRuntimeIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("HS_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "hearthsim.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported HS_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
