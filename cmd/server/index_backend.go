package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pigflow.ai/internal/persistence/indexdb"
	"pigflow.ai/internal/sim/playback"
	"pigflow.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	playback.DaySink
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordSession(row indexdb.SessionRow)
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("PF_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		path := filepath.Join(dataDir, "index", "pigflow.sqlite")
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		logger.Printf("index backend: sqlite (%s)", path)
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported PF_INDEX_BACKEND=%q", backend)
	}
}
