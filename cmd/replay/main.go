package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"pigflow.ai/internal/dataset"
	persistlog "pigflow.ai/internal/persistence/log"
	"pigflow.ai/internal/sim/playback"
	"pigflow.ai/internal/sim/tuning"
)

func main() {
	var (
		datasetPath = flag.String("dataset", "", "path to the dataset (.json or .json.zst) the session was loaded from")
		daysDir     = flag.String("days", "./data/days", "dir containing days-*.jsonl.zst")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "tuning the session ran with")
		sessionID   = flag.String("session", "", "session to verify (default: the last one recorded)")
	)
	flag.Parse()

	if *datasetPath == "" {
		fmt.Fprintln(os.Stderr, "missing -dataset")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	cfg, err := playback.ConfigFromTuning(tune)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}

	files, err := persistlog.ListDayFiles(*daysDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list days:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no day files found in", *daysDir)
		os.Exit(1)
	}

	sessions, order, err := readSessions(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read days:", err)
		os.Exit(1)
	}
	sid := *sessionID
	if sid == "" {
		sid = order[len(order)-1]
	}
	recs, ok := sessions[sid]
	if !ok {
		fmt.Fprintln(os.Stderr, "session not found:", sid)
		os.Exit(1)
	}

	eng := playback.New(cfg, log.New(io.Discard, "", 0))
	if err := eng.Load(context.Background(), dataset.FileSource{Path: *datasetPath}); err != nil {
		fmt.Fprintln(os.Stderr, "load dataset:", err)
		os.Exit(1)
	}

	checked, err := verify(eng, recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: session=%s checked=%d days (dataset=%s)\n", sid, checked, filepath.Base(*datasetPath))
}

// readSessions groups day records by session, keeping first-seen order.
func readSessions(files []string) (map[string][]playback.DayRecord, []string, error) {
	out := map[string][]playback.DayRecord{}
	var order []string
	for _, path := range files {
		err := persistlog.ReadDayFile(path, func(rec playback.DayRecord) error {
			if _, ok := out[rec.SessionID]; !ok {
				order = append(order, rec.SessionID)
			}
			out[rec.SessionID] = append(out[rec.SessionID], rec)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	if len(order) == 0 {
		return nil, nil, fmt.Errorf("no day records")
	}
	return out, order, nil
}

// verify re-applies each recorded day on a freshly loaded engine and compares
// the resulting day index, cursor and state digest.
func verify(eng *playback.Engine, recs []playback.DayRecord) (int, error) {
	if len(recs) > 0 && recs[0].Cursor != 0 {
		return 0, fmt.Errorf("session log starts at cursor %d; need the whole session", recs[0].Cursor)
	}
	checked := 0
	for i, rec := range recs {
		if rec.Cursor != i {
			return checked, fmt.Errorf("cursor gap: want=%d got=%d", i, rec.Cursor)
		}
		res, err := eng.Advance()
		if err != nil {
			return checked, err
		}
		if res.NoOp {
			return checked, fmt.Errorf("playback ended before recorded cursor %d", rec.Cursor)
		}
		if res.Day != rec.Day {
			return checked, fmt.Errorf("day mismatch at cursor %d: got=%d want=%d", rec.Cursor, res.Day, rec.Day)
		}
		if got := eng.State().Digest; got != rec.Digest {
			return checked, fmt.Errorf("digest mismatch at day %d: got=%s want=%s", rec.Day, got, rec.Digest)
		}
		checked++
	}
	return checked, nil
}
