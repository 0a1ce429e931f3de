package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "pigflow.ai/internal/persistence/log"
	"pigflow.ai/internal/sim/playback"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "advance":
			advanceCmd(os.Args[2:])
			return
		case "load":
			loadCmd(os.Args[2:])
			return
		case "days":
			daysCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.ListDayFiles(filepath.Join(*dataDir, "days"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println(filepath.Base(f))
	}
}

// daysCmd prints a one-line summary per recorded day.
func daysCmd(args []string) {
	fs := flag.NewFlagSet("days", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "", "only this session (optional)")
	_ = fs.Parse(args)

	files, err := persistlog.ListDayFiles(filepath.Join(*dataDir, "days"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, path := range files {
		err := persistlog.ReadDayFile(path, func(rec playback.DayRecord) error {
			if *session != "" && rec.SessionID != *session {
				return nil
			}
			fmt.Println(formatDay(rec))
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read day file:", err)
			os.Exit(1)
		}
	}
}

func formatDay(rec playback.DayRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s day=%d cursor=%d trucks=%d pigs=%d net=%.2f", shortID(rec.SessionID), rec.Day, rec.Cursor, rec.Summary.Trucks, rec.Summary.PigsProcessed, rec.Summary.Net)
	if rec.Finished {
		b.WriteString(" finished")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
