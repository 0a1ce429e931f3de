package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	session := fs.String("session", "", "session id (optional; defaults to latest)")
	limit := fs.Int("limit", 20, "result limit")
	farmID := fs.String("farm", "", "farm id filter (farm)")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "pigflow.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	if q != "sessions" && *session == "" {
		sid, err := latestSession(db)
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest session:", err)
			os.Exit(1)
		}
		if sid == "" {
			fmt.Fprintln(os.Stderr, "no sessions found")
			os.Exit(2)
		}
		*session = sid
	}

	switch q {
	case "sessions":
		rows, err := db.Query(`SELECT session_id,loaded_at,farms,days FROM sessions ORDER BY loaded_at DESC LIMIT ?`, *limit)
		if err != nil {
			die("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				SessionID string `json:"session_id"`
				LoadedAt  string `json:"loaded_at"`
				Farms     int    `json:"farms"`
				Days      int    `json:"days"`
			}
			if err := rows.Scan(&r.SessionID, &r.LoadedAt, &r.Farms, &r.Days); err != nil {
				die("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			die("rows", err)
		}

	case "days":
		rows, err := db.Query(`SELECT day,cursor,trucks,revenue,cost,penalty,net,pigs_processed,finished FROM days WHERE session_id=? ORDER BY day LIMIT ?`, *session, *limit)
		if err != nil {
			die("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Day      int     `json:"day"`
				Cursor   int     `json:"cursor"`
				Trucks   int     `json:"trucks"`
				Revenue  float64 `json:"revenue"`
				Cost     float64 `json:"cost"`
				Penalty  float64 `json:"penalty"`
				Net      float64 `json:"net"`
				Pigs     int     `json:"pigs_processed"`
				Finished bool    `json:"finished"`
			}
			if err := rows.Scan(&r.Day, &r.Cursor, &r.Trucks, &r.Revenue, &r.Cost, &r.Penalty, &r.Net, &r.Pigs, &r.Finished); err != nil {
				die("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			die("rows", err)
		}

	case "routes":
		rows, err := db.Query(`SELECT day,truck_id,stops,pigs,total_kgs,distance FROM routes WHERE session_id=? ORDER BY day,seq LIMIT ?`, *session, *limit)
		if err != nil {
			die("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Day      int     `json:"day"`
				TruckID  string  `json:"truck_id"`
				Stops    int     `json:"stops"`
				Pigs     int     `json:"pigs"`
				TotalKgs float64 `json:"total_kgs"`
				Distance float64 `json:"distance"`
			}
			if err := rows.Scan(&r.Day, &r.TruckID, &r.Stops, &r.Pigs, &r.TotalKgs, &r.Distance); err != nil {
				die("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			die("rows", err)
		}

	case "farm":
		if strings.TrimSpace(*farmID) == "" {
			fmt.Fprintln(os.Stderr, "missing -farm")
			os.Exit(2)
		}
		rows, err := db.Query(`SELECT day,pigs,avg_weight,visited FROM farm_days WHERE session_id=? AND farm_id=? ORDER BY day LIMIT ?`, *session, *farmID, *limit)
		if err != nil {
			die("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Day       int     `json:"day"`
				Pigs      int     `json:"pigs"`
				AvgWeight float64 `json:"avg_weight"`
				Visited   bool    `json:"visited"`
			}
			if err := rows.Scan(&r.Day, &r.Pigs, &r.AvgWeight, &r.Visited); err != nil {
				die("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			die("rows", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want sessions|days|routes|farm)")
		os.Exit(2)
	}
}

func latestSession(db *sql.DB) (string, error) {
	var sid sql.NullString
	err := db.QueryRow(`SELECT session_id FROM sessions ORDER BY loaded_at DESC LIMIT 1`).Scan(&sid)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sid.String, nil
}

func die(what string, err error) {
	fmt.Fprintln(os.Stderr, what+":", err)
	os.Exit(1)
}
