package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type dbFilter struct {
	Run   string
	Agent string
	Type  string
	Limit int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/hearthsim.sqlite)")
	run := fs.String("run", "", "run_id filter")
	agent := fs.String("agent", "", "agent_id filter (events)")
	typ := fs.String("type", "", "event type filter, e.g. PLAN or SWITCH (events)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "hearthsim.sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	f := dbFilter{Run: strings.TrimSpace(*run), Agent: strings.TrimSpace(*agent), Type: strings.ToUpper(strings.TrimSpace(*typ)), Limit: *limit}
	if err := queryIndex(db, q, f, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-run ID] [-agent A1] [-type PLAN] [-limit N] runs|events|commands|snapshots")
		os.Exit(2)
	}
}

// queryIndex prints one JSON object per row of query q.
func queryIndex(db *sql.DB, q string, f dbFilter, out io.Writer) error {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	switch q {
	case "runs":
		rows, err := db.Query(`SELECT run_id,scenario,seed,from_tick,COALESCE(parent_run,''),tuning_digest,started_at FROM runs WHERE (?='' OR run_id=?) ORDER BY started_at DESC LIMIT ?`, f.Run, f.Run, f.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID        string `json:"run_id"`
				Scenario     string `json:"scenario"`
				Seed         int64  `json:"seed"`
				FromTick     int64  `json:"from_tick"`
				ParentRun    string `json:"parent_run,omitempty"`
				TuningDigest string `json:"tuning_digest"`
				StartedAt    string `json:"started_at"`
			}
			if err := rows.Scan(&r.RunID, &r.Scenario, &r.Seed, &r.FromTick, &r.ParentRun, &r.TuningDigest, &r.StartedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "events":
		rows, err := db.Query(`SELECT run_id,tick,seq,agent_id,type,COALESCE(need,''),COALESCE(action,''),COALESCE(plan,''),COALESCE(cost,0),COALESCE(score,0),COALESCE(detail,'')
			FROM events
			WHERE (?='' OR run_id=?) AND (?='' OR agent_id=?) AND (?='' OR type=?)
			ORDER BY tick DESC, seq DESC LIMIT ?`,
			f.Run, f.Run, f.Agent, f.Agent, f.Type, f.Type, f.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID  string  `json:"run_id"`
				Tick   int64   `json:"tick"`
				Seq    int     `json:"seq"`
				Agent  string  `json:"agent"`
				Type   string  `json:"type"`
				Need   string  `json:"need,omitempty"`
				Action string  `json:"action,omitempty"`
				Plan   string  `json:"plan,omitempty"`
				Cost   float64 `json:"cost,omitempty"`
				Score  float64 `json:"score,omitempty"`
				Detail string  `json:"detail,omitempty"`
			}
			if err := rows.Scan(&r.RunID, &r.Tick, &r.Seq, &r.Agent, &r.Type, &r.Need, &r.Action, &r.Plan, &r.Cost, &r.Score, &r.Detail); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "commands":
		rows, err := db.Query(`SELECT run_id,tick,seq,COALESCE(cmd_id,''),kind,COALESCE(actor,''),ok,COALESCE(code,''),COALESCE(reason,'') FROM commands WHERE (?='' OR run_id=?) ORDER BY tick DESC, seq DESC LIMIT ?`, f.Run, f.Run, f.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID  string `json:"run_id"`
				Tick   int64  `json:"tick"`
				Seq    int    `json:"seq"`
				ID     string `json:"id,omitempty"`
				Kind   string `json:"kind"`
				Actor  string `json:"actor,omitempty"`
				OK     bool   `json:"ok"`
				Code   string `json:"code,omitempty"`
				Reason string `json:"reason,omitempty"`
			}
			if err := rows.Scan(&r.RunID, &r.Tick, &r.Seq, &r.ID, &r.Kind, &r.Actor, &r.OK, &r.Code, &r.Reason); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "snapshots":
		rows, err := db.Query(`SELECT run_id,tick,path,seed,agents,stations,spots FROM snapshots WHERE (?='' OR run_id=?) ORDER BY tick DESC LIMIT ?`, f.Run, f.Run, f.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID    string `json:"run_id"`
				Tick     int64  `json:"tick"`
				Path     string `json:"path"`
				Seed     int64  `json:"seed"`
				Agents   int    `json:"agents"`
				Stations int    `json:"stations"`
				Spots    int    `json:"spots"`
			}
			if err := rows.Scan(&r.RunID, &r.Tick, &r.Path, &r.Seed, &r.Agents, &r.Stations, &r.Spots); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
