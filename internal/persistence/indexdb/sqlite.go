package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/world"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropCommand  atomic.Uint64
	dropSnapshot atomic.Uint64
	dropRun      atomic.Uint64
}

// Stats counts requests dropped because the writer fell behind.
type Stats struct {
	DropTickTotal     uint64
	DropCommandTotal  uint64
	DropSnapshotTotal uint64
	DropRunTotal      uint64
	QueueDepth        int
	QueueCapacity     int
}

// RunInfo describes one simulation run. FromTick is non-zero for runs
// resumed from a snapshot.
type RunInfo struct {
	RunID     string
	Scenario  string
	Seed      int64
	FromTick  uint64
	ParentRun string
	Tuning    any
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqCommand
	reqSnapshot
	reqRun
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	command  world.CommandEntry
	snapshot snapshotRow
	run      runRow
}

type snapshotRow struct {
	RunID    string
	Tick     uint64
	Path     string
	Seed     int64
	Agents   int
	Stations int
	Spots    int
}

type runRow struct {
	RunID        string
	Scenario     string
	Seed         int64
	FromTick     uint64
	ParentRun    string
	TuningJSON   string
	TuningDigest string
	StartedAt    string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			from_tick INTEGER NOT NULL,
			parent_run TEXT,
			tuning_digest TEXT NOT NULL,
			tuning_json TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			type TEXT NOT NULL,
			need TEXT,
			action TEXT,
			plan TEXT,
			cost REAL,
			score REAL,
			detail TEXT,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_agent_tick ON events(agent_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_tick ON events(type, tick);`,
		`CREATE TABLE IF NOT EXISTS commands (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			cmd_id TEXT,
			kind TEXT NOT NULL,
			actor TEXT,
			ok INTEGER NOT NULL,
			code TEXT,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			stations INTEGER NOT NULL,
			spots INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropTickTotal:     s.dropTick.Load(),
		DropCommandTotal:  s.dropCommand.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropRunTotal:      s.dropRun.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s != nil {
		s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	}
	return nil
}

func (s *SQLiteIndex) WriteCommand(entry world.CommandEntry) error {
	if s != nil {
		s.enqueue(req{kind: reqCommand, command: entry}, &s.dropCommand)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{
		RunID:    snap.Header.RunID,
		Tick:     snap.Header.Tick,
		Path:     path,
		Seed:     snap.Seed,
		Agents:   len(snap.Agents),
		Stations: len(snap.Stations),
		Spots:    len(snap.Spots),
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshot)
}

// RecordRun stores the run header with the tuning values actually applied.
func (s *SQLiteIndex) RecordRun(info RunInfo) {
	if s == nil || info.RunID == "" {
		return
	}
	b, _ := json.Marshal(info.Tuning)
	sum := sha256.Sum256(b)
	r := runRow{
		RunID:        info.RunID,
		Scenario:     info.Scenario,
		Seed:         info.Seed,
		FromTick:     info.FromTick,
		ParentRun:    info.ParentRun,
		TuningJSON:   string(b),
		TuningDigest: hex.EncodeToString(sum[:]),
		StartedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.enqueue(req{kind: reqRun, run: r}, &s.dropRun)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,events,commands,raw_json) VALUES(?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(run_id,tick,seq,agent_id,type,need,action,plan,cost,score,detail) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(run_id,tick,seq,cmd_id,kind,actor,ok,code,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,tick,path,seed,agents,stations,spots) VALUES(?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,scenario,seed,from_tick,parent_run,tuning_digest,tuning_json,started_at) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertEvent, insertCommand, insertSnapshot, insertRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastCmdTick uint64
		cmdSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			b, _ := json.Marshal(e)
			if !exec(insertTick, e.RunID, int64(e.Tick), e.Digest, len(e.Events), len(e.Commands), string(b)) {
				continue
			}
			for i, ev := range e.Events {
				if !exec(insertEvent, e.RunID, int64(e.Tick), i, ev.Agent, ev.Type, ev.Need, ev.Action, ev.Plan, ev.Cost, ev.Score, ev.Detail) {
					break
				}
			}

		case reqCommand:
			c := r.command
			if c.Tick != lastCmdTick {
				lastCmdTick = c.Tick
				cmdSeq = 0
			}
			seq := cmdSeq
			cmdSeq++
			raw, _ := json.Marshal(c.Cmd)
			ok := 0
			if c.OK {
				ok = 1
			}
			exec(insertCommand, c.RunID, int64(c.Tick), seq, c.Cmd.ID, c.Cmd.Kind, c.Cmd.Actor, ok, c.Code, c.Reason, string(raw))

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.RunID, int64(sn.Tick), sn.Path, sn.Seed, sn.Agents, sn.Stations, sn.Spots)

		case reqRun:
			ru := r.run
			exec(insertRun, ru.RunID, ru.Scenario, ru.Seed, int64(ru.FromTick), ru.ParentRun, ru.TuningDigest, ru.TuningJSON, ru.StartedAt)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
