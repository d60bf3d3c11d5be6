package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 holds the durable facts of a world. Plans, claims and
// reservations are runtime-only: agents resume idle and re-plan.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Scenario   string `json:"scenario"`
	Seed       int64  `json:"seed"`
	TickRateHz int    `json:"tick_rate_hz"`

	Grid GridV1 `json:"grid"`

	Stations       []StationV1 `json:"stations"`
	StationCounter uint64      `json:"station_counter"`
	Spots          []SpotV1    `json:"spots"`
	SpotCounter    uint64      `json:"spot_counter"`
	Agents         []AgentV1   `json:"agents"`
}

type GridV1 struct {
	Origin        [2]float64 `json:"origin"`
	CellSize      float64    `json:"cell_size"`
	Cols          int        `json:"cols"`
	Rows          int        `json:"rows"`
	AllowDiagonal bool       `json:"allow_diagonal"`
	// Cells is the run-length encoded occupancy mask: row-major, row 0 at
	// the bottom, blocked cells set.
	Cells string `json:"cells"`
}

type StationV1 struct {
	ID      string     `json:"id"`
	Kind    string     `json:"kind"`
	Pos     [2]float64 `json:"pos"`
	BuiltBy string     `json:"built_by,omitempty"`
	SpotID  string     `json:"spot_id,omitempty"`
}

type SpotV1 struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Pos       [2]float64 `json:"pos"`
	StationID string     `json:"station_id,omitempty"`
}

type AgentV1 struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Primary string     `json:"primary"`
	Pos     [2]float64 `json:"pos"`
	Carried int        `json:"carried"`
	Meters  []float64  `json:"meters"`
	Seed    int64      `json:"seed"`
}

// WriteSnapshot writes a JSON header line followed by the gob body, all
// zstd-compressed. The file appears atomically under path.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
