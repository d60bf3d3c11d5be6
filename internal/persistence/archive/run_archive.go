package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hearthsim.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
	Agents    int    `json:"agents"`
	Stations  int    `json:"stations"`
	Reason    string `json:"reason,omitempty"`
}

// ArchiveRunSnapshot copies the final snapshot of a run into
// `dataDir/archives/run_<id>/` next to a meta.json describing it.
func ArchiveRunSnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1, reason string) (string, error) {
	if snap.Header.RunID == "" {
		return "", fmt.Errorf("archive: snapshot has no run id")
	}
	archiveDir := filepath.Join(dataDir, "archives", "run_"+snap.Header.RunID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := RunArchiveMeta{
		RunID:     snap.Header.RunID,
		Scenario:  snap.Scenario,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Agents:    len(snap.Agents),
		Stations:  len(snap.Stations),
		Reason:    reason,
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return dst, err
	}
	return dst, nil
}

// ReadMeta loads the meta.json of an archived run.
func ReadMeta(archiveDir string) (RunArchiveMeta, error) {
	var m RunArchiveMeta
	b, err := os.ReadFile(filepath.Join(archiveDir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
